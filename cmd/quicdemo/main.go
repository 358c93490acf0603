// Command quicdemo demonstrates that gdbstub.Connection is transport
// agnostic: it serves one GDB session per QUIC stream instead of a TCP
// socket, reusing the same Stub and Target code a TCP-based embedder
// would use. The QUIC wiring follows the quic-go usage in
// SeleniaProject-Orizon/internal/runtime/netstack/http3.go, adapted from
// its HTTP/3 server setup to a raw listener since RSP needs a plain
// bidirectional byte stream rather than a request/response protocol.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"math/big"
	"net"
	"time"

	"github.com/coresim/gdbstub"
	"github.com/coresim/gdbstub/internal/toyvm"
	quic "github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"
)

var flagListen = flag.String("listen", "localhost:7334", "QUIC listen address")

func main() {
	flag.Parse()
	log := logrus.New()

	tlsConf, err := selfSignedTLSConfig()
	if err != nil {
		log.WithError(err).Fatal("cannot build TLS config")
	}

	listener, err := quic.ListenAddr(*flagListen, tlsConf, &quic.Config{
		MaxIdleTimeout: 5 * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("cannot listen")
	}
	log.WithField("addr", *flagListen).Info("listening for GDB-over-QUIC connections")

	machine := toyvm.NewMachine(64*1024, 0)
	machine.Cores[0].Running = true

	for {
		conn, err := listener.Accept(context.Background())
		if err != nil {
			log.WithError(err).Error("accept failed")
			continue
		}
		// Intentionally not a goroutine, and serveConn below accepts
		// streams one at a time for the same reason: only one GDB
		// session may drive the shared Machine at once, or two
		// sessions' resume actions would trample each other.
		serveConn(conn, machine, log)
	}
}

func serveConn(conn quic.Connection, machine *toyvm.Machine, log *logrus.Logger) {
	for {
		stream, err := conn.AcceptStream(context.Background())
		if err != nil {
			return
		}
		qc := &quicConn{stream: stream, r: bufio.NewReader(stream)}
		stub := gdbstub.New(qc)
		reason, err := stub.RunBlocking(machine, toyvm.EventLoop{})
		if err != nil {
			log.WithError(err).Warn("session ended with error")
			continue
		}
		log.WithField("reason", reason).Info("session ended")
	}
}

// quicConn adapts a quic.Stream to gdbstub.Connection, mirroring
// transportnet.Conn's bufio-based approach but without the fd/session
// instrumentation that only makes sense for a real net.Conn.
type quicConn struct {
	stream quic.Stream
	r      *bufio.Reader
}

func (c *quicConn) ReadByte() (byte, error) { return c.r.ReadByte() }

func (c *quicConn) PeekByte() (byte, bool, error) {
	if err := c.stream.SetReadDeadline(time.Now().Add(2 * time.Millisecond)); err != nil {
		return 0, false, err
	}
	defer c.stream.SetReadDeadline(time.Time{})

	b, err := c.r.Peek(1)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, false, nil
		}
		return 0, false, err
	}
	return b[0], true, nil
}

func (c *quicConn) Write(p []byte) (int, error) { return c.stream.Write(p) }

func (c *quicConn) Flush() error { return nil }

// selfSignedTLSConfig builds an ephemeral self-signed certificate so the
// demo runs with no external PKI; a real embedder would load a
// provisioned certificate instead.
func selfSignedTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"gdbstub-quicdemo"},
	}, nil
}
