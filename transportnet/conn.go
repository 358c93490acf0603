// Package transportnet adapts a plain net.Conn into a gdbstub.Connection,
// the one concrete transport gdbstub itself never provides (the engine
// is transport-agnostic by design). It mirrors the way
// runZeroInc-sockstats/pkg/exporter wraps a net.Conn to recover its
// kernel file descriptor, and tags every session with a short sortable
// id for log/metric correlation.
package transportnet

import (
	"bufio"
	"net"
	"time"

	"github.com/higebu/netfd"
	"github.com/rs/xid"
)

// peekTimeout bounds how long PeekByte may block before reporting "no
// data yet"; it must be short enough that a caller polling in a tight
// loop alongside other work doesn't stall noticeably.
const peekTimeout = 2 * time.Millisecond

// Conn wraps a net.Conn as a gdbstub.Connection. It is not safe for
// concurrent use, matching gdbstub's own single-threaded contract.
type Conn struct {
	nc  net.Conn
	r   *bufio.Reader
	w   *bufio.Writer
	fd  int
	sid xid.ID
}

// Wrap adapts nc. The underlying file descriptor is recovered eagerly
// (via netfd) so it is available for metrics/diagnostics even before any
// bytes are exchanged.
func Wrap(nc net.Conn) *Conn {
	return &Conn{
		nc:  nc,
		r:   bufio.NewReader(nc),
		w:   bufio.NewWriter(nc),
		fd:  netfd.GetFdFromConn(nc),
		sid: xid.New(),
	}
}

// SessionID returns the short sortable id assigned to this connection,
// suitable as a log field or metric label.
func (c *Conn) SessionID() string { return c.sid.String() }

// FD returns the kernel file descriptor backing this connection, or -1
// if it could not be recovered (e.g. on a non-TCP/UDS net.Conn).
func (c *Conn) FD() int { return c.fd }

// RemoteAddr returns the peer address, for logging.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// ReadByte implements gdbstub.Connection.
func (c *Conn) ReadByte() (byte, error) { return c.r.ReadByte() }

// PeekByte implements gdbstub.Connection: it arms a short read deadline,
// peeks one byte, and restores blocking mode before returning.
func (c *Conn) PeekByte() (byte, bool, error) {
	if err := c.nc.SetReadDeadline(time.Now().Add(peekTimeout)); err != nil {
		return 0, false, err
	}
	defer c.nc.SetReadDeadline(time.Time{})

	b, err := c.r.Peek(1)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, false, nil
		}
		return 0, false, err
	}
	return b[0], true, nil
}

// Write implements gdbstub.Connection.
func (c *Conn) Write(p []byte) (int, error) { return c.w.Write(p) }

// Flush implements gdbstub.Connection.
func (c *Conn) Flush() error { return c.w.Flush() }
