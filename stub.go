package gdbstub

import (
	"github.com/sirupsen/logrus"
)

// Config configures a Stub at construction time.
type Config struct {
	// PacketSize is the fixed outbound/inbound packet buffer size,
	// advertised as "PacketSize=" in qSupported. Defaults to 4096 if
	// zero.
	PacketSize int
	// Logger receives structured protocol diagnostics. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
	// FeatureGate, when set, withholds optional qSupported extensions
	// from clients that don't meet the configured minimum version.
	FeatureGate *FeatureGate
	// ClientVersion is the version string checked against FeatureGate.
	// Leave empty when no gate is configured.
	ClientVersion string
	// Recorder, when set, is notified of per-command latency and
	// session disconnects.
	Recorder Recorder
}

const defaultPacketSize = 4096

// Stub owns the connection, packet buffers, and dispatcher for a single
// GDB session (spec §4.9). It is not safe for concurrent use: the
// embedder must ensure only one goroutine drives a given Stub.
type Stub struct {
	conn       Connection
	codec      *codec
	engine     *engine
	writer     *ResponseWriter
	packetSize int
	log        *logrus.Entry
}

// New creates a Stub bound to conn using default configuration.
func New(conn Connection) *Stub {
	return NewWithConfig(conn, Config{})
}

// NewWithConfig creates a Stub bound to conn with explicit configuration.
func NewWithConfig(conn Connection, cfg Config) *Stub {
	if cfg.PacketSize <= 0 {
		cfg.PacketSize = defaultPacketSize
	}
	eng := newEngine(cfg)
	return &Stub{
		conn:       conn,
		codec:      newCodec(conn),
		engine:     eng,
		writer:     NewResponseWriter(cfg.PacketSize),
		packetSize: cfg.PacketSize,
		log:        eng.log,
	}
}

// RunBlocking drives the session to completion: it alternates between
// reading and dispatching commands and, after any resume command,
// blocking in loop.WaitForStopReason until the target stops or the
// connection is closed (spec §4.9). It returns once the session ends.
func (s *Stub) RunBlocking(target Target, loop EventLoop) (DisconnectReason, error) {
	for {
		body, interrupt, err := s.codec.recv()
		if err != nil {
			return 0, err
		}
		if interrupt {
			if err := s.handleInterrupt(target, loop); err != nil {
				return 0, err
			}
			continue
		}

		cmd, perr := ParsePacket(body)
		if perr != nil {
			s.log.WithError(perr).Warn("malformed packet")
			return 0, perr
		}

		s.engine.noAckMode = s.codec.noAckMode
		s.writer.Reset()
		result, derr := s.engine.dispatch(cmd, target, s.writer, s.packetSize)
		s.codec.noAckMode = s.engine.noAckMode

		if derr != nil {
			if gerr, ok := derr.(*Error); ok && !gerr.Fatal() {
				s.log.WithField("code", gerr.Code).Debug("non-fatal protocol error")
				s.writer.Reset()
				_ = s.writer.WriteStr("E")
				_ = s.writer.WriteHexByte(gerr.Code)
				if serr := s.codec.send(s.writer.Bytes()); serr != nil {
					return 0, serr
				}
				continue
			}
			s.log.WithError(derr).Error("session-fatal protocol error")
			return 0, derr
		}

		switch result.outcome {
		case outcomeHandled:
			if err := s.codec.send(s.writer.Bytes()); err != nil {
				return 0, err
			}
		case outcomeNeedsOK:
			s.writer.Reset()
			_ = s.writer.WriteStr("OK")
			if err := s.codec.send(s.writer.Bytes()); err != nil {
				return 0, err
			}
		case outcomeDisconnect:
			_ = s.codec.send(s.writer.Bytes())
			if s.engine.recorder != nil {
				s.engine.recorder.ObserveDisconnect(result.disconnect)
			}
			return result.disconnect, nil
		case outcomeDeferredStop:
			reason, done, derr := s.awaitStop(target, loop)
			if derr != nil {
				return 0, derr
			}
			if done {
				if s.engine.recorder != nil {
					s.engine.recorder.ObserveDisconnect(reason)
				}
				return reason, nil
			}
		}
	}
}

// awaitStop implements the deferred-stop half of the driver loop (spec
// §4.9 step 2): it blocks in the event loop until either a byte arrives
// (which may itself be an interrupt) or the target reports a stop,
// encodes the resulting stop packet, and reports whether the session
// must end as a result.
func (s *Stub) awaitStop(target Target, loop EventLoop) (DisconnectReason, bool, error) {
	for {
		ev, err := loop.WaitForStopReason(target, s.conn)
		if err != nil {
			return 0, false, wrapConn(err)
		}
		switch ev.Kind {
		case EventIncomingData:
			if ev.Byte == interruptByte {
				sr, err := loop.OnInterrupt(target)
				if err != nil {
					return 0, false, wrapTarget(err)
				}
				if sr == nil {
					continue
				}
				reason, err := s.writeStop(target, *sr)
				if err != nil {
					return 0, false, err
				}
				if reason != nil {
					return *reason, true, nil
				}
				return 0, false, nil
			}
			// Any other byte arriving mid-run is handed back to the
			// codec as the start of the next packet once this resume
			// completes; the codec re-reads it via pushback.
			s.codec.pushback(ev.Byte)
			continue
		case EventTargetStopped:
			reason, err := s.writeStop(target, ev.Stop)
			if err != nil {
				return 0, false, err
			}
			if reason != nil {
				return *reason, true, nil
			}
			return 0, false, nil
		}
	}
}

func (s *Stub) handleInterrupt(target Target, loop EventLoop) error {
	sr, err := loop.OnInterrupt(target)
	if err != nil {
		return wrapTarget(err)
	}
	if sr == nil {
		return nil
	}
	_, err = s.writeStop(target, *sr)
	return err
}

func (s *Stub) writeStop(target Target, sr StopReason) (*DisconnectReason, error) {
	s.writer.Reset()
	reason, err := encodeStopReason(s.writer, target, s.engine.multiprocess, sr)
	if err != nil {
		return nil, err
	}
	if err := s.codec.send(s.writer.Bytes()); err != nil {
		return nil, err
	}
	return reason, nil
}
