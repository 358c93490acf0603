package gdbstub

// Connection abstracts the byte-stream transport (spec §6). Any I/O
// failure is propagated as a session-fatal ErrConnection. Implementations
// are not required to be safe for concurrent use; the engine never calls
// them from more than one goroutine at a time.
type Connection interface {
	// ReadByte blocks until one byte is available.
	ReadByte() (byte, error)
	// PeekByte reports the next byte without consuming it, returning
	// ok=false (not an error) if none is currently available.
	PeekByte() (b byte, ok bool, err error)
	// Write writes p in full.
	Write(p []byte) (int, error)
	// Flush ensures any buffered bytes reach the transport.
	Flush() error
}

// EventKind distinguishes the two things an EventLoop can report back to
// the stub driver while a resume command is outstanding.
type EventKind int

const (
	// EventIncomingData reports that a byte arrived on the connection
	// while the target was running.
	EventIncomingData EventKind = iota
	// EventTargetStopped reports that the host's execution substrate has
	// produced a stop reason.
	EventTargetStopped
)

// Event is returned by EventLoop.WaitForStopReason.
type Event struct {
	Kind EventKind
	Byte byte       // valid when Kind == EventIncomingData
	Stop StopReason // valid when Kind == EventTargetStopped
}

// EventLoop is the embedder-supplied bridge between the protocol engine
// and the host's execution substrate (spec §4.9). It is the only place a
// session may block waiting on the target.
type EventLoop interface {
	// WaitForStopReason blocks until either a byte is available on conn
	// or the target reports a stop. Implementations typically select
	// between conn.PeekByte() and whatever notification mechanism the
	// host's execution thread uses.
	WaitForStopReason(target Target, conn Connection) (Event, error)
	// OnInterrupt is invoked when a Ctrl-C (0x03) arrives outside a
	// packet, either while a resume command is outstanding or between
	// commands. A non-nil return is delivered as a synthetic stop reason
	// (typically Signal(SIGINT)) and ends an outstanding resume; nil
	// means the interrupt was absorbed without producing a stop.
	OnInterrupt(target Target) (*StopReason, error)
}

// DisconnectReason identifies why a session ended (spec §6).
type DisconnectReason int

const (
	// DisconnectClient indicates the client sent 'D' (detach).
	DisconnectClient DisconnectReason = iota
	// DisconnectTargetExited indicates the target reported Exited.
	DisconnectTargetExited
	// DisconnectTargetTerminated indicates the target reported Terminated.
	DisconnectTargetTerminated
	// DisconnectKill indicates the client sent 'k' or 'vKill'.
	DisconnectKill
)

func (d DisconnectReason) String() string {
	switch d {
	case DisconnectClient:
		return "disconnect"
	case DisconnectTargetExited:
		return "target exited"
	case DisconnectTargetTerminated:
		return "target terminated"
	case DisconnectKill:
		return "kill"
	default:
		return "unknown"
	}
}
