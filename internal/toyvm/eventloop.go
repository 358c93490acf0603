package toyvm

import (
	"time"

	"github.com/coresim/gdbstub"
)

// pollInterval bounds how often the event loop checks the machine for a
// stop when no bytes are arriving on the connection, matching the
// poll-based wait_for_stop_reason loop in the original multi-core
// example (there driven by a channel select; here there is no
// background execution thread to select on, so a short sleep stands in
// for it).
const pollInterval = 500 * time.Microsecond

// sigint is the toy machine's signal number for a GDB-originated
// interrupt (Ctrl-C).
const sigint = 2

// EventLoop implements gdbstub.EventLoop over a *Machine.
type EventLoop struct{}

// WaitForStopReason implements gdbstub.EventLoop.
func (EventLoop) WaitForStopReason(target gdbstub.Target, conn gdbstub.Connection) (gdbstub.Event, error) {
	m := target.(*Machine)
	for {
		if _, ok, err := conn.PeekByte(); err != nil {
			return gdbstub.Event{}, err
		} else if ok {
			rb, err := conn.ReadByte()
			if err != nil {
				return gdbstub.Event{}, err
			}
			return gdbstub.Event{Kind: gdbstub.EventIncomingData, Byte: rb}, nil
		}

		if tid, sr, stopped := m.RunOneRound(); stopped {
			_ = tid
			return gdbstub.Event{Kind: gdbstub.EventTargetStopped, Stop: sr}, nil
		}

		time.Sleep(pollInterval)
	}
}

// OnInterrupt implements gdbstub.EventLoop: it halts every core and
// reports a synthetic SIGINT stop.
func (EventLoop) OnInterrupt(target gdbstub.Target) (*gdbstub.StopReason, error) {
	m := target.(*Machine)
	m.mu.Lock()
	for _, c := range m.Cores {
		c.Running = false
	}
	m.mu.Unlock()
	sr := gdbstub.StopSignal(sigint)
	return &sr, nil
}
