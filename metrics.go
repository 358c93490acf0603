package gdbstub

import "time"

// Recorder is an optional hook the stub calls on every dispatched
// command and at session end, so an embedder can export metrics (e.g.
// via transportnet.Recorder, which implements this against Prometheus)
// without the core engine depending on any particular metrics backend.
type Recorder interface {
	ObserveCommand(name string, dur time.Duration)
	ObserveDisconnect(reason DisconnectReason)
}
