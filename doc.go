// Package gdbstub implements an embeddable server for the GDB Remote
// Serial Protocol (RSP).
//
// A host program (emulator, hypervisor, bare-metal firmware, JIT,
// user-space debug agent) embeds a Stub and exposes its own execution
// substrate -- registers, memory, breakpoints, stepping -- to a remote
// GDB client over any byte-stream transport. The engine is
// transport-agnostic (see Connection) and independent of the host's
// concurrency model (see EventLoop).
//
// The package implements the protocol engine only: packet framing and
// checksums, command parsing, the resume/stop state machine, capability
// negotiation (qSupported), and the feature-gated extension surface. The
// host target, the transport, and logging of the embedding application
// are all supplied by the caller.
package gdbstub

// FakePid is the pid rendered in "p<pid>.<tid>" thread-ids when
// multiprocess is advertised but the host does not model processes.
const FakePid int64 = 1

// SingleThreadTid is the fixed thread-id used to identify the one and
// only thread of a single-threaded target.
const SingleThreadTid Tid = 1
