package gdbstub

// Target is the root of the host capability surface (spec §4.4). The
// engine inspects presence of each optional capability to decide what to
// advertise in qSupported and never invokes an operation whose
// capability was not reported present.
type Target interface {
	// BaseOps returns the mandatory base operations, either single- or
	// multi-threaded. Callers type-switch the result to SingleThreadBase
	// or MultiThreadBase.
	BaseOps() BaseOps
	// Arch describes the target's pointer width and register layout.
	Arch() Arch

	// The following return nil when the host does not implement the
	// corresponding optional extension.
	SupportBreakpoints() BreakpointOps
	SupportExtendedMode() ExtendedModeOps
	SupportTargetDescriptionXMLOverride() TargetDescriptionXMLOps
	SupportMemoryMap() MemoryMapOps
	SupportExecFile() ExecFileOps
	SupportAuxv() AuxvOps
	SupportCatchSyscalls() CatchSyscallsOps
	SupportRegisterInfo() RegisterInfoOps
}

// BaseOpsKind distinguishes the two shapes BaseOps can take.
type BaseOpsKind int

const (
	SingleThreadKind BaseOpsKind = iota
	MultiThreadKind
)

// BaseOps is implemented by both SingleThreadBase and MultiThreadBase; it
// exists purely so Target.BaseOps can return either behind one interface
// value that the dispatcher then type-switches on.
type BaseOps interface {
	Kind() BaseOpsKind
}

// SingleThreadBase is the base operation set for a target with exactly
// one thread of execution.
type SingleThreadBase interface {
	BaseOps
	ReadRegisters(regs Registers) error
	WriteRegisters(regs Registers) error
	// ReadAddrs reads len(data) bytes starting at addr into data,
	// returning the number of bytes actually read.
	ReadAddrs(addr uint64, data []byte) (int, error)
	WriteAddrs(addr uint64, data []byte) error

	// Resume continues execution; sig, when non-nil, asks the host to
	// deliver that signal number first.
	Resume(sig *uint8) error

	// SupportSingleStep, when non-nil, enables single-instruction
	// stepping via Step.
	SupportSingleStep() SingleThreadSingleStep
	// SupportRangeStep, when non-nil, enables "step until outside
	// [start, end)" via ResumeRangeStep.
	SupportRangeStep() SingleThreadRangeStep
	// SupportReverseCont reports whether reverse-continue is available.
	SupportReverseCont() bool
	// SupportReverseStep reports whether reverse-step is available.
	SupportReverseStep() bool
}

// SingleThreadSingleStep is an optional SingleThreadBase extension.
type SingleThreadSingleStep interface {
	Step(sig *uint8) error
}

// SingleThreadRangeStep is an optional SingleThreadBase extension.
type SingleThreadRangeStep interface {
	ResumeRangeStep(start, end uint64) error
}

// MultiThreadBase is the base operation set for a target that may run
// more than one thread.
type MultiThreadBase interface {
	BaseOps
	ReadRegisters(regs Registers, tid Tid) error
	WriteRegisters(regs Registers, tid Tid) error
	ReadAddrs(addr uint64, data []byte, tid Tid) (int, error)
	WriteAddrs(addr uint64, data []byte, tid Tid) error

	// ListActiveThreads invokes yield once per currently active thread.
	ListActiveThreads(yield func(Tid)) error
	IsThreadAlive(tid Tid) (bool, error)

	// ClearResumeActions discards any per-thread action installed by a
	// previous vCont and must be called before installing a new set.
	ClearResumeActions() error
	SetResumeActionContinue(tid Tid, sig *uint8) error
	SetDefaultResumeActionContinue(sig *uint8) error
	Resume() error

	// SupportSingleStep, when non-nil, enables SetResumeActionStep.
	SupportSingleStep() MultiThreadSingleStep
	// SupportRangeStep, when non-nil, enables SetResumeActionRangeStep.
	SupportRangeStep() MultiThreadRangeStep
	SupportReverseCont() bool
	SupportReverseStep() bool
}

// MultiThreadSingleStep is an optional MultiThreadBase extension.
type MultiThreadSingleStep interface {
	SetResumeActionStep(tid Tid, sig *uint8) error
}

// MultiThreadRangeStep is an optional MultiThreadBase extension.
type MultiThreadRangeStep interface {
	SetResumeActionRangeStep(tid Tid, start, end uint64) error
}

// BreakpointOps gates the swbreak/hwbreak/watch stop-reason families.
type BreakpointOps interface {
	SupportSwBreakpoint() bool
	SupportHwBreakpoint() bool
	SupportHwWatchpoint() bool
}

// ExtendedModeOps gates the extended-mode query/launch/kill surface.
type ExtendedModeOps interface {
	SupportConfigureAslr() bool
	SupportConfigureEnv() bool
	SupportConfigureStartupShell() bool
	SupportConfigureWorkingDir() bool
	// QueryIfAttached answers qAttached:<pid>. The dispatcher always
	// passes a non-nil pid; a bare qAttached sent to a target with
	// extended mode is a protocol error and never reaches this method.
	QueryIfAttached(pid *int64) (bool, error)
	// Kill handles 'k'/'vKill' under extended mode; the returned bool
	// reports whether the whole session must end.
	Kill(pid *int64) (endSession bool, err error)
}

// TargetDescriptionXMLOps lets the host serve target.xml itself instead
// of relying on Arch.TargetDescriptionXML.
type TargetDescriptionXMLOps interface {
	// TargetDescriptionXML writes up to len(buf) bytes starting at
	// offset into buf, returning the number of bytes written.
	TargetDescriptionXML(offset, length int, buf []byte) (int, error)
}

// MemoryMapOps serves qXfer:memory-map:read.
type MemoryMapOps interface {
	MemoryMapXML(offset, length int, buf []byte) (int, error)
}

// ExecFileOps serves qXfer:exec-file:read.
type ExecFileOps interface {
	ExecFile(pid *int64, offset, length int, buf []byte) (int, error)
}

// AuxvOps serves qXfer:auxv:read.
type AuxvOps interface {
	Auxv(offset, length int, buf []byte) (int, error)
}

// CatchSyscallsOps gates QCatchSyscalls and the syscall_entry/return stop
// reasons.
type CatchSyscallsOps interface {
	// EnableCatchSyscalls arms syscall catching; a nil filter catches
	// every syscall.
	EnableCatchSyscalls(filter []uint64) error
	DisableCatchSyscalls() error
}

// RegisterInfoOps serves the lldb-compatible qRegisterInfo<n> extension
// (spec §4.8).
type RegisterInfoOps interface {
	// GetRegisterInfo returns the wire-format info string for register
	// n, or ok=false once the enumeration is exhausted.
	GetRegisterInfo(n int) (info string, ok bool)
}
