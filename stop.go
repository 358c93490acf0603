package gdbstub

// WatchKind distinguishes the three watchpoint flavors a target may
// report.
type WatchKind int

const (
	WatchRead WatchKind = iota
	WatchWrite
	WatchReadWrite
)

// ReplayLogPosition marks which end of a replay log a ReplayLog stop
// reason refers to.
type ReplayLogPosition int

const (
	ReplayBegin ReplayLogPosition = iota
	ReplayEnd
)

// SyscallPosition marks whether a CatchSyscall stop is on entry or
// return.
type SyscallPosition int

const (
	SyscallEntry SyscallPosition = iota
	SyscallReturn
)

// stopKind tags the variant held by a StopReason.
type stopKind int

const (
	stopDoneStep stopKind = iota
	stopSignal
	stopExited
	stopTerminated
	stopSwBreak
	stopHwBreak
	stopWatch
	stopReplayLog
	stopCatchSyscall
)

// StopReason is a tagged value describing why target execution has
// ceased (spec §3). Construct one with the Stop* constructors below.
type StopReason struct {
	kind stopKind

	tid Tid

	signal uint8
	code   uint8

	watchKind WatchKind
	addr      uint64

	replayPos ReplayLogPosition

	syscallNumber uint64
	syscallPos    SyscallPosition
}

func StopDoneStep() StopReason { return StopReason{kind: stopDoneStep} }

func StopSignal(sig uint8) StopReason { return StopReason{kind: stopSignal, signal: sig} }

func StopExited(code uint8) StopReason { return StopReason{kind: stopExited, code: code} }

func StopTerminated(sig uint8) StopReason { return StopReason{kind: stopTerminated, signal: sig} }

func StopSwBreak(tid Tid) StopReason { return StopReason{kind: stopSwBreak, tid: tid} }

func StopHwBreak(tid Tid) StopReason { return StopReason{kind: stopHwBreak, tid: tid} }

func StopWatch(tid Tid, kind WatchKind, addr uint64) StopReason {
	return StopReason{kind: stopWatch, tid: tid, watchKind: kind, addr: addr}
}

func StopReplayLog(pos ReplayLogPosition) StopReason {
	return StopReason{kind: stopReplayLog, replayPos: pos}
}

func StopCatchSyscall(number uint64, pos SyscallPosition) StopReason {
	return StopReason{kind: stopCatchSyscall, syscallNumber: number, syscallPos: pos}
}

// sigTrap is the GDB SIGTRAP signal number written into the "T05..."
// stop replies below.
const sigTrap uint8 = 5

// encodeStopReason implements spec §4.7's finish_exec: it maps a
// StopReason to the wire packet and reports whether the session must end
// as a result. Reporting a stop reason for a capability the host never
// advertised is ErrUnsupportedStopReason.
func encodeStopReason(w *ResponseWriter, target Target, multiprocess bool, sr StopReason) (*DisconnectReason, error) {
	switch sr.kind {
	case stopDoneStep:
		return nil, w.WriteStr("S05")

	case stopSignal:
		if err := w.WriteStr("S"); err != nil {
			return nil, err
		}
		return nil, w.WriteHexByte(sr.signal)

	case stopExited:
		if err := w.WriteStr("W"); err != nil {
			return nil, err
		}
		if err := w.WriteHexByte(sr.code); err != nil {
			return nil, err
		}
		reason := DisconnectTargetExited
		return &reason, nil

	case stopTerminated:
		if err := w.WriteStr("X"); err != nil {
			return nil, err
		}
		if err := w.WriteHexByte(sr.signal); err != nil {
			return nil, err
		}
		reason := DisconnectTargetTerminated
		return &reason, nil

	case stopSwBreak:
		bp := target.SupportBreakpoints()
		if bp == nil || !bp.SupportSwBreakpoint() {
			return nil, newErr(ErrUnsupportedStopReason)
		}
		return nil, writeThreadedStop(w, multiprocess, sr.tid, "swbreak")

	case stopHwBreak:
		bp := target.SupportBreakpoints()
		if bp == nil || !bp.SupportHwBreakpoint() {
			return nil, newErr(ErrUnsupportedStopReason)
		}
		return nil, writeThreadedStop(w, multiprocess, sr.tid, "hwbreak")

	case stopWatch:
		bp := target.SupportBreakpoints()
		if bp == nil || !bp.SupportHwWatchpoint() {
			return nil, newErr(ErrUnsupportedStopReason)
		}
		tag := "watch"
		switch sr.watchKind {
		case WatchRead:
			tag = "rwatch"
		case WatchReadWrite:
			tag = "awatch"
		}
		if err := w.WriteStr("T"); err != nil {
			return nil, err
		}
		if err := w.WriteHexByte(sigTrap); err != nil {
			return nil, err
		}
		if err := w.WriteStr("thread:"); err != nil {
			return nil, err
		}
		if err := w.WriteSpecificThreadId(multiprocess, SpecificThreadId{Thread: selectorOf(sr.tid)}); err != nil {
			return nil, err
		}
		if err := w.WriteStr(";" + tag + ":"); err != nil {
			return nil, err
		}
		if err := w.WriteNum(sr.addr); err != nil {
			return nil, err
		}
		return nil, w.WriteStr(";")

	case stopReplayLog:
		base, _ := baseReverseCaps(target)
		if !base.cont && !base.step {
			return nil, newErr(ErrUnsupportedStopReason)
		}
		pos := "begin"
		if sr.replayPos == ReplayEnd {
			pos = "end"
		}
		if err := w.WriteStr("T"); err != nil {
			return nil, err
		}
		if err := w.WriteHexByte(sigTrap); err != nil {
			return nil, err
		}
		return nil, w.WriteStr("replaylog:" + pos + ";")

	case stopCatchSyscall:
		if target.SupportCatchSyscalls() == nil {
			return nil, newErr(ErrUnsupportedStopReason)
		}
		pos := "entry"
		if sr.syscallPos == SyscallReturn {
			pos = "return"
		}
		if err := w.WriteStr("T"); err != nil {
			return nil, err
		}
		if err := w.WriteHexByte(sigTrap); err != nil {
			return nil, err
		}
		if err := w.WriteStr("syscall_" + pos + ":"); err != nil {
			return nil, err
		}
		if err := w.WriteNum(sr.syscallNumber); err != nil {
			return nil, err
		}
		return nil, w.WriteStr(";")

	default:
		return nil, newErr(ErrUnsupportedStopReason)
	}
}

func writeThreadedStop(w *ResponseWriter, multiprocess bool, tid Tid, tag string) error {
	if err := w.WriteStr("T"); err != nil {
		return err
	}
	if err := w.WriteHexByte(sigTrap); err != nil {
		return err
	}
	if err := w.WriteStr("thread:"); err != nil {
		return err
	}
	if err := w.WriteSpecificThreadId(multiprocess, SpecificThreadId{Thread: selectorOf(tid)}); err != nil {
		return err
	}
	return w.WriteStr(";" + tag + ":;")
}

type reverseCaps struct{ cont, step bool }

func baseReverseCaps(target Target) (reverseCaps, bool) {
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		return reverseCaps{cont: ops.SupportReverseCont(), step: ops.SupportReverseStep()}, true
	case MultiThreadBase:
		return reverseCaps{cont: ops.SupportReverseCont(), step: ops.SupportReverseStep()}, true
	default:
		return reverseCaps{}, false
	}
}
