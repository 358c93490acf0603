package gdbstub

// Shared test doubles for command dispatch, resume-machine, and
// stop-reason tests. Kept minimal: just enough of each interface to drive
// the scenarios spec.md documents, not a full target implementation.

type fakeRegs struct{ Data [4]byte }

func (r *fakeRegs) Serialize(write RegisterByteWriter) {
	for i := range r.Data {
		b := r.Data[i]
		write(&b)
	}
}

func (r *fakeRegs) Deserialize(data []byte) error {
	if len(data) != len(r.Data) {
		return newErr(ErrTargetMismatch)
	}
	copy(r.Data[:], data)
	return nil
}

type fakeArch struct{}

func (fakeArch) PointerWidth() int                   { return 4 }
func (fakeArch) TargetDescriptionXML() (string, bool) { return "<target/>", true }
func (fakeArch) NewRegisters() Registers              { return &fakeRegs{} }

type fakeBreakpoints struct{ sw, hw, watch bool }

func (b *fakeBreakpoints) SupportSwBreakpoint() bool  { return b.sw }
func (b *fakeBreakpoints) SupportHwBreakpoint() bool  { return b.hw }
func (b *fakeBreakpoints) SupportHwWatchpoint() bool  { return b.watch }

// fakeSingleTarget implements Target + SingleThreadBase (+ the step/range
// extensions on itself, gated by the enable* flags).
type fakeSingleTarget struct {
	regs fakeRegs
	mem  [64]byte

	resumed    bool
	resumedSig *uint8

	enableStep bool
	stepped    bool
	steppedSig *uint8

	enableRangeStep bool
	rangeStepped    bool
	rangeStart      uint64
	rangeEnd        uint64

	reverseCont bool
	reverseStep bool

	bp *fakeBreakpoints
}

func (t *fakeSingleTarget) Kind() BaseOpsKind { return SingleThreadKind }
func (t *fakeSingleTarget) BaseOps() BaseOps  { return t }
func (t *fakeSingleTarget) Arch() Arch        { return fakeArch{} }

func (t *fakeSingleTarget) SupportBreakpoints() BreakpointOps {
	if t.bp == nil {
		return nil
	}
	return t.bp
}
func (t *fakeSingleTarget) SupportExtendedMode() ExtendedModeOps                   { return nil }
func (t *fakeSingleTarget) SupportTargetDescriptionXMLOverride() TargetDescriptionXMLOps { return nil }
func (t *fakeSingleTarget) SupportMemoryMap() MemoryMapOps                         { return nil }
func (t *fakeSingleTarget) SupportExecFile() ExecFileOps                           { return nil }
func (t *fakeSingleTarget) SupportAuxv() AuxvOps                                   { return nil }
func (t *fakeSingleTarget) SupportCatchSyscalls() CatchSyscallsOps                 { return nil }
func (t *fakeSingleTarget) SupportRegisterInfo() RegisterInfoOps                   { return nil }

func (t *fakeSingleTarget) ReadRegisters(regs Registers) error {
	*(regs.(*fakeRegs)) = t.regs
	return nil
}
func (t *fakeSingleTarget) WriteRegisters(regs Registers) error {
	t.regs = *(regs.(*fakeRegs))
	return nil
}
func (t *fakeSingleTarget) ReadAddrs(addr uint64, data []byte) (int, error) {
	return copy(data, t.mem[addr:]), nil
}
func (t *fakeSingleTarget) WriteAddrs(addr uint64, data []byte) error {
	copy(t.mem[addr:], data)
	return nil
}
func (t *fakeSingleTarget) Resume(sig *uint8) error {
	t.resumed = true
	t.resumedSig = sig
	return nil
}
func (t *fakeSingleTarget) SupportSingleStep() SingleThreadSingleStep {
	if !t.enableStep {
		return nil
	}
	return t
}
func (t *fakeSingleTarget) Step(sig *uint8) error {
	t.stepped = true
	t.steppedSig = sig
	return nil
}
func (t *fakeSingleTarget) SupportRangeStep() SingleThreadRangeStep {
	if !t.enableRangeStep {
		return nil
	}
	return t
}
func (t *fakeSingleTarget) ResumeRangeStep(start, end uint64) error {
	t.rangeStepped = true
	t.rangeStart = start
	t.rangeEnd = end
	return nil
}
func (t *fakeSingleTarget) SupportReverseCont() bool { return t.reverseCont }
func (t *fakeSingleTarget) SupportReverseStep() bool { return t.reverseStep }

// fakeMultiTarget implements Target + MultiThreadBase.
type fakeMultiTarget struct {
	threads []Tid
	alive   map[Tid]bool

	cleared            bool
	continueActions    map[Tid]*uint8
	defaultContinueSet bool
	defaultContinueSig *uint8
	resumed            bool

	enableStep  bool
	stepActions map[Tid]*uint8

	enableRangeStep   bool
	rangeStepActions  map[Tid][2]uint64

	reverseCont bool
	reverseStep bool
}

func (t *fakeMultiTarget) Kind() BaseOpsKind { return MultiThreadKind }
func (t *fakeMultiTarget) BaseOps() BaseOps  { return t }
func (t *fakeMultiTarget) Arch() Arch        { return fakeArch{} }

func (t *fakeMultiTarget) SupportBreakpoints() BreakpointOps                       { return nil }
func (t *fakeMultiTarget) SupportExtendedMode() ExtendedModeOps                    { return nil }
func (t *fakeMultiTarget) SupportTargetDescriptionXMLOverride() TargetDescriptionXMLOps { return nil }
func (t *fakeMultiTarget) SupportMemoryMap() MemoryMapOps                          { return nil }
func (t *fakeMultiTarget) SupportExecFile() ExecFileOps                           { return nil }
func (t *fakeMultiTarget) SupportAuxv() AuxvOps                                    { return nil }
func (t *fakeMultiTarget) SupportCatchSyscalls() CatchSyscallsOps                  { return nil }
func (t *fakeMultiTarget) SupportRegisterInfo() RegisterInfoOps                    { return nil }

func (t *fakeMultiTarget) ReadRegisters(regs Registers, tid Tid) error  { return nil }
func (t *fakeMultiTarget) WriteRegisters(regs Registers, tid Tid) error { return nil }
func (t *fakeMultiTarget) ReadAddrs(addr uint64, data []byte, tid Tid) (int, error) {
	return len(data), nil
}
func (t *fakeMultiTarget) WriteAddrs(addr uint64, data []byte, tid Tid) error { return nil }

func (t *fakeMultiTarget) ListActiveThreads(yield func(Tid)) error {
	for _, id := range t.threads {
		yield(id)
	}
	return nil
}
func (t *fakeMultiTarget) IsThreadAlive(tid Tid) (bool, error) { return t.alive[tid], nil }

func (t *fakeMultiTarget) ClearResumeActions() error {
	t.cleared = true
	t.continueActions = map[Tid]*uint8{}
	t.stepActions = map[Tid]*uint8{}
	t.defaultContinueSet = false
	return nil
}
func (t *fakeMultiTarget) SetResumeActionContinue(tid Tid, sig *uint8) error {
	if t.continueActions == nil {
		t.continueActions = map[Tid]*uint8{}
	}
	t.continueActions[tid] = sig
	return nil
}
func (t *fakeMultiTarget) SetDefaultResumeActionContinue(sig *uint8) error {
	t.defaultContinueSet = true
	t.defaultContinueSig = sig
	return nil
}
func (t *fakeMultiTarget) Resume() error { t.resumed = true; return nil }

func (t *fakeMultiTarget) SupportSingleStep() MultiThreadSingleStep {
	if !t.enableStep {
		return nil
	}
	return t
}
func (t *fakeMultiTarget) SetResumeActionStep(tid Tid, sig *uint8) error {
	if t.stepActions == nil {
		t.stepActions = map[Tid]*uint8{}
	}
	t.stepActions[tid] = sig
	return nil
}
func (t *fakeMultiTarget) SupportRangeStep() MultiThreadRangeStep {
	if !t.enableRangeStep {
		return nil
	}
	return t
}
func (t *fakeMultiTarget) SetResumeActionRangeStep(tid Tid, start, end uint64) error {
	if t.rangeStepActions == nil {
		t.rangeStepActions = map[Tid][2]uint64{}
	}
	t.rangeStepActions[tid] = [2]uint64{start, end}
	return nil
}
func (t *fakeMultiTarget) SupportReverseCont() bool { return t.reverseCont }
func (t *fakeMultiTarget) SupportReverseStep() bool { return t.reverseStep }

// fakeLoop is a canned EventLoop: it reports stop unconditionally (no
// actual execution substrate to poll).
type fakeLoop struct {
	stop StopReason
	err  error
}

func (f fakeLoop) WaitForStopReason(target Target, conn Connection) (Event, error) {
	if f.err != nil {
		return Event{}, f.err
	}
	return Event{Kind: EventTargetStopped, Stop: f.stop}, nil
}

func (f fakeLoop) OnInterrupt(target Target) (*StopReason, error) { return nil, nil }
