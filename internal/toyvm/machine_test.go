package toyvm

import (
	"testing"

	"github.com/coresim/gdbstub"
)

func TestRegsSerializeDeserializeRoundTrip(t *testing.T) {
	var r Regs
	r.R[0] = 0x11223344
	r.R[15] = 0xdeadbeef

	var buf []byte
	r.Serialize(func(b *byte) { buf = append(buf, *b) })
	if len(buf) != numRegs*4 {
		t.Fatalf("serialized %d bytes, want %d", len(buf), numRegs*4)
	}

	var got Regs
	if err := got.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestRegsDeserializeRejectsWrongLength(t *testing.T) {
	var r Regs
	if err := r.Deserialize(make([]byte, numRegs*4-1)); err == nil {
		t.Fatal("expected an error for a short register buffer")
	}
}

func TestNewMachineInitialState(t *testing.T) {
	m := NewMachine(64, 0x100)
	if len(m.Mem) != 64 {
		t.Fatalf("len(Mem) = %d, want 64", len(m.Mem))
	}
	if m.Cores[0].Tid != 1 || m.Cores[1].Tid != 2 {
		t.Fatalf("core tids = %d, %d, want 1, 2", m.Cores[0].Tid, m.Cores[1].Tid)
	}
	if m.Cores[0].Regs.R[pc] != 0x100 || m.Cores[1].Regs.R[pc] != 0x100 {
		t.Fatalf("entry not applied to both cores' pc")
	}
}

func TestLoadImageRejectsOversizedImage(t *testing.T) {
	m := NewMachine(4, 0)
	if err := m.LoadImage(make([]byte, 5)); err == nil {
		t.Fatal("expected an error when the image does not fit in memory")
	}
}

func TestStepNoOpAdvancesPC(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x00
	c := m.Cores[0]
	if _, stopped := m.step(c); stopped {
		t.Fatal("a no-op instruction must not stop the core")
	}
	if c.Regs.R[pc] != 4 {
		t.Fatalf("pc = %d, want 4", c.Regs.R[pc])
	}
}

func TestStepExitOpcodeStopsExited(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0xff
	c := m.Cores[0]
	c.ExitCode = 7
	sr, stopped := m.step(c)
	if !stopped {
		t.Fatal("expected the 0xff opcode to stop the core")
	}
	if sr != gdbstub.StopExited(7) {
		t.Fatalf("sr = %+v, want StopExited(7)", sr)
	}
	if !c.Exited || c.Running {
		t.Fatalf("core state = exited:%v running:%v, want exited:true running:false", c.Exited, c.Running)
	}
}

func TestStepOutOfBoundsPCStopsTerminated(t *testing.T) {
	m := NewMachine(4, 0)
	c := m.Cores[0]
	c.Regs.R[pc] = 4 // one word past the end of a 4-byte memory
	sr, stopped := m.step(c)
	if !stopped {
		t.Fatal("expected an out-of-bounds pc to stop the core")
	}
	if sr != gdbstub.StopTerminated(11) {
		t.Fatalf("sr = %+v, want StopTerminated(11)", sr)
	}
}

func TestSetBreakpointStopsSwBreak(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x00 // would otherwise be a harmless no-op
	m.SetBreakpoint(0, true)

	c := m.Cores[0]
	sr, stopped := m.step(c)
	if !stopped {
		t.Fatal("expected the armed breakpoint to stop the core")
	}
	if sr != gdbstub.StopSwBreak(c.Tid) {
		t.Fatalf("sr = %+v, want StopSwBreak(%d)", sr, c.Tid)
	}
	if c.Running {
		t.Fatal("a breakpoint hit must clear Running")
	}

	m.SetBreakpoint(0, false)
	c.Running = true
	if _, stopped := m.step(c); stopped {
		t.Fatal("clearing the breakpoint must let the core step past it")
	}
}

func TestSetWatchpointWriteStopsWatch(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x01 // store R0 to the word at R1
	c := m.Cores[0]
	c.Regs.R[1] = 16
	m.SetWatchpoint(16, gdbstub.WatchWrite, true)

	sr, stopped := m.step(c)
	if !stopped {
		t.Fatal("expected the write watchpoint to stop the core")
	}
	if sr != gdbstub.StopWatch(c.Tid, gdbstub.WatchWrite, 16) {
		t.Fatalf("sr = %+v, want StopWatch(%d, WatchWrite, 16)", sr, c.Tid)
	}
	// the store itself must not have happened: the watchpoint preempts it.
	if m.Mem[16] != 0 {
		t.Fatalf("Mem[16] = %d, want 0 (store preempted by watchpoint)", m.Mem[16])
	}
}

func TestSetWatchpointReadStopsWatch(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x02 // load R0 from the word at R1
	c := m.Cores[0]
	c.Regs.R[1] = 20
	m.SetWatchpoint(20, gdbstub.WatchRead, true)

	sr, stopped := m.step(c)
	if !stopped {
		t.Fatal("expected the read watchpoint to stop the core")
	}
	if sr != gdbstub.StopWatch(c.Tid, gdbstub.WatchRead, 20) {
		t.Fatalf("sr = %+v, want StopWatch(%d, WatchRead, 20)", sr, c.Tid)
	}
}

func TestSetWatchpointClearAllowsAccess(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x01
	c := m.Cores[0]
	c.Regs.R[0] = 0xaa
	c.Regs.R[1] = 8
	m.SetWatchpoint(8, gdbstub.WatchWrite, true)
	m.SetWatchpoint(8, gdbstub.WatchWrite, false)

	if _, stopped := m.step(c); stopped {
		t.Fatal("a cleared watchpoint must not stop the core")
	}
	if m.Mem[8] != 0xaa {
		t.Fatalf("Mem[8] = %#x, want 0xaa", m.Mem[8])
	}
}

func TestRunOneRoundReportsFirstStop(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0xff // core 0 exits immediately
	m.Cores[0].Running = true
	m.Cores[1].Running = false

	tid, sr, stopped := m.RunOneRound()
	if !stopped {
		t.Fatal("expected a stop reason from the running core")
	}
	if tid != m.Cores[0].Tid {
		t.Fatalf("tid = %d, want %d", tid, m.Cores[0].Tid)
	}
	if sr != gdbstub.StopExited(0) {
		t.Fatalf("sr = %+v, want StopExited(0)", sr)
	}
}

func TestRunOneRoundSkipsNonRunningCores(t *testing.T) {
	m := NewMachine(64, 0)
	m.Cores[0].Running = false
	m.Cores[1].Running = false

	if _, _, stopped := m.RunOneRound(); stopped {
		t.Fatal("expected no stop when no core is running")
	}
}

// TestResumeStepAdvancesExactlyOneInstruction exercises the vCont;s path
// end to end: SetResumeActionStep followed by Resume must execute a
// single instruction and report StopDoneStep, not free-run the core.
func TestResumeStepAdvancesExactlyOneInstruction(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x00 // no-op
	m.Mem[4] = 0x00 // a second no-op the core must not reach
	c := m.Cores[0]

	if err := m.SetResumeActionStep(c.Tid, nil); err != nil {
		t.Fatalf("SetResumeActionStep: %v", err)
	}
	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if c.Running {
		t.Fatal("a single-step action must leave the core not running")
	}
	if c.Regs.R[pc] != 4 {
		t.Fatalf("pc = %d, want 4 (exactly one instruction executed)", c.Regs.R[pc])
	}

	tid, sr, stopped := m.RunOneRound()
	if !stopped {
		t.Fatal("expected RunOneRound to report the queued step stop")
	}
	if tid != c.Tid {
		t.Fatalf("tid = %d, want %d", tid, c.Tid)
	}
	if sr != gdbstub.StopDoneStep() {
		t.Fatalf("sr = %+v, want StopDoneStep()", sr)
	}

	// The queue must not report the same stop twice, and the core must
	// stay put since nothing marked it running again.
	if _, _, stopped := m.RunOneRound(); stopped {
		t.Fatal("expected no further stop after the queued step was drained")
	}
}

// TestResumeStepOntoBreakpointReportsSwBreak verifies a step that lands
// on an armed breakpoint reports the breakpoint, not a generic
// StopDoneStep.
func TestResumeStepOntoBreakpointReportsSwBreak(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x00
	m.SetBreakpoint(0, true)
	c := m.Cores[0]

	if err := m.SetResumeActionStep(c.Tid, nil); err != nil {
		t.Fatalf("SetResumeActionStep: %v", err)
	}
	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	_, sr, stopped := m.RunOneRound()
	if !stopped {
		t.Fatal("expected a queued stop")
	}
	if sr != gdbstub.StopSwBreak(c.Tid) {
		t.Fatalf("sr = %+v, want StopSwBreak(%d)", sr, c.Tid)
	}
}

// TestResumeContinueStillFreeRuns verifies the fix to the step path left
// the plain continue action (SetResumeActionContinue) free-running as
// before: Resume marks the core running and RunOneRound steps it on
// each call until it hits something.
func TestResumeContinueStillFreeRuns(t *testing.T) {
	m := NewMachine(64, 0)
	m.Mem[0] = 0x00
	m.Mem[4] = 0xff // exit on the second instruction
	c := m.Cores[0]

	if err := m.SetResumeActionContinue(c.Tid, nil); err != nil {
		t.Fatalf("SetResumeActionContinue: %v", err)
	}
	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !c.Running {
		t.Fatal("a continue action must leave the core running")
	}

	if _, _, stopped := m.RunOneRound(); stopped {
		t.Fatal("the first no-op instruction must not stop the core")
	}
	_, sr, stopped := m.RunOneRound()
	if !stopped {
		t.Fatal("expected the second instruction to stop the core")
	}
	if sr != gdbstub.StopExited(0) {
		t.Fatalf("sr = %+v, want StopExited(0)", sr)
	}
}
