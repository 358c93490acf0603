package toyvm

import (
	"github.com/coresim/gdbstub"
)

// Kind implements gdbstub.BaseOps.
func (m *Machine) Kind() gdbstub.BaseOpsKind { return gdbstub.MultiThreadKind }

// ReadRegisters implements gdbstub.MultiThreadBase.
func (m *Machine) ReadRegisters(regs gdbstub.Registers, tid gdbstub.Tid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.core(tid)
	if c == nil {
		return gdbstub.NonFatal(1)
	}
	dst := regs.(*Regs)
	*dst = c.Regs
	return nil
}

// WriteRegisters implements gdbstub.MultiThreadBase.
func (m *Machine) WriteRegisters(regs gdbstub.Registers, tid gdbstub.Tid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.core(tid)
	if c == nil {
		return gdbstub.NonFatal(1)
	}
	c.Regs = *regs.(*Regs)
	return nil
}

// ReadAddrs implements gdbstub.MultiThreadBase: tid is accepted but
// ignored since all cores share one memory space.
func (m *Machine) ReadAddrs(addr uint64, data []byte, tid gdbstub.Tid) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(data, m.Mem[min64(addr, uint64(len(m.Mem))):])
	return n, nil
}

// WriteAddrs implements gdbstub.MultiThreadBase.
func (m *Machine) WriteAddrs(addr uint64, data []byte, tid gdbstub.Tid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr+uint64(len(data)) > uint64(len(m.Mem)) {
		return gdbstub.NonFatal(1)
	}
	copy(m.Mem[addr:], data)
	return nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// ListActiveThreads implements gdbstub.MultiThreadBase.
func (m *Machine) ListActiveThreads(yield func(gdbstub.Tid)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Cores {
		if !c.Exited {
			yield(c.Tid)
		}
	}
	return nil
}

// IsThreadAlive implements gdbstub.MultiThreadBase.
func (m *Machine) IsThreadAlive(tid gdbstub.Tid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.core(tid)
	return c != nil && !c.Exited, nil
}

// ClearResumeActions implements gdbstub.MultiThreadBase.
func (m *Machine) ClearResumeActions() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeAll = false
	m.resumeTids = map[gdbstub.Tid]resumeAction{}
	return nil
}

// SetResumeActionContinue implements gdbstub.MultiThreadBase.
func (m *Machine) SetResumeActionContinue(tid gdbstub.Tid, sig *uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeTids[tid] = resumeAction{sig: sig}
	return nil
}

// SetDefaultResumeActionContinue implements gdbstub.MultiThreadBase.
func (m *Machine) SetDefaultResumeActionContinue(sig *uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeAll = true
	return nil
}

// SetResumeActionStep implements gdbstub.MultiThreadSingleStep.
func (m *Machine) SetResumeActionStep(tid gdbstub.Tid, sig *uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeTids[tid] = resumeAction{step: true, sig: sig}
	return nil
}

// SupportSingleStep implements gdbstub.MultiThreadBase: this machine
// always supports per-thread stepping.
func (m *Machine) SupportSingleStep() gdbstub.MultiThreadSingleStep { return m }

// SupportRangeStep implements gdbstub.MultiThreadBase: range-stepping is
// not modeled by this toy machine.
func (m *Machine) SupportRangeStep() gdbstub.MultiThreadRangeStep { return nil }

// SupportReverseCont implements gdbstub.MultiThreadBase.
func (m *Machine) SupportReverseCont() bool { return false }

// SupportReverseStep implements gdbstub.MultiThreadBase.
func (m *Machine) SupportReverseStep() bool { return false }

// Resume implements gdbstub.MultiThreadBase: it marks every core named
// by a continue resume action (or all cores, for the default action) as
// running so the event loop's poll steps them freely. A step action
// instead executes that core's single instruction right here, leaving
// Running false, and queues the resulting stop (StopDoneStep, unless
// the one instruction itself hit a breakpoint or watchpoint) for the
// next RunOneRound call to report.
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Cores {
		if c.Exited {
			continue
		}
		if action, ok := m.resumeTids[c.Tid]; ok {
			if action.step {
				sr, stopped := m.step(c)
				if !stopped {
					sr = gdbstub.StopDoneStep()
				}
				m.pending = append(m.pending, pendingStop{tid: c.Tid, sr: sr})
				continue
			}
			c.Running = true
			continue
		}
		if m.resumeAll {
			c.Running = true
		}
	}
	return nil
}

// BaseOps implements gdbstub.Target.
func (m *Machine) BaseOps() gdbstub.BaseOps { return m }

// Arch implements gdbstub.Target.
func (m *Machine) Arch() gdbstub.Arch { return toyArch{} }

// SupportBreakpoints implements gdbstub.Target: this machine supports
// software breakpoints and read/write/access watchpoints but not
// hardware breakpoints.
func (m *Machine) SupportBreakpoints() gdbstub.BreakpointOps { return toyBreakpoints{} }

// SupportExtendedMode implements gdbstub.Target.
func (m *Machine) SupportExtendedMode() gdbstub.ExtendedModeOps { return toyExtended{m} }

// SupportTargetDescriptionXMLOverride implements gdbstub.Target: the
// static XML from Arch is sufficient, so no override is needed.
func (m *Machine) SupportTargetDescriptionXMLOverride() gdbstub.TargetDescriptionXMLOps { return nil }

// SupportMemoryMap implements gdbstub.Target: not modeled.
func (m *Machine) SupportMemoryMap() gdbstub.MemoryMapOps { return nil }

// SupportExecFile implements gdbstub.Target: not modeled.
func (m *Machine) SupportExecFile() gdbstub.ExecFileOps { return nil }

// SupportAuxv implements gdbstub.Target: not modeled.
func (m *Machine) SupportAuxv() gdbstub.AuxvOps { return nil }

// SupportCatchSyscalls implements gdbstub.Target: this toy machine never
// traps syscalls.
func (m *Machine) SupportCatchSyscalls() gdbstub.CatchSyscallsOps { return nil }

// SupportRegisterInfo implements gdbstub.Target: exposes lldb-style
// per-register metadata for r0..r15.
func (m *Machine) SupportRegisterInfo() gdbstub.RegisterInfoOps { return toyRegisterInfo{} }

// SetBreakpoint installs or removes a software breakpoint at addr.
func (m *Machine) SetBreakpoint(addr uint64, set bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set {
		m.breakpoints[addr] = true
	} else {
		delete(m.breakpoints, addr)
	}
}

// SetWatchpoint installs or removes a watchpoint at addr.
func (m *Machine) SetWatchpoint(addr uint64, kind gdbstub.WatchKind, set bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set {
		m.watchpoints[addr] = kind
	} else {
		delete(m.watchpoints, addr)
	}
}

type toyArch struct{}

func (toyArch) PointerWidth() int { return 4 }

func (toyArch) TargetDescriptionXML() (string, bool) {
	return toyTargetXML, true
}

func (toyArch) NewRegisters() gdbstub.Registers { return &Regs{} }

const toyTargetXML = `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target version="1.0">
  <architecture>arm</architecture>
  <feature name="org.coresim.emuserver.core">
    <reg name="r0" bitsize="32" type="int32"/>
    <reg name="r1" bitsize="32" type="int32"/>
    <reg name="r2" bitsize="32" type="int32"/>
    <reg name="r3" bitsize="32" type="int32"/>
    <reg name="r4" bitsize="32" type="int32"/>
    <reg name="r5" bitsize="32" type="int32"/>
    <reg name="r6" bitsize="32" type="int32"/>
    <reg name="r7" bitsize="32" type="int32"/>
    <reg name="r8" bitsize="32" type="int32"/>
    <reg name="r9" bitsize="32" type="int32"/>
    <reg name="r10" bitsize="32" type="int32"/>
    <reg name="r11" bitsize="32" type="int32"/>
    <reg name="r12" bitsize="32" type="int32"/>
    <reg name="sp" bitsize="32" type="data_ptr"/>
    <reg name="lr" bitsize="32" type="code_ptr"/>
    <reg name="pc" bitsize="32" type="code_ptr"/>
  </feature>
</target>
`

type toyBreakpoints struct{}

func (toyBreakpoints) SupportSwBreakpoint() bool { return true }
func (toyBreakpoints) SupportHwBreakpoint() bool { return false }
func (toyBreakpoints) SupportHwWatchpoint() bool { return true }

type toyExtended struct{ m *Machine }

func (toyExtended) SupportConfigureAslr() bool       { return false }
func (toyExtended) SupportConfigureEnv() bool        { return false }
func (toyExtended) SupportConfigureStartupShell() bool { return false }
func (toyExtended) SupportConfigureWorkingDir() bool { return false }

func (e toyExtended) QueryIfAttached(pid *int64) (bool, error) { return true, nil }

func (e toyExtended) Kill(pid *int64) (bool, error) {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	for _, c := range e.m.Cores {
		c.Exited = true
		c.Running = false
	}
	return true, nil
}

type toyRegisterInfo struct{}

var toyRegisterNames = [numRegs]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc",
}

func (toyRegisterInfo) GetRegisterInfo(n int) (string, bool) {
	if n < 0 || n >= numRegs {
		return "", false
	}
	name := toyRegisterNames[n]
	return "name:" + name + ";bitsize:32;offset:" + hexInt(n*4) + ";encoding:uint;format:hex;set:General Purpose Registers;gcc:" + hexInt(n) + ";dwarf:" + hexInt(n) + ";", true
}

func hexInt(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n&0xf]
		n >>= 4
	}
	return string(buf[i:])
}
