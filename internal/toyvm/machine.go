// Package toyvm is a tiny two-core machine used by the cmd/emuserver and
// cmd/quicdemo examples to embed gdbstub over different transports. The
// execution model is grounded on the poll-based event loop of
// original_source's armv4t_multicore example: two cores sharing one
// flat memory space, software breakpoints, and read/write watchpoints.
package toyvm

import (
	"fmt"
	"sync"

	"github.com/coresim/gdbstub"
)

// numRegs is the toy architecture's register count, chosen to mirror
// ARMv4T's r0-r15 (the architecture the original multi-core example
// emulates) without pulling in any real instruction decoding.
const numRegs = 16

// Regs is the toy machine's register file: numRegs 32-bit registers,
// serialized little-endian in r0..r15 order.
type Regs struct {
	R [numRegs]uint32
}

// Serialize implements gdbstub.Registers.
func (r *Regs) Serialize(write gdbstub.RegisterByteWriter) {
	for _, v := range r.R {
		b0, b1, b2, b3 := byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		write(&b0)
		write(&b1)
		write(&b2)
		write(&b3)
	}
}

// Deserialize implements gdbstub.Registers.
func (r *Regs) Deserialize(data []byte) error {
	if len(data) != numRegs*4 {
		return fmt.Errorf("emuserver: want %d register bytes, got %d", numRegs*4, len(data))
	}
	for i := range r.R {
		off := i * 4
		r.R[i] = uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	}
	return nil
}

// pc is the conventional index of the program counter in R, matching
// ARM's r15.
const pc = 15

// Core is one hardware thread of the toy machine. Stepping it executes
// one toy opcode and advances the program counter by 4 bytes (see
// Machine.step); there is no real instruction decoder.
type Core struct {
	Tid     gdbstub.Tid
	Regs    Regs
	Running bool
	Exited  bool
	ExitCode uint8
}

// Machine is the embedding target: two cores sharing one flat memory
// space, software breakpoints, and read/write watchpoints.
type Machine struct {
	mu sync.Mutex

	Mem []byte

	Cores [2]*Core

	breakpoints map[uint64]bool
	watchpoints map[uint64]gdbstub.WatchKind

	// resumeAll, when true, continues every core; resumeTids holds the
	// per-thread step/continue intent installed by the last vCont,
	// mirroring the "resume actions" half of MultiThreadBase.
	resumeAll  bool
	resumeTids map[gdbstub.Tid]resumeAction

	// pending holds stop reasons Resume produced synchronously (see
	// pendingStop), drained in order by RunOneRound.
	pending []pendingStop
}

type resumeAction struct {
	step bool
	sig  *uint8
}

// pendingStop is a stop reason produced synchronously by Resume (a
// single-step action executes immediately rather than waiting for the
// poll loop) and queued for the next RunOneRound call to report.
type pendingStop struct {
	tid gdbstub.Tid
	sr  gdbstub.StopReason
}

// NewMachine builds a machine with memSize bytes of memory and two
// cores, both with their program counter set to entry. Neither core is
// marked running.
func NewMachine(memSize int, entry uint64) *Machine {
	m := &Machine{
		Mem:         make([]byte, memSize),
		breakpoints: map[uint64]bool{},
		watchpoints: map[uint64]gdbstub.WatchKind{},
		resumeTids:  map[gdbstub.Tid]resumeAction{},
	}
	m.Cores[0] = &Core{Tid: 1}
	m.Cores[1] = &Core{Tid: 2}
	m.Cores[0].Regs.R[pc] = uint32(entry)
	m.Cores[1].Regs.R[pc] = uint32(entry)
	return m
}

// LoadImage copies data into the start of memory, replacing whatever
// was there before. It returns an error if data does not fit.
func (m *Machine) LoadImage(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(data) > len(m.Mem) {
		return fmt.Errorf("toyvm: image of %d bytes does not fit in %d bytes of memory", len(data), len(m.Mem))
	}
	copy(m.Mem, data)
	return nil
}

func (m *Machine) core(tid gdbstub.Tid) *Core {
	for _, c := range m.Cores {
		if c.Tid == tid {
			return c
		}
	}
	return nil
}

// step advances one core by one toy instruction, reporting a stop
// reason if it hit a breakpoint, ran off the end of memory, or the
// watchpoint set matches an access the instruction performed.
//
// The "instruction" at Mem[pc] is interpreted as a single opcode byte:
// 0x00 is a no-op (pc += 4), 0x01 stores R0 to the word at R1 (exercises
// write watchpoints), 0x02 loads R0 from the word at R1 (exercises read
// watchpoints), 0xff halts the core (Exited).
func (m *Machine) step(c *Core) (gdbstub.StopReason, bool) {
	addr := uint64(c.Regs.R[pc])
	if int(addr) >= len(m.Mem) {
		c.Exited = true
		c.Running = false
		return gdbstub.StopTerminated(11), true // SIGSEGV
	}

	if m.breakpoints[addr] {
		c.Running = false
		return gdbstub.StopSwBreak(c.Tid), true
	}

	op := m.Mem[addr]
	switch op {
	case 0xff:
		c.Exited = true
		c.Running = false
		return gdbstub.StopExited(c.ExitCode), true
	case 0x01:
		target := uint64(c.Regs.R[1])
		if kind, ok := m.watchpoints[target]; ok && (kind == gdbstub.WatchWrite || kind == gdbstub.WatchReadWrite) {
			c.Running = false
			return gdbstub.StopWatch(c.Tid, kind, target), true
		}
		if int(target)+4 <= len(m.Mem) {
			v := c.Regs.R[0]
			m.Mem[target] = byte(v)
			m.Mem[target+1] = byte(v >> 8)
			m.Mem[target+2] = byte(v >> 16)
			m.Mem[target+3] = byte(v >> 24)
		}
	case 0x02:
		target := uint64(c.Regs.R[1])
		if kind, ok := m.watchpoints[target]; ok && (kind == gdbstub.WatchRead || kind == gdbstub.WatchReadWrite) {
			c.Running = false
			return gdbstub.StopWatch(c.Tid, kind, target), true
		}
	}

	c.Regs.R[pc] += 4
	return gdbstub.StopReason{}, false
}

// RunOneRound advances every running core by one instruction and
// reports the first stop reason observed, if any. A single-step action
// installed by Resume already ran synchronously and queued its stop
// reason in m.pending; that is reported here before any core is
// stepped again.
func (m *Machine) RunOneRound() (gdbstub.Tid, gdbstub.StopReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) > 0 {
		p := m.pending[0]
		m.pending = m.pending[1:]
		return p.tid, p.sr, true
	}
	for _, c := range m.Cores {
		if !c.Running {
			continue
		}
		if sr, stopped := m.step(c); stopped {
			return c.Tid, sr, true
		}
	}
	return 0, gdbstub.StopReason{}, false
}
