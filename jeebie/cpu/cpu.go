// Package cpu implements the SM83 CPU core as a Bus peer advanced one
// T-state at a time.
//
// Each instruction decodes into a queue of micro-ops, one per remaining
// M-cycle; Tick pops and runs exactly one micro-op per M-cycle boundary, so
// a bus access lands on the T-state the real hardware would perform it on
// (CALL's push, JP's target fetch, indirect loads, and so on interleave
// correctly with the Timer/PPU instead of all landing on the opcode
// fetch). The final micro-op of an instruction runs, the queue drains, and
// the next M-cycle boundary fetches and decodes the following opcode — the
// fetch/exec overlap is that decoding runs in the same Tick call as the
// opcode fetch, so an instruction with no further M-cycles completes on its
// fetch M-cycle.
package cpu

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// ime models the interrupt master enable as a 3-state value: disabled,
// enabled, or pending-enable (set by EI, takes effect one instruction
// later).
const (
	imeDisabled uint8 = 0
	imeEnabled  uint8 = 1
	imePending  uint8 = 2
)

// microOp is one M-cycle's worth of work: at most one bus read or write,
// plus whatever register bookkeeping belongs on that cycle.
type microOp func(c *CPU, bus *memory.Bus)

// CPU is the SM83 core. It holds no reference to the Bus between ticks;
// one is passed into Tick for the duration of a single T-state.
type CPU struct {
	registers

	ime    uint8
	halted bool

	// queue holds the micro-ops still owed by the instruction in flight,
	// one per remaining M-cycle. subCycle counts down the 3 T-states
	// still owed within the current M-cycle before the next queue pop
	// (or fetch) is due.
	queue    []microOp
	subCycle int

	prevPC, curPC uint16
	retired       uint64

	logger *slog.Logger
}

// queueOp appends one micro-op to the instruction currently decoding.
func (c *CPU) queueOp(op microOp) { c.queue = append(c.queue, op) }

// queueOps appends several micro-ops in M-cycle order.
func (c *CPU) queueOps(ops ...microOp) { c.queue = append(c.queue, ops...) }

// New creates a CPU with registers and I/O-adjacent state seeded to their
// DMG post-boot values (boot ROM execution is out of scope; state starts
// as if the boot ROM had just handed off control).
func New() *CPU {
	c := &CPU{logger: slog.Default()}
	c.a, c.f = 0x01, 0xB0
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.ime = imeDisabled
	return c
}

// Tick advances the CPU by one T-state. On the three T-states between
// M-cycle boundaries it does nothing; on the boundary it either pops and
// runs the next queued micro-op of the in-flight instruction, services a
// pending interrupt, idles one M-cycle of HALT, or fetches and decodes the
// next opcode.
func (c *CPU) Tick(bus *memory.Bus) {
	if c.subCycle > 0 {
		c.subCycle--
		return
	}

	bus.Claim(memory.OwnerCPU)
	defer bus.Release()

	if len(c.queue) > 0 {
		op := c.queue[0]
		c.queue = c.queue[1:]
		op(c, bus)
		c.subCycle = 3
		return
	}

	if c.dispatchInterrupt(bus) {
		return
	}

	if c.ime == imePending {
		c.ime = imeEnabled
	}

	if c.halted {
		c.subCycle = 3 // HALT idles in 4-T-state steps until an interrupt is pending.
		return
	}

	c.fetchNext(bus)
}

// fetchNext is the shared fetch_next step: it reads and decodes the next
// opcode. Decoding queues one micro-op per remaining M-cycle of the new
// instruction; single-M-cycle instructions resolve entirely here, which is
// the fetch/exec overlap in practice.
func (c *CPU) fetchNext(bus *memory.Bus) {
	c.prevPC = c.curPC
	c.curPC = c.pc

	opcode := bus.Read(c.pc)
	c.pc++

	c.decode(bus, opcode)
	c.retired++
	c.subCycle = 3
}

// dispatchInterrupt checks IE&IF against the current IME (evaluated
// *before* the EI-delay flip below would apply, so an EI immediately
// before a pending interrupt still lets the following instruction run)
// and services the highest-priority pending interrupt. It reports whether
// a dispatch happened.
func (c *CPU) dispatchInterrupt(bus *memory.Bus) bool {
	ie := bus.Read(addr.IE)
	ifReg := bus.Read(addr.IF)
	pending := ie & ifReg

	if pending != 0 && c.halted {
		c.halted = false
	}

	if pending == 0 || c.ime != imeEnabled {
		return false
	}

	c.ime = imeDisabled

	var bitIndex uint8
	var vector uint16
	switch {
	case pending&uint8(addr.VBlankInterrupt) != 0:
		bitIndex, vector = 0, 0x40
	case pending&uint8(addr.LCDSTATInterrupt) != 0:
		bitIndex, vector = 1, 0x48
	case pending&uint8(addr.TimerInterrupt) != 0:
		bitIndex, vector = 2, 0x50
	case pending&uint8(addr.SerialInterrupt) != 0:
		bitIndex, vector = 3, 0x58
	default:
		bitIndex, vector = 4, 0x60
	}

	bus.Write(addr.IF, ifReg&^(1<<bitIndex))

	// This call is the first of the two idle cycles; queue the second
	// idle, push-high, and push-low (which also loads PC with the
	// vector). fetch_next from the vector is the implicit 5th M-cycle.
	c.queueOps(
		func(c *CPU, bus *memory.Bus) {},
		func(c *CPU, bus *memory.Bus) {
			bus.Write(c.sp-1, uint8(c.pc>>8))
		},
		func(c *CPU, bus *memory.Bus) {
			bus.Write(c.sp-2, uint8(c.pc))
			c.sp -= 2
			c.pc = vector
		},
	)
	c.subCycle = 3
	return true
}

// PC returns the current program counter, for tests and debug tooling.
func (c *CPU) PC() uint16 { return c.pc }

// SP returns the current stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// Retired returns the number of instructions fetched and decoded so far. An
// instruction is counted when it is decoded, before any of its queued
// M-cycles run.
func (c *CPU) Retired() uint64 { return c.retired }

// Halted reports whether the CPU is currently halted.
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) unimplementedOpcode(opcode uint8) {
	panic(fmt.Sprintf("cpu: unused opcode 0x%02X at PC=0x%04X", opcode, c.curPC))
}
