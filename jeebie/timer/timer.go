// Package timer implements the DIV/TIMA/TMA/TAC timer as a Bus peer,
// advanced one T-state at a time alongside the CPU and PPU.
package timer

import (
	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/bit"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// tacBit maps TAC[1:0] to the system-counter bit the falling-edge detector
// watches.
var tacBit = [4]uint16{7, 1, 3, 5}

// Timer tracks the 14-bit system counter behind DIV and drives TIMA's
// falling-edge increment and 4-T-state overflow reload.
type Timer struct {
	systemCounter uint16
	prevSignal    bool
	overflowDelay int
	t             uint64
}

// New creates a Timer with the system counter at its DMG post-boot value.
func New() *Timer {
	return &Timer{systemCounter: 0x2CCC}
}

// Tick advances the timer by one T-state, reading and writing DIV/TIMA/TMA/TAC
// directly on the bus and consuming the bus's one-shot write flags.
func (t *Timer) Tick(bus *memory.Bus) {
	bus.Claim(memory.OwnerTimer)
	defer bus.Release()

	if t.t%4 == 0 {
		bus.TimaOverflow = false
	}

	tma := bus.Read(addr.TMA)

	if t.overflowDelay > 0 {
		t.overflowDelay--
		if t.overflowDelay == 0 {
			bus.Write(addr.TIMA, tma)
			bus.RequestInterrupt(addr.TimerInterrupt)
			bus.TimaOverflow = true
		}
	}

	tac := bus.Read(addr.TAC)
	bitPos := tacBit[tac&0x03]
	enabled := bit.IsSet(2, tac)

	if bus.WriteDiv {
		bus.WriteDiv = false
		before := enabled && bit.IsSet16(bitPos, t.systemCounter)
		t.systemCounter = 0
		bus.SetDiv(0)
		if before {
			t.incrementTIMA(bus)
		}
	}

	if bus.WriteTAC {
		bus.WriteTAC = false
		before := t.prevSignal
		after := enabled && bit.IsSet16(bitPos, t.systemCounter)
		if before && !after {
			t.incrementTIMA(bus)
		}
		t.prevSignal = after
	}

	if t.t%4 == 0 {
		t.systemCounter = (t.systemCounter + 1) & 0x3FFF
		bus.SetDiv(byte(t.systemCounter >> 6))
	}

	signal := enabled && bit.IsSet16(bitPos, t.systemCounter)
	if t.prevSignal && !signal {
		t.incrementTIMA(bus)
	}
	t.prevSignal = signal

	t.t++
}

func (t *Timer) incrementTIMA(bus *memory.Bus) {
	tima := bus.Read(addr.TIMA)
	if tima == 0xFF {
		bus.Write(addr.TIMA, 0)
		t.overflowDelay = 4
		return
	}
	bus.Write(addr.TIMA, tima+1)
}
