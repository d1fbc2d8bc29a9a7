// Package memory implements the Game Boy's 64 KiB address space: the Bus
// that the CPU, PPU, Timer and Serial peripherals share as peers.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/bit"
)

// Owner names the peripheral currently holding the bus. It is an invariant
// check, not a lock: the core is single-threaded and cooperative, so two
// peripherals can never actually collide, but a peripheral that forgets to
// release the bus at the end of its tick is a bug worth catching loudly.
type Owner uint8

const (
	OwnerNone Owner = iota
	OwnerCPU
	OwnerPPU
	OwnerTimer
	OwnerSerial
	OwnerJoypad
)

func (o Owner) String() string {
	switch o {
	case OwnerNone:
		return "none"
	case OwnerCPU:
		return "cpu"
	case OwnerPPU:
		return "ppu"
	case OwnerTimer:
		return "timer"
	case OwnerSerial:
		return "serial"
	case OwnerJoypad:
		return "joypad"
	default:
		return "unknown"
	}
}

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnusable
	regionIO
)

// JoypadButton is one of the eight physical Game Boy buttons.
type JoypadButton uint8

const (
	ButtonRight JoypadButton = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// Bus owns the 64 KiB address space, the cartridge MBC, the current-owner
// tag, and the one-shot register-write flags consumed by the Timer.
type Bus struct {
	memory    [0x10000]byte
	mbc       MBC
	regionMap [256]memRegion

	Owner Owner

	// One-shot flags, set by a write and consumed by the Timer's next tick.
	WriteDiv bool
	WriteTAC bool
	// Latched by the Timer while its 4-T-state reload delay is in flight;
	// suppresses CPU writes to TIMA during that window.
	TimaOverflow bool

	joypadButtons uint8
	joypadDpad    uint8
}

// New creates a Bus with no cartridge inserted; ROM/external-RAM reads
// return 0xFF, matching a DMG powered on without a cartridge.
func New() *Bus {
	b := &Bus{
		mbc:           NewNoMBC(nil),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	b.initRegionMap()
	b.memory[addr.P1] = 0xFF
	return b
}

// LoadCartridge parses a ROM header and installs the matching MBC.
func (b *Bus) LoadCartridge(rom []byte) error {
	cart, err := ParseCartridge(rom)
	if err != nil {
		return err
	}
	b.mbc = cart.NewMBC()
	return nil
}

func (b *Bus) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		b.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		b.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		b.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		b.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		b.regionMap[i] = regionEcho
	}
	b.regionMap[0xFE] = regionOAM
	b.regionMap[0xFF] = regionIO
}

// Claim asserts exclusive ownership of the bus for the duration of a
// peripheral's tick. It panics if another peripheral failed to release.
func (b *Bus) Claim(o Owner) {
	if b.Owner != OwnerNone {
		panic(fmt.Sprintf("bus: %s claimed while %s still owns it", o, b.Owner))
	}
	b.Owner = o
}

// Release restores the bus to the unowned state.
func (b *Bus) Release() {
	b.Owner = OwnerNone
}

// RequestInterrupt sets the given interrupt's bit in IF.
func (b *Bus) RequestInterrupt(i addr.Interrupt) {
	b.Write(addr.IF, b.Read(addr.IF)|uint8(i))
}

func (b *Bus) Read(address uint16) byte {
	switch b.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return b.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return b.memory[address]
	case regionEcho:
		return b.memory[address-0x2000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return b.memory[address]
		}
		// 0xFEA0-0xFEFF: unusable, reads as 0xFF.
		return 0xFF
	case regionIO:
		if address == addr.P1 {
			return b.readJoypad()
		}
		if address == addr.IF {
			return b.memory[address] | 0xE0
		}
		if address == addr.TAC {
			return b.memory[address] | 0xF8
		}
		return b.memory[address]
	default:
		panic(fmt.Sprintf("bus: read from unmapped address 0x%04X", address))
	}
}

func (b *Bus) Write(address uint16, value byte) {
	switch b.regionMap[address>>8] {
	case regionROM:
		b.mbc.Write(address, value)
	case regionVRAM, regionWRAM:
		b.memory[address] = value
	case regionExtRAM:
		b.mbc.Write(address, value)
	case regionEcho:
		b.memory[address-0x2000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			b.memory[address] = value
		}
		// 0xFEA0-0xFEFF is unusable; writes are ignored.
	case regionIO:
		b.writeIO(address, value)
	default:
		panic(fmt.Sprintf("bus: write to unmapped address 0x%04X", address))
	}
}

func (b *Bus) writeIO(address uint16, value byte) {
	switch address {
	case addr.P1:
		b.writeJoypad(value)
	case addr.DIV:
		b.memory[address] = 0
		b.WriteDiv = true
	case addr.TAC:
		b.memory[address] = (value & 0x07) | 0xF8
		b.WriteTAC = true
	case addr.TIMA:
		if b.TimaOverflow {
			return
		}
		b.memory[address] = value
	case addr.IF:
		b.memory[address] = value | 0xE0
	case addr.DMA:
		// Reserved: the register is writable but performs no OAM copy.
		b.memory[address] = value
	default:
		b.memory[address] = value
	}
}

// SetDiv publishes the Timer's internal system counter into the DIV
// register directly, bypassing the reset-to-zero behavior that a CPU write
// to 0xFF04 triggers.
func (b *Bus) SetDiv(value byte) {
	b.memory[addr.DIV] = value
}

// ReadBit reports whether the given bit of the byte at address is set.
func (b *Bus) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, b.Read(address))
}

// SetBit sets or clears the given bit of the byte at address.
func (b *Bus) SetBit(index uint8, address uint16, set bool) {
	v := b.Read(address)
	if set {
		v = bit.Set(index, v)
	} else {
		v = bit.Reset(index, v)
	}
	b.Write(address, v)
}

// readJoypad computes P1 from the selection bits (4-5) and current button
// state. 1 = released, 0 = pressed; bits 6-7 always read high.
func (b *Bus) readJoypad() byte {
	sel := b.memory[addr.P1]
	result := uint8(0xC0) | (sel & 0x30)

	selectDpad := !bit.IsSet(4, sel)
	selectButtons := !bit.IsSet(5, sel)

	switch {
	case selectButtons && selectDpad:
		result |= b.joypadButtons & b.joypadDpad & 0x0F
	case selectButtons:
		result |= b.joypadButtons & 0x0F
	case selectDpad:
		result |= b.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}
	return result
}

func (b *Bus) writeJoypad(value byte) {
	b.memory[addr.P1] = value & 0x30
}

// PressButton marks a button pressed and raises the joypad interrupt on a
// high-to-low transition.
func (b *Bus) PressButton(button JoypadButton) {
	before := b.joypadButtons & b.joypadDpad
	b.setButton(button, false)
	after := b.joypadButtons & b.joypadDpad
	if before & ^after != 0 {
		b.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// ReleaseButton marks a button released.
func (b *Bus) ReleaseButton(button JoypadButton) {
	b.setButton(button, true)
}

func (b *Bus) setButton(button JoypadButton, released bool) {
	var group *uint8
	var bitIndex uint8
	switch button {
	case ButtonRight:
		group, bitIndex = &b.joypadDpad, 0
	case ButtonLeft:
		group, bitIndex = &b.joypadDpad, 1
	case ButtonUp:
		group, bitIndex = &b.joypadDpad, 2
	case ButtonDown:
		group, bitIndex = &b.joypadDpad, 3
	case ButtonA:
		group, bitIndex = &b.joypadButtons, 0
	case ButtonB:
		group, bitIndex = &b.joypadButtons, 1
	case ButtonSelect:
		group, bitIndex = &b.joypadButtons, 2
	case ButtonStart:
		group, bitIndex = &b.joypadButtons, 3
	default:
		slog.Warn("bus: unknown joypad button", "button", button)
		return
	}
	if released {
		*group = bit.Set(bitIndex, *group)
	} else {
		*group = bit.Reset(bitIndex, *group)
	}
}
