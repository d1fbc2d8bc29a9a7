package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// load builds a minimal type-0x00 (no-MBC) cartridge image with the given
// program placed at 0x0100 (the post-boot entry point), and returns a Bus
// with it installed. ROM writes are banking-control writes on real
// hardware, so the program must travel in via LoadCartridge rather than
// Bus.Write.
func load(program ...byte) *memory.Bus {
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], program)

	bus := memory.New()
	if err := bus.LoadCartridge(rom); err != nil {
		panic(err)
	}
	return bus
}

func runMCycles(c *CPU, bus *memory.Bus, mcycles int) {
	for i := 0; i < mcycles*4; i++ {
		c.Tick(bus)
	}
}

func TestNOPTakesOneMCycle(t *testing.T) {
	bus := load(0x00, 0x00) // nop; nop
	c := New()

	runMCycles(c, bus, 1)
	assert.Equal(t, uint16(0x0101), c.PC())
	assert.Equal(t, uint64(1), c.Retired())
}

func TestRegisterImmediates(t *testing.T) {
	bus := load(
		0x01, 0x02, 0x01, // ld bc,0x0102
		0x11, 0x04, 0x03, // ld de,0x0304
		0x21, 0x06, 0x05, // ld hl,0x0506
		0x31, 0x08, 0x07, // ld sp,0x0708
	)
	c := New()
	runMCycles(c, bus, 3*4)

	assert.Equal(t, uint16(0x0102), c.getBC())
	assert.Equal(t, uint16(0x0304), c.getDE())
	assert.Equal(t, uint16(0x0506), c.getHL())
	assert.Equal(t, uint16(0x0708), c.sp)
}

func TestCallPushesReturnAddress(t *testing.T) {
	bus := load(
		0xCD, 0x04, 0x01, // call 0x0104
		0x76, // halt (never reached directly; foo runs first)
		0x3C, // foo: inc a
	)
	c := New()

	runMCycles(c, bus, 6+1) // call(6) + inc a(1)
	assert.Equal(t, uint8(0x02), c.a, "post-boot 0x01 + 1")
	assert.Equal(t, uint16(0xFFFC), c.sp, "return address pushed, not yet popped")
	assert.Equal(t, uint8(0x03), bus.Read(0xFFFC), "return address low byte")
	assert.Equal(t, uint8(0x01), bus.Read(0xFFFD), "return address high byte")
}

func TestAddSPNegativeOffset(t *testing.T) {
	// add sp,-4 ; push de ; add sp,8
	bus := load(
		0xE8, 0xFC, // add sp,-4
		0xD5,       // push de
		0xE8, 0x08, // add sp,8
	)
	c := New()
	c.setDE(0x00D8) // post-boot DE

	runMCycles(c, bus, 4+4+4)

	assert.Equal(t, uint16(0x0000), c.sp)
	assert.Equal(t, uint8(0xD8), bus.Read(0xFFF8), "E register (low byte of DE)")
}

func TestConditionalJRCycleCounts(t *testing.T) {
	bus := load(0x20, 0x02) // jr nz,+2
	c := New()
	c.setFlag(flagZ, true) // condition false: not taken

	runMCycles(c, bus, 2)
	assert.Equal(t, uint16(0x0102), c.PC(), "not-taken JR")

	bus2 := load(0x20, 0x02)
	c2 := New()
	c2.setFlag(flagZ, false) // condition true: taken

	runMCycles(c2, bus2, 3)
	assert.Equal(t, uint16(0x0104), c2.PC(), "taken JR")
}

func TestEIDelaysOneInstruction(t *testing.T) {
	bus := load(
		0xFB, // ei
		0x00, // nop
		0x00, // nop
	)
	c := New()
	bus.Write(addr.IE, uint8(addr.VBlankInterrupt))
	bus.Write(addr.IF, uint8(addr.VBlankInterrupt))

	runMCycles(c, bus, 1) // ei executes
	assert.Equal(t, imePending, c.ime, "immediately after EI")

	runMCycles(c, bus, 1) // nop executes; ime flips to enabled at this boundary
	assert.Equal(t, uint16(0x0102), c.pc, "NOP must run before dispatch")

	// The next instruction boundary should now see the interrupt pending
	// and dispatch to the VBlank vector instead of fetching the second
	// NOP. Dispatch is itself a 5-M-cycle sequence (2 idle, push PC high,
	// push PC low while loading PC with the vector, fetch_next); PC only
	// latches the vector on the push-low M-cycle, the 4th of that
	// sequence.
	runMCycles(c, bus, 4)
	assert.Equal(t, uint16(0x0040), c.pc, "VBlank vector")
}

func TestHaltWakesOnPendingInterrupt(t *testing.T) {
	bus := load(0x76, 0x00) // halt; nop
	c := New()
	c.ime = imeDisabled

	runMCycles(c, bus, 1)
	assert.True(t, c.Halted())

	bus.Write(addr.IE, uint8(addr.TimerInterrupt))
	bus.Write(addr.IF, uint8(addr.TimerInterrupt))

	runMCycles(c, bus, 1)
	assert.False(t, c.Halted(), "expected CPU to wake from halt once an interrupt is pending")
}
