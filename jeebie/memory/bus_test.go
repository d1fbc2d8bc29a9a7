package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie/jeebie/addr"
)

func TestBusRoundTrip(t *testing.T) {
	ranges := []struct {
		name       string
		start, end uint16
	}{
		{"WRAM", 0xC000, 0xDFFF},
		{"VRAM", 0x8000, 0x9FFF},
		{"HRAM", 0xFF80, 0xFFFE},
	}

	for _, r := range ranges {
		t.Run(r.name, func(t *testing.T) {
			b := New()
			b.Write(r.start, 0xAB)
			b.Write(r.end, 0xCD)
			assert.Equal(t, uint8(0xAB), b.Read(r.start))
			assert.Equal(t, uint8(0xCD), b.Read(r.end))
		})
	}
}

func TestBusEchoRAM(t *testing.T) {
	b := New()
	b.Write(0xC010, 0x55)
	assert.Equal(t, uint8(0x55), b.Read(0xE010), "echo read")

	b.Write(0xE020, 0x66)
	assert.Equal(t, uint8(0x66), b.Read(0xC020), "WRAM after echo write")
}

func TestBusUnusableRegion(t *testing.T) {
	b := New()
	b.Write(0xFEA0, 0x42)
	assert.Equal(t, uint8(0xFF), b.Read(0xFEA0))
}

func TestBusTACReadsReservedBitsHigh(t *testing.T) {
	b := New()
	b.Write(addr.TAC, 0x05)
	assert.Equal(t, uint8(0xFD), b.Read(addr.TAC))
}

func TestBusDIVWriteResetsAndSetsOneShot(t *testing.T) {
	b := New()
	b.memory[addr.DIV] = 0x80
	b.Write(addr.DIV, 0x12)
	assert.Equal(t, uint8(0), b.Read(addr.DIV), "DIV after write")
	assert.True(t, b.WriteDiv, "WriteDiv one-shot not set")
}

func TestBusTIMAWriteDroppedDuringOverflow(t *testing.T) {
	b := New()
	b.TimaOverflow = true
	b.Write(addr.TIMA, 0x99)
	assert.Equal(t, uint8(0), b.Read(addr.TIMA), "write should be dropped")
}

func TestBusJoypadSelection(t *testing.T) {
	b := New()
	b.PressButton(ButtonA)
	b.PressButton(ButtonRight)

	b.Write(addr.P1, 0x20) // select dpad (bit 4 clear selects dpad; bit5 clear selects buttons)
	assert.Equal(t, uint8(0x0E), b.Read(addr.P1)&0x0F, "dpad row (Right pressed)")

	b.Write(addr.P1, 0x10) // select buttons
	assert.Equal(t, uint8(0x0E), b.Read(addr.P1)&0x0F, "buttons row (A pressed)")
}

func TestBusJoypadInterruptOnPress(t *testing.T) {
	b := New()
	b.Write(addr.IF, 0)
	b.PressButton(ButtonStart)
	assert.NotZero(t, b.Read(addr.IF)&uint8(addr.JoypadInterrupt), "expected JoypadInterrupt set in IF after a button press")
}

func TestOwnerClaimInvariant(t *testing.T) {
	b := New()
	b.Claim(OwnerCPU)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on double-claim")
		}
	}()
	b.Claim(OwnerPPU)
}
