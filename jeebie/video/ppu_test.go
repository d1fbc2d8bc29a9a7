package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

func newEnabledBus() *memory.Bus {
	bus := memory.New()
	bus.Write(addr.LCDC, 0x91) // LCD on, BG on, tile data 0x8000 mode
	bus.Write(addr.BGP, 0xE4)  // identity palette: 3,2,1,0
	return bus
}

func TestPPUModeProgressionOneScanline(t *testing.T) {
	bus := newEnabledBus()
	p := New()

	assert.Equal(t, ModeOAMScan, p.mode)

	for i := 0; i < dotsPerOAMScan; i++ {
		p.Tick(bus)
	}
	assert.Equal(t, ModeDrawing, p.mode, "mode after %d dots", dotsPerOAMScan)

	for p.mode == ModeDrawing {
		p.Tick(bus)
	}
	assert.Equal(t, ModeHBlank, p.mode, "mode after drawing")
	assert.Equal(t, dotsPerScanline-p.m0Left, p.lineDot, "lineDot inconsistent with m0Left")
}

func TestPPUScanlineTotalsDotsPerScanline(t *testing.T) {
	bus := newEnabledBus()
	p := New()

	startLY := bus.Read(addr.LY)
	dots := 0
	for bus.Read(addr.LY) == startLY {
		p.Tick(bus)
		dots++
		if dots > dotsPerScanline*2 {
			t.Fatalf("LY did not advance within %d dots", dots)
		}
	}

	assert.Equal(t, dotsPerScanline, dots, "dots spent on one scanline")
}

func TestPPUEmitsFrameAfterFullScan(t *testing.T) {
	bus := newEnabledBus()
	p := New()

	frameDone := false
	for i := 0; i < dotsPerScanline*(FramebufferHeight+scanlinesPerVBlank)+dotsPerOAMScan; i++ {
		if p.Tick(bus) {
			frameDone = true
			break
		}
	}

	assert.True(t, frameDone, "expected a completed frame within one frame's worth of dots")
	assert.Equal(t, uint8(0), bus.Read(addr.LY), "LY after frame completion")
}

func TestPPULCDDisableBlanksFrame(t *testing.T) {
	bus := newEnabledBus()
	p := New()
	p.Tick(bus) // LCD is on: lcdWasEnabled latches true
	p.frame.SetPixel(0, 0, Color3Black)

	bus.Write(addr.LCDC, 0x00) // falling edge
	p.Tick(bus)

	assert.Equal(t, uint32(Color0White), p.frame.GetPixel(0, 0), "pixel after LCD-disabled tick")
}

func TestPPUVBlankRaisesInterrupt(t *testing.T) {
	bus := newEnabledBus()
	p := New()

	for bus.Read(addr.LY) < FramebufferHeight {
		p.Tick(bus)
	}

	ifReg := bus.Read(addr.IF)
	assert.NotZero(t, ifReg&uint8(addr.VBlankInterrupt), "expected VBlank interrupt flag set on entering line 144")
}
