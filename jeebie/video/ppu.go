// Package video implements the DMG pixel processing unit: a per-dot mode
// state machine driving a background-only pixel FIFO fetcher, and the RGBA8
// back-buffer it paints.
package video

import (
	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/bit"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// Mode is the PPU's scanline mode. Values match the STAT bits 0-1 encoding.
type Mode uint8

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAMScan
	ModeDrawing
)

const (
	dotsPerOAMScan     = 80
	dotsPerScanline    = 456
	scanlinesPerVBlank = 10
)

type fetchStage uint8

const (
	stageTile fetchStage = iota
	stageDataLo
	stageDataHi
	stagePush
)

// PPU advances one dot (one T-state) at a time while the LCD is enabled.
type PPU struct {
	mode    Mode
	lineDot int // dots elapsed within the current scanline/VBlank line
	m0Left  int // remaining HBlank dots, computed once M3 finishes

	x uint8

	fifo []byte // unpacked 2-bit color indices, front = next to pop

	stage     fetchStage
	stageIdle bool // each visible sub-state is preceded by an idle half-step
	fetchX    uint8
	tileID    byte
	loByte    byte
	hiByte    byte

	lcdWasEnabled      bool
	alreadyInterrupted bool

	frame *FrameBuffer
}

func New() *PPU {
	p := &PPU{frame: NewFrameBuffer()}
	p.resetToFrameStart()
	return p
}

func (p *PPU) FrameBuffer() *FrameBuffer { return p.frame }

// Tick advances the PPU by one dot. It reports whether a complete frame was
// just finished (LY wrapped from 153 back to 0), so the caller can hand the
// back-buffer off to the frame channel.
func (p *PPU) Tick(bus *memory.Bus) bool {
	bus.Claim(memory.OwnerPPU)
	defer bus.Release()

	lcdc := bus.Read(addr.LCDC)
	enabled := bit.IsSet(7, lcdc)

	if !enabled {
		if p.lcdWasEnabled {
			p.lcdWasEnabled = false
			p.frame.Clear()
			bus.Write(addr.LY, 0)
		}
		return false
	}

	if !p.lcdWasEnabled {
		p.lcdWasEnabled = true
		p.resetToFrameStart()
		bus.Write(addr.LY, 0)
		p.updateSTAT(bus)
	}

	switch p.mode {
	case ModeOAMScan:
		p.tickOAMScan(bus)
	case ModeDrawing:
		p.tickDrawing(bus, lcdc)
	case ModeHBlank:
		return p.tickHBlank(bus)
	case ModeVBlank:
		return p.tickVBlank(bus)
	}
	return false
}

func (p *PPU) resetToFrameStart() {
	p.mode = ModeOAMScan
	p.lineDot = 0
	p.x = 0
	p.resetFetcher()
	p.frame.Clear()
}

func (p *PPU) resetFetcher() {
	p.fifo = p.fifo[:0]
	p.stage = stageTile
	p.stageIdle = false
	p.fetchX = 0
}

func (p *PPU) tickOAMScan(bus *memory.Bus) {
	p.lineDot++
	if p.lineDot >= dotsPerOAMScan {
		p.mode = ModeDrawing
		p.updateSTAT(bus)
	}
}

func (p *PPU) tickDrawing(bus *memory.Bus, lcdc byte) {
	p.lineDot++
	p.stepFetcher(bus, lcdc)

	if len(p.fifo) > 0 && p.x < FramebufferWidth {
		color := p.fifo[0]
		p.fifo = p.fifo[1:]
		ly := bus.Read(addr.LY)
		p.frame.SetPixel(uint(p.x), uint(ly), ByteToColor(color))
		p.x++
	}

	if p.x >= FramebufferWidth {
		p.mode = ModeHBlank
		p.m0Left = dotsPerScanline - p.lineDot
		if p.m0Left < 0 {
			p.m0Left = 0
		}
		p.updateSTAT(bus)
	}
}

// stepFetcher advances the background fetcher's 4-stage pipeline, each
// stage preceded by an idle half-step (2 dots per meaningful step).
func (p *PPU) stepFetcher(bus *memory.Bus, lcdc byte) {
	if !p.stageIdle {
		p.stageIdle = true
		return
	}
	p.stageIdle = false

	scx := bus.Read(addr.SCX)
	scy := bus.Read(addr.SCY)
	ly := bus.Read(addr.LY)

	switch p.stage {
	case stageTile:
		tileMapBase := uint16(addr.TileMap0)
		if bit.IsSet(3, lcdc) {
			tileMapBase = addr.TileMap1
		}
		tileCol := (uint16(scx)/8 + uint16(p.fetchX)) & 0x1F
		tileRow := uint16(ly+scy) / 8
		p.tileID = bus.Read(tileMapBase + tileRow*32 + tileCol)
		p.stage = stageDataLo
	case stageDataLo:
		p.loByte = bus.Read(p.tileDataAddress(lcdc, bus, 0))
		p.stage = stageDataHi
	case stageDataHi:
		p.hiByte = bus.Read(p.tileDataAddress(lcdc, bus, 1))
		p.stage = stagePush
	case stagePush:
		if len(p.fifo) <= 8 {
			bgp := bus.Read(addr.BGP)
			for i := 7; i >= 0; i-- {
				lo := (p.loByte >> uint(i)) & 1
				hi := (p.hiByte >> uint(i)) & 1
				idx := lo | hi<<1
				p.fifo = append(p.fifo, (bgp>>(idx*2))&0x03)
			}
			p.fetchX++
			p.stage = stageTile
		}
	}
}

func (p *PPU) tileDataAddress(lcdc byte, bus *memory.Bus, plane uint16) uint16 {
	ly := bus.Read(addr.LY)
	scy := bus.Read(addr.SCY)
	row := uint16(ly+scy) % 8

	if bit.IsSet(4, lcdc) {
		return addr.TileData0 + uint16(p.tileID)*16 + row*2 + plane
	}
	signed := int8(p.tileID)
	return uint16(int32(addr.TileData2) + int32(signed)*16) + row*2 + plane
}

func (p *PPU) tickHBlank(bus *memory.Bus) bool {
	p.lineDot++
	p.m0Left--
	if p.m0Left > 0 {
		return false
	}

	ly := bus.Read(addr.LY) + 1
	bus.Write(addr.LY, ly)
	p.x = 0
	p.lineDot = 0
	p.resetFetcher()

	if ly == FramebufferHeight {
		p.mode = ModeVBlank
		bus.RequestInterrupt(addr.VBlankInterrupt)
	} else {
		p.mode = ModeOAMScan
	}
	p.updateSTAT(bus)
	return false
}

// lastVBlankLine is the final LY value of the 10-line VBlank period
// (144..153) before it wraps back to 0.
const lastVBlankLine = FramebufferHeight + scanlinesPerVBlank - 1

func (p *PPU) tickVBlank(bus *memory.Bus) bool {
	p.lineDot++
	if p.lineDot < dotsPerScanline {
		return false
	}
	p.lineDot = 0

	ly := bus.Read(addr.LY)
	if ly >= lastVBlankLine {
		bus.Write(addr.LY, 0)
		p.mode = ModeOAMScan
		p.resetFetcher()
		p.updateSTAT(bus)
		return true
	}

	bus.Write(addr.LY, ly+1)
	p.updateSTAT(bus)
	return false
}

// updateSTAT refreshes STAT bits 0-2 and raises the STAT interrupt on the
// rising edge of any enabled source (mode 0/1/2 entry, or LY==LYC), using
// alreadyInterrupted to coalesce while the condition continues to hold.
func (p *PPU) updateSTAT(bus *memory.Bus) {
	stat := bus.Read(addr.STAT)
	stat &^= 0x07
	stat |= uint8(p.mode)

	ly := bus.Read(addr.LY)
	lyc := bus.Read(addr.LYC)
	coincidence := ly == lyc
	if coincidence {
		stat |= 0x04
	}
	bus.Write(addr.STAT, stat)

	signal := (coincidence && bit.IsSet(6, stat)) ||
		(p.mode == ModeHBlank && bit.IsSet(3, stat)) ||
		(p.mode == ModeVBlank && bit.IsSet(4, stat)) ||
		(p.mode == ModeOAMScan && bit.IsSet(5, stat))

	if signal && !p.alreadyInterrupted {
		bus.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	p.alreadyInterrupted = signal
}
