package jeebie

import (
	"testing"
	"time"

	"github.com/valerio/go-jeebie/jeebie/addr"
)

func newTestROM() []byte {
	rom := make([]byte, 0x8000)
	// Entry point: an infinite NOP sled is enough to exercise the
	// scheduler; cartridge header fields default to type 0x00 (no MBC).
	return rom
}

// newRunningGameboy builds a Gameboy with the LCD turned on, so the PPU
// actually advances through scanlines and emits frames.
func newRunningGameboy(t *testing.T) *Gameboy {
	t.Helper()
	gb, err := New(newTestROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gb.bus.Write(addr.LCDC, 0x91)
	return gb
}

func TestGameboyTickRetiresInstructions(t *testing.T) {
	gb, err := New(newTestROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < CyclesPerFrame*2; i++ {
		gb.Tick()
	}

	if got := gb.CPU().Retired(); got == 0 {
		t.Error("expected at least one instruction retired after two frames")
	}
}

func TestGameboyDeliversFrameOnVBlank(t *testing.T) {
	gb := newRunningGameboy(t)

	select {
	case <-gb.Frames():
		t.Fatal("frame delivered before any ticking happened")
	default:
	}

	for i := 0; i < CyclesPerFrame; i++ {
		gb.Tick()
	}

	select {
	case frame := <-gb.Frames():
		if frame == nil {
			t.Fatal("delivered frame is nil")
		}
	case <-time.After(time.Millisecond):
		t.Fatal("expected a frame within one frame's worth of ticks")
	}
}

func TestGameboyFrameChannelDropsOldestWhenFull(t *testing.T) {
	gb := newRunningGameboy(t)

	// Run several frames without draining the channel; it must never
	// block (capacity 2, drop-oldest backpressure).
	for i := 0; i < CyclesPerFrame*5; i++ {
		gb.Tick()
	}

	count := 0
	for {
		select {
		case <-gb.Frames():
			count++
		default:
			if count == 0 {
				t.Fatal("expected at least one buffered frame")
			}
			if count > 2 {
				t.Fatalf("frame channel held %d frames, want at most 2", count)
			}
			return
		}
	}
}

func TestGameboyRunStepsRespectsBudget(t *testing.T) {
	gb, err := New(newTestROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gb.RunSteps(50)

	if got := gb.CPU().Retired(); got != 50 {
		t.Errorf("retired = %d, want exactly 50", got)
	}
}

func TestGameboyRunStepsExitsOnControlMessage(t *testing.T) {
	gb, err := New(newTestROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gb.Control() <- ExitMessage()
	gb.RunSteps(0)
}
