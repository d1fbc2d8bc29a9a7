// Package jeebie ties the Bus and its four peripherals into the top-level
// emulator loop: a single-threaded T-state scheduler advancing Timer, CPU,
// PPU, and Serial in that fixed order every T-state.
package jeebie

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/valerio/go-jeebie/jeebie/cpu"
	"github.com/valerio/go-jeebie/jeebie/memory"
	"github.com/valerio/go-jeebie/jeebie/serial"
	"github.com/valerio/go-jeebie/jeebie/timer"
	"github.com/valerio/go-jeebie/jeebie/video"
)

// DMG timing constants.
const (
	CPUFrequency   = 4194304
	CyclesPerFrame = 70224
)

// FrameDuration is the wall-clock budget for one frame at native speed.
const FrameDuration = time.Second * CyclesPerFrame / CPUFrequency

// ControlMessage is a host-to-core message: either a joypad edge or a
// request to stop Run.
type ControlMessage struct {
	Exit    bool
	Button  memory.JoypadButton
	Pressed bool
	isInput bool
}

// JoypadInput builds a control message reporting a button's new state.
func JoypadInput(button memory.JoypadButton, pressed bool) ControlMessage {
	return ControlMessage{Button: button, Pressed: pressed, isInput: true}
}

// ExitMessage requests an orderly shutdown of Run.
func ExitMessage() ControlMessage {
	return ControlMessage{Exit: true}
}

// Gameboy holds the Bus and its four peripherals and drives them one
// T-state at a time.
type Gameboy struct {
	bus    *memory.Bus
	cpu    *cpu.CPU
	timer  *timer.Timer
	serial *serial.Serial
	ppu    *video.PPU

	t uint64

	frames  chan *video.FrameBuffer
	control chan ControlMessage

	logger *slog.Logger
}

// New creates a Gameboy with the given cartridge ROM image installed.
func New(rom []byte) (*Gameboy, error) {
	bus := memory.New()
	if err := bus.LoadCartridge(rom); err != nil {
		return nil, fmt.Errorf("jeebie: loading cartridge: %w", err)
	}

	g := &Gameboy{
		bus:     bus,
		cpu:     cpu.New(),
		timer:   timer.New(),
		serial:  serial.New(),
		ppu:     video.New(),
		frames:  make(chan *video.FrameBuffer, 2),
		control: make(chan ControlMessage, 256),
		logger:  slog.Default(),
	}
	return g, nil
}

// Frames returns the channel frames are delivered on. The channel has
// capacity 2; if the consumer falls behind, the oldest unconsumed frame is
// dropped to make room for the newest one.
func (g *Gameboy) Frames() <-chan *video.FrameBuffer { return g.frames }

// Control returns the channel the host posts joypad and exit messages on.
func (g *Gameboy) Control() chan<- ControlMessage { return g.control }

// SerialBuffer returns the bytes transferred out over the serial port so
// far (used by conformance tests to read pass/fail text).
func (g *Gameboy) SerialBuffer() []byte { return g.serial.Buffer() }

// CPU exposes the CPU core for debug tooling.
func (g *Gameboy) CPU() *cpu.CPU { return g.cpu }

// Tick advances every peripheral by exactly one T-state, in the fixed
// Timer -> CPU -> PPU -> Serial order, and reports whether a frame was
// just completed.
func (g *Gameboy) Tick() bool {
	g.timer.Tick(g.bus)
	g.cpu.Tick(g.bus)
	frameDone := g.ppu.Tick(g.bus)
	g.serial.Tick(g.bus)
	g.t++

	if frameDone {
		g.deliverFrame()
	}
	return frameDone
}

func (g *Gameboy) deliverFrame() {
	frame := g.ppu.FrameBuffer().Clone()
	select {
	case g.frames <- frame:
		return
	default:
	}

	select {
	case <-g.frames:
	default:
	}
	select {
	case g.frames <- frame:
	default:
	}
}

func (g *Gameboy) applyControl(msg ControlMessage) {
	if msg.isInput {
		if msg.Pressed {
			g.bus.PressButton(msg.Button)
		} else {
			g.bus.ReleaseButton(msg.Button)
		}
	}
}

func (g *Gameboy) drainControl() (exit bool) {
	for {
		select {
		case msg, ok := <-g.control:
			if !ok {
				return true
			}
			if msg.Exit {
				return true
			}
			g.applyControl(msg)
		default:
			return false
		}
	}
}

// Run advances the emulator indefinitely, pacing itself to real DMG speed,
// until an Exit control message arrives or the control channel is closed.
func (g *Gameboy) Run() {
	next := time.Now()
	for {
		if g.drainControl() {
			return
		}

		for i := 0; i < CyclesPerFrame; i++ {
			g.Tick()
		}

		next = next.Add(FrameDuration)
		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		} else {
			next = time.Now()
		}
	}
}

// RunSteps advances the emulator headlessly for exactly `steps` retired
// CPU instructions, ignoring wall-clock pacing. steps == 0 runs until an
// Exit control message arrives, for use under an external time budget.
func (g *Gameboy) RunSteps(steps uint64) {
	for steps == 0 || g.cpu.Retired() < steps {
		if g.drainControl() {
			return
		}
		g.Tick()
	}
}
