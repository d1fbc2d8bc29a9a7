// Package termview renders the emulator's frame buffer to a terminal using
// tcell, and turns keyboard events into control-channel messages.
package termview

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-jeebie/jeebie"
	"github.com/valerio/go-jeebie/jeebie/memory"
	"github.com/valerio/go-jeebie/jeebie/video"
)

// keymap maps special (non-rune) keys to joypad buttons: arrows + enter
// for direction/start, a/s for A/B, q for select.
var keymap = map[tcell.Key]memory.JoypadButton{
	tcell.KeyUp:    memory.ButtonUp,
	tcell.KeyDown:  memory.ButtonDown,
	tcell.KeyLeft:  memory.ButtonLeft,
	tcell.KeyRight: memory.ButtonRight,
	tcell.KeyEnter: memory.ButtonStart,
}

var runeKeymap = map[rune]memory.JoypadButton{
	'a': memory.ButtonA,
	's': memory.ButtonB,
	'q': memory.ButtonSelect,
}

// View drives a tcell screen off a running Gameboy's frame channel, and
// feeds keyboard input back into its control channel.
type View struct {
	screen tcell.Screen
	gb     *jeebie.Gameboy
	scale  int
}

// New builds a View at the given scale (1..5 half-block columns per pixel
// pair; see spec's --scale flag). scale must be >= 1.
func New(gb *jeebie.Gameboy, scale int) (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termview: initializing terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termview: initializing terminal: %w", err)
	}

	return &View{screen: screen, gb: gb, scale: scale}, nil
}

// Run drives the render loop until the screen receives an exit key or a
// termination signal, at which point it posts ExitMessage to the Gameboy's
// control channel and tears down the terminal.
func (v *View) Run() error {
	defer v.screen.Fini()

	v.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	v.screen.Clear()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	events := make(chan tcell.Event, 16)
	go v.screen.ChannelEvents(events, nil)

	for {
		select {
		case frame, ok := <-v.gb.Frames():
			if !ok {
				return nil
			}
			v.draw(frame)
			v.screen.Show()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if exit := v.handleKey(ev); exit {
					v.gb.Control() <- jeebie.ExitMessage()
					return nil
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
		case <-signals:
			slog.Info("termview: received signal, shutting down")
			v.gb.Control() <- jeebie.ExitMessage()
			return nil
		}
	}
}

// handleKey applies a key event to the Gameboy's control channel and
// reports whether it requested an exit.
func (v *View) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return true
	}

	if button, ok := keymap[ev.Key()]; ok {
		v.press(button)
		return false
	}

	if ev.Key() == tcell.KeyRune {
		if button, ok := runeKeymap[ev.Rune()]; ok {
			v.press(button)
		}
	}

	return false
}

// press sends a press-then-release pair; tcell delivers key events as
// discrete presses, not hold/release edges, so a single frame-aligned tap
// is the best approximation available from the terminal.
func (v *View) press(button memory.JoypadButton) {
	v.gb.Control() <- jeebie.JoypadInput(button, true)
	v.gb.Control() <- jeebie.JoypadInput(button, false)
}

// draw renders the frame as half-block characters, two Game Boy pixel rows
// per terminal row, with each pixel column drawn `scale` terminal columns
// wide.
func (v *View) draw(frame *video.FrameBuffer) {
	style := tcell.StyleDefault

	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			top := frame.GetPixel(uint(x), uint(y))
			bottom := top
			if y+1 < video.FramebufferHeight {
				bottom = frame.GetPixel(uint(x), uint(y+1))
			}

			ch := halfBlockChar(top, bottom)
			fg, bg := halfBlockColors(top, bottom)
			cellStyle := style.Foreground(fg).Background(bg)

			for sx := 0; sx < v.scale; sx++ {
				v.screen.SetContent(x*v.scale+sx, y/2, ch, nil, cellStyle)
			}
		}
	}
}

func halfBlockChar(top, bottom uint32) rune {
	if top == bottom {
		return '█'
	}
	return '▀'
}

// halfBlockColors maps the fixed DMG-green palette onto tcell's truecolor
// style: the upper-half character's foreground paints the top pixel, its
// background paints the bottom.
func halfBlockColors(top, bottom uint32) (tcell.Color, tcell.Color) {
	return toTcellColor(top), toTcellColor(bottom)
}

func toTcellColor(pixel uint32) tcell.Color {
	r := int32(pixel >> 24 & 0xFF)
	g := int32(pixel >> 16 & 0xFF)
	b := int32(pixel >> 8 & 0xFF)
	return tcell.NewRGBColor(r, g, b)
}
