package serial

import (
	"testing"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

func TestSerialTransferAppendsAndClearsEnable(t *testing.T) {
	bus := memory.New()
	s := New()

	bus.Write(addr.SB, 'A')
	bus.Write(addr.SC, 0x81)

	s.Tick(bus)

	if got := string(s.Buffer()); got != "A" {
		t.Errorf("buffer = %q, want %q", got, "A")
	}
	if bus.Read(addr.SC)&0x80 != 0 {
		t.Error("expected SC bit 7 to be cleared after transfer")
	}
	if bus.Read(addr.IF)&uint8(addr.SerialInterrupt) == 0 {
		t.Error("expected SerialInterrupt to be set in IF after transfer")
	}
}

func TestSerialNoTransferWhenDisabled(t *testing.T) {
	bus := memory.New()
	s := New()

	bus.Write(addr.SB, 'X')
	bus.Write(addr.SC, 0x01) // bit 7 clear

	s.Tick(bus)

	if len(s.Buffer()) != 0 {
		t.Errorf("buffer = %q, want empty", string(s.Buffer()))
	}
}

func TestSerialAccumulatesMultipleBytes(t *testing.T) {
	bus := memory.New()
	s := New()

	for _, b := range []byte("OK\n") {
		bus.Write(addr.SB, b)
		bus.Write(addr.SC, 0x81)
		s.Tick(bus)
	}

	if got := string(s.Buffer()); got != "OK\n" {
		t.Errorf("buffer = %q, want %q", got, "OK\n")
	}
}
