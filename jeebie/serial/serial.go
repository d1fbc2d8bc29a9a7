// Package serial implements the Game Boy's serial port as a Bus peer. No
// shift-clock timing is modeled: a transfer completes the T-state it is
// requested, and the transferred byte is appended to a host-visible buffer.
// This is the shape conformance-test ROMs (Blargg et al.) use to report
// pass/fail text instead of an actual link cable.
package serial

import (
	"log/slog"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/bit"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// Serial observes SB/SC on the bus and accumulates transferred bytes.
type Serial struct {
	buffer []byte
	logger *slog.Logger
}

// New creates an empty Serial port.
func New() *Serial {
	return &Serial{logger: slog.Default()}
}

// Tick advances the serial port by one T-state. On the T-state a transfer
// is requested (SC bit 7 set), SB is appended to the buffer, SC bit 7 is
// cleared, and the Serial interrupt is requested.
func (s *Serial) Tick(bus *memory.Bus) {
	bus.Claim(memory.OwnerSerial)
	defer bus.Release()

	sc := bus.Read(addr.SC)
	if !bit.IsSet(7, sc) {
		return
	}

	b := bus.Read(addr.SB)
	s.buffer = append(s.buffer, b)
	bus.Write(addr.SC, bit.Clear(7, sc))
	bus.RequestInterrupt(addr.SerialInterrupt)

	s.logger.Debug("serial: byte transferred", "value", b)
}

// Buffer returns the bytes transferred so far. Conformance tests scan this
// for a pass/fail marker string.
func (s *Serial) Buffer() []byte {
	return s.buffer
}
