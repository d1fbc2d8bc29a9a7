package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeROM(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for bank := 0; bank < banks; bank++ {
		for i := 0; i < 0x4000; i++ {
			rom[bank*0x4000+i] = byte(bank)
		}
	}
	return rom
}

func TestMBC1BankSwitching(t *testing.T) {
	tests := []struct {
		name      string
		writeBank uint8
		wantBank  uint8
	}{
		{"bank 0 aliases to bank 1", 0x00, 1},
		{"bank 2 selects bank 2", 0x02, 2},
		{"bank 0x1F selects bank 0x1F", 0x1F, 0x1F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mbc := NewMBC1(makeROM(32), 0)
			mbc.Write(0x2000, tt.writeBank)

			assert.Equal(t, tt.wantBank, mbc.Read(0x4000))
		})
	}
}

func TestMBC1FixedWindowBanking(t *testing.T) {
	mbc := NewMBC1(makeROM(128), 0)

	assert.Equal(t, uint8(0), mbc.Read(0x0000), "ROM mode fixed window")

	mbc.Write(0x6000, 0x01) // switch to RAM banking mode
	mbc.Write(0x4000, 0x02) // upper bits = 2, selects bank 2<<5 = 64

	assert.Equal(t, uint8(64), mbc.Read(0x0000), "RAM mode fixed window (upper bits << 5)")
}

func TestMBC1RAMEnable(t *testing.T) {
	mbc := NewMBC1(makeROM(2), 1)

	mbc.Write(0xA000, 0x42)
	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "RAM read while disabled")

	mbc.Write(0x0000, 0x0A)
	mbc.Write(0xA000, 0x42)
	assert.Equal(t, uint8(0x42), mbc.Read(0xA000), "RAM read after enable")

	mbc.Write(0x0000, 0x00)
	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "RAM read after disable")
}

func TestNoMBCIgnoresWrites(t *testing.T) {
	rom := makeROM(2)
	mbc := NewNoMBC(rom)
	mbc.Write(0x2000, 0xFF)

	assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank switching has no effect")
}
