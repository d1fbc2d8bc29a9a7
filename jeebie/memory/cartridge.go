package memory

import "fmt"

const (
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	headerMinLength      = 0x150
)

// Cartridge holds the parsed header fields needed to pick and size an MBC.
// Title and checksum bytes are not consulted by the core.
type Cartridge struct {
	data     []byte
	mbcType  uint8
	ramBanks uint8
}

// ParseCartridge reads the header of a raw ROM image and determines which
// MBC it requires. Cartridge types outside {0x00, 0x01-0x03} and unsupported
// ROM/RAM size codes panic, matching an unsupported-opcode abort; a ROM too
// short to hold a header is reported as a returned error.
func ParseCartridge(rom []byte) (*Cartridge, error) {
	if len(rom) < headerMinLength {
		return nil, fmt.Errorf("cartridge: ROM too short to contain a header (%d bytes)", len(rom))
	}

	cartType := rom[cartridgeTypeAddress]
	switch cartType {
	case 0x00, 0x01, 0x02, 0x03:
	default:
		panic(fmt.Sprintf("cartridge: unsupported cartridge type 0x%02X", cartType))
	}

	romSizeCode := rom[romSizeAddress]
	if romSizeCode > 8 {
		panic(fmt.Sprintf("cartridge: unsupported ROM size code 0x%02X", romSizeCode))
	}

	ramBanks := decodeRAMBanks(rom[ramSizeAddress])

	return &Cartridge{
		data:     rom,
		mbcType:  cartType,
		ramBanks: ramBanks,
	}, nil
}

func decodeRAMBanks(code byte) uint8 {
	switch code {
	case 0:
		return 0
	case 2:
		return 1
	case 3:
		return 4
	case 4:
		return 16
	case 5:
		return 8
	default:
		panic(fmt.Sprintf("cartridge: unsupported RAM size code 0x%02X", code))
	}
}

// NewMBC builds the controller implied by the cartridge's header.
func (c *Cartridge) NewMBC() MBC {
	switch c.mbcType {
	case 0x00:
		return NewNoMBC(c.data)
	case 0x01, 0x02, 0x03:
		return NewMBC1(c.data, c.ramBanks)
	default:
		panic(fmt.Sprintf("cartridge: unsupported cartridge type 0x%02X", c.mbcType))
	}
}
