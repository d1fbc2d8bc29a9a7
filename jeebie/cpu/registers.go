package cpu

import "github.com/valerio/go-jeebie/jeebie/bit"

// registers holds the eight 8-bit registers plus SP/PC, and the W/Z scratch
// pair multi-cycle opcodes use to stage immediates and computed addresses.
type registers struct {
	a, f, b, c, d, e, h, l uint8
	sp, pc                 uint16
	w, z                   uint8
}

func (r *registers) getAF() uint16 { return bit.Combine(r.a, r.f&0xF0) }
func (r *registers) getBC() uint16 { return bit.Combine(r.b, r.c) }
func (r *registers) getDE() uint16 { return bit.Combine(r.d, r.e) }
func (r *registers) getHL() uint16 { return bit.Combine(r.h, r.l) }

func (r *registers) setAF(v uint16) {
	r.a = bit.High(v)
	r.f = bit.Low(v) & 0xF0
}
func (r *registers) setBC(v uint16) { r.b, r.c = bit.High(v), bit.Low(v) }
func (r *registers) setDE(v uint16) { r.d, r.e = bit.High(v), bit.Low(v) }
func (r *registers) setHL(v uint16) { r.h, r.l = bit.High(v), bit.Low(v) }

// r8 returns a pointer to one of the eight r8 operand slots used by the
// standard SM83 decode tables. Index 6 ([HL]) has no register backing and
// must be special-cased by the caller.
func (r *registers) r8(index uint8) *uint8 {
	switch index {
	case 0:
		return &r.b
	case 1:
		return &r.c
	case 2:
		return &r.d
	case 3:
		return &r.e
	case 4:
		return &r.h
	case 5:
		return &r.l
	case 7:
		return &r.a
	default:
		return nil
	}
}

func (r *registers) r16Group1(index uint8) uint16 {
	switch index {
	case 0:
		return r.getBC()
	case 1:
		return r.getDE()
	case 2:
		return r.getHL()
	default:
		return r.sp
	}
}

func (r *registers) setR16Group1(index uint8, v uint16) {
	switch index {
	case 0:
		r.setBC(v)
	case 1:
		r.setDE(v)
	case 2:
		r.setHL(v)
	default:
		r.sp = v
	}
}

func (r *registers) r16Stk(index uint8) uint16 {
	switch index {
	case 0:
		return r.getBC()
	case 1:
		return r.getDE()
	case 2:
		return r.getHL()
	default:
		return r.getAF()
	}
}

func (r *registers) setR16Stk(index uint8, v uint16) {
	switch index {
	case 0:
		r.setBC(v)
	case 1:
		r.setDE(v)
	case 2:
		r.setHL(v)
	default:
		r.setAF(v)
	}
}
