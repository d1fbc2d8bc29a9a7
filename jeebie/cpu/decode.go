package cpu

import "github.com/valerio/go-jeebie/jeebie/memory"

// unusedOpcodes hard-locks the CPU: these 11 byte values are not valid SM83
// instructions on DMG hardware.
var unusedOpcodes = map[uint8]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

// decode reads the fetched opcode and queues one micro-op per remaining
// M-cycle; an instruction with no further M-cycles resolves entirely here
// (combinational on real hardware, fused into the opcode fetch).
func (c *CPU) decode(bus *memory.Bus, opcode uint8) {
	if unusedOpcodes[opcode] {
		c.unimplementedOpcode(opcode)
	}

	if opcode == 0xCB {
		// The CB suffix byte occupies its own M-cycle; decodeCB runs
		// inside it and queues whatever further M-cycles the operand
		// needs.
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			cb := bus.Read(c.pc)
			c.pc++
			c.decodeCB(bus, cb)
		})
		return
	}

	switch {
	case opcode <= 0x3F:
		c.decodeBlock0(opcode)
	case opcode <= 0x7F:
		c.decodeBlock1(opcode)
	case opcode <= 0xBF:
		c.decodeBlock2(opcode)
	default:
		c.decodeBlock3(opcode)
	}
}

// readR8/storeR8 operate on the unified r8 operand table; index 6 is
// [HL], the others are direct register slots.
func (c *CPU) readR8(bus *memory.Bus, idx uint8) uint8 {
	if idx == 6 {
		return bus.Read(c.getHL())
	}
	return *c.r8(idx)
}

func (c *CPU) storeR8(bus *memory.Bus, idx uint8, v uint8) {
	if idx == 6 {
		bus.Write(c.getHL(), v)
		return
	}
	*c.r8(idx) = v
}

func (c *CPU) condTrue(cc uint8) bool {
	switch cc {
	case 0:
		return !c.flag(flagZ)
	case 1:
		return c.flag(flagZ)
	case 2:
		return !c.flag(flagC)
	default:
		return c.flag(flagC)
	}
}

// wz combines the W/Z scratch pair into a 16-bit value, high byte first.
func (c *CPU) wz() uint16 { return uint16(c.w)<<8 | uint16(c.z) }

// decodeBlock0 covers 0x00-0x3F: NOP, 16-bit immediate loads, indirect
// loads through BC/DE/HL+/HL-, 16-bit INC/DEC/ADD, 8-bit INC/DEC/LD-imm8,
// the rotate-A/DAA/CPL/SCF/CCF singles, and JR (unconditional/conditional).
func (c *CPU) decodeBlock0(op uint8) {
	switch op {
	case 0x00:
		return
	case 0x10:
		// STOP's mandatory (and on DMG, ignored) second byte; its
		// precise M-cycle placement is not modeled.
		c.pc++
		return
	case 0x07:
		c.a = c.rlc(c.a)
		c.setFlag(flagZ, false)
		return
	case 0x0F:
		c.a = c.rrc(c.a)
		c.setFlag(flagZ, false)
		return
	case 0x17:
		c.a = c.rl(c.a)
		c.setFlag(flagZ, false)
		return
	case 0x1F:
		c.a = c.rr(c.a)
		c.setFlag(flagZ, false)
		return
	case 0x27:
		c.daa()
		return
	case 0x2F:
		c.a = ^c.a
		c.setFlag(flagN, true)
		c.setFlag(flagH, true)
		return
	case 0x37:
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, true)
		return
	case 0x3F:
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, !c.flag(flagC))
		return
	case 0x18:
		c.jr(true)
		return
	case 0x20:
		c.jr(!c.flag(flagZ))
		return
	case 0x28:
		c.jr(c.flag(flagZ))
		return
	case 0x30:
		c.jr(!c.flag(flagC))
		return
	case 0x38:
		c.jr(c.flag(flagC))
		return
	case 0x08:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { bus.Write(c.wz(), uint8(c.sp)) },
			func(c *CPU, bus *memory.Bus) { bus.Write(c.wz()+1, uint8(c.sp>>8)) },
		)
		return
	}

	switch op & 0x0F {
	case 0x01:
		group := op >> 4
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) {
				c.w = bus.Read(c.pc)
				c.pc++
				c.setR16Group1(group, c.wz())
			},
		)
		return
	case 0x02:
		group := op >> 4
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			bus.Write(c.r16MemAddress(group), c.a)
		})
		return
	case 0x09:
		group := op >> 4
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.addToHL(c.r16Group1(group))
		})
		return
	case 0x0A:
		group := op >> 4
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.a = bus.Read(c.r16MemAddress(group))
		})
		return
	}

	switch op & 0x07 {
	case 0x03:
		group := op >> 4
		inc := op&0x08 == 0
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			if inc {
				c.setR16Group1(group, c.r16Group1(group)+1)
			} else {
				c.setR16Group1(group, c.r16Group1(group)-1)
			}
		})
		return
	case 0x04:
		c.incR8(bus3idx(op))
		return
	case 0x05:
		c.decR8(bus3idx(op))
		return
	case 0x06:
		c.ldR8Imm8(bus3idx(op))
		return
	}

	c.unimplementedOpcode(op)
}

// bus3idx extracts the r8 destination index (bits 5:3) shared by
// INC/DEC r8 and LD r8,imm8.
func bus3idx(op uint8) uint8 { return (op >> 3) & 0x07 }

// r16MemAddress resolves the r16mem operand (BC, DE, HL+, HL-), applying
// HL's post-increment/decrement as a side effect.
func (c *CPU) r16MemAddress(index uint8) uint16 {
	switch index {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		a := c.getHL()
		c.setHL(a + 1)
		return a
	default:
		a := c.getHL()
		c.setHL(a - 1)
		return a
	}
}

// jr queues the offset fetch (always) and, if the branch is taken, the
// internal cycle that applies it to PC.
func (c *CPU) jr(take bool) {
	c.queueOp(func(c *CPU, bus *memory.Bus) {
		c.z = bus.Read(c.pc)
		c.pc++
	})
	if take {
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.pc = uint16(int32(c.pc) + int32(int8(c.z)))
		})
	}
}

// incR8/decR8 resolve instantly for register operands (fused into the
// fetch); ldR8Imm8 always queues the immediate read. All three queue the
// extra read/write M-cycles [HL] needs.
func (c *CPU) incR8(idx uint8) {
	if idx != 6 {
		v := *c.r8(idx)
		c.inc8(&v)
		*c.r8(idx) = v
		return
	}
	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.getHL()) },
		func(c *CPU, bus *memory.Bus) {
			v := c.z
			c.inc8(&v)
			bus.Write(c.getHL(), v)
		},
	)
}

func (c *CPU) decR8(idx uint8) {
	if idx != 6 {
		v := *c.r8(idx)
		c.dec8(&v)
		*c.r8(idx) = v
		return
	}
	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.getHL()) },
		func(c *CPU, bus *memory.Bus) {
			v := c.z
			c.dec8(&v)
			bus.Write(c.getHL(), v)
		},
	)
}

func (c *CPU) ldR8Imm8(idx uint8) {
	if idx != 6 {
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			v := bus.Read(c.pc)
			c.pc++
			*c.r8(idx) = v
		})
		return
	}
	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
		func(c *CPU, bus *memory.Bus) { bus.Write(c.getHL(), c.z) },
	)
}

// decodeBlock1 covers 0x40-0x7F: LD r8,r8, with 0x76 = HALT.
func (c *CPU) decodeBlock1(op uint8) {
	if op == 0x76 {
		c.halted = true
		return
	}
	dst := (op >> 3) & 0x07
	src := op & 0x07
	if dst != 6 && src != 6 {
		*c.r8(dst) = *c.r8(src)
		return
	}
	c.queueOp(func(c *CPU, bus *memory.Bus) {
		v := c.readR8(bus, src)
		c.storeR8(bus, dst, v)
	})
}

// decodeBlock2 covers 0x80-0xBF: ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r8.
func (c *CPU) decodeBlock2(op uint8) {
	idx := op & 0x07
	group := (op >> 3) & 0x07
	if idx != 6 {
		c.aluOp(group, *c.r8(idx))
		return
	}
	c.queueOp(func(c *CPU, bus *memory.Bus) {
		c.aluOp(group, bus.Read(c.getHL()))
	})
}

// decodeBlock3 covers 0xC0-0xFF: conditional/unconditional RET, JP, CALL,
// RST, PUSH/POP r16stk, ALU A,imm8, the LDH/LD absolute-address forms,
// ADD SP,e8, LD HL,SP+e8, LD SP,HL, DI, EI.
func (c *CPU) decodeBlock3(op uint8) {
	switch op {
	case 0xC3:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.pc = c.wz() },
		)
		return
	case 0xC9:
		c.queueRet(false)
		return
	case 0xCD:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) {},
			func(c *CPU, bus *memory.Bus) { c.sp--; bus.Write(c.sp, uint8(c.pc>>8)) },
			func(c *CPU, bus *memory.Bus) {
				c.sp--
				bus.Write(c.sp, uint8(c.pc))
				c.pc = c.wz()
			},
		)
		return
	case 0xD9:
		c.queueRet(true)
		return
	case 0xE0:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { bus.Write(0xFF00+uint16(c.z), c.a) },
		)
		return
	case 0xE2:
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			bus.Write(0xFF00+uint16(c.c), c.a)
		})
		return
	case 0xE8:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) {},
			func(c *CPU, bus *memory.Bus) { c.sp = c.addSPSigned(int8(c.z)) },
		)
		return
	case 0xE9:
		c.pc = c.getHL()
		return
	case 0xEA:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { bus.Write(c.wz(), c.a) },
		)
		return
	case 0xF0:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.a = bus.Read(0xFF00 + uint16(c.z)) },
		)
		return
	case 0xF2:
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.a = bus.Read(0xFF00 + uint16(c.c))
		})
		return
	case 0xF3:
		c.ime = imeDisabled
		return
	case 0xF8:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.setHL(c.addSPSigned(int8(c.z))) },
		)
		return
	case 0xF9:
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.sp = c.getHL()
		})
		return
	case 0xFA:
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) { c.a = bus.Read(c.wz()) },
		)
		return
	case 0xFB:
		c.ime = imePending
		return
	}

	switch op & 0xC7 {
	case 0xC6:
		group := (op >> 3) & 0x07
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			v := bus.Read(c.pc)
			c.pc++
			c.aluOp(group, v)
		})
		return
	case 0xC7:
		vector := uint16((op>>3)&0x07) * 8
		c.queueOps(
			func(c *CPU, bus *memory.Bus) {},
			func(c *CPU, bus *memory.Bus) { c.sp--; bus.Write(c.sp, uint8(c.pc>>8)) },
			func(c *CPU, bus *memory.Bus) {
				c.sp--
				bus.Write(c.sp, uint8(c.pc))
				c.pc = vector
			},
		)
		return
	}

	switch op & 0xE7 {
	case 0xC0:
		cc := (op >> 3) & 0x03
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			if c.condTrue(cc) {
				c.queueRetTail()
			}
		})
		return
	case 0xC2:
		cc := (op >> 3) & 0x03
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) {
				c.w = bus.Read(c.pc)
				c.pc++
				if c.condTrue(cc) {
					c.queueOp(func(c *CPU, bus *memory.Bus) { c.pc = c.wz() })
				}
			},
		)
		return
	case 0xC4:
		cc := (op >> 3) & 0x03
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.pc); c.pc++ },
			func(c *CPU, bus *memory.Bus) {
				c.w = bus.Read(c.pc)
				c.pc++
				if c.condTrue(cc) {
					c.queueOps(
						func(c *CPU, bus *memory.Bus) {},
						func(c *CPU, bus *memory.Bus) { c.sp--; bus.Write(c.sp, uint8(c.pc>>8)) },
						func(c *CPU, bus *memory.Bus) {
							c.sp--
							bus.Write(c.sp, uint8(c.pc))
							c.pc = c.wz()
						},
					)
				}
			},
		)
		return
	}

	switch op & 0xCF {
	case 0xC1:
		group := (op >> 4) & 0x03
		c.queueOps(
			func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.sp); c.sp++ },
			func(c *CPU, bus *memory.Bus) {
				c.w = bus.Read(c.sp)
				c.sp++
				c.setR16Stk(group, c.wz())
			},
		)
		return
	case 0xC5:
		group := (op >> 4) & 0x03
		c.queueOps(
			func(c *CPU, bus *memory.Bus) {},
			func(c *CPU, bus *memory.Bus) {
				v := c.r16Stk(group)
				c.sp--
				bus.Write(c.sp, uint8(v>>8))
			},
			func(c *CPU, bus *memory.Bus) {
				v := c.r16Stk(group)
				c.sp--
				bus.Write(c.sp, uint8(v))
			},
		)
		return
	}

	c.unimplementedOpcode(op)
}

// queueRet queues the 3-M-cycle RET body (read low, read high, jump);
// reti additionally re-enables interrupts on the jump cycle.
func (c *CPU) queueRet(reti bool) {
	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.sp); c.sp++ },
		func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.sp); c.sp++ },
		func(c *CPU, bus *memory.Bus) {
			c.pc = c.wz()
			if reti {
				c.ime = imeEnabled
			}
		},
	)
}

// queueRetTail queues the read-low/read-high/jump tail used by a taken
// conditional RET, appended after the condition-check M-cycle.
func (c *CPU) queueRetTail() {
	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.sp); c.sp++ },
		func(c *CPU, bus *memory.Bus) { c.w = bus.Read(c.sp); c.sp++ },
		func(c *CPU, bus *memory.Bus) { c.pc = c.wz() },
	)
}
