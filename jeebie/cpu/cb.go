package cpu

import "github.com/valerio/go-jeebie/jeebie/memory"

// decodeCB runs inside the CB-suffix-byte M-cycle: group 0 is the
// rotate/shift/swap table (sub-op bits 5:3), group 1 is BIT, group 2 RES,
// group 3 SET; all indexed by r8 in bits 2:0. A register operand resolves
// in this same M-cycle (fused, like any other single-M-cycle opcode); [HL]
// queues the extra read (and, except for BIT, write-back) M-cycles.
func (c *CPU) decodeCB(bus *memory.Bus, op uint8) {
	group := op >> 6
	sub := (op >> 3) & 0x07
	r8 := op & 0x07

	if r8 != 6 {
		v := *c.r8(r8)
		if group == 1 {
			c.bit(sub, v)
			return
		}
		*c.r8(r8) = c.cbApply(group, sub, v)
		return
	}

	if group == 1 {
		c.queueOp(func(c *CPU, bus *memory.Bus) {
			c.bit(sub, bus.Read(c.getHL()))
		})
		return
	}

	c.queueOps(
		func(c *CPU, bus *memory.Bus) { c.z = bus.Read(c.getHL()) },
		func(c *CPU, bus *memory.Bus) {
			bus.Write(c.getHL(), c.cbApply(group, sub, c.z))
		},
	)
}

// cbApply applies the rotate/shift/swap/RES/SET operation named by group
// and sub to v. BIT is handled separately by the caller since it never
// writes its operand back.
func (c *CPU) cbApply(group, sub, v uint8) uint8 {
	switch group {
	case 0:
		switch sub {
		case 0:
			return c.rlc(v)
		case 1:
			return c.rrc(v)
		case 2:
			return c.rl(v)
		case 3:
			return c.rr(v)
		case 4:
			return c.sla(v)
		case 5:
			return c.sra(v)
		case 6:
			return c.swap(v)
		default:
			return c.srl(v)
		}
	case 2:
		return res(sub, v)
	default: // 3: SET
		return set(sub, v)
	}
}
