package cpu

import "github.com/mkoenig/go-chroma/chroma/bit"

// executeCB runs a 0xCB-prefixed instruction. The secondary opcode space is
// fully regular: bits 7-6 select the group (rotate/shift, BIT, RES, SET),
// bits 5-3 the rotate variant or bit index, bits 2-0 the r8 operand.
func (c *CPU) executeCB(opcode uint8) int {
	operand := opcode & 0x07
	selector := (opcode >> 3) & 0x07

	// BIT only reads its operand, the rest modify it.
	if opcode>>6 == 0x01 {
		c.testBit(selector, c.readR8(operand))
		if operand == indirectHL {
			return 12
		}
		return 8
	}

	value := c.readR8(operand)

	switch opcode >> 6 {
	case 0x00:
		switch selector {
		case 0: // RLC
			c.rlc(&value, true)
		case 1: // RRC
			c.rrc(&value, true)
		case 2: // RL
			c.rl(&value, true)
		case 3: // RR
			c.rr(&value, true)
		case 4: // SLA
			c.sla(&value)
		case 5: // SRA
			c.sra(&value)
		case 6: // SWAP
			c.swap(&value)
		case 7: // SRL
			c.srl(&value)
		}
	case 0x02: // RES
		value = bit.Reset(selector, value)
	case 0x03: // SET
		value = bit.Set(selector, value)
	}

	c.writeR8(operand, value)
	if operand == indirectHL {
		return 16
	}
	return 8
}
