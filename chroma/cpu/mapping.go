package cpu

// Opcode executes a single instruction and returns its cost in clock cycles.
type Opcode func(*CPU) int

// opcodeTable is the primary 256-entry dispatch table. The regular blocks
// (LD r,r' at 0x40-0x7F, ALU at 0x80-0xBF, INC/DEC/LD r,n rows) are derived
// from the opcode bitfields; everything else is registered explicitly in
// opcodes.go.
var opcodeTable [256]Opcode

// r8 operand selector order: B, C, D, E, H, L, (HL), A.
// Index 6 is an indirect access through HL and costs an extra bus cycle.
const indirectHL = 6

// readR8 reads the register (or memory cell) selected by a 3-bit field.
func (c *CPU) readR8(index uint8) uint8 {
	switch index {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case indirectHL:
		return c.bus.Read(c.getHL())
	default:
		return c.a
	}
}

// writeR8 writes the register (or memory cell) selected by a 3-bit field.
func (c *CPU) writeR8(index uint8, value uint8) {
	switch index {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case indirectHL:
		c.bus.Write(c.getHL(), value)
	default:
		c.a = value
	}
}

func init() {
	for i := range opcodeTable {
		opcodeTable[i] = (*CPU).unimplemented
	}

	// LD r,r' block: 0b01dddsss. 0x76 would be LD (HL),(HL) and is HALT.
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			opcodeTable[op] = opcodeHalt
			continue
		}
		dst := uint8(op>>3) & 0x07
		src := uint8(op) & 0x07
		opcodeTable[op] = func(c *CPU) int {
			c.writeR8(dst, c.readR8(src))
			if dst == indirectHL || src == indirectHL {
				return 8
			}
			return 4
		}
	}

	// ALU block: 0b10ooosss with operation ADD/ADC/SUB/SBC/AND/XOR/OR/CP.
	aluOps := [8]func(*CPU, uint8){
		(*CPU).addToA,
		(*CPU).adc,
		(*CPU).sub,
		(*CPU).sbc,
		(*CPU).and,
		(*CPU).xor,
		(*CPU).or,
		(*CPU).cp,
	}
	for op := 0x80; op <= 0xBF; op++ {
		operation := aluOps[(op>>3)&0x07]
		src := uint8(op) & 0x07
		opcodeTable[op] = func(c *CPU) int {
			operation(c, c.readR8(src))
			if src == indirectHL {
				return 8
			}
			return 4
		}
	}

	// INC r (0b00ddd100), DEC r (0b00ddd101), LD r,n (0b00ddd110).
	for dst := uint8(0); dst <= 7; dst++ {
		dst := dst
		opcodeTable[0x04|dst<<3] = func(c *CPU) int {
			value := c.readR8(dst)
			c.inc(&value)
			c.writeR8(dst, value)
			if dst == indirectHL {
				return 12
			}
			return 4
		}
		opcodeTable[0x05|dst<<3] = func(c *CPU) int {
			value := c.readR8(dst)
			c.dec(&value)
			c.writeR8(dst, value)
			if dst == indirectHL {
				return 12
			}
			return 4
		}
		opcodeTable[0x06|dst<<3] = func(c *CPU) int {
			c.writeR8(dst, c.readImmediate())
			if dst == indirectHL {
				return 12
			}
			return 8
		}
	}

	registerOpcodes()
}
