package cpu

import "github.com/mkoenig/go-chroma/chroma/bit"

// Shared instruction bodies. Each mutates CPU/flag state only; cycle counts
// are owned by the opcode handlers.

func (c *CPU) inc(r *uint8) {
	*r++
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)
	c.setFlag(subFlag)
}

// addToA sets the result of adding a value to A, setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)

	c.a = result
}

// adc adds value plus the carry flag to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)

	c.a = result
}

// sub subtracts value from A, setting all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	c.a = a - value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
	c.setFlagToCondition(carryFlag, a < value)
}

// sbc subtracts value and the carry flag from A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := int(a) - int(value) - int(carry)
	c.a = uint8(result)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, int(a&0xF)-int(value&0xF)-int(carry) < 0)
	c.setFlagToCondition(carryFlag, result < 0)
}

// cp compares A against value without storing the result.
func (c *CPU) cp(value uint8) {
	a := c.a

	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
	c.setFlagToCondition(carryFlag, a < value)
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// addToHL adds a 16 bit register to HL. Z is untouched, H is the bit 11
// carry, C the bit 15 carry.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)

	c.setHL(result)
}

// addSPOffset computes SP plus a signed immediate, for ADD SP,e and
// LD HL,SP+e. Z and N are always cleared; H and C come from the low byte.
func (c *CPU) addSPOffset(offset int8) uint16 {
	sp := c.sp
	result := uint16(int32(sp) + int32(offset))

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (sp&0xF)+(uint16(uint8(offset))&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+uint16(uint8(offset)) > 0xFF)

	return result
}

// daa adjusts A after BCD arithmetic, using the N/H/C flags left by the
// previous ADD or SUB.
func (c *CPU) daa() {
	a := c.a

	if !c.isSetFlag(subFlag) {
		if c.isSetFlag(carryFlag) || a > 0x99 {
			a += 0x60
			c.setFlag(carryFlag)
		}
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
}

// rotates and shifts. The A-register variants (RLCA etc.) clear Z, the CB
// prefixed ones compute it; handlers pass withZero accordingly.

func (c *CPU) rlc(r *uint8, withZero bool) {
	value := *r
	c.setFlagToCondition(carryFlag, value > 0x7F)

	value = (value << 1) | (value >> 7)
	*r = value

	c.setFlagToCondition(zeroFlag, withZero && value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rl(r *uint8, withZero bool) {
	value := *r
	carry := c.flagToBit(carryFlag)
	c.setFlagToCondition(carryFlag, value > 0x7F)

	value = (value << 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, withZero && value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rrc(r *uint8, withZero bool) {
	value := *r
	c.setFlagToCondition(carryFlag, value&1 == 1)

	value = (value >> 1) | (value << 7)
	*r = value

	c.setFlagToCondition(zeroFlag, withZero && value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rr(r *uint8, withZero bool) {
	value := *r
	carry := c.flagToBit(carryFlag) << 7
	c.setFlagToCondition(carryFlag, value&1 == 1)

	value = (value >> 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, withZero && value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) sla(r *uint8) {
	value := *r
	c.setFlagToCondition(carryFlag, value > 0x7F)

	value <<= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) sra(r *uint8) {
	value := *r
	c.setFlagToCondition(carryFlag, value&1 == 1)

	value = (value >> 1) | (value & 0x80)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) srl(r *uint8) {
	value := *r
	c.setFlagToCondition(carryFlag, value&1 == 1)

	value >>= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) swap(r *uint8) {
	value := (*r << 4) | (*r >> 4)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) testBit(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// jumps

// jr adds the signed immediate to PC.
func (c *CPU) jr() {
	offset := int8(c.readImmediate())
	c.pc = uint16(int32(c.pc) + int32(offset))
}

// jp sets PC to the immediate word.
func (c *CPU) jp() {
	c.pc = c.readImmediateWord()
}

func (c *CPU) call() {
	target := c.readImmediateWord()
	c.pushStack(c.pc)
	c.pc = target
}

func (c *CPU) ret() {
	c.pc = c.popStack()
}

func (c *CPU) rst(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}
