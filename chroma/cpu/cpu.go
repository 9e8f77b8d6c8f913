package cpu

import (
	"fmt"
	"log/slog"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/bit"
	"github.com/mkoenig/go-chroma/chroma/memory"
)

// Flag is one of the 4 possible flags in the flag register (low byte of AF).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// CPU holds the state of the SM83 core: eight 8-bit registers addressable as
// four 16-bit pairs, SP, PC, the interrupt master enable and the halt/stop
// latches. All memory accesses go through the bus.
type CPU struct {
	bus *memory.Bus

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	ime       bool
	imeDelay  bool // EI takes effect after the following instruction
	halted    bool
	stopped   bool
	stall     int    // pending DMA stall, in clock cycles
	cycles    uint64 // total clock cycles executed
	currentOpcode uint8

	badOpcodes map[uint8]bool // undefined opcodes already reported
}

// New creates a CPU wired to the given bus, with post-boot register values
// matching the machine mode the cartridge selected.
func New(bus *memory.Bus) *CPU {
	c := &CPU{
		bus:        bus,
		sp:         0xFFFE,
		pc:         0x0100,
		badOpcodes: make(map[uint8]bool),
	}

	if bus.DMGMode() {
		c.a, c.f = 0x01, 0xB0
		c.b, c.c = 0x00, 0x13
		c.d, c.e = 0x00, 0xD8
		c.h, c.l = 0x01, 0x4D
	} else {
		c.a, c.f = 0x11, 0x80
		c.b, c.c = 0x00, 0x00
		c.d, c.e = 0xFF, 0x56
		c.h, c.l = 0x00, 0x0D
	}

	bus.SetStallFunc(c.RequestStall)
	return c
}

// Tick executes a single step: a pending DMA stall, an interrupt dispatch or
// one instruction. It returns the number of clock cycles consumed (4 per
// machine cycle, e.g. 4 for NOP).
func (c *CPU) Tick() int {
	if c.stall > 0 {
		n := c.stall
		c.stall = 0
		c.cycles += uint64(n)
		return n
	}

	if c.stopped {
		// STOP ends when a joypad interrupt is requested.
		if c.bus.InterruptFlags()&uint8(addr.JoypadInterrupt) == 0 {
			c.cycles += 4
			return 4
		}
		c.stopped = false
	}

	if n := c.serviceInterrupts(); n > 0 {
		c.cycles += uint64(n)
		return n
	}

	if c.halted {
		// HALT resumes as soon as any enabled interrupt is pending,
		// even with IME cleared (in that case without dispatching).
		if c.bus.InterruptEnable()&c.bus.InterruptFlags()&0x1F == 0 {
			c.cycles += 4
			return 4
		}
		c.halted = false
	}

	delayedEnable := c.imeDelay

	c.currentOpcode = c.readImmediate()
	cycles := opcodeTable[c.currentOpcode](c)

	// The low nibble of F does not exist in hardware.
	c.f &= 0xF0

	if delayedEnable && c.imeDelay {
		// a DI in between cancels the pending enable
		c.ime = true
		c.imeDelay = false
	}

	c.cycles += uint64(cycles)
	return cycles
}

// serviceInterrupts dispatches the highest-priority pending interrupt when
// the master enable is set. Dispatch takes 5 machine cycles: 2 internal,
// 2 pushing PC, 1 setting PC to the vector.
func (c *CPU) serviceInterrupts() int {
	pending := c.bus.InterruptEnable() & c.bus.InterruptFlags() & 0x1F
	if pending == 0 {
		return 0
	}
	c.halted = false
	if !c.ime {
		return 0
	}

	// Lowest set bit wins: VBlank > LCD STAT > Timer > Serial > Joypad.
	irq := addr.Interrupt(pending & -pending)

	c.ime = false
	c.bus.ClearInterrupt(irq)
	c.pushStack(c.pc)
	c.pc = irq.Vector()
	return 20
}

// RequestStall freezes the CPU for the given number of clock cycles. Used by
// the VRAM DMA engine, which steals the bus from the CPU.
func (c *CPU) RequestStall(cycles int) {
	c.stall += cycles
}

// Stopped reports whether the CPU is in the STOP state.
func (c *CPU) Stopped() bool {
	return c.stopped
}

// Halted reports whether the CPU is in the HALT state.
func (c *CPU) Halted() bool {
	return c.halted
}

// Cycles returns the total number of clock cycles executed so far.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// PC returns the current program counter.
func (c *CPU) PC() uint16 {
	return c.pc
}

func (c *CPU) unimplemented() int {
	if !c.badOpcodes[c.currentOpcode] {
		c.badOpcodes[c.currentOpcode] = true
		slog.Error("undefined opcode, stopping execution",
			"opcode", fmt.Sprintf("0x%02X", c.currentOpcode),
			"pc", fmt.Sprintf("0x%04X", c.pc-1))
	}
	c.stopped = true
	return 4
}

// flag helpers

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= ^uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// register pair accessors

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f&0xF0) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// the low nibble of F always reads as zero
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// immediate operand readers

func (c *CPU) readImmediate() uint8 {
	value := c.bus.Read(c.pc)
	c.pc++
	return value
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// stack

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}
