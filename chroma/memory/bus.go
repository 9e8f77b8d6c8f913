package memory

import (
	"fmt"
	"log/slog"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/audio"
	"github.com/mkoenig/go-chroma/chroma/bit"
	"github.com/mkoenig/go-chroma/chroma/serial"
	"github.com/mkoenig/go-chroma/chroma/video"
)

// SerialPort is the minimal interface for a device on SB/SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// oamDMA is the OAM transfer engine: 160 bytes from page<<8 into OAM, one
// byte every 4 cycles. It does not stall the CPU.
type oamDMA struct {
	page      uint8
	offset    int
	prescaler int
	active    bool
}

// vramDMA is the CGB VRAM transfer engine. General-purpose transfers copy
// everything at once and stall the CPU; HBlank transfers move 16 bytes per
// HBlank event.
type vramDMA struct {
	src, dst uint16
	length   int
	hblank   bool
	active   bool
}

// Bus owns the address decoder and everything that is not CPU, PPU or APU:
// WRAM and its banking, HRAM, the interrupt latches, the cartridge mapper,
// the timer, the joypad, the serial stub and both DMA engines.
type Bus struct {
	cart *Cartridge
	mbc  MBC

	PPU *video.PPU
	APU *audio.APU

	timer  Timer
	joypad Joypad
	serial SerialPort

	wram     [8][0x1000]uint8
	wramBank uint8
	hram     [0x7F]uint8

	ie     uint8
	iflags uint8

	key1    uint8
	dmgMode bool

	oamDMA  oamDMA
	vramDMA vramDMA

	// stall freezes the CPU during VRAM DMA; wired by the CPU.
	stall func(cycles int)
}

// NewBus wires a parsed cartridge into a complete memory system. The audio
// ring is passed through to the APU so the host can choose its blocking
// behavior.
func NewBus(cart *Cartridge, ring *audio.Ring) (*Bus, error) {
	mbc, err := newMBC(cart)
	if err != nil {
		return nil, err
	}

	b := &Bus{
		cart:     cart,
		mbc:      mbc,
		wramBank: 1,
		dmgMode:  cart.DMGMode(),
	}

	b.PPU = video.New(b.RequestInterrupt)
	b.PPU.SetDMGMode(b.dmgMode)
	b.PPU.SetHBlankFunc(b.hblankDMA)

	b.APU = audio.New(ring)
	b.APU.SetDIVSource(b.timer.DIV)
	b.APU.SetSpeedSource(b.DoubleSpeed)

	b.timer.InterruptHandler = func() { b.RequestInterrupt(addr.TimerInterrupt) }
	b.joypad.InterruptHandler = func() { b.RequestInterrupt(addr.JoypadInterrupt) }
	b.serial = serial.NewLogSink(func() { b.RequestInterrupt(addr.SerialInterrupt) })

	return b, nil
}

// SetSerial replaces the serial device, e.g. to attach a capture hook.
func (b *Bus) SetSerial(s SerialPort) {
	b.serial = s
}

// SetInputSource wires the host's button poll callback into the joypad.
func (b *Bus) SetInputSource(poll func() uint8) {
	b.joypad.Poll = poll
}

// SetStallFunc registers the CPU's stall request hook.
func (b *Bus) SetStallFunc(fn func(cycles int)) {
	b.stall = fn
}

// Cartridge returns the loaded cartridge.
func (b *Bus) Cartridge() *Cartridge {
	return b.cart
}

// MBC returns the active bank controller.
func (b *Bus) MBC() MBC {
	return b.mbc
}

// Timer exposes the timer for scheduling and serialization.
func (b *Bus) Timer() *Timer {
	return &b.timer
}

// DMGMode reports whether the machine runs in original Game Boy mode.
func (b *Bus) DMGMode() bool {
	return b.dmgMode
}

// DoubleSpeed reports whether the CPU currently runs at double speed.
func (b *Bus) DoubleSpeed() bool {
	return b.key1&0x80 != 0
}

// InterruptFlags returns the IF latch.
func (b *Bus) InterruptFlags() uint8 {
	return b.iflags
}

// InterruptEnable returns the IE latch.
func (b *Bus) InterruptEnable() uint8 {
	return b.ie
}

// RequestInterrupt sets the interrupt's bit in IF.
func (b *Bus) RequestInterrupt(irq addr.Interrupt) {
	b.iflags |= uint8(irq)
}

// ClearInterrupt clears the interrupt's bit in IF, as part of dispatch.
func (b *Bus) ClearInterrupt(irq addr.Interrupt) {
	b.iflags &= ^uint8(irq)
}

// StopExecuted implements the STOP side effects: DIV resets, and an armed
// speed switch commits by flipping the current-speed bit.
func (b *Bus) StopExecuted() {
	b.timer.ResetDIV()
	if b.key1&0x01 != 0 {
		b.key1 ^= 0x80
		b.key1 &= ^uint8(0x01)
	}
}

// Tick advances the peripherals in the CPU clock domain: timer, serial,
// joypad edge detection and the OAM DMA engine.
func (b *Bus) Tick(cycles int) {
	b.timer.Tick(cycles)
	b.serial.Tick(cycles)
	b.joypad.Refresh()
	b.tickOAMDMA(cycles)
}

func (b *Bus) Read(address uint16) uint8 {
	switch {
	case address < 0x8000:
		return b.mbc.Read(address)
	case address <= 0x9FFF:
		return b.PPU.Read(address)
	case address <= 0xBFFF:
		return b.mbc.Read(address)
	case address <= 0xCFFF:
		return b.wram[0][address&0x0FFF]
	case address <= 0xDFFF:
		return b.wram[b.wramBank][address&0x0FFF]
	case address <= 0xEFFF:
		// echo of 0xC000-0xCFFF
		return b.wram[0][address&0x0FFF]
	case address <= 0xFDFF:
		// echo of 0xD000-0xDDFF
		return b.wram[b.wramBank][address&0x0FFF]
	case address <= 0xFE9F:
		return b.PPU.Read(address)
	case address <= 0xFEFF:
		slog.Debug("read from forbidden region", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	case address >= 0xFF80 && address <= 0xFFFE:
		return b.hram[address-0xFF80]
	}

	switch address {
	case addr.P1:
		return b.joypad.Read()
	case addr.SB, addr.SC:
		return b.serial.Read(address)
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		return b.timer.Read(address)
	case addr.IF:
		return 0xE0 | (b.iflags & 0x1F)
	case addr.IE:
		return b.ie
	case addr.DMA:
		return b.oamDMA.page
	case addr.KEY1:
		return 0x7E | b.key1
	case addr.HDMA1, addr.HDMA2, addr.HDMA3, addr.HDMA4:
		return 0xFF // write-only
	case addr.HDMA5:
		value := uint8(b.vramDMA.length/16) - 1
		if !b.vramDMA.active {
			value |= 0x80
		}
		return value
	case addr.SVBK:
		return 0xF8 | b.wramBank
	}

	if address >= addr.AudioStart && address <= addr.AudioEnd {
		return b.APU.ReadRegister(address)
	}
	if (address >= addr.LCDC && address <= addr.WX) ||
		address == addr.VBK ||
		(address >= addr.BCPS && address <= addr.OPRI) {
		return b.PPU.Read(address)
	}

	return 0xFF
}

func (b *Bus) Write(address uint16, value uint8) {
	switch {
	case address < 0x8000:
		b.mbc.Write(address, value)
		return
	case address <= 0x9FFF:
		b.PPU.Write(address, value)
		return
	case address <= 0xBFFF:
		b.mbc.Write(address, value)
		return
	case address <= 0xCFFF:
		b.wram[0][address&0x0FFF] = value
		return
	case address <= 0xDFFF:
		b.wram[b.wramBank][address&0x0FFF] = value
		return
	case address <= 0xEFFF:
		b.wram[0][address&0x0FFF] = value
		return
	case address <= 0xFDFF:
		b.wram[b.wramBank][address&0x0FFF] = value
		return
	case address <= 0xFE9F:
		b.PPU.Write(address, value)
		return
	case address <= 0xFEFF:
		slog.Debug("write to forbidden region",
			"addr", fmt.Sprintf("0x%04X", address),
			"value", fmt.Sprintf("0x%02X", value))
		return
	case address >= 0xFF80 && address <= 0xFFFE:
		b.hram[address-0xFF80] = value
		return
	}

	switch address {
	case addr.P1:
		b.joypad.Write(value)
		return
	case addr.SB, addr.SC:
		b.serial.Write(address, value)
		return
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		b.timer.Write(address, value)
		return
	case addr.IF:
		b.iflags = value & 0x1F
		return
	case addr.IE:
		b.ie = value
		return
	case addr.DMA:
		// pages above 0xDF would address the PPU's own memory
		if value <= 0xDF {
			b.oamDMA = oamDMA{page: value, active: true}
		}
		return
	case addr.KEY1:
		b.key1 = (b.key1 & 0x80) | (value & 0x01)
		return
	case addr.HDMA1:
		b.vramDMA.src = (b.vramDMA.src & 0x00FF) | uint16(value)<<8
		return
	case addr.HDMA2:
		// the low 4 bits of the source are treated as 0
		b.vramDMA.src = (b.vramDMA.src & 0xFF00) | uint16(value&0xF0)
		return
	case addr.HDMA3:
		// only bits 12-4 of the destination are respected
		b.vramDMA.dst = (b.vramDMA.dst & 0x00FF) | uint16(value&0x1F)<<8 | 0x8000
		return
	case addr.HDMA4:
		b.vramDMA.dst = (b.vramDMA.dst & 0xFF00) | uint16(value&0xF0)
		return
	case addr.HDMA5:
		b.writeVRAMDMAControl(value)
		return
	case addr.SVBK:
		b.wramBank = value & 0x07
		if b.wramBank == 0 {
			b.wramBank = 1
		}
		return
	}

	if address >= addr.AudioStart && address <= addr.AudioEnd {
		b.APU.WriteRegister(address, value)
		return
	}
	if (address >= addr.LCDC && address <= addr.WX) ||
		address == addr.VBK ||
		(address >= addr.BCPS && address <= addr.OPRI) {
		b.PPU.Write(address, value)
		return
	}
}

// tickOAMDMA moves one byte into OAM every 4 cycles while a transfer runs.
func (b *Bus) tickOAMDMA(cycles int) {
	if !b.oamDMA.active {
		return
	}
	for range cycles {
		b.oamDMA.prescaler++
		if b.oamDMA.prescaler < 4 {
			continue
		}
		b.oamDMA.prescaler = 0

		src := uint16(b.oamDMA.page)<<8 + uint16(b.oamDMA.offset)
		b.PPU.Write(addr.OAMStart+uint16(b.oamDMA.offset), b.Read(src))
		b.oamDMA.offset++
		if b.oamDMA.offset >= 0xA0 {
			b.oamDMA.active = false
			return
		}
	}
}

// writeVRAMDMAControl starts (or aborts) a VRAM DMA transfer. A write with
// bit 7 clear while an HBlank transfer runs aborts it; otherwise, with valid
// source and destination ranges, bit 7 selects HBlank mode or an immediate
// general-purpose copy that stalls the CPU.
func (b *Bus) writeVRAMDMAControl(value uint8) {
	if b.dmgMode {
		return
	}

	if b.vramDMA.active && b.vramDMA.hblank && !bit.IsSet(7, value) {
		b.vramDMA.active = false
		return
	}

	srcOK := b.vramDMA.src <= 0x7FF0 ||
		(b.vramDMA.src >= 0xA000 && b.vramDMA.src <= 0xDFF0)
	dstOK := b.vramDMA.dst >= 0x8000 && b.vramDMA.dst <= 0x9FF0
	if !srcOK || !dstOK {
		slog.Debug("ignoring VRAM DMA with illegal ranges",
			"src", fmt.Sprintf("0x%04X", b.vramDMA.src),
			"dst", fmt.Sprintf("0x%04X", b.vramDMA.dst))
		return
	}

	blocks := int(value&0x7F) + 1
	b.vramDMA.length = blocks * 16

	if bit.IsSet(7, value) {
		b.vramDMA.hblank = true
		b.vramDMA.active = true
		return
	}

	b.vramDMA.hblank = false
	b.dmaCopy(b.vramDMA.dst, b.vramDMA.src, b.vramDMA.length)
	b.requestStall(32 * blocks)
	b.vramDMA.length = 0
	b.vramDMA.active = false
}

// hblankDMA transfers one 16-byte block at each HBlank while an HBlank-mode
// transfer is active. Registered as the PPU's HBlank callback.
func (b *Bus) hblankDMA() {
	if !b.vramDMA.active || !b.vramDMA.hblank {
		return
	}

	b.dmaCopy(b.vramDMA.dst, b.vramDMA.src, 16)
	b.vramDMA.src += 16
	b.vramDMA.dst += 16
	b.vramDMA.length -= 16
	if b.vramDMA.length <= 0 {
		b.vramDMA.length = 0
		b.vramDMA.active = false
	}
	b.requestStall(32)
}

func (b *Bus) dmaCopy(dst, src uint16, length int) {
	for i := 0; i < length; i++ {
		b.Write(dst+uint16(i), b.Read(src+uint16(i)))
	}
}

// requestStall freezes the CPU for 8 machine cycles per transferred block,
// doubled in double-speed mode.
func (b *Bus) requestStall(cycles int) {
	if b.DoubleSpeed() {
		cycles *= 2
	}
	if b.stall != nil {
		b.stall(cycles)
	}
}
