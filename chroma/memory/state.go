package memory

import (
	"bytes"
	"encoding/gob"
)

// busState is the serialized form of the bus, including the mapper registers
// and external cartridge RAM (the ROM itself is reloaded from the image).
type busState struct {
	WRAM     [8][0x1000]uint8
	WRAMBank uint8
	HRAM     [0x7F]uint8

	IE, IF uint8
	KEY1   uint8

	OAMDMAPage      uint8
	OAMDMAOffset    int
	OAMDMAPrescaler int
	OAMDMAActive    bool

	VRAMDMASrc, VRAMDMADst uint16
	VRAMDMALength          int
	VRAMDMAHBlank          bool
	VRAMDMAActive          bool

	MBCROMBank    uint16
	MBCRAMBank    uint8
	MBCRAMEnabled bool
	MBCRAM        []uint8
}

// SaveState serializes the bus and mapper state.
func (b *Bus) SaveState() ([]byte, error) {
	s := busState{
		WRAM:     b.wram,
		WRAMBank: b.wramBank,
		HRAM:     b.hram,
		IE:       b.ie, IF: b.iflags,
		KEY1:            b.key1,
		OAMDMAPage:      b.oamDMA.page,
		OAMDMAOffset:    b.oamDMA.offset,
		OAMDMAPrescaler: b.oamDMA.prescaler,
		OAMDMAActive:    b.oamDMA.active,
		VRAMDMASrc:      b.vramDMA.src,
		VRAMDMADst:      b.vramDMA.dst,
		VRAMDMALength:   b.vramDMA.length,
		VRAMDMAHBlank:   b.vramDMA.hblank,
		VRAMDMAActive:   b.vramDMA.active,
	}
	if mbc5, ok := b.mbc.(*MBC5); ok {
		s.MBCROMBank = mbc5.romBank
		s.MBCRAMBank = mbc5.ramBank
		s.MBCRAMEnabled = mbc5.ramEnabled
		s.MBCRAM = mbc5.RAM()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores the bus and mapper from a SaveState blob.
func (b *Bus) LoadState(data []byte) error {
	var s busState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	b.wram = s.WRAM
	b.wramBank = s.WRAMBank
	b.hram = s.HRAM
	b.ie, b.iflags = s.IE, s.IF
	b.key1 = s.KEY1
	b.oamDMA = oamDMA{
		page:      s.OAMDMAPage,
		offset:    s.OAMDMAOffset,
		prescaler: s.OAMDMAPrescaler,
		active:    s.OAMDMAActive,
	}
	b.vramDMA = vramDMA{
		src:    s.VRAMDMASrc,
		dst:    s.VRAMDMADst,
		length: s.VRAMDMALength,
		hblank: s.VRAMDMAHBlank,
		active: s.VRAMDMAActive,
	}
	if mbc5, ok := b.mbc.(*MBC5); ok {
		mbc5.romBank = s.MBCROMBank
		mbc5.ramBank = s.MBCRAMBank
		mbc5.ramEnabled = s.MBCRAMEnabled
		mbc5.LoadRAM(s.MBCRAM)
	}
	return nil
}

// timerState is the serialized form of the timer.
type timerState struct {
	SystemCounter uint16
	LastTimerBit  bool
	TIMAOverflow  int
	TIMADelayInt  bool
	TIMA, TMA, TAC uint8
}

// SaveState serializes the timer state.
func (t *Timer) SaveState() ([]byte, error) {
	s := timerState{
		SystemCounter: t.systemCounter,
		LastTimerBit:  t.lastTimerBit,
		TIMAOverflow:  t.timaOverflow,
		TIMADelayInt:  t.timaDelayInt,
		TIMA:          t.tima,
		TMA:           t.tma,
		TAC:           t.tac,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores the timer from a SaveState blob.
func (t *Timer) LoadState(data []byte) error {
	var s timerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	t.systemCounter = s.SystemCounter
	t.lastTimerBit = s.LastTimerBit
	t.timaOverflow = s.TIMAOverflow
	t.timaDelayInt = s.TIMADelayInt
	t.tima, t.tma, t.tac = s.TIMA, s.TMA, s.TAC
	return nil
}
