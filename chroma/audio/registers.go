package audio

import (
	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/bit"
)

// ReadRegister returns masked register values. Write-only and unused bits
// read as 1.
func (a *APU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.NR10:
		return a.NR10 | 0b1000_0000
	case addr.NR11:
		return a.NR11 | 0b0011_1111
	case addr.NR12:
		return a.NR12
	case addr.NR13:
		return 0xFF // write-only
	case addr.NR14:
		return a.NR14 | 0b1011_1111
	case addr.NR21:
		return a.NR21 | 0b0011_1111
	case addr.NR22:
		return a.NR22
	case addr.NR23:
		return 0xFF // write-only
	case addr.NR24:
		return a.NR24 | 0b1011_1111
	case addr.NR30:
		return a.NR30 | 0b0111_1111
	case addr.NR31:
		return 0xFF // write-only
	case addr.NR32:
		return a.NR32 | 0b1001_1111
	case addr.NR33:
		return 0xFF // write-only
	case addr.NR34:
		return a.NR34 | 0b1011_1111
	case addr.NR41:
		return 0xFF // write-only
	case addr.NR42:
		return a.NR42
	case addr.NR43:
		return a.NR43
	case addr.NR44:
		return a.NR44 | 0b1011_1111
	case addr.NR50:
		return a.NR50
	case addr.NR51:
		return a.NR51
	case addr.NR52:
		// bit 7 = power, bits 6-4 always 1, bits 3-0 channel status
		status := uint8(0b0111_0000)
		if a.enabled {
			status = bit.Set(7, status)
		}
		for i := range a.ch {
			if a.ch[i].enabled {
				status = bit.Set(uint8(i), status)
			}
		}
		return status
	}
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		return a.waveRAM[address-addr.WaveRAMStart]
	}
	return 0xFF
}

// WriteRegister stores a register value and applies its side effects. While
// the APU is powered off, writes other than NR52 and wave RAM are dropped.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		a.waveRAM[address-addr.WaveRAMStart] = value
		return
	}

	if address == addr.NR52 {
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(7, value)
		if wasEnabled && !a.enabled {
			a.powerOff()
		}
		return
	}

	if !a.enabled {
		return
	}

	switch address {
	case addr.NR10:
		a.NR10 = value
		ch := &a.ch[0]
		ch.sweepPace = bit.ExtractBits(value, 6, 4)
		ch.sweepDown = bit.IsSet(3, value)
		ch.sweepStep = bit.ExtractBits(value, 2, 0)

	case addr.NR11:
		a.NR11 = value
		a.ch[0].duty = bit.ExtractBits(value, 7, 6)
		a.ch[0].length = 64 - uint16(value&0x3F)

	case addr.NR12:
		a.NR12 = value
		a.applyEnvelope(0, value)

	case addr.NR13:
		a.NR13 = value
		a.ch[0].period = bit.Combine(a.NR14&0x07, value)

	case addr.NR14:
		a.NR14 = value & 0x7F // trigger bit never reads back
		a.ch[0].period = bit.Combine(value&0x07, a.NR13)
		a.ch[0].lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(0)
		}

	case addr.NR21:
		a.NR21 = value
		a.ch[1].duty = bit.ExtractBits(value, 7, 6)
		a.ch[1].length = 64 - uint16(value&0x3F)

	case addr.NR22:
		a.NR22 = value
		a.applyEnvelope(1, value)

	case addr.NR23:
		a.NR23 = value
		a.ch[1].period = bit.Combine(a.NR24&0x07, value)

	case addr.NR24:
		a.NR24 = value & 0x7F
		a.ch[1].period = bit.Combine(value&0x07, a.NR23)
		a.ch[1].lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(1)
		}

	case addr.NR30:
		a.NR30 = value
		a.ch[2].dacEnabled = bit.IsSet(7, value)
		if !a.ch[2].dacEnabled {
			a.ch[2].enabled = false
		}

	case addr.NR31:
		a.NR31 = value
		a.ch[2].length = 256 - uint16(value)

	case addr.NR32:
		a.NR32 = value
		a.ch[2].outputShift = waveShifts[bit.ExtractBits(value, 6, 5)]

	case addr.NR33:
		a.NR33 = value
		a.ch[2].period = bit.Combine(a.NR34&0x07, value)

	case addr.NR34:
		a.NR34 = value & 0x7F
		a.ch[2].period = bit.Combine(value&0x07, a.NR33)
		a.ch[2].lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(2)
		}

	case addr.NR41:
		a.NR41 = value
		a.ch[3].length = 64 - uint16(value&0x3F)

	case addr.NR42:
		a.NR42 = value
		a.applyEnvelope(3, value)

	case addr.NR43:
		a.NR43 = value
		ch := &a.ch[3]
		ch.shift = bit.ExtractBits(value, 7, 4)
		ch.width7 = bit.IsSet(3, value)
		ch.divisor = bit.ExtractBits(value, 2, 0)

	case addr.NR44:
		a.NR44 = value & 0x7F
		a.ch[3].lengthEnable = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(3)
		}

	case addr.NR50:
		a.NR50 = value
		a.vinLeft, a.vinRight = bit.IsSet(7, value), bit.IsSet(3, value)
		a.volLeft = bit.ExtractBits(value, 6, 4)
		a.volRight = bit.ExtractBits(value, 2, 0)

	case addr.NR51:
		a.NR51 = value
		for i := range a.ch {
			a.ch[i].right = bit.IsSet(uint8(i), value)
			a.ch[i].left = bit.IsSet(uint8(i+4), value)
		}
	}
}

// applyEnvelope decodes an NRx2 write. A channel whose initial volume is
// zero with a decreasing envelope has its DAC off, which also silences it.
func (a *APU) applyEnvelope(i int, value uint8) {
	ch := &a.ch[i]
	ch.initialVolume = bit.ExtractBits(value, 7, 4)
	ch.envelopeUp = bit.IsSet(3, value)
	ch.envelopePace = bit.ExtractBits(value, 2, 0)
	ch.dacEnabled = ch.initialVolume > 0 || ch.envelopeUp
	if !ch.dacEnabled {
		ch.enabled = false
	}
}

// trigger re-starts a channel: the frequency timer reloads from the period,
// the envelope restarts at the initial volume, an expired length timer
// reloads to its maximum, and channel 1 runs one immediate sweep overflow
// check.
func (a *APU) trigger(i int) {
	ch := &a.ch[i]
	if ch.dacEnabled {
		ch.enabled = true
	}

	ch.volume = ch.initialVolume
	ch.envelopeTick = 0

	if ch.length == 0 {
		if i == 2 {
			ch.length = 256
		} else {
			ch.length = 64
		}
	}

	switch i {
	case 0:
		ch.freqTimer = ch.pulsePeriodCycles()
		ch.dutyStep = 0
		ch.shadowFreq = ch.period
		ch.sweepTick = 0
		if ch.sweepStep > 0 {
			if _, overflow := ch.sweepTarget(); overflow {
				ch.enabled = false
			}
		}
	case 1:
		ch.freqTimer = ch.pulsePeriodCycles()
		ch.dutyStep = 0
	case 2:
		ch.freqTimer = ch.wavePeriodCycles()
		ch.waveIndex = 0
	case 3:
		ch.freqTimer = ch.noisePeriodCycles()
		ch.lfsr = 0
	}
}

// powerOff clears every register and channel; only NR52 and wave RAM stay
// writable until power returns.
func (a *APU) powerOff() {
	a.NR10, a.NR11, a.NR12, a.NR13, a.NR14 = 0, 0, 0, 0, 0
	a.NR21, a.NR22, a.NR23, a.NR24 = 0, 0, 0, 0
	a.NR30, a.NR31, a.NR32, a.NR33, a.NR34 = 0, 0, 0, 0, 0
	a.NR41, a.NR42, a.NR43, a.NR44 = 0, 0, 0, 0
	a.NR50, a.NR51 = 0, 0
	a.vinLeft, a.vinRight = false, false
	a.volLeft, a.volRight = 0, 0
	for i := range a.ch {
		a.ch[i] = Channel{}
	}
	a.step = 0
}
