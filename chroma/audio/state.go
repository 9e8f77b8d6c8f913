package audio

import (
	"bytes"
	"encoding/gob"
)

// apuState is the serialized form of the APU. The ring content is transient
// host-facing data and is not part of the snapshot.
type apuState struct {
	Enabled  bool
	Channels [4]channelState

	NR10, NR11, NR12, NR13, NR14 uint8
	NR21, NR22, NR23, NR24       uint8
	NR30, NR31, NR32, NR33, NR34 uint8
	NR41, NR42, NR43, NR44       uint8
	NR50, NR51                   uint8
	WaveRAM                      [16]uint8

	LastDivBit    bool
	Step          uint8
	SampleCounter int
}

type channelState struct {
	Enabled, DACEnabled bool
	Left, Right         bool
	Duty, DutyStep      uint8
	Period              uint16
	FreqTimer           int
	Length              uint16
	LengthEnable        bool
	Volume              uint8
	InitialVolume       uint8
	EnvelopeUp          bool
	EnvelopePace        uint8
	EnvelopeTick        uint8
	SweepPace           uint8
	SweepDown           bool
	SweepStep           uint8
	SweepTick           uint8
	ShadowFreq          uint16
	WaveIndex           uint8
	OutputShift         uint8
	LFSR                uint16
	Width7              bool
	Divisor, Shift      uint8
}

// SaveState serializes the APU state.
func (a *APU) SaveState() ([]byte, error) {
	s := apuState{
		Enabled: a.enabled,
		NR10:    a.NR10, NR11: a.NR11, NR12: a.NR12, NR13: a.NR13, NR14: a.NR14,
		NR21: a.NR21, NR22: a.NR22, NR23: a.NR23, NR24: a.NR24,
		NR30: a.NR30, NR31: a.NR31, NR32: a.NR32, NR33: a.NR33, NR34: a.NR34,
		NR41: a.NR41, NR42: a.NR42, NR43: a.NR43, NR44: a.NR44,
		NR50: a.NR50, NR51: a.NR51,
		WaveRAM:       a.waveRAM,
		LastDivBit:    a.lastDivBit,
		Step:          a.step,
		SampleCounter: a.sampleCounter,
	}
	for i := range a.ch {
		ch := &a.ch[i]
		s.Channels[i] = channelState{
			Enabled: ch.enabled, DACEnabled: ch.dacEnabled,
			Left: ch.left, Right: ch.right,
			Duty: ch.duty, DutyStep: ch.dutyStep,
			Period: ch.period, FreqTimer: ch.freqTimer,
			Length: ch.length, LengthEnable: ch.lengthEnable,
			Volume: ch.volume, InitialVolume: ch.initialVolume,
			EnvelopeUp: ch.envelopeUp, EnvelopePace: ch.envelopePace, EnvelopeTick: ch.envelopeTick,
			SweepPace: ch.sweepPace, SweepDown: ch.sweepDown, SweepStep: ch.sweepStep,
			SweepTick: ch.sweepTick, ShadowFreq: ch.shadowFreq,
			WaveIndex: ch.waveIndex, OutputShift: ch.outputShift,
			LFSR: ch.lfsr, Width7: ch.width7,
			Divisor: ch.divisor, Shift: ch.shift,
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores the APU from a SaveState blob.
func (a *APU) LoadState(data []byte) error {
	var s apuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	a.enabled = s.Enabled
	a.NR10, a.NR11, a.NR12, a.NR13, a.NR14 = s.NR10, s.NR11, s.NR12, s.NR13, s.NR14
	a.NR21, a.NR22, a.NR23, a.NR24 = s.NR21, s.NR22, s.NR23, s.NR24
	a.NR30, a.NR31, a.NR32, a.NR33, a.NR34 = s.NR30, s.NR31, s.NR32, s.NR33, s.NR34
	a.NR41, a.NR42, a.NR43, a.NR44 = s.NR41, s.NR42, s.NR43, s.NR44
	a.NR50, a.NR51 = s.NR50, s.NR51
	a.waveRAM = s.WaveRAM
	a.lastDivBit = s.LastDivBit
	a.step = s.Step
	a.sampleCounter = s.SampleCounter

	for i := range a.ch {
		cs := s.Channels[i]
		a.ch[i] = Channel{
			enabled: cs.Enabled, dacEnabled: cs.DACEnabled,
			left: cs.Left, right: cs.Right,
			duty: cs.Duty, dutyStep: cs.DutyStep,
			period: cs.Period, freqTimer: cs.FreqTimer,
			length: cs.Length, lengthEnable: cs.LengthEnable,
			volume: cs.Volume, initialVolume: cs.InitialVolume,
			envelopeUp: cs.EnvelopeUp, envelopePace: cs.EnvelopePace, envelopeTick: cs.EnvelopeTick,
			sweepPace: cs.SweepPace, sweepDown: cs.SweepDown, sweepStep: cs.SweepStep,
			sweepTick: cs.SweepTick, shadowFreq: cs.ShadowFreq,
			waveIndex: cs.WaveIndex, outputShift: cs.OutputShift,
			lfsr: cs.LFSR, width7: cs.Width7,
			divisor: cs.Divisor, shift: cs.Shift,
		}
	}

	a.volLeft = (s.NR50 >> 4) & 0x07
	a.volRight = s.NR50 & 0x07
	a.vinLeft = s.NR50&0x80 != 0
	a.vinRight = s.NR50&0x08 != 0
	return nil
}
