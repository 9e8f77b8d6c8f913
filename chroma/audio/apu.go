package audio

import (
	"math"

	"github.com/mkoenig/go-chroma/chroma/bit"
)

const (
	// ClockRate is the 4 MHz machine clock the APU is ticked with.
	ClockRate = 4194304
	// SampleRate is the fixed output rate: one stereo sample every 128
	// clock cycles.
	SampleRate = 32768

	cyclesPerSample = ClockRate / SampleRate
)

// APU is the four-channel audio synthesizer: two pulse channels, a wave
// channel and a noise channel, sequenced by a 512 Hz frame sequencer derived
// from a DIV bit falling edge, mixed to stereo and pushed through a
// DC-blocking high-pass into the sample ring.
type APU struct {
	enabled bool
	ch      [4]Channel

	vinLeft, vinRight bool
	volLeft, volRight uint8

	// raw registers
	NR10, NR11, NR12, NR13, NR14 uint8
	NR21, NR22, NR23, NR24       uint8
	NR30, NR31, NR32, NR33, NR34 uint8
	NR41, NR42, NR43, NR44       uint8
	NR50, NR51                   uint8
	waveRAM                      [16]uint8

	// frame sequencer: clocked by the falling edge of DIV bit 5
	// (bit 6 in double speed)
	div         func() uint8
	doubleSpeed func() bool
	lastDivBit  bool
	step        uint8

	sampleCounter    int
	hpLeft, hpRight  highPass
	ring             *Ring
}

// highPass is a first-order DC blocker: y[n] = x[n] - x[n-1] + k*y[n-1].
type highPass struct {
	prevIn  float64
	prevOut float64
}

var chargeFactor = math.Pow(0.999958, float64(ClockRate)/float64(SampleRate))

func (h *highPass) filter(in float64) float64 {
	out := in - h.prevIn + chargeFactor*h.prevOut
	h.prevIn = in
	h.prevOut = out
	return out
}

// New creates an APU pushing samples into the given ring.
func New(ring *Ring) *APU {
	return &APU{ring: ring}
}

// SetDIVSource wires the timer's DIV register into the frame sequencer.
func (a *APU) SetDIVSource(div func() uint8) {
	a.div = div
}

// SetSpeedSource tells the sequencer which DIV bit carries 512 Hz: bit 5 in
// single speed, bit 6 in double speed.
func (a *APU) SetSpeedSource(double func() bool) {
	a.doubleSpeed = double
}

// Ring returns the output sample ring.
func (a *APU) Ring() *Ring {
	return a.ring
}

// Tick advances the APU by the given number of clock cycles. The scheduler
// throttles calls so audio output stays at native rate regardless of
// emulation speed.
func (a *APU) Tick(cycles int) {
	if a.enabled {
		a.tickSequencer()
		a.tickGenerators(cycles)
	}

	// samples keep flowing while the APU is off; they are just silent
	a.sampleCounter += cycles
	for a.sampleCounter >= cyclesPerSample {
		a.sampleCounter -= cyclesPerSample
		a.mixSample()
	}
}

// tickSequencer advances the 512 Hz frame sequencer on the DIV bit falling
// edge: length at 256 Hz, sweep at 128 Hz, envelope at 64 Hz.
func (a *APU) tickSequencer() {
	if a.div == nil {
		return
	}
	divBit := uint8(5)
	if a.doubleSpeed != nil && a.doubleSpeed() {
		divBit = 6
	}

	current := bit.IsSet(divBit, a.div())
	falling := a.lastDivBit && !current
	a.lastDivBit = current
	if !falling {
		return
	}

	if a.step%2 == 0 {
		for i := range a.ch {
			a.ch[i].tickLength()
		}
	}
	if a.step%4 == 2 {
		a.tickSweep()
	}
	if a.step == 7 {
		a.ch[0].tickEnvelope()
		a.ch[1].tickEnvelope()
		a.ch[3].tickEnvelope()
	}
	a.step = (a.step + 1) % 8
}

// tickSweep clocks channel 1's period sweep at 128 Hz.
func (a *APU) tickSweep() {
	ch := &a.ch[0]
	if ch.sweepPace == 0 {
		return
	}
	ch.sweepTick++
	if ch.sweepTick < ch.sweepPace {
		return
	}
	ch.sweepTick = 0

	next, overflow := ch.sweepTarget()
	if overflow {
		ch.enabled = false
		return
	}
	if ch.sweepStep == 0 {
		return
	}
	ch.shadowFreq = next
	ch.period = next
	a.NR13 = uint8(next)
	a.NR14 = (a.NR14 & 0xF8) | uint8(next>>8)&0x07
}

// tickGenerators advances the per-channel frequency timers.
func (a *APU) tickGenerators(cycles int) {
	for i := 0; i <= 1; i++ {
		ch := &a.ch[i]
		if !ch.enabled {
			continue
		}
		period := ch.pulsePeriodCycles()
		if period <= 0 {
			continue
		}
		ch.freqTimer -= cycles
		for ch.freqTimer <= 0 {
			ch.freqTimer += period
			ch.dutyStep = (ch.dutyStep + 1) & 0x07
		}
	}

	if ch := &a.ch[2]; ch.enabled {
		period := ch.wavePeriodCycles()
		if period > 0 {
			ch.freqTimer -= cycles
			for ch.freqTimer <= 0 {
				ch.freqTimer += period
				ch.waveIndex = (ch.waveIndex + 1) & 0x1F
			}
		}
	}

	if ch := &a.ch[3]; ch.enabled {
		period := ch.noisePeriodCycles()
		ch.freqTimer -= cycles
		for ch.freqTimer <= 0 {
			ch.freqTimer += period
			ch.stepLFSR()
		}
	}
}

// channelOutput returns the current 4-bit output of a channel.
func (a *APU) channelOutput(i int) uint8 {
	ch := &a.ch[i]
	if !ch.enabled || !ch.dacEnabled {
		return 0
	}
	switch i {
	case 0, 1:
		if dutyPatterns[ch.duty][ch.dutyStep] == 1 {
			return ch.volume
		}
		return 0
	case 2:
		sample := a.waveRAM[ch.waveIndex>>1]
		if ch.waveIndex&1 == 0 {
			sample >>= 4
		}
		return (sample & 0x0F) >> ch.outputShift
	default:
		if ch.lfsr&1 == 0 {
			return ch.volume
		}
		return 0
	}
}

// mixSample combines the channel outputs per the panning byte, applies the
// per-side high-pass and pushes one stereo frame into the ring.
func (a *APU) mixSample() {
	var left, right int
	for i := range a.ch {
		out := int(a.channelOutput(i))
		if out == 0 {
			continue
		}
		if a.ch[i].left {
			left += out
		}
		if a.ch[i].right {
			right += out
		}
	}

	// master volume from NR50, then normalize to [-1, 1] before filtering
	l := float64(left) * float64(a.volLeft+1) / 8.0 / 60.0
	r := float64(right) * float64(a.volRight+1) / 8.0 / 60.0

	a.ring.Push(toPCM(a.hpLeft.filter(l)), toPCM(a.hpRight.filter(r)))
}

func toPCM(v float64) int16 {
	scaled := v * 32000
	if scaled > 32767 {
		scaled = 32767
	} else if scaled < -32768 {
		scaled = -32768
	}
	return int16(scaled)
}
