// Package chroma implements a Game Boy Color emulation core: an SM83
// interpreter, the memory bus with its DMA engines, a dot-accurate pixel
// processor, the four-channel audio unit and the timer, all driven by one
// scheduler.
package chroma

import (
	"fmt"
	"io"
	"sync"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/audio"
	"github.com/mkoenig/go-chroma/chroma/cpu"
	"github.com/mkoenig/go-chroma/chroma/memory"
	"github.com/mkoenig/go-chroma/chroma/serial"
	"github.com/mkoenig/go-chroma/chroma/state"
	"github.com/mkoenig/go-chroma/chroma/timing"
	"github.com/mkoenig/go-chroma/chroma/video"
)

// Emulation speed bounds: 10 is 100% real time, 20 runs the machine twice as
// fast while the APU keeps producing audio at native rate.
const (
	MinSpeed = 10
	MaxSpeed = 20
)

// Machine owns every emulation component and steps them in lockstep on the
// shared clock.
type Machine struct {
	cpu *cpu.CPU
	bus *memory.Bus

	speed       int
	apuThrottle int

	frameMu    sync.Mutex
	frameReady bool
	videoSink  func(*video.FrameBuffer)
}

// Option configures a Machine.
type Option func(*machineConfig)

type machineConfig struct {
	audioBlocking bool
	ringFrames    int
	serialCapture func(byte)
	input         func() uint8
}

// WithBlockingAudio makes the APU block on a full sample ring until the host
// drains it. Use only when an audio consumer is attached.
func WithBlockingAudio() Option {
	return func(c *machineConfig) { c.audioBlocking = true }
}

// WithSerialCapture registers a callback observing every byte the game
// pushes out the link port.
func WithSerialCapture(fn func(byte)) Option {
	return func(c *machineConfig) { c.serialCapture = fn }
}

// WithInput wires the host's button poll callback.
func WithInput(poll func() uint8) Option {
	return func(c *machineConfig) { c.input = poll }
}

// NewMachine builds a machine around a raw cartridge image.
func NewMachine(rom []byte, opts ...Option) (*Machine, error) {
	cfg := machineConfig{ringFrames: audio.DefaultRingFrames}
	for _, opt := range opts {
		opt(&cfg)
	}

	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, err
	}

	ring := audio.NewRing(cfg.ringFrames, cfg.audioBlocking)
	bus, err := memory.NewBus(cart, ring)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		bus:   bus,
		speed: MinSpeed,
	}
	m.cpu = cpu.New(bus)

	if cfg.serialCapture != nil {
		bus.SetSerial(serial.NewLogSink(
			func() { bus.RequestInterrupt(addr.SerialInterrupt) },
			serial.WithCapture(cfg.serialCapture),
		))
	}
	if cfg.input != nil {
		bus.SetInputSource(cfg.input)
	}

	bus.PPU.SetFrameFunc(m.publishFrame)
	return m, nil
}

// SetVideoSink registers the host callback receiving each completed frame on
// VBlank entry.
func (m *Machine) SetVideoSink(fn func(*video.FrameBuffer)) {
	m.videoSink = fn
}

// SetSpeed sets the emulation speed, clamped to [MinSpeed, MaxSpeed].
func (m *Machine) SetSpeed(speed int) {
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	m.speed = speed
}

// Bus exposes the memory system.
func (m *Machine) Bus() *memory.Bus {
	return m.bus
}

// CPU exposes the processor.
func (m *Machine) CPU() *cpu.CPU {
	return m.cpu
}

// AudioRing returns the APU's output sample ring.
func (m *Machine) AudioRing() *audio.Ring {
	return m.bus.APU.Ring()
}

// Step advances the machine by one CPU step. The CPU, timer and OAM DMA run
// in the CPU clock domain (double speed doubles their rate relative to the
// dot clock); the PPU always runs at the 4 MHz dot clock; the APU is
// throttled so audio stays at native rate when the emulator is fast-forwarded.
// Returns the number of dots consumed.
func (m *Machine) Step() int {
	cycles := m.cpu.Tick()
	m.bus.Tick(cycles)

	dots := cycles
	if m.bus.DoubleSpeed() {
		dots = cycles / 2
	}
	m.bus.PPU.Tick(dots)
	m.tickAPU(dots)

	return dots
}

// tickAPU forwards dots to the APU, skipping a share of them proportional to
// how far the emulation speed exceeds real time.
func (m *Machine) tickAPU(dots int) {
	if m.speed == MinSpeed {
		m.bus.APU.Tick(dots)
		return
	}

	allowed := 0
	for range dots {
		if m.apuThrottle < MinSpeed {
			allowed++
		}
		m.apuThrottle++
		if m.apuThrottle >= m.speed {
			m.apuThrottle = 0
		}
	}
	if allowed > 0 {
		m.bus.APU.Tick(allowed)
	}
}

// publishFrame runs on VBlank entry with the freshly swapped front buffer.
func (m *Machine) publishFrame(fb *video.FrameBuffer) {
	m.frameMu.Lock()
	m.frameReady = true
	m.frameMu.Unlock()
	if m.videoSink != nil {
		m.videoSink(fb)
	}
}

// RunFrame steps the machine until the next frame completes. With the LCD
// off no frame is ever published, so a budget of two frames' worth of dots
// bounds the call.
func (m *Machine) RunFrame() {
	m.frameMu.Lock()
	m.frameReady = false
	m.frameMu.Unlock()

	// two frames worth of dots: enough for a full frame from any starting
	// point, bounded when the LCD is off and nothing is ever published
	budget := 2 * timing.CyclesPerFrame
	for budget > 0 {
		budget -= m.Step()

		m.frameMu.Lock()
		done := m.frameReady
		m.frameMu.Unlock()
		if done {
			return
		}
	}
}

// FrameBuffer returns the last completed frame.
func (m *Machine) FrameBuffer() *video.FrameBuffer {
	return m.bus.PPU.FrameBuffer()
}

// CopyFrame copies the last completed frame into dst under the frame mutex.
func (m *Machine) CopyFrame(dst []uint32) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	m.bus.PPU.FrameBuffer().CopyInto(dst)
}

// Save-state tags, in their fixed order.
var stateTags = [5]string{"cpu", "bus", "ppu", "apu", "tim"}

// SaveState writes the machine state as tagged blobs in the order CPU, Bus,
// PPU, APU, Timer.
func (m *Machine) SaveState(w io.Writer) error {
	blobs := [5]func() ([]byte, error){
		m.cpu.SaveState,
		m.bus.SaveState,
		m.bus.PPU.SaveState,
		m.bus.APU.SaveState,
		m.bus.Timer().SaveState,
	}

	sw := state.NewWriter(w)
	for i, save := range blobs {
		data, err := save()
		if err != nil {
			return fmt.Errorf("serializing %s: %w", stateTags[i], err)
		}
		sw.Blob(stateTags[i], data)
	}
	return sw.Err()
}

// LoadState restores the machine from a save-state stream. It fails without
// touching partial state order unless every tag and size matches.
func (m *Machine) LoadState(r io.Reader) error {
	sr := state.NewReader(r)

	var blobs [5][]byte
	for i, tag := range stateTags {
		data, err := sr.Blob(tag)
		if err != nil {
			return err
		}
		blobs[i] = data
	}

	loads := [5]func([]byte) error{
		m.cpu.LoadState,
		m.bus.LoadState,
		m.bus.PPU.LoadState,
		m.bus.APU.LoadState,
		m.bus.Timer().LoadState,
	}
	for i, load := range loads {
		if err := load(blobs[i]); err != nil {
			return fmt.Errorf("restoring %s: %w", stateTags[i], err)
		}
	}
	return nil
}
