package chroma

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/mkoenig/go-chroma/chroma/memory"
	"github.com/mkoenig/go-chroma/chroma/timing"
	"github.com/mkoenig/go-chroma/chroma/video"
)

// Config describes one emulation session.
type Config struct {
	// ROMPath is the cartridge image to load.
	ROMPath string
	// SavePath optionally names a save state to restore before running.
	SavePath string
	// Speed is the emulation speed, 10 (real time) to 20 (fast-forward).
	Speed int
	// Video receives each completed frame; may be nil.
	Video func(*video.FrameBuffer)
	// Input is polled for the current button byte; may be nil.
	Input func() uint8
	// BlockingAudio makes the core wait on the sample ring when it is
	// full. Enable only with an attached audio consumer.
	BlockingAudio bool
	// Limiter paces frames; defaults to a wall-clock ticker.
	Limiter timing.Limiter
}

// Emulator runs a Machine against host callbacks until asked to stop.
type Emulator struct {
	machine *Machine
	limiter timing.Limiter
	battery string

	stopped atomic.Bool
}

// New loads the ROM (and optional save state) and prepares a run loop.
func New(cfg Config) (*Emulator, error) {
	rom, err := os.ReadFile(cfg.ROMPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memory.ErrBadROM, err)
	}

	var opts []Option
	if cfg.BlockingAudio {
		opts = append(opts, WithBlockingAudio())
	}
	if cfg.Input != nil {
		opts = append(opts, WithInput(cfg.Input))
	}

	m, err := NewMachine(rom, opts...)
	if err != nil {
		return nil, err
	}
	m.SetSpeed(cfg.Speed)
	if cfg.Video != nil {
		m.SetVideoSink(cfg.Video)
	}

	e := &Emulator{
		machine: m,
		limiter: cfg.Limiter,
		battery: cfg.ROMPath + ".sav",
	}
	if e.limiter == nil {
		e.limiter = timing.NewTickerLimiter(cfg.Speed)
	}

	e.loadBattery()

	if cfg.SavePath != "" {
		f, err := os.Open(cfg.SavePath)
		if err != nil {
			return nil, fmt.Errorf("opening save state: %w", err)
		}
		defer f.Close()
		if err := m.LoadState(f); err != nil {
			return nil, err
		}
		slog.Info("restored save state", "path", cfg.SavePath)
	}

	return e, nil
}

// Machine exposes the underlying machine.
func (e *Emulator) Machine() *Machine {
	return e.machine
}

// Run executes frames until Stop is called, then flushes battery RAM.
func (e *Emulator) Run() error {
	for !e.stopped.Load() {
		e.machine.RunFrame()
		e.limiter.WaitForNextFrame()
	}
	e.saveBattery()
	return nil
}

// Stop asks the run loop to exit after the current frame.
func (e *Emulator) Stop() {
	e.stopped.Store(true)
}

// SaveStateTo writes a save state to the given path.
func (e *Emulator) SaveStateTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return e.machine.SaveState(f)
}

// loadBattery restores external cartridge RAM from the battery file, when
// the cartridge is battery-backed and a file exists.
func (e *Emulator) loadBattery() {
	if !e.machine.Bus().Cartridge().HasBattery() {
		return
	}
	mbc5, ok := e.machine.Bus().MBC().(*memory.MBC5)
	if !ok {
		return
	}
	data, err := os.ReadFile(e.battery)
	if err != nil {
		return
	}
	mbc5.LoadRAM(data)
	slog.Debug("loaded battery RAM", "path", e.battery, "size", len(data))
}

// saveBattery persists external cartridge RAM next to the ROM.
func (e *Emulator) saveBattery() {
	if !e.machine.Bus().Cartridge().HasBattery() {
		return
	}
	mbc5, ok := e.machine.Bus().MBC().(*memory.MBC5)
	if !ok {
		return
	}
	data := mbc5.RAM()
	if data == nil {
		return
	}
	if err := os.WriteFile(e.battery, data, 0o644); err != nil {
		slog.Warn("could not write battery RAM", "path", e.battery, "error", err)
		return
	}
	slog.Debug("saved battery RAM", "path", e.battery, "size", len(data))
}
