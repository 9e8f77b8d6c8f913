package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/mkoenig/go-chroma/chroma"
	otoaudio "github.com/mkoenig/go-chroma/chroma/backend/audio"
	"github.com/mkoenig/go-chroma/chroma/backend/headless"
	"github.com/mkoenig/go-chroma/chroma/backend/sdl2"
	"github.com/mkoenig/go-chroma/chroma/backend/terminal"
	"github.com/mkoenig/go-chroma/chroma/memory"
	"github.com/mkoenig/go-chroma/chroma/state"
	"github.com/mkoenig/go-chroma/chroma/timing"
	"github.com/mkoenig/go-chroma/chroma/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "chroma"
	app.Description = "A Game Boy Color emulator"
	app.Usage = "chroma [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Path to a save state to restore",
		},
		cli.IntFlag{
			Name:  "speed",
			Usage: "Emulation speed, 10 (real time) to 20 (fast-forward)",
			Value: 10,
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: terminal, sdl2 or headless",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps boundary errors to process exit codes: 1 for ROM and header
// problems, 2 for save-state mismatches.
func exitCode(err error) int {
	switch {
	case errors.Is(err, memory.ErrBadROM), errors.Is(err, memory.ErrUnsupportedMBC):
		return 1
	case errors.Is(err, state.ErrBadSave):
		return 2
	default:
		return 1
	}
}

func runEmulator(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	cfg := chroma.Config{
		ROMPath:  romPath,
		SavePath: c.String("save"),
		Speed:    c.Int("speed"),
	}

	switch c.String("backend") {
	case "headless":
		return runHeadless(cfg, c.Int("frames"))
	case "sdl2":
		return runSDL2(cfg)
	case "terminal":
		return runTerminal(cfg)
	default:
		return fmt.Errorf("unknown backend %q", c.String("backend"))
	}
}

func runHeadless(cfg chroma.Config, frames int) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	cfg.Limiter = timing.NewNoOpLimiter()
	emu, err := chroma.New(cfg)
	if err != nil {
		return err
	}

	sink := headless.New(emu.Machine().AudioRing())
	emu.Machine().SetVideoSink(sink.PushFrame)

	for i := 0; i < frames; i++ {
		emu.Machine().RunFrame()
	}
	slog.Info("headless run completed", "frames", sink.Frames())
	return nil
}

func runTerminal(cfg chroma.Config) error {
	term, err := terminal.New()
	if err != nil {
		return err
	}
	defer term.Close()

	cfg.Video = term.PushFrame
	cfg.Input = term.PollButtons
	cfg.BlockingAudio = true

	emu, err := chroma.New(cfg)
	if err != nil {
		return err
	}
	term.OnQuit = emu.Stop

	player, err := otoaudio.NewPlayer(emu.Machine().AudioRing())
	if err != nil {
		return err
	}
	defer player.Close()
	player.Start()

	return emu.Run()
}

func runSDL2(cfg chroma.Config) error {
	window, err := sdl2.New("chroma")
	if err != nil {
		return err
	}
	defer window.Close()

	cfg.Video = func(fb *video.FrameBuffer) {
		window.PushFrame(fb)
		window.PumpEvents()
	}
	cfg.Input = window.PollButtons
	cfg.BlockingAudio = true

	emu, err := chroma.New(cfg)
	if err != nil {
		return err
	}
	window.OnQuit = emu.Stop

	player, err := otoaudio.NewPlayer(emu.Machine().AudioRing())
	if err != nil {
		return err
	}
	defer player.Close()
	player.Start()

	return emu.Run()
}
