// Package terminal renders the emulator screen into a terminal using tcell,
// drawing two pixels per character cell with the upper-half-block glyph.
package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/mkoenig/go-chroma/chroma/backend"
	"github.com/mkoenig/go-chroma/chroma/memory"
	"github.com/mkoenig/go-chroma/chroma/video"
)

// Backend is a tcell-based video sink and input source.
type Backend struct {
	screen tcell.Screen
	input  backend.InputState

	// OnQuit is called when the user asks to exit (Esc or Ctrl-C).
	OnQuit func()
}

// New initializes the terminal screen.
func New() (*Backend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	screen.Clear()

	b := &Backend{screen: screen}
	go b.eventLoop()
	return b, nil
}

// Close restores the terminal.
func (b *Backend) Close() {
	b.screen.Fini()
}

// PushFrame implements backend.VideoSink: each character cell shows two
// vertically stacked pixels via the upper-half-block glyph.
func (b *Backend) PushFrame(frame *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			top := frame.GetPixel(x, y)
			bottom := frame.GetPixel(x, y+1)
			style := tcell.StyleDefault.
				Foreground(toTcellColor(top)).
				Background(toTcellColor(bottom))
			b.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	b.screen.Show()
}

// PollButtons implements backend.InputSource.
func (b *Backend) PollButtons() uint8 {
	return b.input.PollButtons()
}

func toTcellColor(argb uint32) tcell.Color {
	return tcell.NewRGBColor(
		int32((argb>>16)&0xFF),
		int32((argb>>8)&0xFF),
		int32(argb&0xFF),
	)
}

// eventLoop translates terminal keys into button state. Terminals only
// deliver key-press events, so each press is treated as a short tap: the
// previous tap is released when the next event arrives.
func (b *Backend) eventLoop() {
	for {
		event := b.screen.PollEvent()
		if event == nil {
			return
		}

		key, ok := event.(*tcell.EventKey)
		if !ok {
			continue
		}

		if key.Key() == tcell.KeyEscape || key.Key() == tcell.KeyCtrlC {
			if b.OnQuit != nil {
				b.OnQuit()
			}
			return
		}

		if mask := keyToButton(key); mask != 0 {
			b.input.Set(mask)
		} else {
			b.input.Set(0)
		}
	}
}

func keyToButton(key *tcell.EventKey) uint8 {
	switch key.Key() {
	case tcell.KeyUp:
		return memory.ButtonUp
	case tcell.KeyDown:
		return memory.ButtonDown
	case tcell.KeyLeft:
		return memory.ButtonLeft
	case tcell.KeyRight:
		return memory.ButtonRight
	case tcell.KeyEnter:
		return memory.ButtonStart
	}
	switch key.Rune() {
	case 'z', 'Z':
		return memory.ButtonB
	case 'x', 'X':
		return memory.ButtonA
	case ' ':
		return memory.ButtonSelect
	case 's', 'S':
		return memory.ButtonStart
	}
	return 0
}
