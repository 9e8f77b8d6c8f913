//go:build sdl2

// Package sdl2 is a windowed video and keyboard backend on the SDL2
// bindings. Building it requires the SDL2 development libraries; default
// builds use the stub instead (see build tags).
package sdl2

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/mkoenig/go-chroma/chroma/backend"
	"github.com/mkoenig/go-chroma/chroma/memory"
	"github.com/mkoenig/go-chroma/chroma/video"
)

const pixelScale = 4

// Backend renders frames into an SDL window and maps keyboard state to the
// button byte.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	input    backend.InputState

	// OnQuit is called when the window is closed.
	OnQuit func()
}

// New creates the window and streaming texture.
func New(title string) (*Backend, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("initializing SDL2: %w", err)
	}

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		video.FramebufferWidth*pixelScale, video.FramebufferHeight*pixelScale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth, video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("creating texture: %w", err)
	}

	return &Backend{window: window, renderer: renderer, texture: texture}, nil
}

// Close tears down the SDL resources.
func (b *Backend) Close() {
	b.texture.Destroy()
	b.renderer.Destroy()
	b.window.Destroy()
	sdl.Quit()
}

// PushFrame implements backend.VideoSink.
func (b *Backend) PushFrame(frame *video.FrameBuffer) {
	pixels := frame.ToSlice()
	b.texture.Update(nil, unsafe.Pointer(&pixels[0]), video.FramebufferWidth*4)
	b.renderer.Clear()
	b.renderer.Copy(b.texture, nil, nil)
	b.renderer.Present()
}

// PollButtons implements backend.InputSource.
func (b *Backend) PollButtons() uint8 {
	return b.input.PollButtons()
}

// PumpEvents processes pending SDL events; call it from the main thread
// once per frame.
func (b *Backend) PumpEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			if b.OnQuit != nil {
				b.OnQuit()
			}
		case *sdl.KeyboardEvent:
			mask := keyToButton(ev.Keysym.Sym)
			if mask == 0 {
				continue
			}
			if ev.Type == sdl.KEYDOWN {
				b.input.Press(mask)
			} else {
				b.input.Release(mask)
			}
		}
	}
}

func keyToButton(sym sdl.Keycode) uint8 {
	switch sym {
	case sdl.K_UP:
		return memory.ButtonUp
	case sdl.K_DOWN:
		return memory.ButtonDown
	case sdl.K_LEFT:
		return memory.ButtonLeft
	case sdl.K_RIGHT:
		return memory.ButtonRight
	case sdl.K_z:
		return memory.ButtonB
	case sdl.K_x:
		return memory.ButtonA
	case sdl.K_BACKSPACE:
		return memory.ButtonSelect
	case sdl.K_RETURN:
		return memory.ButtonStart
	}
	return 0
}
