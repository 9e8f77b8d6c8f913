//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/mkoenig/go-chroma/chroma/video"
)

// Backend stub for builds without the SDL2 libraries.
type Backend struct {
	OnQuit func()
}

// New returns an error pointing at the sdl2 build tag.
func New(title string) (*Backend, error) {
	return nil, fmt.Errorf("SDL2 backend not available - build with -tags sdl2 to enable")
}

func (b *Backend) Close() {}

func (b *Backend) PushFrame(_ *video.FrameBuffer) {}

func (b *Backend) PollButtons() uint8 { return 0 }

func (b *Backend) PumpEvents() {}
