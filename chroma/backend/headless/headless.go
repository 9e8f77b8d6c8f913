// Package headless is a backend with no display: it counts frames and keeps
// the audio ring drained. Used for test runs and batch execution.
package headless

import (
	"sync/atomic"

	"github.com/mkoenig/go-chroma/chroma/audio"
	"github.com/mkoenig/go-chroma/chroma/video"
)

// Backend counts frames and discards pixels.
type Backend struct {
	frames atomic.Uint64
	ring   *audio.Ring
	drain  []int16
}

// New creates a headless backend. A non-nil ring is drained on every frame
// so a blocking producer can never wedge.
func New(ring *audio.Ring) *Backend {
	return &Backend{
		ring:  ring,
		drain: make([]int16, 4096),
	}
}

// PushFrame implements backend.VideoSink.
func (b *Backend) PushFrame(_ *video.FrameBuffer) {
	b.frames.Add(1)
	if b.ring != nil {
		for b.ring.Read(b.drain) == len(b.drain) {
		}
	}
}

// Frames returns the number of frames seen so far.
func (b *Backend) Frames() uint64 {
	return b.frames.Load()
}
