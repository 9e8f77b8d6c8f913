// Package audio plays the APU's sample ring through the host sound device
// using oto. The player pulls at its own rate; the core blocks on the ring
// when it runs ahead.
package audio

import (
	"fmt"

	"github.com/ebitengine/oto/v3"

	coreaudio "github.com/mkoenig/go-chroma/chroma/audio"
)

// Player streams stereo samples from a ring into an oto context.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *coreaudio.Ring
	buf    []int16
}

// NewPlayer opens the host audio device at the APU's native sample rate.
func NewPlayer(ring *coreaudio.Ring) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   coreaudio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	p := &Player{
		ctx:  ctx,
		ring: ring,
		buf:  make([]int16, 2048),
	}
	p.player = ctx.NewPlayer(p)
	return p, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.player.Play()
}

// Close stops playback.
func (p *Player) Close() error {
	return p.player.Close()
}

// Read implements io.Reader for the oto player: it drains the ring and pads
// with silence when the core has not produced enough samples yet.
func (p *Player) Read(out []byte) (int, error) {
	samples := len(out) / 2
	if len(p.buf) < samples {
		p.buf = make([]int16, samples)
	}

	got := p.ring.Read(p.buf[:samples])
	for i := got; i < samples; i++ {
		p.buf[i] = 0
	}

	for i := 0; i < samples; i++ {
		out[i*2] = byte(p.buf[i])
		out[i*2+1] = byte(p.buf[i] >> 8)
	}
	return samples * 2, nil
}
