// Package backend defines the three host-facing ports of the emulation
// core - video out, audio out and button input - plus a thread-safe input
// snapshot shared between a host event loop and the core.
package backend

import (
	"sync"

	"github.com/mkoenig/go-chroma/chroma/video"
)

// VideoSink receives each completed frame on VBlank entry.
type VideoSink interface {
	PushFrame(frame *video.FrameBuffer)
}

// InputSource is polled by the joypad for the current button byte. Bit
// layout: A=0, B=1, Select=2, Start=3, Right=4, Left=5, Up=6, Down=7,
// 1 = pressed.
type InputSource interface {
	PollButtons() uint8
}

// InputState is a mutex-protected button snapshot: the host event loop
// writes it, the core's joypad callback reads it.
type InputState struct {
	mu      sync.Mutex
	buttons uint8
}

// Press marks the masked buttons as held.
func (s *InputState) Press(mask uint8) {
	s.mu.Lock()
	s.buttons |= mask
	s.mu.Unlock()
}

// Release clears the masked buttons.
func (s *InputState) Release(mask uint8) {
	s.mu.Lock()
	s.buttons &= ^mask
	s.mu.Unlock()
}

// Set replaces the whole snapshot.
func (s *InputState) Set(buttons uint8) {
	s.mu.Lock()
	s.buttons = buttons
	s.mu.Unlock()
}

// PollButtons implements InputSource.
func (s *InputState) PollButtons() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons
}
