package audio

import "sync"

// DefaultRingFrames is the default capacity of the sample ring, in stereo
// frames. Roughly four screen frames of audio at 32768 Hz.
const DefaultRingFrames = 2048

// Ring is a bounded queue of stereo samples between the emulation thread and
// the host audio thread. The producer blocks when the ring is full (the only
// blocking point in the core); the consumer signals after draining. A ring
// can instead be created non-blocking, in which case the oldest samples are
// overwritten - used by headless runs with no audio consumer.
type Ring struct {
	mu   sync.Mutex
	cond *sync.Cond

	data     [][2]int16
	head     int
	size     int
	blocking bool
}

// NewRing creates a sample ring holding capacity stereo frames.
func NewRing(capacity int, blocking bool) *Ring {
	r := &Ring{
		data:     make([][2]int16, capacity),
		blocking: blocking,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push appends one stereo frame, waiting for the consumer if the ring is
// full and blocking mode is on.
func (r *Ring) Push(left, right int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == len(r.data) {
		if r.blocking {
			for r.size == len(r.data) {
				r.cond.Wait()
			}
		} else {
			// overwrite the oldest frame
			r.head = (r.head + 1) % len(r.data)
			r.size--
		}
	}

	r.data[(r.head+r.size)%len(r.data)] = [2]int16{left, right}
	r.size++
}

// Read drains up to len(buf)/2 stereo frames into buf as interleaved
// left/right samples and returns the number of int16 values written. It
// signals the producer after draining.
func (r *Ring) Read(buf []int16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(buf) / 2
	if frames > r.size {
		frames = r.size
	}
	for i := 0; i < frames; i++ {
		frame := r.data[r.head]
		r.head = (r.head + 1) % len(r.data)
		buf[i*2] = frame[0]
		buf[i*2+1] = frame[1]
	}
	r.size -= frames

	r.cond.Broadcast()
	return frames * 2
}

// Len returns the number of buffered stereo frames.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity in stereo frames.
func (r *Ring) Cap() int {
	return len(r.data)
}
