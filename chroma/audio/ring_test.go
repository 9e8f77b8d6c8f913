package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRingBoundedCapacity(t *testing.T) {
	r := NewRing(8, false)

	for i := 0; i < 100; i++ {
		r.Push(int16(i), int16(-i))
	}
	assert.Equal(t, 8, r.Len())
	assert.LessOrEqual(t, r.Len(), r.Cap())
}

func TestRingOverwritesOldestWhenNotBlocking(t *testing.T) {
	r := NewRing(4, false)

	for i := 1; i <= 6; i++ {
		r.Push(int16(i), int16(i))
	}

	buf := make([]int16, 8)
	n := r.Read(buf)
	assert.Equal(t, 8, n)
	assert.Equal(t, int16(3), buf[0], "frames 1 and 2 were overwritten")
	assert.Equal(t, int16(6), buf[6])
}

func TestRingReadDrainsInterleaved(t *testing.T) {
	r := NewRing(8, false)
	r.Push(100, -100)
	r.Push(200, -200)

	buf := make([]int16, 8)
	n := r.Read(buf)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{100, -100, 200, -200}, buf[:4])
	assert.Zero(t, r.Len())
}

func TestRingBlockingProducerWaitsForDrain(t *testing.T) {
	r := NewRing(2, true)
	r.Push(1, 1)
	r.Push(2, 2)

	done := make(chan struct{})
	go func() {
		r.Push(3, 3) // blocks until the consumer drains
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("push returned on a full blocking ring")
	case <-time.After(20 * time.Millisecond):
	}

	buf := make([]int16, 2)
	r.Read(buf)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push did not resume after drain")
	}
	assert.Equal(t, 2, r.Len())
}
