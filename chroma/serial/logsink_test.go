package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkoenig/go-chroma/chroma/addr"
)

func TestLogSinkCapturesTransferredBytes(t *testing.T) {
	var captured []byte
	irqs := 0
	s := NewLogSink(
		func() { irqs++ },
		WithCapture(func(b byte) { captured = append(captured, b) }),
	)

	for _, b := range []byte("Passed") {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0x81)
	}

	assert.Equal(t, "Passed", string(captured))
	assert.Equal(t, 6, irqs)
}

func TestLogSinkCompletesTransfer(t *testing.T) {
	s := NewLogSink(nil)

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x81)

	assert.Equal(t, byte(0xFF), s.Read(addr.SB), "no peer: receives 0xFF")
	assert.Zero(t, s.Read(addr.SC)&0x80, "start bit cleared on completion")
}

func TestLogSinkIgnoresExternalClock(t *testing.T) {
	var captured []byte
	s := NewLogSink(nil, WithCapture(func(b byte) { captured = append(captured, b) }))

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x80) // external clock: no transfer without a peer

	assert.Empty(t, captured)
	assert.Equal(t, byte('A'), s.Read(addr.SB))
}
