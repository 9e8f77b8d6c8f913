package state

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.Blob("cpu", []byte{1, 2, 3})
	w.Blob("bus", nil)
	w.Blob("ppu", bytes.Repeat([]byte{0xAB}, 300))
	require.NoError(t, w.Err())

	r := NewReader(&buf)
	cpu, err := r.Blob("cpu")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, cpu)

	bus, err := r.Blob("bus")
	require.NoError(t, err)
	assert.Empty(t, bus)

	ppu, err := r.Blob("ppu")
	require.NoError(t, err)
	assert.Len(t, ppu, 300)
}

func TestReaderRejectsWrongTag(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Blob("cpu", []byte{1})

	r := NewReader(&buf)
	_, err := r.Blob("bus")
	assert.ErrorIs(t, err, ErrBadSave)
}

func TestReaderRejectsTruncatedBlob(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Blob("cpu", []byte{1, 2, 3, 4})

	truncated := buf.Bytes()[:buf.Len()-2]
	r := NewReader(bytes.NewReader(truncated))
	_, err := r.Blob("cpu")
	assert.ErrorIs(t, err, ErrBadSave)
}

func TestWriterRejectsLongTag(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	w.Blob("timer", nil)
	assert.ErrorIs(t, w.Err(), ErrBadSave)
}
