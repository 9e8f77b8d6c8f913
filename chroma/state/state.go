// Package state implements the save-state container: a concatenation of
// labeled byte blobs in a fixed order, each prefixed by a short tag and its
// size so a reader can verify alignment while loading.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBadSave indicates a save-state whose tags or sizes do not line up with
// what the reader expects.
var ErrBadSave = errors.New("bad save state")

const tagSize = 4

// Writer appends tagged blobs to an output stream.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a blob writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Blob writes one tagged, size-prefixed blob. The tag must be at most 4
// bytes; shorter tags are padded with NULs. Errors stick: after the first
// failure subsequent calls do nothing.
func (w *Writer) Blob(tag string, data []byte) {
	if w.err != nil {
		return
	}
	if len(tag) > tagSize {
		w.err = fmt.Errorf("%w: tag %q longer than %d bytes", ErrBadSave, tag, tagSize)
		return
	}

	var header [tagSize + 4]byte
	copy(header[:tagSize], tag)
	binary.LittleEndian.PutUint32(header[tagSize:], uint32(len(data)))

	if _, err := w.w.Write(header[:]); err != nil {
		w.err = err
		return
	}
	if _, err := w.w.Write(data); err != nil {
		w.err = err
	}
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	return w.err
}

// Reader consumes tagged blobs from an input stream, verifying each tag in
// order.
type Reader struct {
	r io.Reader
}

// NewReader creates a blob reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Blob reads the next blob and verifies its tag. Loading fails unless every
// tag matches in order.
func (r *Reader) Blob(tag string) ([]byte, error) {
	var header [tagSize + 4]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading %q header: %v", ErrBadSave, tag, err)
	}

	var want [tagSize]byte
	copy(want[:], tag)
	if [tagSize]byte(header[:tagSize]) != want {
		return nil, fmt.Errorf("%w: expected tag %q, found %q", ErrBadSave, tag, string(header[:tagSize]))
	}

	size := binary.LittleEndian.Uint32(header[tagSize:])
	data := make([]byte, size)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, fmt.Errorf("%w: blob %q truncated: %v", ErrBadSave, tag, err)
	}
	return data, nil
}
