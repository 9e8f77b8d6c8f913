package serial

import (
	"log/slog"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/bit"
)

// LogSink implements a dummy serial device that surfaces outgoing bytes as
// text. Test ROMs report their results over the link port, so the sink also
// feeds an optional capture callback that harnesses can watch for "Passed".
type LogSink struct {
	irqHandler func()
	sb, sc     byte
	logger     *slog.Logger

	capture func(byte)
	line    []byte
}

// Option configures a LogSink.
type Option func(*LogSink)

// WithCapture registers a callback invoked for every transferred byte.
func WithCapture(fn func(byte)) Option {
	return func(s *LogSink) { s.capture = fn }
}

// NewLogSink creates a logging serial device. The passed function is called
// when a transfer completes and should request the serial interrupt.
func NewLogSink(irq func(), opts ...Option) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeTransfer()
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return 0x7E | (s.sc & 0x81)
	default:
		return 0xFF
	}
}

func (s *LogSink) Tick(cycles int) {}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.line = s.line[:0]
}

// maybeTransfer completes a transfer immediately when bit 7 (start) and
// bit 0 (internal clock) of SC are set. There is no peer, so SB reads back
// 0xFF afterwards.
func (s *LogSink) maybeTransfer() {
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if s.capture != nil {
		s.capture(b)
	}

	// buffer until newline for readable output
	if b == 0 || b == '\n' || b == '\r' {
		if len(s.line) > 0 {
			s.logger.Info("serial", "line", string(s.line))
			s.line = s.line[:0]
		}
	} else {
		s.line = append(s.line, b)
	}

	s.sb = 0xFF
	s.sc = bit.Reset(7, s.sc)
	if s.irqHandler != nil {
		s.irqHandler()
	}
}
