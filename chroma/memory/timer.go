package memory

import (
	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/bit"
)

// Timer implements DIV and the TIMA/TMA/TAC counter. DIV is the upper 8 bits
// of a 16-bit counter incremented every clock cycle; TIMA increments on the
// falling edge of the counter bit selected by TAC.
type Timer struct {
	systemCounter uint16
	lastTimerBit  bool
	timaOverflow  int  // cycles remaining until the TMA reload completes
	timaDelayInt  bool // interrupt is raised one step after the reload

	tima uint8
	tma  uint8
	tac  uint8

	// Interrupt requester, wired to IF bit 2.
	InterruptHandler func()
}

// Tick advances the timer by the given number of clock cycles.
func (t *Timer) Tick(cycles int) {
	if t.timaDelayInt {
		if t.InterruptHandler != nil {
			t.InterruptHandler()
		}
		t.timaDelayInt = false
	}

	if t.timaOverflow > 0 {
		t.timaOverflow -= cycles
		if t.timaOverflow <= 0 {
			t.tima = t.tma
			t.timaDelayInt = true
			t.timaOverflow = 0
		}
	}

	for range cycles {
		t.systemCounter++

		if t.timaOverflow > 0 {
			continue
		}

		if t.tac&0x04 != 0 {
			current := bit.IsSet16(t.timerBit(), t.systemCounter)
			if t.lastTimerBit && !current {
				if t.tima == 0xFF {
					t.tima = 0x00
					t.timaOverflow = 4
				} else {
					t.tima++
				}
			}
			t.lastTimerBit = current
		} else {
			t.lastTimerBit = false
		}
	}
}

// timerBit maps TAC bits 1-0 to the divider bit whose falling edge clocks
// TIMA: prescalers 1024/16/64/256 cycles.
func (t *Timer) timerBit() uint16 {
	switch t.tac & 0x03 {
	case 0x00:
		return 9
	case 0x01:
		return 3
	case 0x02:
		return 5
	default:
		return 7
	}
}

// DIV returns the visible divider byte.
func (t *Timer) DIV() uint8 {
	return uint8(t.systemCounter >> 8)
}

// ResetDIV zeroes the divider. Used by DIV writes and by STOP.
func (t *Timer) ResetDIV() {
	t.systemCounter = 0
}

func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return t.DIV()
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return 0xF8 | (t.tac & 0x07)
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		t.ResetDIV()
	case addr.TIMA:
		t.tima = value
		// a write during the reload window cancels the reload
		t.timaOverflow = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
	}
}
