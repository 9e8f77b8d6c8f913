package memory

// Button bit positions in the host input byte: 1 = pressed.
const (
	ButtonA uint8 = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonRight
	ButtonLeft
	ButtonUp
	ButtonDown
)

// Joypad implements the P1 register: a 2x4 button matrix selected by bits
// 4 (buttons) and 5 (d-pad), active low. Button state comes from a host
// callback returning the bit layout above.
type Joypad struct {
	selection uint8 // bits 5-4 as last written
	lastLow   uint8 // previous computed low nibble, for edge detection

	// Poll returns the currently pressed buttons. The host must make this
	// safe to call from the emulation thread.
	Poll func() uint8

	// Interrupt requester, wired to IF bit 4.
	InterruptHandler func()
}

// Read computes the register value from the selection bits and the current
// button state. Bits 7-6 always read as 1.
func (j *Joypad) Read() uint8 {
	return 0xC0 | (j.selection & 0x30) | j.lowNibble()
}

// Write sets the selection bits; the low nibble is read-only.
func (j *Joypad) Write(value uint8) {
	j.selection = value & 0x30
	j.Refresh()
}

// Refresh re-polls the buttons and raises the joypad interrupt on any 1->0
// transition of the computed low nibble. Called once per bus tick so STOP
// can be woken without a register access.
func (j *Joypad) Refresh() {
	low := j.lowNibble()
	if j.lastLow&^low != 0 && j.InterruptHandler != nil {
		j.InterruptHandler()
	}
	j.lastLow = low
}

func (j *Joypad) lowNibble() uint8 {
	buttons := uint8(0)
	if j.Poll != nil {
		buttons = j.Poll()
	}

	low := uint8(0x0F)
	if j.selection&0x20 == 0 {
		// buttons group selected: A, B, Select, Start
		low &= ^(buttons & 0x0F)
	}
	if j.selection&0x10 == 0 {
		// d-pad group selected: Right, Left, Up, Down
		low &= ^((buttons >> 4) & 0x0F)
	}
	return low & 0x0F
}
