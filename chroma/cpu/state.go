package cpu

import (
	"bytes"
	"encoding/gob"
)

// cpuState is the serialized form of the CPU registers and latches.
type cpuState struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME, IMEDelay          bool
	Halted, Stopped        bool
	Stall                  int
	Cycles                 uint64
}

// SaveState serializes the CPU state.
func (c *CPU) SaveState() ([]byte, error) {
	s := cpuState{
		A: c.a, F: c.f, B: c.b, C: c.c,
		D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
		IME: c.ime, IMEDelay: c.imeDelay,
		Halted: c.halted, Stopped: c.stopped,
		Stall:  c.stall,
		Cycles: c.cycles,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores the CPU from a SaveState blob.
func (c *CPU) LoadState(data []byte) error {
	var s cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	c.a, c.f, c.b, c.c = s.A, s.F, s.B, s.C
	c.d, c.e, c.h, c.l = s.D, s.E, s.H, s.L
	c.sp, c.pc = s.SP, s.PC
	c.ime, c.imeDelay = s.IME, s.IMEDelay
	c.halted, c.stopped = s.Halted, s.Stopped
	c.stall = s.Stall
	c.cycles = s.Cycles
	return nil
}
