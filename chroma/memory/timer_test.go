package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkoenig/go-chroma/chroma/addr"
)

func TestDIVIncrementsEvery256Cycles(t *testing.T) {
	var tm Timer

	tm.Tick(255)
	assert.Equal(t, uint8(0), tm.DIV())
	tm.Tick(1)
	assert.Equal(t, uint8(1), tm.DIV())
	tm.Tick(256 * 4)
	assert.Equal(t, uint8(5), tm.DIV())
}

func TestTIMAPrescalerSelection(t *testing.T) {
	cases := []struct {
		name     string
		tac      uint8
		interval int
	}{
		{"4096 Hz", 0x04, 1024},
		{"262144 Hz", 0x05, 16},
		{"65536 Hz", 0x06, 64},
		{"16384 Hz", 0x07, 256},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tm Timer
			tm.Write(addr.TAC, tc.tac)

			tm.Tick(tc.interval * 3)
			assert.Equal(t, uint8(3), tm.Read(addr.TIMA))
		})
	}
}

func TestTIMADisabledDoesNotCount(t *testing.T) {
	var tm Timer
	tm.Write(addr.TAC, 0x00)

	tm.Tick(4096)
	assert.Zero(t, tm.Read(addr.TIMA))
}

func TestTIMAOverflowReloadsTMAAndInterrupts(t *testing.T) {
	var tm Timer
	fired := 0
	tm.InterruptHandler = func() { fired++ }

	tm.Write(addr.TAC, 0x04) // 1024-cycle prescaler
	tm.Write(addr.TMA, 0xAB)
	tm.Write(addr.TIMA, 0xFF)

	tm.Tick(1024) // overflow: TIMA reads 0 during the reload window
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA))

	tm.Tick(4) // reload completes
	assert.Equal(t, uint8(0xAB), tm.Read(addr.TIMA), "TIMA reloaded from TMA")

	tm.Tick(4) // the interrupt follows one step later
	assert.Equal(t, 1, fired)
}

func TestDIVWriteZeroInvariant(t *testing.T) {
	var tm Timer

	tm.Tick(70000)
	tm.Write(addr.DIV, 0xFF)
	assert.Zero(t, tm.Read(addr.DIV))
}
