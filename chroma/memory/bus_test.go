package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/audio"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	return newTestBusWithROM(t, buildROM(0x8000, nil))
}

func newTestBusWithROM(t *testing.T, rom []byte) *Bus {
	t.Helper()
	cart, err := NewCartridge(rom)
	require.NoError(t, err)
	bus, err := NewBus(cart, audio.NewRing(64, false))
	require.NoError(t, err)
	return bus
}

func TestWRAMBankingViaSVBK(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(0xC123, 0x01) // bank 0, fixed
	bus.Write(addr.SVBK, 2)
	bus.Write(0xD123, 0x22)
	bus.Write(addr.SVBK, 3)
	bus.Write(0xD123, 0x33)

	assert.Equal(t, uint8(0x01), bus.Read(0xC123))
	bus.Write(addr.SVBK, 2)
	assert.Equal(t, uint8(0x22), bus.Read(0xD123))
	bus.Write(addr.SVBK, 3)
	assert.Equal(t, uint8(0x33), bus.Read(0xD123))
}

func TestSVBKBankZeroActsAsOne(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(addr.SVBK, 1)
	bus.Write(0xD000, 0x55)
	bus.Write(addr.SVBK, 0)
	assert.Equal(t, uint8(0x55), bus.Read(0xD000))
	assert.Equal(t, uint8(0xF8|1), bus.Read(addr.SVBK))
}

func TestEchoRAMMirrors(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(0xC100, 0xAA)
	assert.Equal(t, uint8(0xAA), bus.Read(0xE100))

	bus.Write(0xF000, 0xBB)
	assert.Equal(t, uint8(0xBB), bus.Read(0xD000))
}

func TestForbiddenRegionReadsFF(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(0xFEA0, 0x12)
	assert.Equal(t, uint8(0xFF), bus.Read(0xFEA0))
	assert.Equal(t, uint8(0xFF), bus.Read(0xFEFF))
}

func TestHRAMReadWrite(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(0xFF80, 0x42)
	bus.Write(0xFFFE, 0x99)
	assert.Equal(t, uint8(0x42), bus.Read(0xFF80))
	assert.Equal(t, uint8(0x99), bus.Read(0xFFFE))
}

func TestIFUpperBitsReadAsOne(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(addr.IF, 0x05)
	assert.Equal(t, uint8(0xE5), bus.Read(addr.IF))
}

func TestDIVWriteResets(t *testing.T) {
	bus := newTestBus(t)

	bus.Tick(1024)
	require.NotZero(t, bus.Read(addr.DIV))

	bus.Write(addr.DIV, 0x5A)
	assert.Zero(t, bus.Read(addr.DIV))
}

func TestSpeedSwitchCommitsOnStop(t *testing.T) {
	bus := newTestBus(t)

	assert.False(t, bus.DoubleSpeed())
	assert.Equal(t, uint8(0x7E), bus.Read(addr.KEY1))

	bus.Write(addr.KEY1, 0x01) // arm
	assert.Equal(t, uint8(0x7F), bus.Read(addr.KEY1))

	bus.Tick(1024)
	bus.StopExecuted()

	assert.True(t, bus.DoubleSpeed())
	assert.Equal(t, uint8(0xFE), bus.Read(addr.KEY1), "armed bit cleared, speed bit set")
	assert.Zero(t, bus.Read(addr.DIV), "STOP resets DIV")

	// not armed: a second STOP changes nothing
	bus.StopExecuted()
	assert.True(t, bus.DoubleSpeed())
}

func TestOAMDMATransfers160Bytes(t *testing.T) {
	bus := newTestBus(t)

	for i := 0; i < 160; i++ {
		bus.Write(0xC000+uint16(i), uint8(i)+1)
	}

	bus.Write(addr.DMA, 0xC0)
	assert.Equal(t, uint8(0xC0), bus.Read(addr.DMA))

	// one byte per 4 cycles: after 80 cycles, 20 bytes have arrived
	bus.Tick(80)
	assert.Equal(t, uint8(1), bus.Read(0xFE00))
	assert.Equal(t, uint8(20), bus.Read(0xFE13))
	assert.Equal(t, uint8(0), bus.Read(0xFE14))

	bus.Tick(160*4 - 80)
	for i := 0; i < 160; i++ {
		assert.Equal(t, uint8(i)+1, bus.Read(0xFE00+uint16(i)), "OAM byte %d", i)
	}
}

func TestOAMDMAIgnoresIllegalPage(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(addr.DMA, 0xE0)
	bus.Tick(1024)
	assert.Equal(t, uint8(0x00), bus.Read(0xFE00))
}

func TestVRAMDMAGeneralPurpose(t *testing.T) {
	bus := newTestBus(t)

	var stalled int
	bus.SetStallFunc(func(cycles int) { stalled += cycles })

	for i := 0; i < 16; i++ {
		bus.Write(0xC000+uint16(i), uint8(0xA0+i))
	}

	bus.Write(addr.HDMA1, 0xC0)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x8A)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x00) // one block, general purpose

	for i := 0; i < 16; i++ {
		assert.Equal(t, uint8(0xA0+i), bus.Read(0x8A00+uint16(i)))
	}
	assert.Equal(t, 32, stalled, "8 machine cycles per block")
	assert.Equal(t, uint8(0xFF), bus.Read(addr.HDMA5), "reads 0xFF after completion")
}

func TestVRAMDMAHBlankMode(t *testing.T) {
	bus := newTestBus(t)

	var stalled int
	bus.SetStallFunc(func(cycles int) { stalled += cycles })

	for i := 0; i < 32; i++ {
		bus.Write(0xC000+uint16(i), uint8(i)+1)
	}

	bus.Write(addr.HDMA1, 0xC0)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x80)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x81) // two blocks, HBlank mode

	assert.Equal(t, uint8(0x01), bus.Read(addr.HDMA5), "one block remaining indicator, active")

	bus.hblankDMA()
	assert.Equal(t, uint8(1), bus.Read(0x8000))
	assert.Equal(t, uint8(16), bus.Read(0x800F))
	assert.Equal(t, uint8(0), bus.Read(0x8010), "second block not transferred yet")
	assert.Equal(t, 32, stalled)

	bus.hblankDMA()
	assert.Equal(t, uint8(32), bus.Read(0x801F))
	assert.Equal(t, uint8(0xFF), bus.Read(addr.HDMA5))

	// no further transfers once complete
	bus.hblankDMA()
	assert.Equal(t, 64, stalled)
}

func TestVRAMDMAHBlankAbort(t *testing.T) {
	bus := newTestBus(t)

	bus.Write(addr.HDMA1, 0xC0)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x80)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x83)

	bus.Write(addr.HDMA5, 0x00) // bit 7 clear aborts
	assert.NotZero(t, bus.Read(addr.HDMA5)&0x80, "no longer active")
}

func TestVRAMDMAIllegalRangesIgnored(t *testing.T) {
	bus := newTestBus(t)

	var stalled int
	bus.SetStallFunc(func(cycles int) { stalled += cycles })

	// source inside VRAM is not a valid general-purpose source
	bus.Write(addr.HDMA1, 0x80)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x8A)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x00)

	assert.Zero(t, stalled)
	assert.Equal(t, uint8(0xFF), bus.Read(addr.HDMA5))
}

func TestVRAMDMADisabledInDMGMode(t *testing.T) {
	bus := newTestBusWithROM(t, buildROM(0x8000, func(rom []byte) {
		rom[headerCGBFlag] = 0x00
	}))

	var stalled int
	bus.SetStallFunc(func(cycles int) { stalled += cycles })

	bus.Write(addr.HDMA1, 0xC0)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x80)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x00)

	assert.Zero(t, stalled)
}

func TestDoubleSpeedDoublesStall(t *testing.T) {
	bus := newTestBus(t)

	var stalled int
	bus.SetStallFunc(func(cycles int) { stalled += cycles })

	bus.Write(addr.KEY1, 0x01)
	bus.StopExecuted()
	require.True(t, bus.DoubleSpeed())

	bus.Write(addr.HDMA1, 0xC0)
	bus.Write(addr.HDMA2, 0x00)
	bus.Write(addr.HDMA3, 0x80)
	bus.Write(addr.HDMA4, 0x00)
	bus.Write(addr.HDMA5, 0x00)

	assert.Equal(t, 64, stalled)
}

func TestInterruptLatches(t *testing.T) {
	bus := newTestBus(t)

	bus.RequestInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(addr.TimerInterrupt), bus.InterruptFlags())

	bus.ClearInterrupt(addr.TimerInterrupt)
	assert.Zero(t, bus.InterruptFlags())

	bus.Write(addr.IE, 0x15)
	assert.Equal(t, uint8(0x15), bus.InterruptEnable())
}

func TestRegisterReadBackMasks(t *testing.T) {
	bus := newTestBus(t)

	cases := []struct {
		name    string
		address uint16
		write   uint8
		want    uint8
	}{
		{"SCY", addr.SCY, 0x42, 0x42},
		{"SCX", addr.SCX, 0x13, 0x13},
		{"LYC", addr.LYC, 0x90, 0x90},
		{"BGP", addr.BGP, 0xE4, 0xE4},
		{"WY", addr.WY, 0x10, 0x10},
		{"WX", addr.WX, 0x07, 0x07},
		{"VBK", addr.VBK, 0x01, 0xFF},
		{"VBK bank 0", addr.VBK, 0xFE, 0xFE},
		{"TMA", addr.TMA, 0xAB, 0xAB},
		{"TAC", addr.TAC, 0x05, 0xF8 | 0x05},
		{"SVBK", addr.SVBK, 0x03, 0xF8 | 0x03},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus.Write(tc.address, tc.write)
			assert.Equal(t, tc.want, bus.Read(tc.address))
		})
	}
}
