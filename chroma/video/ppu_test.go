package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoenig/go-chroma/chroma/addr"
)

// irqRecorder collects raised interrupts.
type irqRecorder struct {
	vblank int
	stat   int
}

func (r *irqRecorder) raise(i addr.Interrupt) {
	switch i {
	case addr.VBlankInterrupt:
		r.vblank++
	case addr.LCDSTATInterrupt:
		r.stat++
	}
}

func newTestPPU() (*PPU, *irqRecorder) {
	rec := &irqRecorder{}
	p := New(rec.raise)
	p.Write(addr.LCDC, 0x91) // LCD on, BG on, 0x8000 tiles
	return p, rec
}

func TestModeDurationsSumToScanline(t *testing.T) {
	p, _ := newTestPPU()

	counts := map[Mode]int{}
	for i := 0; i < dotsPerLine; i++ {
		counts[p.CurrentMode()]++
		p.Tick(1)
	}

	assert.Equal(t, oamScanDots, counts[OAMScanMode])
	assert.Equal(t, dotsPerLine, counts[OAMScanMode]+counts[DrawMode]+counts[HBlankMode])
	assert.GreaterOrEqual(t, counts[DrawMode], 172)
	assert.Equal(t, 1, p.LY(), "one full scanline elapsed")
}

func TestLineDotStaysInRange(t *testing.T) {
	p, _ := newTestPPU()

	for i := 0; i < dotsPerLine*3; i++ {
		assert.Less(t, p.lineDot, dotsPerLine)
		p.Tick(1)
	}
}

func TestVBlankEntry(t *testing.T) {
	p, rec := newTestPPU()

	front := p.FrameBuffer()
	p.Tick(dotsPerLine * visibleLines)

	assert.Equal(t, VBlankMode, p.CurrentMode())
	assert.Equal(t, visibleLines, p.LY())
	assert.Equal(t, 1, rec.vblank)
	assert.NotSame(t, front, p.FrameBuffer(), "buffers swap on VBlank entry")
}

func TestFrontBufferOnlyChangesOnVBlank(t *testing.T) {
	p, _ := newTestPPU()

	front := p.FrameBuffer()
	p.Tick(dotsPerLine*visibleLines - 1)
	assert.Same(t, front, p.FrameBuffer())

	p.Tick(1)
	assert.NotSame(t, front, p.FrameBuffer())

	swapped := p.FrameBuffer()
	p.Tick(dotsPerLine * 9)
	assert.Same(t, swapped, p.FrameBuffer(), "no further swap during VBlank")
}

func TestLYWrapsAfterLine153(t *testing.T) {
	p, _ := newTestPPU()

	p.Tick(dotsPerLine * totalLines)
	assert.Equal(t, 0, p.LY())
	assert.Equal(t, OAMScanMode, p.CurrentMode())
}

func TestOAMScanSelectsAtMostTen(t *testing.T) {
	p, _ := newTestPPU()

	// 40 sprites all overlapping line 0
	for i := 0; i < 40; i++ {
		p.Write(addr.OAMStart+uint16(i*4), 16)          // Y
		p.Write(addr.OAMStart+uint16(i*4)+1, uint8(i))  // X
		p.Write(addr.OAMStart+uint16(i*4)+2, uint8(i))  // tile
	}

	p.Tick(oamScanDots)
	assert.Len(t, p.scanObjs, 10)
	for _, spr := range p.scanObjs {
		top := int(spr.y) - 16
		assert.True(t, top <= 0 && 0 < top+p.objSize)
	}
}

func TestOAMScanVerticalRange(t *testing.T) {
	p, _ := newTestPPU()

	// sprite covering lines 0-7 only
	p.Write(addr.OAMStart, 16)
	p.Write(addr.OAMStart+1, 8)
	// sprite far below
	p.Write(addr.OAMStart+4, 100)
	p.Write(addr.OAMStart+5, 8)

	p.Tick(oamScanDots)
	assert.Len(t, p.scanObjs, 1)
}

func TestOAMScanTallSprites(t *testing.T) {
	p, _ := newTestPPU()
	p.Write(addr.LCDC, 0x95) // 8x16 sprites

	// Y=8: rows -8..7, covers line 0 only with 8x16
	p.Write(addr.OAMStart, 8)
	p.Write(addr.OAMStart+1, 8)

	p.Tick(oamScanDots)
	assert.Len(t, p.scanObjs, 1)
	assert.Equal(t, 16, p.objSize)
}

func TestDMGScanOrderSortsByX(t *testing.T) {
	rec := &irqRecorder{}
	p := New(rec.raise)
	p.SetDMGMode(true)
	p.Write(addr.LCDC, 0x91)

	positions := []uint8{40, 8, 24}
	for i, x := range positions {
		p.Write(addr.OAMStart+uint16(i*4), 16)
		p.Write(addr.OAMStart+uint16(i*4)+1, x)
	}

	p.Tick(oamScanDots)
	require.Len(t, p.scanObjs, 3)
	assert.Equal(t, uint8(8), p.scanObjs[0].x)
	assert.Equal(t, uint8(24), p.scanObjs[1].x)
	assert.Equal(t, uint8(40), p.scanObjs[2].x)
}

func TestLYCInterrupt(t *testing.T) {
	p, rec := newTestPPU()

	p.Write(addr.LYC, 2)
	p.Write(addr.STAT, 1<<statLycIRQ)

	p.Tick(dotsPerLine * 2)
	assert.Equal(t, 1, rec.stat)
	assert.NotZero(t, p.Read(addr.STAT)&(1<<statLycEqual))

	p.Tick(dotsPerLine)
	assert.Zero(t, p.Read(addr.STAT)&(1<<statLycEqual))
}

func TestSTATModeBitsReadOnly(t *testing.T) {
	p, _ := newTestPPU()

	p.Write(addr.STAT, 0xFF)
	stat := p.Read(addr.STAT)
	assert.Equal(t, uint8(OAMScanMode), stat&0x03, "mode bits not writable")
}

func TestHBlankCallbackFires(t *testing.T) {
	p, _ := newTestPPU()

	calls := 0
	p.SetHBlankFunc(func() { calls++ })

	p.Tick(dotsPerLine)
	assert.Equal(t, 1, calls)

	p.Tick(dotsPerLine * (visibleLines - 1))
	assert.Equal(t, visibleLines, calls)

	// no HBlank during VBlank lines
	p.Tick(dotsPerLine * 10)
	assert.Equal(t, visibleLines, calls)
}

func TestDisabledLCDHoldsState(t *testing.T) {
	p, rec := newTestPPU()

	p.Tick(dotsPerLine * 3)
	p.Write(addr.LCDC, 0x11) // LCD off

	assert.Equal(t, 0, p.LY())
	assert.Equal(t, HBlankMode, p.CurrentMode())

	before := rec.stat + rec.vblank
	p.Tick(dotsPerLine * totalLines)
	assert.Equal(t, 0, p.LY())
	assert.Equal(t, before, rec.stat+rec.vblank, "no interrupts while disabled")
}

func TestVRAMBankSelect(t *testing.T) {
	p, _ := newTestPPU()

	p.Write(addr.VBK, 0x00)
	p.Write(0x8000, 0x11)
	p.Write(addr.VBK, 0x01)
	p.Write(0x8000, 0x22)

	assert.Equal(t, uint8(0x22), p.Read(0x8000))
	p.Write(addr.VBK, 0x00)
	assert.Equal(t, uint8(0x11), p.Read(0x8000))

	assert.Equal(t, uint8(0xFE), p.Read(addr.VBK))
}

func TestPaletteRAMAutoIncrement(t *testing.T) {
	p, _ := newTestPPU()

	p.Write(addr.BCPS, 0x80) // index 0, auto-increment
	for i := 0; i < 4; i++ {
		p.Write(addr.BCPD, uint8(0x10+i))
	}

	assert.Equal(t, uint8(0x80|4), p.Read(addr.BCPS))

	p.Write(addr.BCPS, 0x00)
	for i := 0; i < 4; i++ {
		p.Write(addr.BCPS, uint8(i))
		assert.Equal(t, uint8(0x10+i), p.Read(addr.BCPD))
	}
}

func TestPaletteIndexWrapsAt64(t *testing.T) {
	p, _ := newTestPPU()

	p.Write(addr.OCPS, 0x80 | 0x3F)
	p.Write(addr.OCPD, 0x55)
	assert.Equal(t, uint8(0x80), p.Read(addr.OCPS), "index wraps, auto-increment bit kept")
}

func Test555ColorExpansion(t *testing.T) {
	// pure red: 0x001F little-endian
	assert.Equal(t, uint32(0xFFF80000), expand555(0x1F, 0x00))
	// pure green: 0x03E0
	assert.Equal(t, uint32(0xFF00F800), expand555(0xE0, 0x03))
	// pure blue: 0x7C00
	assert.Equal(t, uint32(0xFF0000F8), expand555(0x00, 0x7C))
}
