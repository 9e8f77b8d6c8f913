package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkoenig/go-chroma/chroma/addr"
)

const frameDots = dotsPerLine * totalLines

// newDMGPPU builds a PPU in DMG mode with identity palettes and the LCD on.
func newDMGPPU() *PPU {
	p := New(func(addr.Interrupt) {})
	p.SetDMGMode(true)
	p.Write(addr.BGP, 0xE4) // identity: color index n maps to shade n
	p.Write(addr.OBP0, 0xE4)
	p.Write(addr.LCDC, 0x91)
	return p
}

// fillTile writes one 8x8 tile with constant low/high bitplanes.
func fillTile(p *PPU, tile int, lo, hi uint8) {
	base := uint16(0x8000 + tile*16)
	for row := uint16(0); row < 8; row++ {
		p.Write(base+row*2, lo)
		p.Write(base+row*2+1, hi)
	}
}

func TestRenderSolidBackgroundTile(t *testing.T) {
	p := newDMGPPU()

	// tile 0 everywhere (map is zeroed), all pixels color index 1
	fillTile(p, 0, 0xFF, 0x00)

	p.Tick(frameDots)

	fb := p.FrameBuffer()
	assert.Equal(t, dmgShades[1], fb.GetPixel(0, 0))
	assert.Equal(t, dmgShades[1], fb.GetPixel(159, 0))
	assert.Equal(t, dmgShades[1], fb.GetPixel(80, 143))
}

func TestRenderTileMapSelection(t *testing.T) {
	p := newDMGPPU()

	fillTile(p, 0, 0xFF, 0x00) // color 1
	fillTile(p, 1, 0x00, 0xFF) // color 2
	// second tile map points everything at tile 1
	for i := uint16(0); i < 0x400; i++ {
		p.Write(addr.TileMap1+i, 0x01)
	}

	p.Write(addr.LCDC, 0x99) // BG map select = 0x9C00
	p.Tick(frameDots)

	assert.Equal(t, dmgShades[2], p.FrameBuffer().GetPixel(0, 0))
}

func TestRenderSignedTileAddressing(t *testing.T) {
	p := newDMGPPU()

	// tile index 0x80 with signed addressing lives at 0x8800
	for row := uint16(0); row < 8; row++ {
		p.Write(0x8800+row*2, 0xFF)
		p.Write(0x8800+row*2+1, 0xFF)
	}
	for i := uint16(0); i < 0x400; i++ {
		p.Write(addr.TileMap0+i, 0x80)
	}

	p.Write(addr.LCDC, 0x81) // LCDC.4 clear: signed indexing
	p.Tick(frameDots)

	assert.Equal(t, dmgShades[3], p.FrameBuffer().GetPixel(0, 0))
}

func TestFineScrollDiscardsPixels(t *testing.T) {
	p := newDMGPPU()

	// columns 0-3 color 1, columns 4-7 color 0
	fillTile(p, 0, 0xF0, 0x00)

	p.Tick(frameDots)
	assert.Equal(t, dmgShades[1], p.FrameBuffer().GetPixel(0, 0))

	p.Write(addr.SCX, 4)
	p.Tick(frameDots)
	assert.Equal(t, dmgShades[0], p.FrameBuffer().GetPixel(0, 0),
		"SCX fine scroll shifts the visible columns")
	assert.Equal(t, dmgShades[1], p.FrameBuffer().GetPixel(4, 0))
}

func TestRenderSpriteOverBackground(t *testing.T) {
	p := newDMGPPU()

	fillTile(p, 0, 0xFF, 0x00) // BG color 1
	fillTile(p, 1, 0x00, 0xFF) // sprite color 2

	// sprite at screen origin
	p.Write(addr.OAMStart, 16)
	p.Write(addr.OAMStart+1, 8)
	p.Write(addr.OAMStart+2, 1)
	p.Write(addr.OAMStart+3, 0x00)

	p.Write(addr.LCDC, 0x93) // sprites enabled
	p.Tick(frameDots)

	fb := p.FrameBuffer()
	assert.Equal(t, dmgShades[2], fb.GetPixel(0, 0))
	assert.Equal(t, dmgShades[2], fb.GetPixel(7, 7))
	assert.Equal(t, dmgShades[1], fb.GetPixel(8, 0), "background outside the sprite")
	assert.Equal(t, dmgShades[1], fb.GetPixel(0, 8))
}

func TestSpriteBehindOpaqueBackground(t *testing.T) {
	p := newDMGPPU()

	fillTile(p, 0, 0xFF, 0x00) // BG color 1 (opaque)
	fillTile(p, 1, 0x00, 0xFF) // sprite color 2

	p.Write(addr.OAMStart, 16)
	p.Write(addr.OAMStart+1, 8)
	p.Write(addr.OAMStart+2, 1)
	p.Write(addr.OAMStart+3, 0x80) // BG-over-OBJ priority

	p.Write(addr.LCDC, 0x93)
	p.Tick(frameDots)

	assert.Equal(t, dmgShades[1], p.FrameBuffer().GetPixel(0, 0),
		"sprite with priority bit hides behind opaque background")
}

func TestTransparentSpritePixelsShowBackground(t *testing.T) {
	p := newDMGPPU()

	fillTile(p, 0, 0xFF, 0x00) // BG color 1
	fillTile(p, 1, 0x00, 0x00) // sprite entirely transparent

	p.Write(addr.OAMStart, 16)
	p.Write(addr.OAMStart+1, 8)
	p.Write(addr.OAMStart+2, 1)

	p.Write(addr.LCDC, 0x93)
	p.Tick(frameDots)

	assert.Equal(t, dmgShades[1], p.FrameBuffer().GetPixel(0, 0))
}

func TestRenderCGBPaletteColor(t *testing.T) {
	p := New(func(addr.Interrupt) {})
	p.Write(addr.LCDC, 0x91)

	fillTile(p, 0, 0xFF, 0x00) // color index 1

	// BG palette 0, color 1 = pure red (5-5-5 little-endian BGR)
	p.Write(addr.BCPS, 0x02)
	p.Write(addr.BCPD, 0x1F)
	p.Write(addr.BCPS, 0x03)
	p.Write(addr.BCPD, 0x00)

	p.Tick(frameDots)
	assert.Equal(t, uint32(0xFFF80000), p.FrameBuffer().GetPixel(0, 0))
}

func TestRenderWindowOverridesBackground(t *testing.T) {
	p := newDMGPPU()

	fillTile(p, 0, 0xFF, 0x00) // BG color 1
	fillTile(p, 1, 0x00, 0xFF) // window tile color 2
	for i := uint16(0); i < 0x400; i++ {
		p.Write(addr.TileMap1+i, 0x01)
	}

	p.Write(addr.WX, 7+80) // window starts at screen X=80
	p.Write(addr.WY, 72)
	p.Write(addr.LCDC, 0x91|1<<lcdcWindowEnable|1<<lcdcWindowTileMap)
	p.Tick(frameDots)

	fb := p.FrameBuffer()
	assert.Equal(t, dmgShades[1], fb.GetPixel(0, 0), "outside the window")
	assert.Equal(t, dmgShades[1], fb.GetPixel(100, 71), "above the window")
	assert.Equal(t, dmgShades[2], fb.GetPixel(100, 100), "inside the window")
	assert.Equal(t, dmgShades[1], fb.GetPixel(40, 100), "left of the window")
}

func TestCGBBackgroundAttributeFlip(t *testing.T) {
	p := New(func(addr.Interrupt) {})
	p.Write(addr.LCDC, 0x91)

	// tile with only the leftmost column set
	for row := uint16(0); row < 8; row++ {
		p.Write(0x8000+row*2, 0x80)
	}
	// identity palette for color 1
	p.Write(addr.BCPS, 0x02)
	p.Write(addr.BCPD, 0xFF)
	p.Write(addr.BCPS, 0x03)
	p.Write(addr.BCPD, 0x7F)

	// attribute in VRAM bank 1: H-flip
	p.Write(addr.VBK, 0x01)
	p.Write(0x9800, 0x20)
	p.Write(addr.VBK, 0x00)

	p.Tick(frameDots)

	fb := p.FrameBuffer()
	white := expand555(0xFF, 0x7F)
	assert.NotEqual(t, white, fb.GetPixel(0, 0), "flipped column moved right")
	assert.Equal(t, white, fb.GetPixel(7, 0))
}
