package video

import (
	"sort"

	"github.com/mkoenig/go-chroma/chroma/addr"
	"github.com/mkoenig/go-chroma/chroma/bit"
)

// Mode represents the PPU's current rendering stage. The values match STAT
// bits 1-0.
type Mode uint8

const (
	// HBlankMode (mode 0): horizontal blank, rest of the 456-dot line
	HBlankMode Mode = 0
	// VBlankMode (mode 1): lines 144-153
	VBlankMode Mode = 1
	// OAMScanMode (mode 2): first 80 dots of a visible line
	OAMScanMode Mode = 2
	// DrawMode (mode 3): pixel transfer, 172-289 dots
	DrawMode Mode = 3
)

const (
	dotsPerLine  = 456
	oamScanDots  = 80
	visibleLines = 144
	totalLines   = 154
)

// LCDC bit positions.
const (
	lcdcBGEnable      = 0 // DMG: BG+window blank; CGB: BG loses priority
	lcdcObjEnable     = 1
	lcdcObjSize       = 2
	lcdcBGTileMap     = 3
	lcdcTileData      = 4
	lcdcWindowEnable  = 5
	lcdcWindowTileMap = 6
	lcdcEnable        = 7
)

// STAT bit positions.
const (
	statLycIRQ    = 6
	statOAMIRQ    = 5
	statVBlankIRQ = 4
	statHBlankIRQ = 3
	statLycEqual  = 2
)

// sprite is one OAM entry selected for the current scanline.
type sprite struct {
	y, x, tile, attr uint8
	oamIndex         uint8
}

// PPU implements the pixel processing unit: two VRAM banks, OAM, the
// per-scanline mode machine, the OAM scan, and the dual-FIFO pixel fetcher.
// It raises interrupts through a narrow callback and reports each HBlank so
// the bus can run HBlank VRAM DMA.
type PPU struct {
	irq     func(addr.Interrupt)
	hblank  func()
	onFrame func(*FrameBuffer)

	dmgMode bool

	vram [2][0x2000]uint8
	oam  [0xA0]uint8

	lcdc, stat             uint8
	scy, scx               uint8
	lyc                    uint8
	bgp, obp0, obp1        uint8
	wy, wx                 uint8
	vbk                    uint8
	bgpi, obpi             uint8
	opri                   uint8
	bgCRAM, objCRAM        [64]uint8

	mode       Mode
	ly         int
	lineDot    int
	lx         int
	xDiscard   int
	pixelDelay int
	objSize    int

	scanObjs []sprite
	scanRead int

	fetch fetcher

	windowLine     int
	windowThisLine bool

	front, back *FrameBuffer
}

// New creates a PPU. The callback is used to raise VBlank and LCD STAT
// interrupts.
func New(irq func(addr.Interrupt)) *PPU {
	p := &PPU{
		irq: irq,
		// the LCD starts disabled: mode reads as 0 until it is turned on
		mode:     HBlankMode,
		front:    NewFrameBuffer(),
		back:     NewFrameBuffer(),
		scanObjs: make([]sprite, 0, 10),
	}
	p.front.Clear()
	p.back.Clear()
	return p
}

// SetDMGMode switches the PPU between CGB color rendering and the DMG shade
// palettes, per the cartridge header.
func (p *PPU) SetDMGMode(dmg bool) {
	p.dmgMode = dmg
	if dmg {
		p.opri = 0x01
	}
}

// SetHBlankFunc registers the callback invoked at every HBlank entry; the
// bus uses it to drive HBlank VRAM DMA.
func (p *PPU) SetHBlankFunc(fn func()) {
	p.hblank = fn
}

// SetFrameFunc registers the callback invoked with the completed front
// buffer on every VBlank entry.
func (p *PPU) SetFrameFunc(fn func(*FrameBuffer)) {
	p.onFrame = fn
}

// FrameBuffer returns the front buffer, the last completed frame.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return p.front
}

// LY returns the current scanline.
func (p *PPU) LY() int {
	return p.ly
}

// CurrentMode returns the current PPU mode.
func (p *PPU) CurrentMode() Mode {
	return p.mode
}

// Tick advances the PPU by the given number of dots.
func (p *PPU) Tick(dots int) {
	if !bit.IsSet(lcdcEnable, p.lcdc) {
		return
	}
	for range dots {
		p.tickDot()
	}
}

func (p *PPU) tickDot() {
	switch p.mode {
	case OAMScanMode:
		p.tickOAMScan()
	case DrawMode:
		p.tickDraw()
	case HBlankMode, VBlankMode:
		// wait for the end of the line
	}

	p.lineDot++
	if p.lineDot >= dotsPerLine {
		p.lineDot = 0
		p.endOfLine()
	}
}

// tickOAMScan walks one OAM entry every two dots and selects up to ten
// objects whose vertical range contains LY.
func (p *PPU) tickOAMScan() {
	if p.lineDot == 0 {
		p.objSize = 8
		if bit.IsSet(lcdcObjSize, p.lcdc) {
			p.objSize = 16
		}
		p.scanObjs = p.scanObjs[:0]
		p.scanRead = 0
	}

	if p.lineDot&1 == 0 {
		index := p.lineDot >> 1
		entry := p.oam[index*4 : index*4+4]
		top := int(entry[0]) - 16
		if len(p.scanObjs) < 10 && top <= p.ly && p.ly < top+p.objSize {
			p.scanObjs = append(p.scanObjs, sprite{
				y:        entry[0],
				x:        entry[1],
				tile:     entry[2],
				attr:     entry[3],
				oamIndex: uint8(index),
			})
		}
	}

	if p.lineDot == oamScanDots-1 {
		// X order decides priority on DMG; CGB uses OAM order unless
		// OPRI asks for the old behavior. The scan list is already in
		// OAM order, so only the X sort needs doing, stably.
		if p.dmgMode || p.opri&0x01 != 0 {
			sort.SliceStable(p.scanObjs, func(i, j int) bool {
				return p.scanObjs[i].x < p.scanObjs[j].x
			})
		}

		p.fetch.startLine()
		p.lx = 0
		p.xDiscard = int(p.scx & 0x07)
		p.pixelDelay = 13 + p.xDiscard
		p.setMode(DrawMode)
	}
}

// tickDraw runs the fetcher and emits at most one pixel per dot.
func (p *PPU) tickDraw() {
	p.tickFetcher()

	p.pixelDelay--
	if p.pixelDelay == 0 {
		p.pixelDelay = 1

		if p.fetch.objState == fetchSuspended {
			if p.xDiscard > 0 {
				// fine SCX scroll: pop and drop
				if _, ok := p.fetch.bgFIFO.Pop(); ok {
					p.fetch.objFIFO.Pop()
					p.xDiscard--
				}
			} else if bgPx, ok := p.fetch.bgFIFO.Pop(); ok {
				objPx, hasObj := p.fetch.objFIFO.Pop()
				p.back.SetPixel(p.lx, p.ly, p.resolvePixel(bgPx, objPx, hasObj))
				p.lx++
			}
		}
	}

	if p.lx >= FramebufferWidth {
		p.setMode(HBlankMode)
		if p.hblank != nil {
			p.hblank()
		}
	}
}

// resolvePixel combines one BG and one OBJ pixel and resolves the final
// color through the DMG palette registers or the CGB palette RAM.
func (p *PPU) resolvePixel(bgPx Pixel, objPx Pixel, hasObj bool) uint32 {
	if p.dmgMode && !bit.IsSet(lcdcBGEnable, p.lcdc) {
		bgPx.Color = 0
	}

	useObj := false
	if hasObj && objPx.Color != 0 {
		if !p.dmgMode && !bit.IsSet(lcdcBGEnable, p.lcdc) {
			// CGB master priority off: objects always win
			useObj = true
		} else {
			behind := objPx.BGPriority || bgPx.BGPriority
			useObj = !(behind && bgPx.Color != 0)
		}
	}

	if p.dmgMode {
		if useObj {
			palette := p.obp0
			if objPx.DMGPalette != 0 {
				palette = p.obp1
			}
			return dmgShades[(palette>>(objPx.Color*2))&0x03]
		}
		return dmgShades[(p.bgp>>(bgPx.Color*2))&0x03]
	}

	if useObj {
		base := objPx.Palette*8 + objPx.Color*2
		return expand555(p.objCRAM[base], p.objCRAM[base+1])
	}
	base := bgPx.Palette*8 + bgPx.Color*2
	return expand555(p.bgCRAM[base], p.bgCRAM[base+1])
}

// endOfLine advances LY and steps the line-level state machine.
func (p *PPU) endOfLine() {
	if p.windowThisLine {
		p.windowLine++
		p.windowThisLine = false
	}

	switch {
	case p.ly < visibleLines-1:
		p.setLY(p.ly + 1)
		p.setMode(OAMScanMode)
	case p.ly == visibleLines-1:
		p.setLY(p.ly + 1)
		p.enterVBlank()
	case p.ly < totalLines-1:
		p.setLY(p.ly + 1)
	default:
		p.setLY(0)
		p.windowLine = 0
		p.setMode(OAMScanMode)
	}
}

// enterVBlank swaps the framebuffers, publishes the completed frame and
// raises the VBlank interrupt.
func (p *PPU) enterVBlank() {
	p.front, p.back = p.back, p.front
	p.setMode(VBlankMode)
	p.irq(addr.VBlankInterrupt)
	if p.onFrame != nil {
		p.onFrame(p.front)
	}
}

// setMode updates the mode bits in STAT and raises the LCD STAT interrupt
// when the new mode's source is selected. Only transitions fire.
func (p *PPU) setMode(mode Mode) {
	if p.mode == mode {
		return
	}
	p.mode = mode
	p.stat = (p.stat & 0xFC) | uint8(mode)

	var source uint8
	switch mode {
	case HBlankMode:
		source = statHBlankIRQ
	case VBlankMode:
		source = statVBlankIRQ
	case OAMScanMode:
		source = statOAMIRQ
	default:
		return
	}
	if bit.IsSet(source, p.stat) {
		p.irq(addr.LCDSTATInterrupt)
	}
}

// setLY updates the current scanline and re-evaluates the LYC comparison.
func (p *PPU) setLY(line int) {
	p.ly = line
	p.compareLYC()
}

func (p *PPU) compareLYC() {
	if uint8(p.ly) == p.lyc {
		if !bit.IsSet(statLycEqual, p.stat) {
			p.stat = bit.Set(statLycEqual, p.stat)
			if bit.IsSet(statLycIRQ, p.stat) {
				p.irq(addr.LCDSTATInterrupt)
			}
		}
	} else {
		p.stat = bit.Reset(statLycEqual, p.stat)
	}
}

// Read returns the value of a PPU-owned address: VRAM, OAM or a register.
func (p *PPU) Read(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		return p.vram[p.vbk][address&0x1FFF]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return p.oam[address-addr.OAMStart]
	}

	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return 0x80 | (p.stat &^ 0x03) | uint8(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return uint8(p.ly)
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	case addr.VBK:
		return 0xFE | p.vbk
	case addr.BCPS:
		return p.bgpi
	case addr.BCPD:
		if p.mode == DrawMode {
			return 0xFF
		}
		return p.bgCRAM[p.bgpi&0x3F]
	case addr.OCPS:
		return p.obpi
	case addr.OCPD:
		if p.mode == DrawMode {
			return 0xFF
		}
		return p.objCRAM[p.obpi&0x3F]
	case addr.OPRI:
		return 0xFE | (p.opri & 0x01)
	}
	return 0xFF
}

// Write stores to a PPU-owned address, honoring the read-only masks.
func (p *PPU) Write(address uint16, value uint8) {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		p.vram[p.vbk][address&0x1FFF] = value
		return
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		p.oam[address-addr.OAMStart] = value
		return
	}

	switch address {
	case addr.LCDC:
		wasOn := bit.IsSet(lcdcEnable, p.lcdc)
		p.lcdc = value
		if wasOn && !bit.IsSet(lcdcEnable, value) {
			p.disableLCD()
		} else if !wasOn && bit.IsSet(lcdcEnable, value) {
			// restart on a fresh line
			p.lineDot = 0
			p.setMode(OAMScanMode)
			p.compareLYC()
		}
	case addr.STAT:
		// bits 0-2 are read-only
		p.stat = (p.stat & 0x07) | (value & 0xF8)
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only
	case addr.LYC:
		p.lyc = value
		p.compareLYC()
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	case addr.VBK:
		p.vbk = value & 0x01
	case addr.BCPS:
		p.bgpi = value & 0xBF
	case addr.BCPD:
		if p.mode != DrawMode {
			p.bgCRAM[p.bgpi&0x3F] = value
		}
		if bit.IsSet(7, p.bgpi) {
			p.bgpi = 0x80 | ((p.bgpi + 1) & 0x3F)
		}
	case addr.OCPS:
		p.obpi = value & 0xBF
	case addr.OCPD:
		if p.mode != DrawMode {
			p.objCRAM[p.obpi&0x3F] = value
		}
		if bit.IsSet(7, p.obpi) {
			p.obpi = 0x80 | ((p.obpi + 1) & 0x3F)
		}
	case addr.OPRI:
		p.opri = value & 0x01
	}
}

// disableLCD holds the PPU in a blank state: LY at 0, mode 0, no interrupts,
// and the front buffer frozen.
func (p *PPU) disableLCD() {
	p.ly = 0
	p.lineDot = 0
	p.lx = 0
	p.mode = HBlankMode
	p.stat &= 0xFC
	p.scanObjs = p.scanObjs[:0]
	p.windowLine = 0
	p.windowThisLine = false
}
