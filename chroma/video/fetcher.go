package video

import "github.com/mkoenig/go-chroma/chroma/bit"

// The pixel fetcher runs two 7-step pipelines, one for the background/window
// layer and one for objects. Each step takes one dot. The BG pipeline runs
// until an object becomes due at the current screen X, which suspends it
// until the object's row has been fetched and merged into the OBJ FIFO.
type fetchState int

const (
	fetchGetTile0 fetchState = iota
	fetchGetTile1
	fetchDataLo0
	fetchDataLo1
	fetchDataHi0
	fetchDataHi1
	fetchPush
	fetchSuspended
)

type fetcher struct {
	bgState      fetchState
	bgFIFO       pixelFIFO
	bgTileNumber uint8
	bgTileAttr   uint8
	bgTileData   [2]uint8
	bgFineY      uint8

	objState      fetchState
	objFIFO       pixelFIFO
	objTileNumber uint8
	objTileData   [2]uint8
	objRow        uint8

	x int // background fetch position within the scanline, in pixels
}

func (f *fetcher) startLine() {
	f.bgFIFO.Clear()
	f.objFIFO.Clear()
	f.bgState = fetchGetTile0
	f.objState = fetchSuspended
	f.x = 0
}

// tickFetcher advances both pipelines by one dot.
func (p *PPU) tickFetcher() {
	if p.fetch.objState == fetchSuspended && p.scanRead < len(p.scanObjs) {
		spr := p.scanObjs[p.scanRead]
		if int(spr.x) <= p.lx+8 {
			if bit.IsSet(lcdcObjEnable, p.lcdc) {
				// sprite due at this X: pause the BG pipeline
				p.fetch.bgState = fetchSuspended
				p.fetch.objState = fetchGetTile0
			} else {
				p.scanRead++
			}
		}
	}

	p.tickObjPipeline()
	p.tickBGPipeline()
}

func (p *PPU) tickObjPipeline() {
	f := &p.fetch

	switch f.objState {
	case fetchGetTile0:
		spr := p.scanObjs[p.scanRead]
		row := uint8(p.ly) - (spr.y - 16)
		if bit.IsSet(6, spr.attr) {
			row = uint8(p.objSize) - 1 - row
		}
		tile := spr.tile
		if p.objSize == 16 {
			if row >= 8 {
				tile = spr.tile | 0x01
				row -= 8
			} else {
				tile = spr.tile & 0xFE
			}
		}
		f.objTileNumber = tile
		f.objRow = row
		f.objState++

	case fetchDataLo0:
		f.objTileData[0] = p.readObjTileByte(0)
		f.objState++

	case fetchDataHi0:
		f.objTileData[1] = p.readObjTileByte(1)
		f.objState++

	case fetchDataHi1:
		f.objState++
		fallthrough
	case fetchPush:
		p.pushObjPixels()
		p.scanRead++
		f.objState = fetchSuspended
		f.bgState = fetchGetTile0

	case fetchSuspended:
		// idle until a sprite becomes due

	default: // fetchGetTile1, fetchDataLo1
		f.objState++
	}
}

// readObjTileByte reads one byte of the current object's tile row. Objects
// always use 0x8000 addressing; in color mode the OAM attribute selects the
// VRAM bank.
func (p *PPU) readObjTileByte(hiLo uint8) uint8 {
	spr := p.scanObjs[p.scanRead]
	bank := 0
	if !p.dmgMode && bit.IsSet(3, spr.attr) {
		bank = 1
	}
	offset := uint16(p.fetch.objTileNumber)*16 + uint16(p.fetch.objRow)*2 + uint16(hiLo)
	return p.vram[bank][offset]
}

// pushObjPixels merges the fetched object row into the OBJ FIFO. Pixels
// already in the FIFO belong to higher-priority objects and keep their slot
// unless they are transparent.
func (p *PPU) pushObjPixels() {
	f := &p.fetch
	spr := p.scanObjs[p.scanRead]

	// clip the part of the sprite that is left of the current X
	numPixels := int(spr.x) - p.lx
	if numPixels > 8 {
		numPixels = 8
	}

	var incoming [8]Pixel
	count := 0
	hflip := bit.IsSet(5, spr.attr)
	for i := 0; i < numPixels; i++ {
		b := uint8(numPixels - 1 - i)
		if hflip {
			b = uint8(i)
		}
		incoming[count] = Pixel{
			Color:      bit.Value(b, f.objTileData[0]) | bit.Value(b, f.objTileData[1])<<1,
			Palette:    spr.attr & 0x07,
			DMGPalette: bit.Value(4, spr.attr),
			BGPriority: bit.IsSet(7, spr.attr),
		}
		count++
	}

	var existing [8]Pixel
	existingCount := 0
	for {
		px, ok := f.objFIFO.Pop()
		if !ok {
			break
		}
		existing[existingCount] = px
		existingCount++
	}

	for i := 0; i < 8; i++ {
		switch {
		case i < existingCount && i < count:
			if existing[i].Color == 0 {
				f.objFIFO.Push(incoming[i])
			} else {
				f.objFIFO.Push(existing[i])
			}
		case i < existingCount:
			f.objFIFO.Push(existing[i])
		case i < count:
			f.objFIFO.Push(incoming[i])
		default:
			return
		}
	}
}

func (p *PPU) tickBGPipeline() {
	f := &p.fetch

	switch f.bgState {
	case fetchGetTile0:
		inWindow := p.windowReached()

		mapBase := uint16(0x1800) // 0x9800 relative to VRAM
		if (!inWindow && bit.IsSet(lcdcBGTileMap, p.lcdc)) ||
			(inWindow && bit.IsSet(lcdcWindowTileMap, p.lcdc)) {
			mapBase = 0x1C00
		}

		var tileX, tileY int
		if inWindow {
			tileX = (f.x - (int(p.wx) - 7)) / 8
			tileY = p.windowLine / 8
			f.bgFineY = uint8(p.windowLine) & 7
			p.windowThisLine = true
		} else {
			tileX = ((int(p.scx) / 8) + (f.x / 8)) & 0x1F
			tileY = ((p.ly + int(p.scy)) & 0xFF) / 8
			f.bgFineY = uint8(p.ly+int(p.scy)) & 7
		}

		index := mapBase + uint16(tileY)*32 + uint16(tileX)
		f.bgTileNumber = p.vram[0][index]
		if p.dmgMode {
			f.bgTileAttr = 0
		} else {
			f.bgTileAttr = p.vram[1][index]
		}
		f.bgState++

	case fetchDataLo0:
		f.bgTileData[0] = p.readBGTileByte(0)
		f.bgState++

	case fetchDataHi0:
		f.bgTileData[1] = p.readBGTileByte(1)
		f.bgState++

	case fetchDataHi1:
		f.bgState++
		fallthrough
	case fetchPush:
		if f.bgFIFO.Len() == 0 {
			hflip := bit.IsSet(5, f.bgTileAttr)
			for i := 0; i < 8; i++ {
				b := uint8(7 - i)
				if hflip {
					b = uint8(i)
				}
				f.bgFIFO.Push(Pixel{
					Color:      bit.Value(b, f.bgTileData[0]) | bit.Value(b, f.bgTileData[1])<<1,
					Palette:    f.bgTileAttr & 0x07,
					BGPriority: bit.IsSet(7, f.bgTileAttr),
				})
			}
			f.x += 8
			f.bgState = fetchGetTile0
		}

	case fetchSuspended:
		// an object fetch owns the bus

	default: // fetchGetTile1, fetchDataLo1
		f.bgState++
	}
}

// readBGTileByte reads one byte of the current BG/window tile row, honoring
// the LCDC.4 addressing mode and the CGB attribute flips and bank.
func (p *PPU) readBGTileByte(hiLo uint8) uint8 {
	f := &p.fetch

	bank := 0
	if !p.dmgMode && bit.IsSet(3, f.bgTileAttr) {
		bank = 1
	}

	row := f.bgFineY
	if bit.IsSet(6, f.bgTileAttr) {
		row = 7 - row
	}

	var base uint16
	if bit.IsSet(lcdcTileData, p.lcdc) {
		base = uint16(f.bgTileNumber) * 16
	} else {
		// signed indexing around 0x9000
		base = uint16(0x1000 + int(int8(f.bgTileNumber))*16)
	}
	return p.vram[bank][base+uint16(row)*2+uint16(hiLo)]
}

// windowReached reports whether the fetcher has entered the window layer at
// its current X position.
func (p *PPU) windowReached() bool {
	if !bit.IsSet(lcdcWindowEnable, p.lcdc) {
		return false
	}
	return p.ly >= int(p.wy) && p.fetch.x >= int(p.wx)-7
}
