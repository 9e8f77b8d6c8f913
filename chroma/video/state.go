package video

import (
	"bytes"
	"encoding/gob"
)

// ppuState is the serialized form of the PPU: registers, memories and the
// mid-line fetcher position, so a restore resumes dot-exact.
type ppuState struct {
	VRAM [2][0x2000]uint8
	OAM  [0xA0]uint8

	LCDC, STAT       uint8
	SCY, SCX         uint8
	LYC              uint8
	BGP, OBP0, OBP1  uint8
	WY, WX           uint8
	VBK              uint8
	BGPI, OBPI, OPRI uint8
	BGCRAM, OBJCRAM  [64]uint8

	Mode       uint8
	LY         int
	LineDot    int
	LX         int
	XDiscard   int
	PixelDelay int
	ObjSize    int

	ScanObjs []spriteState
	ScanRead int

	Fetch fetcherState

	WindowLine     int
	WindowThisLine bool

	Front, Back []uint32
}

type fetcherState struct {
	BGState      uint8
	BGFIFO       fifoState
	BGTileNumber uint8
	BGTileAttr   uint8
	BGTileData   [2]uint8
	BGFineY      uint8

	ObjState      uint8
	ObjFIFO       fifoState
	ObjTileNumber uint8
	ObjTileData   [2]uint8
	ObjRow        uint8

	X int
}

type fifoState struct {
	Data             [fifoSlots]Pixel
	Head, Tail, Size int
}

type spriteState struct {
	Y, X, Tile, Attr uint8
	OAMIndex         uint8
}

// SaveState serializes the complete PPU state.
func (p *PPU) SaveState() ([]byte, error) {
	s := ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		VBK: p.vbk,
		BGPI: p.bgpi, OBPI: p.obpi, OPRI: p.opri,
		BGCRAM: p.bgCRAM, OBJCRAM: p.objCRAM,
		Mode: uint8(p.mode), LY: p.ly, LineDot: p.lineDot, LX: p.lx,
		XDiscard: p.xDiscard, PixelDelay: p.pixelDelay, ObjSize: p.objSize,
		ScanRead: p.scanRead,
		Fetch: fetcherState{
			BGState:      uint8(p.fetch.bgState),
			BGFIFO:       fifoState{p.fetch.bgFIFO.data, p.fetch.bgFIFO.head, p.fetch.bgFIFO.tail, p.fetch.bgFIFO.size},
			BGTileNumber: p.fetch.bgTileNumber,
			BGTileAttr:   p.fetch.bgTileAttr,
			BGTileData:   p.fetch.bgTileData,
			BGFineY:      p.fetch.bgFineY,
			ObjState:     uint8(p.fetch.objState),
			ObjFIFO:      fifoState{p.fetch.objFIFO.data, p.fetch.objFIFO.head, p.fetch.objFIFO.tail, p.fetch.objFIFO.size},
			ObjTileNumber: p.fetch.objTileNumber,
			ObjTileData:   p.fetch.objTileData,
			ObjRow:        p.fetch.objRow,
			X:             p.fetch.x,
		},
		WindowLine:     p.windowLine,
		WindowThisLine: p.windowThisLine,
		Front:          append([]uint32(nil), p.front.buffer...),
		Back:           append([]uint32(nil), p.back.buffer...),
	}
	for _, spr := range p.scanObjs {
		s.ScanObjs = append(s.ScanObjs, spriteState{
			Y: spr.y, X: spr.x, Tile: spr.tile, Attr: spr.attr,
			OAMIndex: spr.oamIndex,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores the PPU from a SaveState blob.
func (p *PPU) LoadState(data []byte) error {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.lyc = s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.vbk = s.VBK
	p.bgpi, p.obpi, p.opri = s.BGPI, s.OBPI, s.OPRI
	p.bgCRAM, p.objCRAM = s.BGCRAM, s.OBJCRAM
	p.mode = Mode(s.Mode)
	p.ly, p.lineDot, p.lx = s.LY, s.LineDot, s.LX
	p.xDiscard, p.pixelDelay, p.objSize = s.XDiscard, s.PixelDelay, s.ObjSize
	p.scanObjs = p.scanObjs[:0]
	for _, spr := range s.ScanObjs {
		p.scanObjs = append(p.scanObjs, sprite{
			y: spr.Y, x: spr.X, tile: spr.Tile, attr: spr.Attr,
			oamIndex: spr.OAMIndex,
		})
	}
	p.scanRead = s.ScanRead

	p.fetch = fetcher{
		bgState:      fetchState(s.Fetch.BGState),
		bgFIFO:       pixelFIFO{s.Fetch.BGFIFO.Data, s.Fetch.BGFIFO.Head, s.Fetch.BGFIFO.Tail, s.Fetch.BGFIFO.Size},
		bgTileNumber: s.Fetch.BGTileNumber,
		bgTileAttr:   s.Fetch.BGTileAttr,
		bgTileData:   s.Fetch.BGTileData,
		bgFineY:      s.Fetch.BGFineY,
		objState:     fetchState(s.Fetch.ObjState),
		objFIFO:      pixelFIFO{s.Fetch.ObjFIFO.Data, s.Fetch.ObjFIFO.Head, s.Fetch.ObjFIFO.Tail, s.Fetch.ObjFIFO.Size},
		objTileNumber: s.Fetch.ObjTileNumber,
		objTileData:   s.Fetch.ObjTileData,
		objRow:        s.Fetch.ObjRow,
		x:             s.Fetch.X,
	}

	p.windowLine = s.WindowLine
	p.windowThisLine = s.WindowThisLine
	copy(p.front.buffer, s.Front)
	copy(p.back.buffer, s.Back)
	return nil
}
