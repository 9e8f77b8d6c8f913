package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Cartridge header layout, byte for byte. The header is parsed explicitly
// instead of reinterpreting a struct so the result does not depend on
// alignment or endianness.
const (
	headerTitleStart = 0x0134
	headerTitleEnd   = 0x0143
	headerCGBFlag    = 0x0143
	headerCartType   = 0x0147
	headerROMSize    = 0x0148
	headerRAMSize    = 0x0149
	headerChecksum   = 0x014D

	headerEnd = 0x0150

	romBankSize = 0x4000
	ramBankSize = 0x2000

	maxROMBanks = 512
)

// ErrBadROM indicates a ROM image that is too small, too large or carries a
// header that fails its checksum.
var ErrBadROM = errors.New("bad ROM image")

// ErrUnsupportedMBC indicates a mapper type this emulator does not implement.
var ErrUnsupportedMBC = errors.New("unsupported MBC type")

// Cartridge holds a parsed ROM image plus the header fields the rest of the
// machine cares about.
type Cartridge struct {
	data []byte

	title    string
	cartType uint8
	romBanks int
	ramBanks int

	// dmgMode is set when the CGB flag byte says the game does not use
	// color features; the PPU then runs with the DMG shade palettes.
	dmgMode    bool
	hasBattery bool
}

// NewCartridge validates the image size and header checksum and extracts the
// header fields. It fails fast on anything malformed.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: image is %d bytes, need at least 0x%X", ErrBadROM, len(data), headerEnd)
	}
	if len(data) > maxROMBanks*romBankSize {
		return nil, fmt.Errorf("%w: image is larger than %d banks", ErrBadROM, maxROMBanks)
	}

	var checksum uint8
	for i := 0x0134; i <= 0x014C; i++ {
		checksum -= data[i] + 1
	}
	if checksum != data[headerChecksum] {
		return nil, fmt.Errorf("%w: header checksum mismatch (computed 0x%02X, header 0x%02X)",
			ErrBadROM, checksum, data[headerChecksum])
	}

	c := &Cartridge{
		data:     data,
		cartType: data[headerCartType],
		romBanks: 2 << data[headerROMSize],
		dmgMode:  data[headerCGBFlag]&0x80 == 0,
	}

	// title bytes share space with the CGB flag; stop at the first NUL
	title := data[headerTitleStart:headerTitleEnd]
	if idx := strings.IndexByte(string(title), 0); idx >= 0 {
		title = title[:idx]
	}
	c.title = string(title)

	switch data[headerRAMSize] {
	case 0x00, 0x01:
		c.ramBanks = 0
	case 0x02:
		c.ramBanks = 1
	case 0x03:
		c.ramBanks = 4
	case 0x04:
		c.ramBanks = 16
	case 0x05:
		c.ramBanks = 8
	default:
		return nil, fmt.Errorf("%w: RAM size byte 0x%02X", ErrBadROM, data[headerRAMSize])
	}

	switch c.cartType {
	case 0x1B, 0x1E:
		c.hasBattery = true
	}

	slog.Debug("parsed cartridge header",
		"title", c.title,
		"type", fmt.Sprintf("0x%02X", c.cartType),
		"rom_banks", c.romBanks,
		"ram_banks", c.ramBanks,
		"dmg_mode", c.dmgMode)

	return c, nil
}

// Title returns the game title from the header.
func (c *Cartridge) Title() string {
	return c.title
}

// DMGMode reports whether the cartridge asked for original Game Boy behavior.
func (c *Cartridge) DMGMode() bool {
	return c.dmgMode
}

// HasBattery reports whether external RAM is battery-backed.
func (c *Cartridge) HasBattery() bool {
	return c.hasBattery
}

// newMBC picks the bank controller for the cartridge type byte.
func newMBC(c *Cartridge) (MBC, error) {
	switch c.cartType {
	case 0x00:
		return NewROMOnly(c.data), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(c.data, c.ramBanks), nil
	default:
		return nil, fmt.Errorf("%w: cartridge type 0x%02X", ErrUnsupportedMBC, c.cartType)
	}
}
