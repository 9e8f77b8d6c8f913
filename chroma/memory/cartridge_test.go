package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildROM creates an image of the given size with a valid header.
func buildROM(size int, mutate func(rom []byte)) []byte {
	rom := make([]byte, size)
	rom[headerCartType] = 0x19 // MBC5
	rom[headerRAMSize] = 0x03  // 4 banks
	rom[headerCGBFlag] = 0x80
	copy(rom[headerTitleStart:], "CHROMATEST")
	if mutate != nil {
		mutate(rom)
	}
	fixChecksum(rom)
	return rom
}

func fixChecksum(rom []byte) {
	var checksum uint8
	for i := 0x0134; i <= 0x014C; i++ {
		checksum -= rom[i] + 1
	}
	rom[headerChecksum] = checksum
}

func TestCartridgeHeaderParsing(t *testing.T) {
	cart, err := NewCartridge(buildROM(0x8000, nil))
	require.NoError(t, err)

	assert.Equal(t, "CHROMATEST", cart.Title())
	assert.False(t, cart.DMGMode())
	assert.Equal(t, 4, cart.ramBanks)
}

func TestCartridgeChecksumMismatch(t *testing.T) {
	rom := buildROM(0x8000, nil)
	rom[headerChecksum] ^= 0xFF

	_, err := NewCartridge(rom)
	assert.ErrorIs(t, err, ErrBadROM)
}

func TestCartridgeTooSmall(t *testing.T) {
	_, err := NewCartridge(make([]byte, 0x100))
	assert.ErrorIs(t, err, ErrBadROM)
}

func TestCartridgeDMGFlag(t *testing.T) {
	cart, err := NewCartridge(buildROM(0x8000, func(rom []byte) {
		rom[headerCGBFlag] = 0x00
	}))
	require.NoError(t, err)
	assert.True(t, cart.DMGMode())
}

func TestCartridgeBatteryTypes(t *testing.T) {
	cart, err := NewCartridge(buildROM(0x8000, func(rom []byte) {
		rom[headerCartType] = 0x1B // MBC5+RAM+BATTERY
	}))
	require.NoError(t, err)
	assert.True(t, cart.HasBattery())
}

func TestUnsupportedMBCRejected(t *testing.T) {
	cart, err := NewCartridge(buildROM(0x8000, func(rom []byte) {
		rom[headerCartType] = 0x01 // MBC1
	}))
	require.NoError(t, err)

	_, err = newMBC(cart)
	assert.ErrorIs(t, err, ErrUnsupportedMBC)
}
