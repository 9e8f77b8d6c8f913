package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Equal(t, uint16(0x1234), Combine(0x12, 0x34))
	assert.Equal(t, uint8(0x12), High(0x1234))
	assert.Equal(t, uint8(0x34), Low(0x1234))
}

func TestSetResetIsSet(t *testing.T) {
	var v uint8

	v = Set(3, v)
	assert.True(t, IsSet(3, v))
	assert.Equal(t, uint8(0x08), v)

	v = Reset(3, v)
	assert.False(t, IsSet(3, v))
	assert.Zero(t, v)
}

func TestIsSet16(t *testing.T) {
	assert.True(t, IsSet16(9, 1<<9))
	assert.False(t, IsSet16(9, 1<<8))
}

func TestValue(t *testing.T) {
	assert.Equal(t, uint8(1), Value(7, 0x80))
	assert.Equal(t, uint8(0), Value(6, 0x80))
}

func TestExtractBits(t *testing.T) {
	assert.Equal(t, uint8(0b101), ExtractBits(0b1101_0110, 6, 4))
	assert.Equal(t, uint8(0b0110), ExtractBits(0b1101_0110, 3, 0))
	assert.Equal(t, uint8(1), ExtractBits(0b1000_0000, 7, 7))
}
