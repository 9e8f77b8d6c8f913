package video

// Screen dimensions and pixel format. Pixels are ARGB8888.
const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// dmgShades maps the four DMG palette indices to greys.
var dmgShades = [4]uint32{0xFFFFFFFF, 0xFFAAAAAA, 0xFF555555, 0xFF000000}

// FrameBuffer is one 160x144 ARGB image. The PPU owns two of them and swaps
// front/back on entry into vertical blank; the host only ever sees the front.
type FrameBuffer struct {
	buffer []uint32
}

// NewFrameBuffer allocates a cleared framebuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{buffer: make([]uint32, FramebufferSize)}
}

// GetPixel returns the ARGB pixel at x, y.
func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

// SetPixel sets the ARGB pixel at x, y.
func (fb *FrameBuffer) SetPixel(x, y int, color uint32) {
	fb.buffer[y*FramebufferWidth+x] = color
}

// ToSlice exposes the raw pixel slice, row-major.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// CopyInto copies the frame into dst, which must hold FramebufferSize pixels.
func (fb *FrameBuffer) CopyInto(dst []uint32) {
	copy(dst, fb.buffer)
}

// Clear resets the framebuffer to white (the LCD-off color).
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = dmgShades[0]
	}
}

// expand555 converts a 15-bit little-endian BGR color from palette RAM to
// ARGB8888, widening each 5-bit channel by a 3-bit shift.
func expand555(lo, hi uint8) uint32 {
	color := uint16(lo) | uint16(hi)<<8
	r := uint32(color&0x001F) << 3
	g := uint32(color&0x03E0) >> 5 << 3
	b := uint32(color&0x7C00) >> 10 << 3
	return 0xFF000000 | r<<16 | g<<8 | b
}
