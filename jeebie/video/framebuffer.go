package video

// GBColor is a packed RGBA8 pixel, top byte red, low byte alpha.
type GBColor uint32

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// The fixed DMG-green palette, indexed by 2-bit color index.
const (
	Color0White GBColor = 0x7B8210FF
	Color1Light GBColor = 0x5A7942FF
	Color2Dark  GBColor = 0x39594AFF
	Color3Black GBColor = 0x294139FF
)

var palette = [4]GBColor{Color0White, Color1Light, Color2Dark, Color3Black}

// ByteToColor maps a 2-bit color index (already BGP-translated) to its
// fixed DMG-green RGBA8 value.
func ByteToColor(index byte) GBColor {
	return palette[index&0x03]
}

// FrameBuffer is a 160x144 RGBA8 back-buffer.
type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: make([]uint32, FramebufferSize),
	}
}

// Clone returns an independent copy, for handing a finished frame to a
// channel while the PPU keeps painting into its own back-buffer.
func (fb *FrameBuffer) Clone() *FrameBuffer {
	clone := &FrameBuffer{width: fb.width, height: fb.height, buffer: make([]uint32, len(fb.buffer))}
	copy(clone.buffer, fb.buffer)
	return clone
}

func (fb FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clear paints the buffer white, matching the LCD-disabled blank screen.
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(Color0White)
	}
}

// ToRGBA8 packs the buffer into the 160*144*4-byte wire format: row-major,
// top-to-bottom, RGBA8 per pixel.
func (fb *FrameBuffer) ToRGBA8() []byte {
	data := make([]byte, len(fb.buffer)*4)
	for i, pixel := range fb.buffer {
		data[i*4] = byte(pixel >> 24)
		data[i*4+1] = byte(pixel >> 16)
		data[i*4+2] = byte(pixel >> 8)
		data[i*4+3] = byte(pixel)
	}
	return data
}

// ToGrayscale reduces the buffer to one 2-bit color index per pixel, for
// conformance-style comparisons that don't care about the exact palette.
func (fb *FrameBuffer) ToGrayscale() []byte {
	data := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		switch GBColor(pixel) {
		case Color0White:
			data[i] = 0
		case Color1Light:
			data[i] = 1
		case Color2Dark:
			data[i] = 2
		case Color3Black:
			data[i] = 3
		}
	}
	return data
}
