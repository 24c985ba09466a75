// Package bitmap holds the 1-bit frame format shared by the renderer and the
// display panels.
package bitmap

import (
	"image"
	"image/color"
)

// Threshold is the luma above which a pixel is white. Luma is computed on the
// 0..255 scale as 0.299R + 0.587G + 0.114B.
const Threshold = 128

// Model converts any color to pure black or pure white.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if IsWhite(c) {
		return color.White
	}
	return color.Black
})

// Bitmap is a width×height grid of 1-bit pixels. Rows are packed MSB first,
// padded to a whole byte, and a set bit is a white pixel.
type Bitmap struct {
	width  int
	height int
	stride int
	pix    []byte
}

// New returns an all-white bitmap.
func New(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := (width + 7) / 8
	b := &Bitmap{width: width, height: height, stride: stride, pix: make([]byte, stride*height)}
	b.Fill(true)
	return b
}

// FromImage rasterises img with the luma threshold. The result has img's size
// and its origin at (0, 0).
func FromImage(img image.Image) *Bitmap {
	r := img.Bounds()
	b := New(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			b.SetWhite(x, y, IsWhite(img.At(r.Min.X+x, r.Min.Y+y)))
		}
	}
	return b
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// Stride is the number of bytes per row.
func (b *Bitmap) Stride() int { return b.stride }

// Bytes exposes the packed rows. Callers must not modify the slice.
func (b *Bitmap) Bytes() []byte { return b.pix }

func (b *Bitmap) Fill(white bool) {
	v := byte(0x00)
	if white {
		v = 0xFF
	}
	for i := range b.pix {
		b.pix[i] = v
	}
}

func (b *Bitmap) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

// White reports whether the pixel at (x, y) is white. Out of range pixels
// read as white.
func (b *Bitmap) White(x, y int) bool {
	if !b.inBounds(x, y) {
		return true
	}
	return b.pix[y*b.stride+x/8]&(0x80>>uint(x%8)) != 0
}

// SetWhite sets a single pixel. Out of range writes are ignored.
func (b *Bitmap) SetWhite(x, y int, white bool) {
	if !b.inBounds(x, y) {
		return
	}
	i := y*b.stride + x/8
	mask := byte(0x80 >> uint(x%8))
	if white {
		b.pix[i] |= mask
	} else {
		b.pix[i] &^= mask
	}
}

// Paste copies src onto b with src's top-left corner at (x, y). Parts of src
// that fall outside b are clipped.
func (b *Bitmap) Paste(src *Bitmap, x, y int) {
	for sy := 0; sy < src.height; sy++ {
		dy := y + sy
		if dy < 0 || dy >= b.height {
			continue
		}
		for sx := 0; sx < src.width; sx++ {
			b.SetWhite(x+sx, dy, src.White(sx, sy))
		}
	}
}

// CenterOffset returns where an inner box of size (w, h) starts when centred in
// an outer box of size (outerW, outerH): half the size difference, floored.
func CenterOffset(outerW, outerH, w, h int) image.Point {
	return image.Pt(floorHalf(outerW-w), floorHalf(outerH-h))
}

func floorHalf(n int) int {
	if n >= 0 {
		return n / 2
	}
	return -((-n + 1) / 2)
}

// PasteCentered pastes src in the middle of b.
func (b *Bitmap) PasteCentered(src *Bitmap) image.Point {
	at := CenterOffset(b.width, b.height, src.width, src.height)
	b.Paste(src, at.X, at.Y)
	return at
}

func (b *Bitmap) ColorModel() color.Model { return Model }

func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

func (b *Bitmap) At(x, y int) color.Color {
	if b.White(x, y) {
		return color.White
	}
	return color.Black
}

// Opaque lets image encoders skip the alpha scan.
func (b *Bitmap) Opaque() bool { return true }

// Set implements draw.Image.
func (b *Bitmap) Set(x, y int, c color.Color) {
	b.SetWhite(x, y, IsWhite(c))
}
