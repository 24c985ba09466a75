package bitmap

import "image/color"

// Luma1000 returns 1000 × (0.299R + 0.587G + 0.114B) on the 0..255 scale, in
// integer arithmetic so the threshold comparison is exact. Partially
// transparent colors are flattened onto white first.
func Luma1000(c color.Color) int {
	r, g, b, a := c.RGBA()
	matte := 0xffff - a
	r8 := int((r + matte) >> 8)
	g8 := int((g + matte) >> 8)
	b8 := int((b + matte) >> 8)
	return 299*r8 + 587*g8 + 114*b8
}

// IsWhite applies the hard luma threshold: strictly above Threshold is white.
func IsWhite(c color.Color) bool {
	return Luma1000(c) > Threshold*1000
}
