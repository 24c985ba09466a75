package render

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const (
	TitleSize    = 32
	SubtitleSize = 16
	fontDPI      = 72
)

// Fonts holds the two faces used for text screens.
type Fonts struct {
	Title    font.Face
	Subtitle font.Face
}

// LoadFonts reads a TrueType/OpenType file and builds the title and subtitle
// faces from it.
func LoadFonts(path string) (*Fonts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read font %s: %w", path, err)
	}
	return ParseFonts(data)
}

func ParseFonts(data []byte) (*Fonts, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	title, err := newFace(f, TitleSize)
	if err != nil {
		return nil, err
	}
	subtitle, err := newFace(f, SubtitleSize)
	if err != nil {
		title.Close()
		return nil, err
	}
	return &Fonts{Title: title, Subtitle: subtitle}, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("render: build %.0fpx face: %w", size, err)
	}
	return face, nil
}

func (f *Fonts) Close() error {
	if f == nil {
		return nil
	}
	return errors.Join(f.Title.Close(), f.Subtitle.Close())
}
