// Package render composes text and images into panel-sized 1-bit frames and
// hands them to a display sink.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
	"github.com/BuzzLyutic/todo-display/internal/display"
)

// SubtitleGap is the vertical space between the title and the subtitle.
const SubtitleGap = 16

var (
	// ErrRender means the text content cannot be laid out (e.g. empty title).
	ErrRender = errors.New("render: invalid text content")
	// ErrImageDecode means the source image could not be read or decoded.
	ErrImageDecode = errors.New("render: cannot decode image")
)

// Sink receives finished frames. display.Panel satisfies it.
type Sink interface {
	Size() (width, height int)
	Write(ctx context.Context, frame *bitmap.Bitmap) error
}

type Renderer struct {
	sink   Sink
	fonts  *Fonts
	logger *zap.Logger
	width  int
	height int
}

// NewRenderer queries the sink geometry once; it does not change afterwards.
func NewRenderer(sink Sink, fonts *Fonts, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, h := sink.Size()
	return &Renderer{sink: sink, fonts: fonts, logger: logger, width: w, height: h}
}

// RenderTitle draws title centred on a blank frame, with an optional
// subtitle underneath, and writes it to the sink.
func (r *Renderer) RenderTitle(ctx context.Context, title, subtitle string) error {
	frame, err := r.ComposeTitle(title, subtitle)
	if err != nil {
		return err
	}
	r.logger.Debug("Writing title frame", zap.String("title", title))
	return r.write(ctx, frame)
}

// ComposeTitle lays out the text screen without touching the sink. Text wider
// than the panel is clipped, not wrapped.
func (r *Renderer) ComposeTitle(title, subtitle string) (*bitmap.Bitmap, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrRender)
	}
	if r.fonts == nil || r.fonts.Title == nil || r.fonts.Subtitle == nil {
		return nil, fmt.Errorf("%w: fonts not loaded", ErrRender)
	}

	canvas := image.NewGray(image.Rect(0, 0, r.width, r.height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	tw, th := measure(r.fonts.Title, title)
	at := bitmap.CenterOffset(r.width, r.height, tw, th)
	drawText(canvas, r.fonts.Title, title, at)

	if strings.TrimSpace(subtitle) != "" {
		sw, sh := measure(r.fonts.Subtitle, subtitle)
		sub := bitmap.CenterOffset(r.width, r.height, sw, sh)
		sub.Y = at.Y + th + SubtitleGap
		drawText(canvas, r.fonts.Subtitle, subtitle, sub)
	}
	return bitmap.FromImage(canvas), nil
}

// RenderImage decodes src, thresholds it to 1-bit and writes it centred on a
// blank frame.
func (r *Renderer) RenderImage(ctx context.Context, src io.Reader) error {
	frame, err := r.ComposeImage(src)
	if err != nil {
		return err
	}
	return r.write(ctx, frame)
}

func (r *Renderer) RenderImageFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	defer f.Close()
	return r.RenderImage(ctx, f)
}

func (r *Renderer) ComposeImage(src io.Reader) (*bitmap.Bitmap, error) {
	img, format, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	bmp := bitmap.FromImage(img)
	frame := bitmap.New(r.width, r.height)
	at := frame.PasteCentered(bmp)
	r.logger.Debug("Composed image frame",
		zap.String("format", format),
		zap.Int("width", bmp.Width()),
		zap.Int("height", bmp.Height()),
		zap.Int("x", at.X),
		zap.Int("y", at.Y),
	)
	return frame, nil
}

func (r *Renderer) write(ctx context.Context, frame *bitmap.Bitmap) error {
	if err := r.sink.Write(ctx, frame); err != nil {
		if errors.Is(err, display.ErrHardware) {
			return err
		}
		return fmt.Errorf("%w: %w", display.ErrHardware, err)
	}
	return nil
}

// measure returns the advance width and line height of s in face.
func measure(face font.Face, s string) (int, int) {
	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil()
}

// drawText draws s with its line box's top-left corner at at.
func drawText(dst draw.Image, face font.Face, s string, at image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(at.X), Y: fixed.I(at.Y) + face.Metrics().Ascent},
	}
	d.DrawString(s)
}
