package display

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
)

// PNGPanel stands in for the e-paper panel on hosts without SPI: every frame
// is written to a PNG file.
type PNGPanel struct {
	path   string
	width  int
	height int
	logger *zap.Logger

	mu     sync.Mutex
	frames int
	asleep bool
}

func NewPNGPanel(path string, width, height int, logger *zap.Logger) *PNGPanel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PNGPanel{path: path, width: width, height: height, logger: logger}
}

func (p *PNGPanel) Init(ctx context.Context) error {
	if p.width <= 0 || p.height <= 0 {
		return fmt.Errorf("%w: invalid panel size %dx%d", ErrHardware, p.width, p.height)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("%w: ensure output dir: %w", ErrHardware, err)
	}
	p.mu.Lock()
	p.asleep = false
	p.mu.Unlock()
	p.logger.Info("PNG panel ready", zap.String("path", p.path), zap.Int("width", p.width), zap.Int("height", p.height))
	return nil
}

func (p *PNGPanel) Size() (int, int) { return p.width, p.height }

func (p *PNGPanel) Write(ctx context.Context, frame *bitmap.Bitmap) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrHardware, err)
	}
	if frame.Width() != p.width || frame.Height() != p.height {
		return fmt.Errorf("%w: frame %dx%d does not match panel %dx%d",
			ErrHardware, frame.Width(), frame.Height(), p.width, p.height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tmp := p.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create frame file: %w", ErrHardware, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("%w: encode frame: %w", ErrHardware, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close frame file: %w", ErrHardware, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("%w: publish frame: %w", ErrHardware, err)
	}
	p.frames++
	p.asleep = false
	return nil
}

func (p *PNGPanel) Clear(ctx context.Context) error {
	return p.Write(ctx, bitmap.New(p.width, p.height))
}

func (p *PNGPanel) Sleep(ctx context.Context) error {
	p.mu.Lock()
	p.asleep = true
	p.mu.Unlock()
	return nil
}

func (p *PNGPanel) Close() error { return nil }

// Frames returns how many frames were written.
func (p *PNGPanel) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *PNGPanel) Asleep() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asleep
}
