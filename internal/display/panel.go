// Package display contains the physical sinks a rendered bitmap is written to.
package display

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
)

// ErrHardware wraps every failure reported by a panel.
var ErrHardware = errors.New("display: hardware error")

// Panel is an exclusively owned display surface. Geometry is fixed for the
// lifetime of the value.
type Panel interface {
	Init(ctx context.Context) error
	Size() (width, height int)
	Write(ctx context.Context, frame *bitmap.Bitmap) error
	Clear(ctx context.Context) error
	Sleep(ctx context.Context) error
	Close() error
}
