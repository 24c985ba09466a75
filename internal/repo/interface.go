package repo

import (
	"context"

	"github.com/BuzzLyutic/todo-display/internal/model"
)

// RenderJournal определяет интерфейс журнала отрисовок
type RenderJournal interface {
	Record(ctx context.Context, ev model.RenderEvent) error
	Recent(ctx context.Context, limit int) ([]model.RenderEvent, error)
}
