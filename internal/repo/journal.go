package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-display/internal/model"
)

var ErrInvalidEvent = errors.New("invalid render event")

// JournalRepo appends render events to Postgres. It is write-mostly: nothing
// reads it back to restore display state.
type JournalRepo struct {
	pool *pgxpool.Pool
}

func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

func (r *JournalRepo) Record(ctx context.Context, ev model.RenderEvent) error {
	cycleID, err := uuid.Parse(ev.CycleID)
	if err != nil {
		return errors.Join(ErrInvalidEvent, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO render_events (cycle_id, task_id, title, kind, rendered_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cycleID, ev.TaskID, ev.Title, ev.Kind, ev.RenderedAt)
	return err
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]model.RenderEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, cycle_id::text, task_id, title, kind, rendered_at
		FROM render_events
		ORDER BY rendered_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.RenderEvent, 0, limit)
	for rows.Next() {
		var ev model.RenderEvent
		if err := rows.Scan(&ev.ID, &ev.CycleID, &ev.TaskID, &ev.Title, &ev.Kind, &ev.RenderedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
