package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/gate"
	"github.com/BuzzLyutic/todo-display/internal/model"
	"github.com/BuzzLyutic/todo-display/internal/todoist"
)

// DefaultIdleTitle is shown when no task is due.
const DefaultIdleTitle = "Nothing due"

// Selector picks the task for the calendar day of now.
type Selector interface {
	Select(ctx context.Context, now time.Time) (model.Selection, error)
}

// Renderer draws a screen on the panel.
type Renderer interface {
	RenderTitle(ctx context.Context, title, subtitle string) error
	RenderImageFile(ctx context.Context, path string) error
}

// Recorder keeps a journal of successful redraws.
type Recorder interface {
	Record(ctx context.Context, ev model.RenderEvent) error
}

// IdleScreen is what the panel shows when no task is eligible. ImagePath wins
// over Title when set.
type IdleScreen struct {
	Title     string
	ImagePath string
}

// Outcome tells the caller what a cycle did.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeUnchanged
	OutcomeRendered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRendered:
		return "rendered"
	default:
		return "failed"
	}
}

// Cycle runs one fetch → select → compare → render pass.
type Cycle struct {
	source   Selector
	gate     *gate.Gate
	renderer Renderer
	journal  Recorder
	idle     IdleScreen
	logger   *zap.Logger
}

func NewCycle(source Selector, g *gate.Gate, renderer Renderer, journal Recorder, idle IdleScreen, logger *zap.Logger) *Cycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(idle.Title) == "" {
		idle.Title = DefaultIdleTitle
	}
	return &Cycle{
		source:   source,
		gate:     g,
		renderer: renderer,
		journal:  journal,
		idle:     idle,
		logger:   logger,
	}
}

// Run executes one cycle at the given time. On any error the gate is left
// untouched so the next cycle retries the same content.
func (c *Cycle) Run(ctx context.Context, now time.Time) (Outcome, error) {
	cycleID := uuid.NewString()
	log := c.logger.With(zap.String("cycle_id", cycleID))
	log.Info("Checking for updates")

	sel, err := c.source.Select(ctx, now)
	if err != nil {
		if todoist.IsAuthError(err) {
			log.Error("Todoist rejected the API token, check TODOIST_PERSONAL_TOKEN")
		}
		return OutcomeFailed, fmt.Errorf("select task: %w", err)
	}
	if sel.Found {
		log.Debug("Selected task",
			zap.String("task_id", sel.Task.ID),
			zap.Int("priority", sel.Task.Priority),
			zap.Stringer("due", sel.Task.Due),
		)
	}

	if !c.gate.ShouldUpdate(sel) {
		log.Info("No changes for latest task")
		return OutcomeUnchanged, nil
	}
	log.Info("Latest task has changed")

	ev, err := c.render(ctx, sel)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("render: %w", err)
	}
	c.gate.Commit(sel)
	log.Info("Display updated", zap.String("kind", ev.Kind), zap.String("title", ev.Title))

	if c.journal != nil {
		ev.CycleID = cycleID
		ev.RenderedAt = now
		if err := c.journal.Record(ctx, ev); err != nil {
			log.Warn("failed to record render", zap.Error(err))
		}
	}
	return OutcomeRendered, nil
}

func (c *Cycle) render(ctx context.Context, sel model.Selection) (model.RenderEvent, error) {
	if sel.Found {
		ev := model.RenderEvent{TaskID: sel.Task.ID, Title: sel.Task.Content, Kind: model.RenderKindTask}
		return ev, c.renderer.RenderTitle(ctx, sel.Task.Content, sel.Task.Description)
	}
	if c.idle.ImagePath != "" {
		ev := model.RenderEvent{Title: c.idle.ImagePath, Kind: model.RenderKindIdleImage}
		return ev, c.renderer.RenderImageFile(ctx, c.idle.ImagePath)
	}
	ev := model.RenderEvent{Title: c.idle.Title, Kind: model.RenderKindIdleText}
	return ev, c.renderer.RenderTitle(ctx, c.idle.Title, "")
}
