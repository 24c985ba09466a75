package model

import "time"

// Task is one active item fetched from Todoist. Values are compared with ==,
// so every field counts when deciding whether the display must be redrawn.
type Task struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Due         Date   `json:"due"`
}

// HasDue reports whether the task carries a due date.
func (t Task) HasDue() bool {
	return !t.Due.IsZero()
}

// DueBy reports whether the task is due on or before day.
func (t Task) DueBy(day Date) bool {
	return t.HasDue() && !t.Due.After(day)
}

// Selection is either a chosen task or the "no eligible task" sentinel.
type Selection struct {
	Task  Task `json:"task"`
	Found bool `json:"found"`
}

func NoTask() Selection {
	return Selection{}
}

func Selected(t Task) Selection {
	return Selection{Task: t, Found: true}
}

// RenderEvent is one journal row written after a successful redraw.
type RenderEvent struct {
	ID         int64     `json:"id"`
	CycleID    string    `json:"cycle_id"`
	TaskID     string    `json:"task_id,omitempty"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	RenderedAt time.Time `json:"rendered_at"`
}

const (
	RenderKindTask      = "task"
	RenderKindIdleText  = "idle_text"
	RenderKindIdleImage = "idle_image"
)
