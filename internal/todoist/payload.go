package todoist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BuzzLyutic/todo-display/internal/model"
)

const (
	minPriority = 1
	maxPriority = 4
)

// taskID accepts both the numeric ids of REST v1 and the string ids of later
// API versions.
type taskID string

func (id *taskID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = taskID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = taskID(n.String())
	return nil
}

type duePayload struct {
	Date      string `json:"date"`
	Datetime  string `json:"datetime,omitempty"`
	String    string `json:"string,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

type taskPayload struct {
	ID          taskID      `json:"id"`
	Content     string      `json:"content"`
	Description string      `json:"description"`
	Priority    *int        `json:"priority"`
	Due         *duePayload `json:"due"`
}

func (p taskPayload) toModel() (model.Task, error) {
	if p.ID == "" {
		return model.Task{}, fmt.Errorf("%w: task without id", ErrParse)
	}
	if strings.TrimSpace(p.Content) == "" {
		return model.Task{}, fmt.Errorf("%w: task %s has empty content", ErrParse, p.ID)
	}
	if p.Priority == nil {
		return model.Task{}, fmt.Errorf("%w: task %s has no priority", ErrParse, p.ID)
	}
	if *p.Priority < minPriority || *p.Priority > maxPriority {
		return model.Task{}, fmt.Errorf("%w: task %s priority %d out of range", ErrParse, p.ID, *p.Priority)
	}

	t := model.Task{
		ID:          string(p.ID),
		Content:     p.Content,
		Description: p.Description,
		Priority:    *p.Priority,
	}
	if p.Due != nil && strings.TrimSpace(p.Due.Date) != "" {
		due, err := model.ParseDate(p.Due.Date)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %s: %w", ErrParse, p.ID, err)
		}
		t.Due = due
	}
	return t, nil
}

// decodeTasks validates the whole response; one bad task rejects the batch.
func decodeTasks(raw []byte) ([]model.Task, error) {
	var payload []taskPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	tasks := make([]model.Task, 0, len(payload))
	seen := make(map[string]struct{}, len(payload))
	for _, p := range payload {
		t, err := p.toModel()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate task id %s", ErrParse, t.ID)
		}
		seen[t.ID] = struct{}{}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
