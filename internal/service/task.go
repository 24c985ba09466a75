package service

import (
	"context"
	"sort"
	"time"

	"github.com/BuzzLyutic/todo-display/internal/model"
	"github.com/BuzzLyutic/todo-display/internal/todoist"
)

// TaskFetcher returns the active tasks in API order.
type TaskFetcher interface {
	Tasks(ctx context.Context) ([]model.Task, error)
}

// TaskSource fetches tasks and picks the one to show.
type TaskSource struct {
	fetcher TaskFetcher
}

func NewTaskSource(fetcher TaskFetcher) *TaskSource {
	return &TaskSource{fetcher: fetcher}
}

// Select fetches the current tasks and applies SelectTask for the calendar
// day of now.
func (s *TaskSource) Select(ctx context.Context, now time.Time) (model.Selection, error) {
	if s.fetcher == nil {
		return model.NoTask(), todoist.ErrMissingToken
	}
	tasks, err := s.fetcher.Tasks(ctx)
	if err != nil {
		return model.NoTask(), err
	}
	return SelectTask(tasks, model.DateOf(now)), nil
}

// RankTasks keeps the tasks due on or before today and orders them by
// priority, highest first. Tasks of equal priority keep their fetch order.
func RankTasks(tasks []model.Task, today model.Date) []model.Task {
	due := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.DueBy(today) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Priority > due[j].Priority
	})
	return due
}

// SelectTask returns the first ranked task, or NoTask when nothing is due.
func SelectTask(tasks []model.Task, today model.Date) model.Selection {
	ranked := RankTasks(tasks, today)
	if len(ranked) == 0 {
		return model.NoTask()
	}
	return model.Selected(ranked[0])
}
