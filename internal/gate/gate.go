// Package gate decides whether a freshly selected task needs to be drawn.
package gate

import (
	"sync"

	"github.com/BuzzLyutic/todo-display/internal/model"
)

// Gate holds the last selection that actually reached the display. Before the
// first commit it holds nothing, which differs from "no eligible task".
type Gate struct {
	mu    sync.RWMutex
	shown *model.Selection
}

func New() *Gate {
	return &Gate{}
}

// ShouldUpdate reports whether candidate differs from what is on screen.
func (g *Gate) ShouldUpdate(candidate model.Selection) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.shown == nil || *g.shown != candidate
}

// Commit records candidate as displayed. Call it only after a successful render.
func (g *Gate) Commit(candidate model.Selection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shown = &candidate
}

// Current returns the displayed selection; ok is false before the first commit.
func (g *Gate) Current() (sel model.Selection, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.shown == nil {
		return model.Selection{}, false
	}
	return *g.shown, true
}
