package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/gate"
	"github.com/BuzzLyutic/todo-display/internal/model"
	"github.com/BuzzLyutic/todo-display/internal/repo"
	"github.com/BuzzLyutic/todo-display/pkg/respond"
)

const (
	DefaultRendersLimit = 20
	MaxRendersLimit     = 100
)

// Screen states reported by /api/display.
const (
	ScreenEmpty = "empty"
	ScreenTask  = "task"
	ScreenIdle  = "idle"
)

type StatusHandler struct {
	gate    *gate.Gate
	journal repo.RenderJournal
	logger  *zap.Logger
}

// NewStatusHandler creates the read-only status API. journal may be nil when
// no database is configured.
func NewStatusHandler(g *gate.Gate, journal repo.RenderJournal, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{
		gate:    g,
		journal: journal,
		logger:  logger,
	}
}

// Routes builds the router with the same middleware stack the server uses.
func (h *StatusHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/display", h.Display)
		r.Get("/renders", h.Renders)
	})
	return r
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type displayResponse struct {
	State string      `json:"state"`
	Task  *model.Task `json:"task,omitempty"`
}

// Display reports what the panel currently shows.
func (h *StatusHandler) Display(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.gate.Current()
	switch {
	case !ok:
		respond.JSON(w, r, http.StatusOK, displayResponse{State: ScreenEmpty})
	case sel.Found:
		task := sel.Task
		respond.JSON(w, r, http.StatusOK, displayResponse{State: ScreenTask, Task: &task})
	default:
		respond.JSON(w, r, http.StatusOK, displayResponse{State: ScreenIdle})
	}
}

// Renders lists the most recent journal rows, newest first.
func (h *StatusHandler) Renders(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respond.Error(w, r, http.StatusServiceUnavailable, "render journal disabled")
		return
	}

	limit := DefaultRendersLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.Error(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxRendersLimit)
	}

	events, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list renders", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []model.RenderEvent{}
	}
	respond.JSON(w, r, http.StatusOK, events)
}
