package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/gate"
	"github.com/BuzzLyutic/todo-display/internal/model"
)

// MockJournal - мок журнала отрисовок
type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, ev model.RenderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockJournal) Recent(ctx context.Context, limit int) ([]model.RenderEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]model.RenderEvent)
	return events, args.Error(1)
}

func serve(t *testing.T, h *StatusHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	h.Routes().ServeHTTP(w, r)
	return w
}

func TestStatusHandler_Health(t *testing.T) {
	w := serve(t, NewStatusHandler(gate.New(), nil, zap.NewNop()), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusHandler_Display(t *testing.T) {
	due := model.Date{Year: 2024, Month: time.January, Day: 1}

	tests := []struct {
		name     string
		setup    func(*gate.Gate)
		wantBody string
	}{
		{
			name:     "nothing rendered yet",
			setup:    func(*gate.Gate) {},
			wantBody: `{"state":"empty"}`,
		},
		{
			name: "task on screen",
			setup: func(g *gate.Gate) {
				g.Commit(model.Selected(model.Task{ID: "2", Content: "Call Bob", Priority: 4, Due: due}))
			},
			wantBody: `{"state":"task","task":{"id":"2","content":"Call Bob","description":"","priority":4,"due":"2024-01-01"}}`,
		},
		{
			name: "idle screen",
			setup: func(g *gate.Gate) {
				g.Commit(model.NoTask())
			},
			wantBody: `{"state":"idle"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gate.New()
			tt.setup(g)

			w := serve(t, NewStatusHandler(g, nil, zap.NewNop()), "/api/display")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestStatusHandler_Renders(t *testing.T) {
	at := time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)
	events := []model.RenderEvent{
		{ID: 2, CycleID: "c2", TaskID: "2", Title: "Call Bob", Kind: model.RenderKindTask, RenderedAt: at},
	}

	tests := []struct {
		name      string
		query     string
		wantLimit int
		result    []model.RenderEvent
		err       error
		wantCode  int
		wantLen   int
	}{
		{name: "default limit", query: "", wantLimit: DefaultRendersLimit, result: events, wantCode: http.StatusOK, wantLen: 1},
		{name: "explicit limit", query: "?limit=5", wantLimit: 5, result: events, wantCode: http.StatusOK, wantLen: 1},
		{name: "capped limit", query: "?limit=1000", wantLimit: MaxRendersLimit, result: events, wantCode: http.StatusOK, wantLen: 1},
		{name: "empty journal", query: "", wantLimit: DefaultRendersLimit, result: nil, wantCode: http.StatusOK, wantLen: 0},
		{name: "storage error", query: "", wantLimit: DefaultRendersLimit, err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := new(MockJournal)
			journal.On("Recent", mock.Anything, tt.wantLimit).Return(tt.result, tt.err).Once()

			w := serve(t, NewStatusHandler(gate.New(), journal, zap.NewNop()), "/api/renders"+tt.query)

			require.Equal(t, tt.wantCode, w.Code)
			journal.AssertExpectations(t)
			if tt.wantCode != http.StatusOK {
				return
			}
			var got []model.RenderEvent
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			require.NotNil(t, got, "empty journal encodes as []")
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestStatusHandler_RendersBadLimit(t *testing.T) {
	for _, q := range []string{"?limit=0", "?limit=-3", "?limit=ten"} {
		journal := new(MockJournal)
		w := serve(t, NewStatusHandler(gate.New(), journal, zap.NewNop()), "/api/renders"+q)

		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		journal.AssertNotCalled(t, "Recent", mock.Anything, mock.Anything)
	}
}

func TestStatusHandler_RendersWithoutJournal(t *testing.T) {
	w := serve(t, NewStatusHandler(gate.New(), nil, zap.NewNop()), "/api/renders")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "render journal disabled", got["error"])
	assert.NotEmpty(t, got["request_id"])
}
