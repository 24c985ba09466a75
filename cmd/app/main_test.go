package main

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
	"github.com/BuzzLyutic/todo-display/internal/config"
	"github.com/BuzzLyutic/todo-display/internal/display"
)

// MockPanel - мок панели
type MockPanel struct {
	mock.Mock
}

func (m *MockPanel) Init(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPanel) Size() (int, int) { return 16, 8 }

func (m *MockPanel) Write(ctx context.Context, frame *bitmap.Bitmap) error {
	args := m.Called(ctx, frame)
	return args.Error(0)
}

func (m *MockPanel) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPanel) Sleep(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPanel) Close() error {
	args := m.Called()
	return args.Error(0)
}

// usePanel makes openPanel return p for the duration of the test.
func usePanel(t *testing.T, p display.Panel) {
	t.Helper()
	orig := newPanel
	newPanel = func(config.Config, *zap.Logger) (display.Panel, error) { return p, nil }
	t.Cleanup(func() { newPanel = orig })
}

// liveContext matches a context that has not been cancelled.
var liveContext = mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestOpenPanel_InterruptedInitStillSleeps(t *testing.T) {
	panel := new(MockPanel)
	panel.On("Init", mock.Anything).Return(context.Canceled).Once()
	panel.On("Sleep", liveContext).Return(nil).Once()
	panel.On("Close").Return(nil).Once()
	usePanel(t, panel)

	_, err := openPanel(canceledContext(), config.Config{}, zap.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	panel.AssertExpectations(t)
}

func TestRunClear_InterruptedClearStillSleeps(t *testing.T) {
	panel := new(MockPanel)
	panel.On("Init", mock.Anything).Return(nil).Once()
	panel.On("Clear", mock.Anything).Return(context.Canceled).Once()
	panel.On("Sleep", liveContext).Return(nil).Once()
	panel.On("Close").Return(nil).Once()
	usePanel(t, panel)

	err := runClear(canceledContext(), config.Config{}, zap.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	panel.AssertExpectations(t)
}

func TestRunImage_WriteFailureStillSleeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle.png")
	frame := bitmap.New(4, 4)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, frame))
	require.NoError(t, f.Close())

	panel := new(MockPanel)
	panel.On("Init", mock.Anything).Return(nil).Once()
	panel.On("Write", mock.Anything, mock.Anything).Return(errors.New("spi gone")).Once()
	panel.On("Sleep", mock.Anything).Return(nil).Once()
	panel.On("Close").Return(nil).Once()
	usePanel(t, panel)

	err = runImage(context.Background(), config.Config{}, zap.NewNop(), []string{"-file", path})

	assert.ErrorIs(t, err, display.ErrHardware)
	panel.AssertExpectations(t)
}

func TestRunImage_RequiresFile(t *testing.T) {
	panel := new(MockPanel)
	usePanel(t, panel)

	err := runImage(context.Background(), config.Config{}, zap.NewNop(), nil)

	assert.Error(t, err)
	panel.AssertNotCalled(t, "Init", mock.Anything)
}

func TestOpenPanel_PNG(t *testing.T) {
	cfg := config.Config{
		Panel:     config.PanelPNG,
		PNGPath:   filepath.Join(t.TempDir(), "screen.png"),
		PNGWidth:  32,
		PNGHeight: 16,
	}

	panel, err := openPanel(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	w, h := panel.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)
	shutdownPanel(panel, zap.NewNop())
}
