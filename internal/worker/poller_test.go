package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/service"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []time.Time
	errs    []error
	running bool
	overlap bool
	hold    time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, now time.Time) (service.Outcome, error) {
	f.mu.Lock()
	if f.running {
		f.overlap = true
	}
	f.running = true
	n := len(f.calls)
	f.calls = append(f.calls, now)
	var err error
	if n < len(f.errs) {
		err = f.errs[n]
	}
	f.mu.Unlock()

	time.Sleep(f.hold)

	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	if err != nil {
		return service.OutcomeFailed, err
	}
	return service.OutcomeRendered, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestPoller_RunsImmediatelyAndOnInterval(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPoller(runner, zap.NewNop(), 10*time.Millisecond)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runner.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	stopped := runner.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runner.count(), "no cycles after Stop")
}

func TestPoller_ErrorsDoNotStopLoop(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("fetch failed"), errors.New("panel busy")}}
	p := NewPoller(runner, zap.NewNop(), 5*time.Millisecond)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runner.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPoller_CyclesNeverOverlap(t *testing.T) {
	runner := &fakeRunner{hold: 15 * time.Millisecond}
	p := NewPoller(runner, zap.NewNop(), time.Millisecond)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runner.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.False(t, runner.overlap)
}

func TestPoller_UsesInjectedClock(t *testing.T) {
	fixed := time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC)
	runner := &fakeRunner{}
	p := NewPoller(runner, zap.NewNop(), time.Hour).WithClock(func() time.Time { return fixed })

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runner.count() == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, fixed, runner.calls[0])
}

func TestPoller_ContextCancelStops(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPoller(runner, zap.NewNop(), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx)
	require.Eventually(t, func() bool { return runner.count() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
