package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/service"
)

// Runner is one polling cycle.
type Runner interface {
	Run(ctx context.Context, now time.Time) (service.Outcome, error)
}

// Poller runs cycles one after another on a fixed interval. Cycles never
// overlap: the next tick is only taken after the previous cycle returned.
type Poller struct {
	runner   Runner
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
	stop     chan struct{}
	once     sync.Once
}

func NewPoller(runner Runner, logger *zap.Logger, interval time.Duration) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		runner:   runner,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// WithClock replaces time.Now for the cycle's notion of "today".
func (p *Poller) WithClock(now func() time.Time) *Poller {
	if now != nil {
		p.now = now
	}
	return p
}

// Start runs the first cycle immediately and then one per interval until
// Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting poller", zap.Duration("interval", p.interval))

	p.wg.Add(1)
	go p.loop(ctx)
}

func (p *Poller) Stop() {
	p.logger.Info("Stopping poller...")
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
	p.logger.Info("Poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick is the cycle boundary: every error is logged here and the loop goes on.
func (p *Poller) tick(ctx context.Context) {
	start := p.now()
	outcome, err := p.runner.Run(ctx, start)
	if err != nil {
		p.logger.Error("cycle failed", zap.Error(err))
		return
	}
	p.logger.Debug("cycle finished",
		zap.Stringer("outcome", outcome),
		zap.Duration("took", p.now().Sub(start)),
	)
}
