package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one run of a periodic job.
type Task func(context.Context) error

// PeriodicConfig configures a periodic runner.
type PeriodicConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Periodic runs a task on a fixed interval in a single goroutine. Runs never
// overlap; a failed run is logged and the next tick proceeds as usual.
type Periodic struct {
	name     string
	task     Task
	interval time.Duration
	logger   *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPeriodic builds a runner for task.
func NewPeriodic(name string, task Task, cfg PeriodicConfig) *Periodic {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Periodic{
		name:     name,
		task:     task,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start launches the loop. Safe to call once.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
	p.started = true
	p.logger.Sugar().Infow("periodic job started", "job", p.name, "interval", p.interval)
}

// Stop cancels the loop and waits for the current run to finish.
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.started = false
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Sugar().Infow("periodic job stopped", "job", p.name)
}

func (p *Periodic) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Periodic) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Sugar().Errorw("periodic job panicked", "job", p.name, "panic", r)
		}
	}()
	if err := p.task(ctx); err != nil {
		p.logger.Sugar().Warnw("periodic job failed", "job", p.name, "error", err)
	}
}
