package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the global round cadence.
const DefaultInterval = time.Minute

// Rounder is anything that can run one scheduling round.
type Rounder interface {
	RunRound(ctx context.Context) error
}

// Loop is the outer trigger: it runs one round right away and then one per
// Interval. Rounds never overlap within one Loop.
type Loop struct {
	Logger   *zap.Logger
	Rounds   Rounder
	Interval time.Duration
}

func NewLoop(logger *zap.Logger, rounds Rounder, interval time.Duration) *Loop {
	if interval < 0 {
		interval = 0
	}
	return &Loop{Logger: logger, Rounds: rounds, Interval: interval}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l.Interval == 0 {
		// disabled
		l.Logger.Info("round_loop_disabled")
		return
	}
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	// immediate pass
	l.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("round_loop_stopped")
			return
		case <-t.C:
			l.runOnce(ctx)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	if err := l.Rounds.RunRound(ctx); err != nil {
		l.Logger.Warn("round_error", zap.Error(err))
	}
}
