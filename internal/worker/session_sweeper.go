package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper deletes expired sessions.
type Sweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically garbage-collects expired session rows. Deletes
// are idempotent, so several instances may sweep at once.
type SessionSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper builds the worker. A non-positive interval disables it.
func NewSessionSweeper(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is cancelled. Failures are logged and
// the loop keeps going.
func (s *SessionSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("session sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep.
func (s *SessionSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.sweeper.SweepExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}
