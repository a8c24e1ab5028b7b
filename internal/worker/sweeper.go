package worker

import (
	"context"
	"time"

	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/service"
)

// Sweeper periodically applies overdue charge timeouts. It covers tasks
// lost while Redis was unavailable.
type Sweeper struct {
	reconciler service.IWebhookReconcilerService
	interval   time.Duration
	logger     logger.ILogger
}

func NewSweeper(reconciler service.IWebhookReconcilerService, interval time.Duration, logger logger.ILogger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.reconciler.SweepTimeouts(ctx)
	if err != nil {
		s.logger.Error(logger.ModuleWorker, "Timeout sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		s.logger.Info(logger.ModuleWorker, "Timeout sweep applied", map[string]interface{}{"timed_out": n})
	}
}
