package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/service"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TimeoutProcessor runs payment timeout tasks against the reconciler.
type TimeoutProcessor struct {
	reconciler service.IWebhookReconcilerService
	logger     logger.ILogger
}

func NewTimeoutProcessor(reconciler service.IWebhookReconcilerService, logger logger.ILogger) *TimeoutProcessor {
	return &TimeoutProcessor{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (p *TimeoutProcessor) HandlePaymentTimeoutTask(ctx context.Context, t *asynq.Task) error {
	var payload PaymentTimeoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payment timeout payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := p.reconciler.HandleTimeout(ctx, payload.GrantId)
	if err != nil {
		if apperror.Is(err, apperror.CodeGrantNotFound) {
			return fmt.Errorf("grant %s no longer exists: %w", payload.GrantId, asynq.SkipRetry)
		}
		return err
	}

	p.logger.Info(logger.ModuleWorker, "Payment timeout task processed", map[string]interface{}{
		"grant_id":  payload.GrantId.String(),
		"reference": payload.Reference,
		"timed_out": res.TimedOut,
		"attempts":  res.Attempts,
	})
	return nil
}

func (p *TimeoutProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePaymentTimeout, p.HandlePaymentTimeoutTask)
	return mux
}

func NewServer(rdb *redis.Client, concurrency int, log logger.ILogger) *asynq.Server {
	return asynq.NewServer(
		RedisOpt(rdb),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueTimeouts: 6,
				"default":     3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error(logger.ModuleWorker, "Task failed", map[string]interface{}{
					"type":    task.Type(),
					"payload": string(task.Payload()),
					"error":   err.Error(),
				})
			}),
		},
	)
}
