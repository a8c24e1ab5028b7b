package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TypePaymentTimeout = "grant:payment:timeout"

	QueueTimeouts = "timeouts"
)

type PaymentTimeoutPayload struct {
	GrantId   uuid.UUID `json:"grant_id"`
	Reference string    `json:"reference"`
}

// RedisOpt reuses the connection settings of an existing go-redis client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

func NewPaymentTimeoutTask(grantId uuid.UUID, reference string) (*asynq.Task, error) {
	payload, err := json.Marshal(PaymentTimeoutPayload{GrantId: grantId, Reference: reference})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePaymentTimeout, payload), nil
}

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TimeoutScheduler enqueues one delayed timeout task per charge reference.
type TimeoutScheduler struct {
	client Enqueuer
}

func NewTimeoutScheduler(client Enqueuer) *TimeoutScheduler {
	return &TimeoutScheduler{client: client}
}

func (s *TimeoutScheduler) ScheduleChargeTimeout(ctx context.Context, grantId uuid.UUID, reference string, delay time.Duration) error {
	task, err := NewPaymentTimeoutTask(grantId, reference)
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.TaskID("timeout:"+reference),
		asynq.ProcessIn(delay),
		asynq.Queue(QueueTimeouts),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
