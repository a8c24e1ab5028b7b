package service

import (
	"context"
	"errors"
	"time"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/repository/contract"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// AccessConfig carries the tunables shared by the access services.
type AccessConfig struct {
	// WebhookTimeout is how long a charge may wait for its notification
	WebhookTimeout             time.Duration
	AllowRegrantAfterRejection bool
	ConflictRetryMax           int
	// Clock defaults to UTC wall time
	Clock func() time.Time
}

func (c AccessConfig) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

// ChargeTimeoutScheduler arms the delayed timeout check for one charge.
type ChargeTimeoutScheduler interface {
	ScheduleChargeTimeout(ctx context.Context, grantId uuid.UUID, reference string, delay time.Duration) error
}

// withConflictRetry reruns op while it loses optimistic version checks.
// Every run must start its own unit of work so it reads fresh state.
func withConflictRetry(ctx context.Context, maxTries int, entityName string, op func() error) error {
	if maxTries <= 0 {
		maxTries = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 10 * time.Millisecond
	exp.MaxInterval = 250 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, contract.ErrVersionConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(exp), backoff.WithMaxTries(uint(maxTries)))

	if errors.Is(err, contract.ErrVersionConflict) {
		return apperror.ConcurrentWriteConflict(err, entityName)
	}
	return err
}

func toGrantResponse(g *entity.GrantAccess) *dto.GrantAccessResponse {
	return &dto.GrantAccessResponse{
		Id:              g.Id,
		RequestId:       g.RequestId,
		AgentId:         g.AgentId,
		Status:          string(g.Status),
		PaymentStatus:   string(g.PaymentStatus),
		PaymentId:       g.PaymentId,
		ChargeAmount:    g.ChargeAmount,
		Currency:        g.Currency,
		Attempts:        g.Attempts,
		RejectionReason: g.RejectionReason,
		CreatedAt:       g.CreatedAt,
		TransitionedAt:  g.TransitionedAt,
		ExpiresAt:       g.ExpiresAt,
	}
}

func toRequestResponse(r *entity.PreMarketRequest, full bool) *dto.PreMarketRequestResponse {
	res := &dto.PreMarketRequestResponse{
		Id:          r.Id,
		Bedrooms:    string(r.Bedrooms),
		Bathrooms:   string(r.Bathrooms),
		PriceMin:    r.PriceMin,
		PriceMax:    r.PriceMax,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		FullDetails: full,
	}
	if full {
		requesterId := r.RequesterId
		earliest := r.MovingDateEarliest
		latest := r.MovingDateLatest
		res.RequesterId = &requesterId
		res.Description = r.Description
		res.MovingDateEarliest = &earliest
		res.MovingDateLatest = &latest
	}
	return res
}
