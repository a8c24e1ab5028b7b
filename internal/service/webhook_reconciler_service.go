package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/repository/contract"
	"premarket-access-be/internal/repository/memory"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/pkg/access/events"
	"premarket-access-be/pkg/access/grant"
	"premarket-access-be/pkg/access/payment"

	"github.com/google/uuid"
)

const sweepBatchSize = 100

type IWebhookReconcilerService interface {
	HandleWebhook(ctx context.Context, event *dto.PaymentEvent) (*dto.WebhookResult, error)
	HandleTimeout(ctx context.Context, grantId uuid.UUID) (*dto.TimeoutResult, error)
	SweepTimeouts(ctx context.Context) (int, error)
}

type webhookReconcilerService struct {
	uowFactory unitofwork.RepositoryFactory
	grants     *grant.Manager
	payments   *payment.Manager
	replays    *memory.ReplayCache
	dispatcher events.Dispatcher
	logger     logger.ILogger
	cfg        AccessConfig
}

func NewWebhookReconcilerService(
	uowFactory unitofwork.RepositoryFactory,
	grants *grant.Manager,
	payments *payment.Manager,
	replays *memory.ReplayCache,
	dispatcher events.Dispatcher,
	logger logger.ILogger,
	cfg AccessConfig,
) IWebhookReconcilerService {
	return &webhookReconcilerService{
		uowFactory: uowFactory,
		grants:     grants,
		payments:   payments,
		replays:    replays,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// reconcileOutcome is what one committed notification changed.
type reconcileOutcome struct {
	grant       *entity.GrantAccess
	payment     *entity.Payment
	disposition entity.WebhookDisposition
	replayed    bool
	unlocked    bool
	failed      bool
	exhausted   bool
}

// HandleWebhook applies a verified provider notification exactly once per
// (provider, event id). Replays and notifications for settled payments
// succeed without side effects.
func (s *webhookReconcilerService) HandleWebhook(ctx context.Context, event *dto.PaymentEvent) (*dto.WebhookResult, error) {
	if err := serverutils.ValidateRequest(event); err != nil {
		return nil, err
	}

	if s.replays.Seen(event.Provider, event.ProviderEventId) {
		s.logger.Info(logger.ModuleWebhook, "Replayed notification acknowledged from cache", map[string]interface{}{
			"provider": event.Provider,
			"event_id": event.ProviderEventId,
		})
		return &dto.WebhookResult{Replayed: true}, nil
	}

	paymentId, _, err := payment.ParseReference(event.ProviderReference)
	if err != nil {
		return nil, apperror.PaymentNotFound(event.ProviderReference)
	}

	var out reconcileOutcome
	err = withConflictRetry(ctx, s.cfg.ConflictRetryMax, "payment", func() error {
		out = reconcileOutcome{}
		return s.applyNotification(ctx, event, paymentId, &out)
	})
	if err != nil {
		return nil, err
	}

	s.replays.MarkProcessed(event.Provider, event.ProviderEventId)

	if out.replayed {
		s.logger.Info(logger.ModuleWebhook, "Replayed notification ignored", map[string]interface{}{
			"provider": event.Provider,
			"event_id": event.ProviderEventId,
		})
		return &dto.WebhookResult{Replayed: true}, nil
	}

	s.logger.Info(logger.ModuleWebhook, "Notification reconciled", map[string]interface{}{
		"provider":    event.Provider,
		"event_id":    event.ProviderEventId,
		"outcome":     event.Outcome,
		"disposition": string(out.disposition),
		"grant_id":    out.grant.Id.String(),
		"attempts":    out.payment.AttemptCount,
	})
	s.dispatchOutcome(ctx, &out)

	return &dto.WebhookResult{
		GrantId:       out.grant.Id,
		PaymentId:     out.payment.Id,
		GrantStatus:   string(out.grant.Status),
		PaymentStatus: string(out.payment.Status),
		Attempts:      out.payment.AttemptCount,
		Disposition:   string(out.disposition),
	}, nil
}

func (s *webhookReconcilerService) applyNotification(ctx context.Context, event *dto.PaymentEvent, paymentId uuid.UUID, out *reconcileOutcome) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	seen, err := uow.WebhookEventRepository().FindOne(ctx,
		specification.ByProviderEvent{Provider: event.Provider, EventId: event.ProviderEventId})
	if err != nil {
		return err
	}
	if seen != nil {
		out.replayed = true
		return nil
	}

	p, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: paymentId})
	if err != nil {
		return err
	}
	if p == nil {
		return apperror.PaymentNotFound(event.ProviderReference)
	}
	g, err := uow.GrantAccessRepository().FindOne(ctx, specification.ByID{ID: p.GrantId})
	if err != nil {
		return err
	}
	if g == nil {
		return apperror.InvariantViolation("payment has no grant", map[string]any{"payment_id": p.Id.String()})
	}
	out.grant, out.payment = g, p

	now := s.cfg.now()
	outcome := entity.PaymentOutcome(event.Outcome)

	switch {
	case p.Status.IsTerminal():
		out.disposition = entity.WebhookDispositionIgnoredTerminal
		s.logger.Warn(logger.ModuleWebhook, "Notification for a settled payment ignored", map[string]interface{}{
			"payment_id": p.Id.String(),
			"status":     string(p.Status),
			"outcome":    event.Outcome,
		})

	case outcome == entity.PaymentOutcomePending:
		out.disposition = entity.WebhookDispositionIgnoredPending
		at := now
		p.LastWebhookAt = &at
		p.UpdatedAt = now
		if err := uow.PaymentRepository().Update(ctx, p); err != nil {
			return err
		}

	case outcome == entity.PaymentOutcomeSucceeded:
		out.disposition = entity.WebhookDispositionApplied
		s.payments.ObserveNotification(p, now)
		if out.unlocked, err = s.grants.MarkPaid(g, p, now); err != nil {
			return err
		}
		if err := s.saveTransition(ctx, uow, g, p); err != nil {
			return err
		}

	default:
		out.disposition = entity.WebhookDispositionApplied
		s.payments.ObserveNotification(p, now)
		if out.exhausted, err = s.grants.RecordFailure(g, p, now); err != nil {
			return err
		}
		out.failed = true
		if err := s.saveTransition(ctx, uow, g, p); err != nil {
			return err
		}
	}

	if err := uow.WebhookEventRepository().Create(ctx, &entity.WebhookEvent{
		Id:                uuid.New(),
		Provider:          event.Provider,
		ProviderEventId:   event.ProviderEventId,
		ProviderReference: event.ProviderReference,
		PaymentId:         p.Id,
		Outcome:           outcome,
		Disposition:       out.disposition,
		OccurredAt:        event.OccurredAt.UTC(),
		ReceivedAt:        now,
		Payload:           event.Raw,
	}); err != nil {
		if errors.Is(err, contract.ErrDuplicate) {
			// a concurrent delivery of the same event committed first
			*out = reconcileOutcome{replayed: true}
			return nil
		}
		return err
	}

	return uow.Commit()
}

func (s *webhookReconcilerService) saveTransition(ctx context.Context, uow unitofwork.UnitOfWork, g *entity.GrantAccess, p *entity.Payment) error {
	if err := uow.PaymentRepository().Update(ctx, p); err != nil {
		return err
	}
	return uow.GrantAccessRepository().Update(ctx, g)
}

func (s *webhookReconcilerService) dispatchOutcome(ctx context.Context, out *reconcileOutcome) {
	if out.unlocked {
		s.dispatcher.AccessUnlocked(ctx, out.grant)
	}
	if out.failed {
		s.dispatcher.PaymentFailed(ctx, out.grant, out.exhausted)
	}
	if out.exhausted {
		s.dispatcher.GrantRejected(ctx, out.grant)
	}
}

// HandleTimeout records a failed attempt for a charge whose notification
// never arrived. It is a no-op unless the charge deadline has passed.
func (s *webhookReconcilerService) HandleTimeout(ctx context.Context, grantId uuid.UUID) (*dto.TimeoutResult, error) {
	var out reconcileOutcome
	timedOut := false

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "payment", func() error {
		out, timedOut = reconcileOutcome{}, false

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		g, err := uow.GrantAccessRepository().FindOne(ctx, specification.ByID{ID: grantId})
		if err != nil {
			return err
		}
		if g == nil {
			return apperror.GrantNotFound(grantId.String())
		}
		out.grant = g
		if g.PaymentId == nil {
			return nil
		}

		p, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: *g.PaymentId})
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.InvariantViolation("grant references a missing payment", map[string]any{"grant_id": grantId.String()})
		}
		out.payment = p

		now := s.cfg.now()
		if !s.payments.TimeoutDue(p, now) {
			return nil
		}

		reference := ""
		if p.ProviderReference != nil {
			reference = *p.ProviderReference
		}

		payload, err := json.Marshal(map[string]string{
			"grant_id":  grantId.String(),
			"reference": reference,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal timeout payload: %w", err)
		}

		before := *g
		if out.exhausted, err = s.grants.RecordFailure(g, p, now); err != nil {
			return err
		}
		if err := s.saveTransition(ctx, uow, g, p); err != nil {
			return err
		}
		if err := uow.WebhookEventRepository().Create(ctx, &entity.WebhookEvent{
			Id:                uuid.New(),
			Provider:          entity.ProviderTimeout,
			ProviderEventId:   "timeout:" + reference,
			ProviderReference: reference,
			PaymentId:         p.Id,
			Outcome:           entity.PaymentOutcomeFailed,
			Disposition:       entity.WebhookDispositionApplied,
			OccurredAt:        now,
			ReceivedAt:        now,
			Payload:           payload,
		}); err != nil {
			if errors.Is(err, contract.ErrDuplicate) {
				*g = before
				out.exhausted = false
				return nil
			}
			return err
		}

		if err := uow.Commit(); err != nil {
			return err
		}
		out.failed = true
		timedOut = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &dto.TimeoutResult{
		GrantId:       grantId,
		TimedOut:      timedOut,
		GrantStatus:   string(out.grant.Status),
		PaymentStatus: string(out.grant.PaymentStatus),
		Attempts:      out.grant.Attempts,
	}
	if !timedOut {
		return res, nil
	}

	s.logger.Warn(logger.ModuleWebhook, "Charge timed out without a notification", map[string]interface{}{
		"grant_id":  grantId.String(),
		"attempts":  out.grant.Attempts,
		"exhausted": out.exhausted,
	})
	s.dispatchOutcome(ctx, &out)
	return res, nil
}

// SweepTimeouts applies HandleTimeout to every payment whose charge
// deadline has passed and returns how many timed out.
func (s *webhookReconcilerService) SweepTimeouts(ctx context.Context) (int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	due, err := uow.PaymentRepository().FindAll(ctx,
		specification.DueChargeTimeouts{Now: s.cfg.now()},
		specification.OrderBy{Field: "charge_deadline"},
		specification.Pagination{Limit: sweepBatchSize},
	)
	if err != nil {
		return 0, err
	}

	timedOut := 0
	for _, p := range due {
		res, err := s.HandleTimeout(ctx, p.GrantId)
		if err != nil {
			s.logger.Error(logger.ModuleWorker, "Timeout sweep failed for grant", map[string]interface{}{
				"grant_id": p.GrantId.String(),
				"error":    err.Error(),
			})
			continue
		}
		if res.TimedOut {
			timedOut++
		}
	}
	return timedOut, nil
}
