package service

import (
	"context"
	"errors"
	"fmt"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/repository/contract"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/pkg/access/events"
	"premarket-access-be/pkg/access/grant"
	"premarket-access-be/pkg/access/payment"
	"premarket-access-be/pkg/access/pricing"
	"premarket-access-be/pkg/provider"

	"github.com/google/uuid"
)

type IGrantAccessService interface {
	CreateGrant(ctx context.Context, actor entity.Actor, requestId string, req *dto.CreateGrantRequest) (*dto.GrantAccessResponse, error)
	RetryCharge(ctx context.Context, actor entity.Actor, grantId uuid.UUID) (*dto.GrantAccessResponse, error)
	RejectGrant(ctx context.Context, actor entity.Actor, grantId uuid.UUID, reason string) (*dto.GrantAccessResponse, error)
	CascadeReject(ctx context.Context, requestId string) (int, error)
	GetGrant(ctx context.Context, actor entity.Actor, grantId uuid.UUID) (*dto.GrantAccessResponse, error)
	ListGrantsForRequest(ctx context.Context, actor entity.Actor, requestId string) ([]*dto.GrantAccessResponse, error)
	ListAgentGrants(ctx context.Context, actor entity.Actor) ([]*dto.GrantAccessResponse, error)
}

type grantAccessService struct {
	uowFactory unitofwork.RepositoryFactory
	pricing    pricing.Resolver
	grants     *grant.Manager
	payments   *payment.Manager
	gateway    provider.Gateway
	scheduler  ChargeTimeoutScheduler
	dispatcher events.Dispatcher
	logger     logger.ILogger
	cfg        AccessConfig
}

func NewGrantAccessService(
	uowFactory unitofwork.RepositoryFactory,
	resolver pricing.Resolver,
	grants *grant.Manager,
	payments *payment.Manager,
	gateway provider.Gateway,
	scheduler ChargeTimeoutScheduler,
	dispatcher events.Dispatcher,
	logger logger.ILogger,
	cfg AccessConfig,
) IGrantAccessService {
	return &grantAccessService{
		uowFactory: uowFactory,
		pricing:    resolver,
		grants:     grants,
		payments:   payments,
		gateway:    gateway,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// pendingCharge is a charge claimed inside a committed transaction that
// still has to be sent to the provider.
type pendingCharge struct {
	grant     *entity.GrantAccess
	payment   *entity.Payment
	reference string
}

func (s *grantAccessService) CreateGrant(ctx context.Context, actor entity.Actor, requestId string, req *dto.CreateGrantRequest) (*dto.GrantAccessResponse, error) {
	agentId, err := s.resolveAgent(actor, req)
	if err != nil {
		return nil, err
	}

	var (
		created *entity.GrantAccess
		charge  *pendingCharge
	)

	err = withConflictRetry(ctx, s.cfg.ConflictRetryMax, "grant_access", func() error {
		created, charge = nil, nil

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		now := s.cfg.now()

		request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
		if err != nil {
			return err
		}
		if request == nil {
			return apperror.RequestNotFound(requestId)
		}
		if request.IsDeleted() {
			return apperror.RequestDeleted(requestId)
		}

		if err := s.claimSlot(ctx, uow, actor, requestId, agentId); err != nil {
			return err
		}

		decision, err := s.pricing.Resolve(pricing.Input{
			Request: request,
			Agent:   entity.Actor{UserId: agentId, Role: entity.RoleAgent},
			At:      now,
		})
		if err != nil {
			return err
		}

		g := s.grants.NewGrant(requestId, agentId, now)
		p, err := s.grants.ApplyPricing(g, decision, now)
		if err != nil {
			return err
		}

		var ref string
		if p != nil {
			if ref, err = s.payments.StartCharge(p, now, s.cfg.WebhookTimeout); err != nil {
				return err
			}
		}

		if err := uow.GrantAccessRepository().Create(ctx, g); err != nil {
			if errors.Is(err, contract.ErrDuplicate) {
				return apperror.DuplicateActiveGrant(requestId, agentId.String())
			}
			return err
		}
		if p != nil {
			if err := uow.PaymentRepository().Create(ctx, p); err != nil {
				return err
			}
		}

		// Bumping the request version serializes creation against deletion.
		request.UpdatedAt = now
		if err := uow.PreMarketRequestRepository().Update(ctx, request); err != nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return err
		}

		created = g
		if p != nil {
			charge = &pendingCharge{grant: g, payment: p, reference: ref}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(logger.ModuleGrant, "Grant created", map[string]interface{}{
		"grant_id":   created.Id.String(),
		"request_id": requestId,
		"agent_id":   agentId.String(),
		"status":     string(created.Status),
		"amount":     created.ChargeAmount,
	})

	if charge == nil {
		s.dispatcher.AccessUnlocked(ctx, created)
		return toGrantResponse(created), nil
	}
	return s.sendCharge(ctx, charge)
}

func (s *grantAccessService) resolveAgent(actor entity.Actor, req *dto.CreateGrantRequest) (uuid.UUID, error) {
	switch {
	case actor.IsAdmin() && req != nil && req.AgentId != nil:
		return *req.AgentId, nil
	case actor.Role == entity.RoleAgent || actor.IsAdmin():
		return actor.UserId, nil
	default:
		return uuid.Nil, apperror.Forbidden("only agents may request access")
	}
}

// claimSlot enforces one active grant per (request, agent). An expired
// grant gives up its slot here.
func (s *grantAccessService) claimSlot(ctx context.Context, uow unitofwork.UnitOfWork, actor entity.Actor, requestId string, agentId uuid.UUID) error {
	repo := uow.GrantAccessRepository()

	existing, err := repo.FindOne(ctx, specification.ActiveGrantFor{RequestId: requestId, AgentId: agentId})
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsActive(s.cfg.now()) {
			return apperror.DuplicateActiveGrant(requestId, agentId.String())
		}
		if err := repo.ReleaseActiveKey(ctx, existing, s.cfg.now()); err != nil {
			return err
		}
	}

	if s.cfg.AllowRegrantAfterRejection || actor.IsAdmin() {
		return nil
	}
	rejected, err := repo.Count(ctx,
		specification.GrantsForRequest{RequestId: requestId},
		specification.GrantsForAgent{AgentId: agentId},
		specification.GrantByStatus{Statuses: []entity.GrantStatus{entity.GrantStatusRejected}},
	)
	if err != nil {
		return err
	}
	if rejected > 0 {
		return apperror.GrantPreviouslyRejected(requestId, agentId.String())
	}
	return nil
}

// sendCharge calls the provider for a claimed charge. No transaction is
// open while the provider is called.
func (s *grantAccessService) sendCharge(ctx context.Context, charge *pendingCharge) (*dto.GrantAccessResponse, error) {
	g := charge.grant

	result, err := s.gateway.CreateCharge(ctx, provider.ChargeRequest{
		Reference:   charge.reference,
		Amount:      charge.payment.Amount,
		Currency:    charge.payment.Currency,
		Description: fmt.Sprintf("Pre-market request %s access", g.RequestId),
	})
	if err != nil {
		s.logger.Error(logger.ModulePayment, "Provider charge failed", map[string]interface{}{
			"grant_id":  g.Id.String(),
			"reference": charge.reference,
			"error":     err.Error(),
		})
		if recErr := s.recordProviderFailure(ctx, charge); recErr != nil {
			s.logger.Error(logger.ModulePayment, "Failed to record provider failure", map[string]interface{}{
				"grant_id": g.Id.String(),
				"error":    recErr.Error(),
			})
		}
		return nil, apperror.PaymentProviderError(err, charge.reference)
	}

	if err := s.scheduler.ScheduleChargeTimeout(ctx, g.Id, charge.reference, s.cfg.WebhookTimeout); err != nil {
		// the periodic sweep still catches the deadline
		s.logger.Warn(logger.ModuleWorker, "Failed to schedule charge timeout", map[string]interface{}{
			"grant_id":  g.Id.String(),
			"reference": charge.reference,
			"error":     err.Error(),
		})
	}

	res := toGrantResponse(g)
	res.Checkout = &dto.CheckoutResponse{
		Reference:   charge.reference,
		Token:       result.Token,
		RedirectURL: result.RedirectURL,
	}
	return res, nil
}

// recordProviderFailure counts a charge the provider refused. It does
// nothing when a notification or timeout already settled that charge.
func (s *grantAccessService) recordProviderFailure(ctx context.Context, charge *pendingCharge) error {
	var (
		updated   *entity.GrantAccess
		exhausted bool
	)

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "payment", func() error {
		updated, exhausted = nil, false

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		p, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: charge.payment.Id})
		if err != nil {
			return err
		}
		if p == nil || p.Status.IsTerminal() || !p.ChargeInFlight() ||
			p.ProviderReference == nil || *p.ProviderReference != charge.reference {
			return nil
		}

		g, err := uow.GrantAccessRepository().FindOne(ctx, specification.ByID{ID: p.GrantId})
		if err != nil {
			return err
		}
		if g == nil {
			return apperror.GrantNotFound(p.GrantId.String())
		}

		now := s.cfg.now()
		if exhausted, err = s.grants.RecordFailure(g, p, now); err != nil {
			return err
		}
		if err := uow.PaymentRepository().Update(ctx, p); err != nil {
			return err
		}
		if err := uow.GrantAccessRepository().Update(ctx, g); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil || updated == nil {
		return err
	}

	s.dispatcher.PaymentFailed(ctx, updated, exhausted)
	if exhausted {
		s.dispatcher.GrantRejected(ctx, updated)
	}
	return nil
}

// RetryCharge starts a new provider charge for an approved grant.
func (s *grantAccessService) RetryCharge(ctx context.Context, actor entity.Actor, grantId uuid.UUID) (*dto.GrantAccessResponse, error) {
	var charge *pendingCharge

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "payment", func() error {
		charge = nil

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		g, err := s.loadGrant(ctx, uow, grantId)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && g.AgentId != actor.UserId {
			return apperror.Forbidden("grant belongs to another agent")
		}
		if g.Status == entity.GrantStatusRejected && g.RejectionReason == entity.RejectionPaymentAttemptsExhausted && g.PaymentId != nil {
			return apperror.PaymentAttemptsExhausted(g.PaymentId.String(), g.Attempts)
		}
		if g.Status != entity.GrantStatusApproved || g.PaymentId == nil {
			return apperror.GrantNotAwaitingPayment(grantId.String(), string(g.Status))
		}

		p, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: *g.PaymentId})
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.InvariantViolation("approved grant has no payment", map[string]any{"grant_id": grantId.String()})
		}

		ref, err := s.payments.StartCharge(p, s.cfg.now(), s.cfg.WebhookTimeout)
		if err != nil {
			return err
		}
		if err := uow.PaymentRepository().Update(ctx, p); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}

		charge = &pendingCharge{grant: g, payment: p, reference: ref}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(logger.ModulePayment, "Charge retried", map[string]interface{}{
		"grant_id":  grantId.String(),
		"reference": charge.reference,
		"attempts":  charge.payment.AttemptCount,
	})
	return s.sendCharge(ctx, charge)
}

func (s *grantAccessService) RejectGrant(ctx context.Context, actor entity.Actor, grantId uuid.UUID, reason string) (*dto.GrantAccessResponse, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins may reject grants")
	}
	if reason == "" {
		reason = entity.RejectionAdmin
	}

	var (
		result  *entity.GrantAccess
		changed bool
	)

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "grant_access", func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		g, err := s.loadGrant(ctx, uow, grantId)
		if err != nil {
			return err
		}

		var p *entity.Payment
		if g.PaymentId != nil {
			if p, err = uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: *g.PaymentId}); err != nil {
				return err
			}
		}

		if changed, err = s.grants.Reject(g, p, reason, s.cfg.now()); err != nil {
			return err
		}
		result = g
		if !changed {
			return nil
		}

		if p != nil {
			if err := uow.PaymentRepository().Update(ctx, p); err != nil {
				return err
			}
		}
		if err := uow.GrantAccessRepository().Update(ctx, g); err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info(logger.ModuleGrant, "Grant rejected by admin", map[string]interface{}{
			"grant_id": grantId.String(),
			"reason":   reason,
		})
		s.dispatcher.GrantRejected(ctx, result)
	}
	return toGrantResponse(result), nil
}

// CascadeReject rejects every unsettled grant of a deleted request.
// Unlocked grants keep their status. It returns how many grants changed.
func (s *grantAccessService) CascadeReject(ctx context.Context, requestId string) (int, error) {
	var rejected []*entity.GrantAccess

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "grant_access", func() error {
		rejected = nil

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
		if err != nil {
			return err
		}
		if request == nil {
			return apperror.RequestNotFound(requestId)
		}
		if !request.IsDeleted() {
			return apperror.RequestNotDeleted(requestId)
		}

		rejected, err = s.grants.RejectUnsettled(ctx, uow, requestId, entity.RejectionRequestDeleted, s.cfg.now())
		if err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return 0, err
	}

	for _, g := range rejected {
		s.dispatcher.GrantRejected(ctx, g)
	}
	return len(rejected), nil
}

func (s *grantAccessService) GetGrant(ctx context.Context, actor entity.Actor, grantId uuid.UUID) (*dto.GrantAccessResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	g, err := s.loadGrant(ctx, uow, grantId)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || g.AgentId == actor.UserId {
		return toGrantResponse(g), nil
	}

	request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: g.RequestId})
	if err != nil {
		return nil, err
	}
	if request == nil || !request.IsOwnedBy(actor.UserId) {
		return nil, apperror.GrantNotFound(grantId.String())
	}
	return toGrantResponse(g), nil
}

func (s *grantAccessService) ListGrantsForRequest(ctx context.Context, actor entity.Actor, requestId string) ([]*dto.GrantAccessResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, apperror.RequestNotFound(requestId)
	}
	if !actor.IsAdmin() && !request.IsOwnedBy(actor.UserId) {
		return nil, apperror.Forbidden("only the owner or an admin may list grants")
	}

	grants, err := uow.GrantAccessRepository().FindAll(ctx,
		specification.GrantsForRequest{RequestId: requestId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	return toGrantResponses(grants), nil
}

func (s *grantAccessService) ListAgentGrants(ctx context.Context, actor entity.Actor) ([]*dto.GrantAccessResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	grants, err := uow.GrantAccessRepository().FindAll(ctx,
		specification.GrantsForAgent{AgentId: actor.UserId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	return toGrantResponses(grants), nil
}

func (s *grantAccessService) loadGrant(ctx context.Context, uow unitofwork.UnitOfWork, grantId uuid.UUID) (*entity.GrantAccess, error) {
	g, err := uow.GrantAccessRepository().FindOne(ctx, specification.ByID{ID: grantId})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperror.GrantNotFound(grantId.String())
	}
	return g, nil
}

func toGrantResponses(grants []*entity.GrantAccess) []*dto.GrantAccessResponse {
	res := make([]*dto.GrantAccessResponse, 0, len(grants))
	for _, g := range grants {
		res = append(res, toGrantResponse(g))
	}
	return res
}
