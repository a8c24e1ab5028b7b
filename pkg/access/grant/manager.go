package grant

import (
	"context"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/pkg/access/payment"
	"premarket-access-be/pkg/access/pricing"

	"github.com/google/uuid"
)

// Manager owns GrantAccess transitions
type Manager struct {
	payments *payment.Manager
	logger   logger.ILogger
	ttl      time.Duration
}

// NewManager creates a grant manager. A zero ttl keeps unlocked grants forever.
func NewManager(payments *payment.Manager, logger logger.ILogger, ttl time.Duration) *Manager {
	return &Manager{
		payments: payments,
		logger:   logger,
		ttl:      ttl,
	}
}

func (m *Manager) NewGrant(requestId string, agentId uuid.UUID, now time.Time) *entity.GrantAccess {
	return &entity.GrantAccess{
		Id:             uuid.New(),
		RequestId:      requestId,
		AgentId:        agentId,
		Status:         entity.GrantStatusPending,
		PaymentStatus:  entity.PaymentStatusPending,
		Currency:       entity.CurrencyUSD,
		CreatedAt:      now,
		TransitionedAt: now,
		Version:        1,
	}
}

// ApplyPricing moves a pending grant to free or approved. For a charged
// decision it returns the payment that must be persisted with the grant.
func (m *Manager) ApplyPricing(g *entity.GrantAccess, d pricing.Decision, now time.Time) (*entity.Payment, error) {
	if d.IsFree() {
		g.ChargeAmount = 0
		g.Currency = d.Currency
		_, err := m.Transition(g, entity.GrantStatusFree, "", now)
		return nil, err
	}

	p := m.payments.NewPayment(g.Id, d.Amount, d.Currency, now)
	g.ChargeAmount = d.Amount
	g.Currency = d.Currency
	g.PaymentId = &p.Id
	if _, err := m.Transition(g, entity.GrantStatusApproved, "", now); err != nil {
		return nil, err
	}
	return p, nil
}

// Transition applies one lifecycle step. Re-entering the current terminal
// state reports changed=false; any other illegal step is an invariant
// violation.
func (m *Manager) Transition(g *entity.GrantAccess, next entity.GrantStatus, reason string, now time.Time) (bool, error) {
	if g.Status == next && next.IsTerminal() {
		return false, nil
	}
	if !g.Status.CanTransitionTo(next) {
		return false, apperror.InvariantViolation("illegal grant transition", map[string]any{
			"grant_id": g.Id.String(),
			"from":     string(g.Status),
			"to":       string(next),
		})
	}

	g.Status = next
	g.TransitionedAt = now

	switch next {
	case entity.GrantStatusApproved:
		g.PaymentStatus = entity.PaymentStatusPending
	case entity.GrantStatusFree:
		g.PaymentStatus = entity.PaymentStatusFree
		m.stampExpiry(g, now)
	case entity.GrantStatusPaid:
		g.PaymentStatus = entity.PaymentStatusSucceeded
		m.stampExpiry(g, now)
	case entity.GrantStatusRejected:
		g.RejectionReason = reason
		if g.PaymentStatus == entity.PaymentStatusPending {
			g.PaymentStatus = entity.PaymentStatusFailed
		}
	}
	return true, nil
}

// SyncPayment copies the payment's status and attempt count onto the grant.
func (m *Manager) SyncPayment(g *entity.GrantAccess, p *entity.Payment) {
	g.PaymentStatus = p.Status
	g.Attempts = p.AttemptCount
}

func (m *Manager) stampExpiry(g *entity.GrantAccess, now time.Time) {
	if m.ttl <= 0 {
		return
	}
	expires := now.Add(m.ttl)
	g.ExpiresAt = &expires
}

// Reject rejects g and fails its pending payment, if any. p may be nil for
// grants without a payment.
func (m *Manager) Reject(g *entity.GrantAccess, p *entity.Payment, reason string, now time.Time) (bool, error) {
	changed, err := m.Transition(g, entity.GrantStatusRejected, reason, now)
	if err != nil || !changed {
		return changed, err
	}
	if p != nil && !p.Status.IsTerminal() {
		if _, err := m.payments.Fail(p, now); err != nil {
			return false, err
		}
		m.SyncPayment(g, p)
	}
	return true, nil
}

// MarkPaid settles p and unlocks g. A payment that already succeeded
// reports changed=false.
func (m *Manager) MarkPaid(g *entity.GrantAccess, p *entity.Payment, now time.Time) (bool, error) {
	changed, err := m.payments.Succeed(p, now)
	if err != nil || !changed {
		return false, err
	}
	m.SyncPayment(g, p)
	if _, err := m.Transition(g, entity.GrantStatusPaid, "", now); err != nil {
		return false, err
	}
	return true, nil
}

// RecordFailure counts one failed charge against p and rejects g once the
// attempt ceiling is reached.
func (m *Manager) RecordFailure(g *entity.GrantAccess, p *entity.Payment, now time.Time) (bool, error) {
	exhausted, err := m.payments.RecordAttempt(p, now)
	if err != nil {
		return false, err
	}
	m.SyncPayment(g, p)
	if exhausted {
		if _, err := m.Transition(g, entity.GrantStatusRejected, entity.RejectionPaymentAttemptsExhausted, now); err != nil {
			return false, err
		}
	}
	return exhausted, nil
}

// RejectUnsettled rejects every non-terminal grant of a request inside the
// caller's transaction and returns the grants it changed.
func (m *Manager) RejectUnsettled(ctx context.Context, uow unitofwork.UnitOfWork, requestId, reason string, now time.Time) ([]*entity.GrantAccess, error) {
	grants, err := uow.GrantAccessRepository().FindAll(ctx,
		specification.GrantsForRequest{RequestId: requestId},
		specification.NonTerminalGrants(),
	)
	if err != nil {
		return nil, err
	}

	var rejected []*entity.GrantAccess
	for _, g := range grants {
		var p *entity.Payment
		if g.PaymentId != nil {
			p, err = uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: *g.PaymentId})
			if err != nil {
				return nil, err
			}
		}

		changed, err := m.Reject(g, p, reason, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}

		if p != nil {
			if err := uow.PaymentRepository().Update(ctx, p); err != nil {
				return nil, err
			}
		}
		if err := uow.GrantAccessRepository().Update(ctx, g); err != nil {
			return nil, err
		}
		rejected = append(rejected, g)
	}

	if len(rejected) > 0 {
		m.logger.Info(logger.ModuleGrant, "Rejected unsettled grants", map[string]interface{}{
			"request_id": requestId,
			"reason":     reason,
			"count":      len(rejected),
		})
	}
	return rejected, nil
}
