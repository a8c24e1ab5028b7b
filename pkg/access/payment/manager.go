package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 3

// Manager owns Payment transitions and the attempt ceiling. It never
// touches persistence; callers save the mutated payment.
type Manager struct {
	maxAttempts int
}

func NewManager(maxAttempts int) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Manager{maxAttempts: maxAttempts}
}

func (m *Manager) MaxAttempts() int {
	return m.maxAttempts
}

func (m *Manager) NewPayment(grantId uuid.UUID, amount float64, currency string, now time.Time) *entity.Payment {
	return &entity.Payment{
		Id:        uuid.New(),
		GrantId:   grantId,
		Amount:    amount,
		Currency:  currency,
		Status:    entity.PaymentStatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StartCharge claims the next provider charge for p and arms its deadline.
// It returns the reference the provider charge must carry.
func (m *Manager) StartCharge(p *entity.Payment, now time.Time, timeout time.Duration) (string, error) {
	if p.Status.IsTerminal() {
		if p.Status == entity.PaymentStatusFailed && p.AttemptCount >= m.maxAttempts {
			return "", apperror.PaymentAttemptsExhausted(p.Id.String(), p.AttemptCount)
		}
		return "", apperror.InvariantViolation("cannot charge a settled payment", map[string]any{
			"payment_id": p.Id.String(),
			"status":     string(p.Status),
		})
	}
	if p.AttemptCount >= m.maxAttempts {
		return "", apperror.PaymentAttemptsExhausted(p.Id.String(), p.AttemptCount)
	}
	if p.ChargeInFlight() {
		return "", apperror.ChargeInFlight(p.Id.String())
	}

	p.ChargeSeq++
	ref := Reference(p.Id, p.ChargeSeq)
	deadline := now.Add(timeout)
	p.ProviderReference = &ref
	p.ChargedAt = &now
	p.ChargeDeadline = &deadline
	p.UpdatedAt = now
	return ref, nil
}

// RecordAttempt counts one failed charge. Reaching the ceiling fails the
// payment and reports exhausted.
func (m *Manager) RecordAttempt(p *entity.Payment, now time.Time) (bool, error) {
	if p.Status.IsTerminal() {
		return false, apperror.InvariantViolation("cannot record an attempt on a settled payment", map[string]any{
			"payment_id": p.Id.String(),
			"status":     string(p.Status),
		})
	}

	p.AttemptCount++
	p.ChargeDeadline = nil
	p.UpdatedAt = now
	if p.AttemptCount >= m.maxAttempts {
		p.Status = entity.PaymentStatusFailed
		return true, nil
	}
	return false, nil
}

func (m *Manager) Succeed(p *entity.Payment, now time.Time) (bool, error) {
	return m.transition(p, entity.PaymentStatusSucceeded, now)
}

func (m *Manager) Fail(p *entity.Payment, now time.Time) (bool, error) {
	return m.transition(p, entity.PaymentStatusFailed, now)
}

func (m *Manager) transition(p *entity.Payment, next entity.PaymentStatus, now time.Time) (bool, error) {
	if p.Status == next && next.IsTerminal() {
		return false, nil
	}
	if !p.Status.CanTransitionTo(next) {
		return false, apperror.InvariantViolation("illegal payment transition", map[string]any{
			"payment_id": p.Id.String(),
			"from":       string(p.Status),
			"to":         string(next),
		})
	}
	p.Status = next
	p.ChargeDeadline = nil
	p.UpdatedAt = now
	return true, nil
}

// ObserveNotification stamps the arrival of an outcome-bearing notification
// and disarms the charge deadline.
func (m *Manager) ObserveNotification(p *entity.Payment, at time.Time) {
	p.LastWebhookAt = &at
	p.ChargeDeadline = nil
}

// TimeoutDue reports whether the in-flight charge passed its deadline.
func (m *Manager) TimeoutDue(p *entity.Payment, now time.Time) bool {
	return p.Status == entity.PaymentStatusPending &&
		p.ChargeDeadline != nil &&
		!now.Before(*p.ChargeDeadline)
}

func Reference(paymentId uuid.UUID, seq int) string {
	return fmt.Sprintf("%s-%d", paymentId, seq)
}

// ParseReference recovers the payment id and charge sequence from a
// provider reference.
func ParseReference(ref string) (uuid.UUID, int, error) {
	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		return uuid.Nil, 0, fmt.Errorf("malformed provider reference %q", ref)
	}
	id, err := uuid.Parse(ref[:idx])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("malformed provider reference %q: %w", ref, err)
	}
	seq, err := strconv.Atoi(ref[idx+1:])
	if err != nil || seq <= 0 {
		return uuid.Nil, 0, fmt.Errorf("malformed charge sequence in %q", ref)
	}
	return id, seq, nil
}
