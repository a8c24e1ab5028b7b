package grant

import (
	"testing"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/pkg/access/payment"
	"premarket-access-be/pkg/access/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newManager(ttl time.Duration) *Manager {
	return NewManager(payment.NewManager(3), logger.NewNopLogger(), ttl)
}

func TestTransitionTable(t *testing.T) {
	all := []entity.GrantStatus{
		entity.GrantStatusPending,
		entity.GrantStatusApproved,
		entity.GrantStatusFree,
		entity.GrantStatusRejected,
		entity.GrantStatusPaid,
	}
	allowed := map[[2]entity.GrantStatus]bool{
		{entity.GrantStatusPending, entity.GrantStatusFree}:      true,
		{entity.GrantStatusPending, entity.GrantStatusApproved}:  true,
		{entity.GrantStatusPending, entity.GrantStatusRejected}:  true,
		{entity.GrantStatusApproved, entity.GrantStatusPaid}:     true,
		{entity.GrantStatusApproved, entity.GrantStatusRejected}: true,
	}

	m := newManager(0)
	for _, from := range all {
		for _, to := range all {
			g := &entity.GrantAccess{Id: uuid.New(), Status: from}
			changed, err := m.Transition(g, to, "", now)

			switch {
			case allowed[[2]entity.GrantStatus{from, to}]:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.True(t, changed)
				assert.Equal(t, to, g.Status)
			case from == to && from.IsTerminal():
				require.NoError(t, err, "%s -> %s", from, to)
				assert.False(t, changed)
			default:
				assert.True(t, apperror.Is(err, apperror.CodeInvariantViolation), "%s -> %s", from, to)
				assert.Equal(t, from, g.Status)
			}
		}
	}
}

func TestApplyPricingFree(t *testing.T) {
	m := newManager(0)
	g := m.NewGrant("R1", uuid.New(), now)

	p, err := m.ApplyPricing(g, pricing.Decision{Kind: pricing.KindFree, Currency: "USD"}, now)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, entity.GrantStatusFree, g.Status)
	assert.Equal(t, entity.PaymentStatusFree, g.PaymentStatus)
	assert.Zero(t, g.ChargeAmount)
	assert.Nil(t, g.PaymentId)
	assert.True(t, g.IsUnlocked(now))
}

func TestApplyPricingCharged(t *testing.T) {
	m := newManager(0)
	g := m.NewGrant("R1", uuid.New(), now)

	p, err := m.ApplyPricing(g, pricing.Decision{Kind: pricing.KindCharged, Amount: 50, Currency: "USD"}, now)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, entity.GrantStatusApproved, g.Status)
	assert.Equal(t, entity.PaymentStatusPending, g.PaymentStatus)
	assert.Equal(t, 50.0, g.ChargeAmount)
	assert.Equal(t, p.Id, *g.PaymentId)
	assert.Equal(t, g.Id, p.GrantId)
	assert.Zero(t, p.AttemptCount)
	assert.False(t, g.IsUnlocked(now))
}

func TestUnlockStampsExpiry(t *testing.T) {
	m := newManager(24 * time.Hour)
	g := m.NewGrant("R1", uuid.New(), now)
	_, err := m.ApplyPricing(g, pricing.Decision{Kind: pricing.KindFree, Currency: "USD"}, now)
	require.NoError(t, err)

	require.NotNil(t, g.ExpiresAt)
	assert.True(t, g.IsUnlocked(now.Add(23*time.Hour)))
	assert.False(t, g.IsUnlocked(now.Add(24*time.Hour)))
	assert.False(t, g.IsActive(now.Add(25*time.Hour)))
}

func TestRejectFailsPendingPayment(t *testing.T) {
	m := newManager(0)
	g := m.NewGrant("R1", uuid.New(), now)
	p, err := m.ApplyPricing(g, pricing.Decision{Kind: pricing.KindCharged, Amount: 50, Currency: "USD"}, now)
	require.NoError(t, err)

	changed, err := m.Reject(g, p, entity.RejectionRequestDeleted, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.GrantStatusRejected, g.Status)
	assert.Equal(t, entity.PaymentStatusFailed, p.Status)
	assert.Equal(t, entity.PaymentStatusFailed, g.PaymentStatus)
	assert.Equal(t, entity.RejectionRequestDeleted, g.RejectionReason)
	assert.False(t, g.IsActive(now))

	changed, err = m.Reject(g, p, entity.RejectionRequestDeleted, now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRejectPaidGrantIsInvariantViolation(t *testing.T) {
	m := newManager(0)
	g := &entity.GrantAccess{Id: uuid.New(), Status: entity.GrantStatusPaid, PaymentStatus: entity.PaymentStatusSucceeded}

	_, err := m.Reject(g, nil, entity.RejectionAdmin, now)
	assert.True(t, apperror.Is(err, apperror.CodeInvariantViolation))
	assert.Equal(t, entity.GrantStatusPaid, g.Status)
}

func chargedGrant(t *testing.T, m *Manager) (*entity.GrantAccess, *entity.Payment) {
	t.Helper()
	g := m.NewGrant("R1", uuid.New(), now)
	p, err := m.ApplyPricing(g, pricing.Decision{Kind: pricing.KindCharged, Amount: 50, Currency: "USD"}, now)
	require.NoError(t, err)
	return g, p
}

func TestMarkPaid(t *testing.T) {
	m := newManager(0)
	g, p := chargedGrant(t, m)

	changed, err := m.MarkPaid(g, p, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.GrantStatusPaid, g.Status)
	assert.Equal(t, entity.PaymentStatusSucceeded, g.PaymentStatus)
	assert.True(t, g.IsUnlocked(now))

	changed, err = m.MarkPaid(g, p, now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRecordFailureRejectsAtCeiling(t *testing.T) {
	m := newManager(0)
	g, p := chargedGrant(t, m)

	for i := 1; i <= 2; i++ {
		exhausted, err := m.RecordFailure(g, p, now)
		require.NoError(t, err)
		assert.False(t, exhausted)
		assert.Equal(t, i, g.Attempts)
		assert.Equal(t, entity.GrantStatusApproved, g.Status)
	}

	exhausted, err := m.RecordFailure(g, p, now)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Equal(t, 3, g.Attempts)
	assert.Equal(t, entity.GrantStatusRejected, g.Status)
	assert.Equal(t, entity.PaymentStatusFailed, g.PaymentStatus)
	assert.Equal(t, entity.RejectionPaymentAttemptsExhausted, g.RejectionReason)

	_, err = m.RecordFailure(g, p, now)
	assert.True(t, apperror.Is(err, apperror.CodeInvariantViolation))
	assert.Equal(t, 3, p.AttemptCount)
}
