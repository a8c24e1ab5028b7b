package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/pkg/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateGrantCharged(t *testing.T) {
	h := newHarness(t)
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()

	res := h.createGrant(t, requestId, agent)
	assert.Equal(t, string(entity.GrantStatusApproved), res.Status)
	assert.Equal(t, string(entity.PaymentStatusPending), res.PaymentStatus)
	assert.Equal(t, 50.0, res.ChargeAmount)
	assert.Zero(t, res.Attempts)
	require.NotNil(t, res.Checkout)
	assert.Equal(t, "snap-token", res.Checkout.Token)
	assert.True(t, strings.HasSuffix(res.Checkout.Reference, "-1"))

	p := h.loadPayment(t, res.Id)
	require.NotNil(t, p)
	assert.Equal(t, entity.PaymentStatusPending, p.Status)
	assert.Equal(t, *res.PaymentId, p.Id)
	require.NotNil(t, p.ChargeDeadline)
	assert.True(t, start.Add(5*time.Second).Equal(*p.ChargeDeadline))

	require.Len(t, h.scheduler.calls, 1)
	assert.Equal(t, scheduledTimeout{GrantId: res.Id, Reference: res.Checkout.Reference, Delay: 5 * time.Second}, h.scheduler.calls[0])

	h.gateway.AssertCalled(t, "CreateCharge", mock.Anything, mock.MatchedBy(func(req provider.ChargeRequest) bool {
		return req.Amount == 50 && req.Currency == entity.CurrencyUSD && req.Reference == res.Checkout.Reference
	}))
	assert.Empty(t, h.dispatcher.unlocked)
}

func TestCreateGrantFreeSkipsPayment(t *testing.T) {
	h := newHarness(t)
	requestId := h.createRequest(t, entity.BedroomsStudio)

	res := h.createGrant(t, requestId, newAgent())
	assert.Equal(t, string(entity.GrantStatusFree), res.Status)
	assert.Equal(t, string(entity.PaymentStatusFree), res.PaymentStatus)
	assert.Zero(t, res.ChargeAmount)
	assert.Nil(t, res.PaymentId)
	assert.Nil(t, res.Checkout)

	assert.Nil(t, h.loadPayment(t, res.Id))
	h.gateway.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
	assert.Empty(t, h.scheduler.calls)
	assert.Equal(t, []uuid.UUID{res.Id}, h.dispatcher.unlocked)
}

func TestCreateGrantRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()
	h.createGrant(t, requestId, agent)

	_, err := h.grants.CreateGrant(h.ctx, agent, requestId, nil)
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateActiveGrant))

	count, err := h.factory.NewUnitOfWork(h.ctx).GrantAccessRepository().Count(h.ctx, specification.GrantsForRequest{RequestId: requestId})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCreateGrantErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.grants.CreateGrant(h.ctx, newAgent(), "Rmissing", nil)
	assert.True(t, apperror.Is(err, apperror.CodeRequestNotFound))

	_, err = h.grants.CreateGrant(h.ctx, h.owner, "Rmissing", nil)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}

func TestRegrantAfterRejection(t *testing.T) {
	h := newHarness(t)
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()
	first := h.createGrant(t, requestId, agent)

	rejected, err := h.grants.RejectGrant(h.ctx, h.admin, first.Id, "")
	require.NoError(t, err)
	assert.Equal(t, string(entity.GrantStatusRejected), rejected.Status)
	assert.Equal(t, entity.RejectionAdmin, rejected.RejectionReason)
	assert.Equal(t, entity.PaymentStatusFailed, h.loadPayment(t, first.Id).Status)

	_, err = h.grants.CreateGrant(h.ctx, agent, requestId, nil)
	assert.True(t, apperror.Is(err, apperror.CodeGrantPreviouslyRejected))

	second, err := h.grants.CreateGrant(h.ctx, h.admin, requestId, &dto.CreateGrantRequest{AgentId: &agent.UserId})
	require.NoError(t, err)
	assert.Equal(t, agent.UserId, second.AgentId)
	assert.Equal(t, string(entity.GrantStatusApproved), second.Status)
}

func TestRegrantAllowedByPolicy(t *testing.T) {
	h := newHarness(t, withRegrant())
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()
	first := h.createGrant(t, requestId, agent)

	_, err := h.grants.RejectGrant(h.ctx, h.admin, first.Id, "")
	require.NoError(t, err)

	h.createGrant(t, requestId, agent)
}

func TestRejectGrantRules(t *testing.T) {
	h := newHarness(t)
	requestId := h.createRequest(t, entity.BedroomsStudio)
	agent := newAgent()
	free := h.createGrant(t, requestId, agent)

	_, err := h.grants.RejectGrant(h.ctx, agent, free.Id, "")
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))

	_, err = h.grants.RejectGrant(h.ctx, h.admin, free.Id, "")
	assert.True(t, apperror.Is(err, apperror.CodeInvariantViolation))
	assert.Equal(t, entity.GrantStatusFree, h.loadGrant(t, free.Id).Status)
}

func TestProviderFailureCountsAttempt(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down")).Once()
	h.acceptCharges()

	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()

	_, err := h.grants.CreateGrant(h.ctx, agent, requestId, nil)
	assert.True(t, apperror.Is(err, apperror.CodePaymentProviderError))
	assert.Empty(t, h.scheduler.calls)

	grants, err := h.grants.ListAgentGrants(h.ctx, agent)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, string(entity.GrantStatusApproved), grants[0].Status)
	assert.Equal(t, 1, grants[0].Attempts)

	retried, err := h.grants.RetryCharge(h.ctx, agent, grants[0].Id)
	require.NoError(t, err)
	require.NotNil(t, retried.Checkout)
	assert.True(t, strings.HasSuffix(retried.Checkout.Reference, "-2"))
	require.Len(t, h.scheduler.calls, 1)
}

func TestRetryChargeRules(t *testing.T) {
	h := newHarness(t)
	_, grantId, ref := chargedGrant(t, h)
	owner := h.loadGrant(t, grantId).AgentId
	agent := entity.Actor{UserId: owner, Role: entity.RoleAgent}

	_, err := h.grants.RetryCharge(h.ctx, agent, grantId)
	assert.True(t, apperror.Is(err, apperror.CodeChargeInFlight))

	_, err = h.grants.RetryCharge(h.ctx, newAgent(), grantId)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))

	for _, id := range []string{"F1", "F2"} {
		_, err := h.reconciler.HandleWebhook(h.ctx, h.event(id, ref, entity.PaymentOutcomeFailed))
		require.NoError(t, err)
	}
	res, err := h.grants.RetryCharge(h.ctx, agent, grantId)
	require.NoError(t, err)

	_, err = h.reconciler.HandleWebhook(h.ctx, h.event("F3", res.Checkout.Reference, entity.PaymentOutcomeFailed))
	require.NoError(t, err)

	_, err = h.grants.RetryCharge(h.ctx, agent, grantId)
	assert.True(t, apperror.Is(err, apperror.CodePaymentAttemptsExhausted))
}

func TestRetryChargeAfterCascadeIsNotAwaitingPayment(t *testing.T) {
	h := newHarness(t)
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	agent := newAgent()
	created := h.createGrant(t, requestId, agent)

	_, err := h.requests.DeleteRequest(h.ctx, h.owner, requestId)
	require.NoError(t, err)

	_, err = h.grants.RetryCharge(h.ctx, agent, created.Id)
	assert.True(t, apperror.Is(err, apperror.CodeGrantNotAwaitingPayment))
	assert.False(t, apperror.Is(err, apperror.CodePaymentAttemptsExhausted))
}

func TestCascadeReject(t *testing.T) {
	h := newHarness(t)
	h.acceptCharges()
	requestId := h.createRequest(t, entity.Bedrooms2BR)
	first := h.createGrant(t, requestId, newAgent())
	second := h.createGrant(t, requestId, newAgent())

	_, err := h.grants.CascadeReject(h.ctx, requestId)
	assert.True(t, apperror.Is(err, apperror.CodeRequestNotDeleted))

	_, err = h.requests.DeleteRequest(h.ctx, h.owner, requestId)
	require.NoError(t, err)

	n, err := h.grants.CascadeReject(h.ctx, requestId)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, id := range []uuid.UUID{first.Id, second.Id} {
		g := h.loadGrant(t, id)
		assert.Equal(t, entity.GrantStatusRejected, g.Status)
		assert.Equal(t, entity.RejectionRequestDeleted, g.RejectionReason)
		assert.Equal(t, entity.PaymentStatusFailed, h.loadPayment(t, id).Status)
	}

	_, err = h.grants.CascadeReject(h.ctx, "Rmissing")
	assert.True(t, apperror.Is(err, apperror.CodeRequestNotFound))
}

func TestExpiredGrantReleasesSlot(t *testing.T) {
	h := newHarness(t, withGrantTTL(time.Hour))
	requestId := h.createRequest(t, entity.BedroomsStudio)
	agent := newAgent()
	first := h.createGrant(t, requestId, agent)
	require.NotNil(t, first.ExpiresAt)

	_, err := h.grants.CreateGrant(h.ctx, agent, requestId, nil)
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateActiveGrant))

	h.clock.advance(2 * time.Hour)
	second := h.createGrant(t, requestId, agent)
	assert.NotEqual(t, first.Id, second.Id)
	assert.Equal(t, string(entity.GrantStatusFree), second.Status)
}

func TestGrantReads(t *testing.T) {
	h := newHarness(t)
	requestId := h.createRequest(t, entity.BedroomsStudio)
	agent := newAgent()
	g := h.createGrant(t, requestId, agent)

	got, err := h.grants.GetGrant(h.ctx, agent, g.Id)
	require.NoError(t, err)
	assert.Equal(t, g.Id, got.Id)

	_, err = h.grants.GetGrant(h.ctx, h.owner, g.Id)
	require.NoError(t, err)

	_, err = h.grants.GetGrant(h.ctx, newAgent(), g.Id)
	assert.True(t, apperror.Is(err, apperror.CodeGrantNotFound))

	list, err := h.grants.ListGrantsForRequest(h.ctx, h.owner, requestId)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.grants.ListGrantsForRequest(h.ctx, agent, requestId)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}
