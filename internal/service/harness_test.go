package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/repository/memory"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/pkg/access/grant"
	"premarket-access-be/pkg/access/payment"
	"premarket-access-be/pkg/access/pricing"
	"premarket-access-be/pkg/database"
	"premarket-access-be/pkg/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string {
	return "mock"
}

func (m *mockGateway) CreateCharge(ctx context.Context, req provider.ChargeRequest) (*provider.Charge, error) {
	args := m.Called(ctx, req)
	charge, _ := args.Get(0).(*provider.Charge)
	return charge, args.Error(1)
}

func (m *mockGateway) ParseNotification(body []byte) (*provider.Notification, error) {
	return nil, errors.New("not supported")
}

type scheduledTimeout struct {
	GrantId   uuid.UUID
	Reference string
	Delay     time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledTimeout
	err   error
}

func (f *fakeScheduler) ScheduleChargeTimeout(ctx context.Context, grantId uuid.UUID, reference string, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduledTimeout{GrantId: grantId, Reference: reference, Delay: delay})
	return f.err
}

type recordingDispatcher struct {
	mu        sync.Mutex
	unlocked  []uuid.UUID
	failed    []uuid.UUID
	exhausted []bool
	rejected  []uuid.UUID
}

func (d *recordingDispatcher) AccessUnlocked(ctx context.Context, g *entity.GrantAccess) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unlocked = append(d.unlocked, g.Id)
}

func (d *recordingDispatcher) PaymentFailed(ctx context.Context, g *entity.GrantAccess, exhausted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = append(d.failed, g.Id)
	d.exhausted = append(d.exhausted, exhausted)
}

func (d *recordingDispatcher) GrantRejected(ctx context.Context, g *entity.GrantAccess) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejected = append(d.rejected, g.Id)
}

type harness struct {
	ctx        context.Context
	clock      *testClock
	factory    unitofwork.RepositoryFactory
	gateway    *mockGateway
	scheduler  *fakeScheduler
	dispatcher *recordingDispatcher
	replays    *memory.ReplayCache

	requests   IPreMarketRequestService
	grants     IGrantAccessService
	reconciler IWebhookReconcilerService

	owner entity.Actor
	admin entity.Actor
}

type harnessOption func(*AccessConfig, *pricing.Config, *time.Duration)

func withGrantTTL(ttl time.Duration) harnessOption {
	return func(_ *AccessConfig, _ *pricing.Config, grantTTL *time.Duration) {
		*grantTTL = ttl
	}
}

func withRegrant() harnessOption {
	return func(cfg *AccessConfig, _ *pricing.Config, _ *time.Duration) {
		cfg.AllowRegrantAfterRejection = true
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	db, err := database.NewQuietGormDB(database.DriverSQLite, filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	clock := &testClock{t: start}
	cfg := AccessConfig{
		WebhookTimeout:   5 * time.Second,
		ConflictRetryMax: 3,
		Clock:            clock.now,
	}
	pricingCfg := pricing.Config{
		DefaultAmount: 50,
		Currency:      entity.CurrencyUSD,
		BedroomTiers:  map[entity.Bedrooms]float64{entity.BedroomsStudio: 0},
	}
	var grantTTL time.Duration
	for _, opt := range opts {
		opt(&cfg, &pricingCfg, &grantTTL)
	}

	resolver, err := pricing.NewResolver(pricingCfg)
	require.NoError(t, err)

	log := logger.NewNopLogger()
	payments := payment.NewManager(payment.DefaultMaxAttempts)
	grants := grant.NewManager(payments, log, grantTTL)
	factory := unitofwork.NewRepositoryFactory(db)

	h := &harness{
		ctx:        context.Background(),
		clock:      clock,
		factory:    factory,
		gateway:    &mockGateway{},
		scheduler:  &fakeScheduler{},
		dispatcher: &recordingDispatcher{},
		replays:    memory.NewReplayCache(time.Minute),
		owner:      entity.Actor{UserId: uuid.New(), Role: entity.RoleRenter},
		admin:      entity.Actor{UserId: uuid.New(), Role: entity.RoleAdmin},
	}
	h.requests = NewPreMarketRequestService(factory, grants, h.dispatcher, log, cfg)
	h.grants = NewGrantAccessService(factory, resolver, grants, payments, h.gateway, h.scheduler, h.dispatcher, log, cfg)
	h.reconciler = NewWebhookReconcilerService(factory, grants, payments, h.replays, h.dispatcher, log, cfg)
	return h
}

func (h *harness) acceptCharges() {
	h.gateway.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&provider.Charge{Token: "snap-token", RedirectURL: "https://pay.example/checkout"}, nil)
}

func newAgent() entity.Actor {
	return entity.Actor{UserId: uuid.New(), Role: entity.RoleAgent}
}

func (h *harness) validRequest(bedrooms entity.Bedrooms) *dto.CreatePreMarketRequest {
	return &dto.CreatePreMarketRequest{
		Bedrooms:           string(bedrooms),
		Bathrooms:          string(entity.Bathrooms2),
		PriceMin:           2000,
		PriceMax:           3500,
		Description:        "Quiet two bedroom near the park, pets allowed",
		MovingDateEarliest: start.AddDate(0, 1, 0),
		MovingDateLatest:   start.AddDate(0, 2, 0),
	}
}

func (h *harness) createRequest(t *testing.T, bedrooms entity.Bedrooms) string {
	t.Helper()
	res, err := h.requests.CreateRequest(h.ctx, h.owner, h.validRequest(bedrooms))
	require.NoError(t, err)
	return res.Id
}

func (h *harness) createGrant(t *testing.T, requestId string, agent entity.Actor) *dto.GrantAccessResponse {
	t.Helper()
	res, err := h.grants.CreateGrant(h.ctx, agent, requestId, nil)
	require.NoError(t, err)
	return res
}

func (h *harness) event(id, reference string, outcome entity.PaymentOutcome) *dto.PaymentEvent {
	return &dto.PaymentEvent{
		Provider:          provider.NameSandbox,
		ProviderEventId:   id,
		ProviderReference: reference,
		Outcome:           string(outcome),
		OccurredAt:        h.clock.now(),
		Raw:               []byte(`{"source":"test"}`),
	}
}

func (h *harness) loadGrant(t *testing.T, id uuid.UUID) *entity.GrantAccess {
	t.Helper()
	g, err := h.factory.NewUnitOfWork(h.ctx).GrantAccessRepository().FindOne(h.ctx, specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func (h *harness) loadPayment(t *testing.T, grantId uuid.UUID) *entity.Payment {
	t.Helper()
	p, err := h.factory.NewUnitOfWork(h.ctx).PaymentRepository().FindOne(h.ctx, specification.PaymentForGrant{GrantId: grantId})
	require.NoError(t, err)
	return p
}
