package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"premarket-access-be/internal/config"
	"premarket-access-be/internal/controller"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/repository/memory"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/internal/service"
	"premarket-access-be/internal/worker"
	"premarket-access-be/pkg/access/events"
	"premarket-access-be/pkg/access/grant"
	"premarket-access-be/pkg/access/payment"
	"premarket-access-be/pkg/access/pricing"
	pktNats "premarket-access-be/pkg/nats"
	"premarket-access-be/pkg/provider"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RequestController controller.IRequestController
	GrantController   controller.IGrantController
	PaymentController controller.IPaymentController

	// Services (exposed for the worker entrypoint)
	RequestService    service.IPreMarketRequestService
	GrantService      service.IGrantAccessService
	ReconcilerService service.IWebhookReconcilerService

	// Background loops (exposed for main.go to run)
	Sweeper *worker.Sweeper
	Relay   *events.Relay

	Logger logger.ILogger
	Redis  *redis.Client

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	resolver, err := newPricingResolver(cfg.Access)
	if err != nil {
		return nil, err
	}

	payments := payment.NewManager(cfg.Access.MaxPaymentAttempts)
	grants := grant.NewManager(payments, sysLogger, cfg.Access.GrantTTL())
	replays := memory.NewReplayCache(time.Duration(cfg.App.ReplayCacheTTLMinutes) * time.Minute)

	// 2. Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	dispatcher := events.NewBusDispatcher(pubSub, sysLogger)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS is optional; without it the relay only logs
	var relayPublisher events.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		relayPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	c.Relay = events.NewRelay(pubSub, relayPublisher, sysLogger)

	// 3. Redis + asynq for charge timeouts
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (timeouts fall back to the sweeper)", err)
	}
	c.Redis = rdb

	taskClient := worker.NewClient(rdb)
	c.closers = append(c.closers, func() { _ = taskClient.Close() })
	scheduler := worker.NewTimeoutScheduler(taskClient)

	// 4. Payment gateways
	gateway, gateways, err := newGateways(cfg.Payment)
	if err != nil {
		return nil, err
	}
	if gateway.Name() == provider.NameMidtrans {
		if err := requireWholeAmounts(cfg.Access); err != nil {
			return nil, err
		}
	}
	log.Printf("[INFO] Using payment provider: %s", gateway.Name())

	// 5. Services
	accessCfg := service.AccessConfig{
		WebhookTimeout:             cfg.Access.WebhookTimeout(),
		AllowRegrantAfterRejection: cfg.Access.AllowRegrantAfterRejection,
		ConflictRetryMax:           cfg.Access.ConflictRetryMax,
	}

	c.RequestService = service.NewPreMarketRequestService(uowFactory, grants, dispatcher, sysLogger, accessCfg)
	c.GrantService = service.NewGrantAccessService(uowFactory, resolver, grants, payments, gateway, scheduler, dispatcher, sysLogger, accessCfg)
	c.ReconcilerService = service.NewWebhookReconcilerService(uowFactory, grants, payments, replays, dispatcher, sysLogger, accessCfg)

	c.Sweeper = worker.NewSweeper(c.ReconcilerService, time.Duration(cfg.App.SweepIntervalSeconds)*time.Second, sysLogger)

	// 6. Controllers
	auth := serverutils.JwtMiddleware(cfg.App.JwtSecret)
	c.RequestController = controller.NewRequestController(c.RequestService, auth)
	c.GrantController = controller.NewGrantController(c.GrantService, c.ReconcilerService, auth)
	c.PaymentController = controller.NewPaymentController(c.ReconcilerService, sysLogger, gateways...)

	return c, nil
}

// Close releases the buses and clients in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	_ = c.Logger.Sync()
}

func newPricingResolver(cfg config.AccessConfig) (*pricing.ConfigResolver, error) {
	raw, err := cfg.BedroomTiers()
	if err != nil {
		return nil, err
	}
	tiers := make(map[entity.Bedrooms]float64, len(raw))
	for label, amount := range raw {
		b := entity.Bedrooms(label)
		if !b.Valid() {
			return nil, fmt.Errorf("unknown bedroom tier %q", label)
		}
		tiers[b] = amount
	}

	from, until, err := cfg.PromoWindow()
	if err != nil {
		return nil, err
	}

	return pricing.NewResolver(pricing.Config{
		DefaultAmount:  cfg.DefaultChargeAmount,
		Currency:       cfg.ChargeCurrency,
		BedroomTiers:   tiers,
		PromoFreeFrom:  from,
		PromoFreeUntil: until,
	})
}

// requireWholeAmounts refuses pricing that midtrans could not charge exactly.
func requireWholeAmounts(cfg config.AccessConfig) error {
	tiers, err := cfg.BedroomTiers()
	if err != nil {
		return err
	}
	if !provider.WholeAmount(cfg.DefaultChargeAmount) {
		return fmt.Errorf("DEFAULT_CHARGE_AMOUNT %.2f is not a whole amount, midtrans charges whole units only", cfg.DefaultChargeAmount)
	}
	for label, amount := range tiers {
		if !provider.WholeAmount(amount) {
			return fmt.Errorf("pricing tier %s amount %.2f is not a whole amount, midtrans charges whole units only", label, amount)
		}
	}
	return nil
}

// newGateways returns the gateway used for new charges plus every gateway
// whose notifications are accepted. Sandbox notifications are only accepted
// outside production.
func newGateways(cfg config.PaymentConfig) (provider.Gateway, []provider.Gateway, error) {
	switch cfg.Provider {
	case provider.NameMidtrans:
		if cfg.MidtransServerKey == "" {
			return nil, nil, fmt.Errorf("MIDTRANS_SERVER_KEY is required for the midtrans provider")
		}
		g := provider.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransIsProduction, cfg.FinishRedirectURL)
		return g, []provider.Gateway{g}, nil
	case provider.NameSandbox:
		g := provider.NewSandboxGateway(cfg.SandboxKey)
		return g, []provider.Gateway{g}, nil
	default:
		return nil, nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// NewTimeoutServer builds the asynq server that runs charge timeouts against
// the container's reconciler.
func (c *Container) NewTimeoutServer(concurrency int) (*asynq.Server, *asynq.ServeMux) {
	processor := worker.NewTimeoutProcessor(c.ReconcilerService, c.Logger)
	return worker.NewServer(c.Redis, concurrency, c.Logger), processor.Mux()
}
