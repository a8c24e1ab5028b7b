package pricing

import (
	"fmt"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
)

type DecisionKind string

const (
	KindFree    DecisionKind = "free"
	KindCharged DecisionKind = "charged"
)

// Decision is the outcome of pricing a grant. Amount is zero when free.
type Decision struct {
	Kind     DecisionKind
	Amount   float64
	Currency string
}

func (d Decision) IsFree() bool {
	return d.Kind == KindFree
}

type Config struct {
	DefaultAmount  float64
	Currency       string
	BedroomTiers   map[entity.Bedrooms]float64
	PromoFreeFrom  *time.Time
	PromoFreeUntil *time.Time
}

// Input carries everything a pricing policy may look at.
type Input struct {
	Request *entity.PreMarketRequest
	Agent   entity.Actor
	At      time.Time
}

// Policy yields an amount when it applies to the input.
type Policy interface {
	Amount(in Input) (amount float64, ok bool)
}

type PolicyFunc func(in Input) (float64, bool)

func (f PolicyFunc) Amount(in Input) (float64, bool) {
	return f(in)
}

type Resolver interface {
	Resolve(in Input) (Decision, error)
}

type ConfigResolver struct {
	cfg      Config
	policies []Policy
}

// NewResolver validates cfg and builds a resolver. Extra policies run after
// the promotional window and before bedroom tiers.
func NewResolver(cfg Config, extra ...Policy) (*ConfigResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policies := []Policy{PromoWindowPolicy(cfg.PromoFreeFrom, cfg.PromoFreeUntil)}
	policies = append(policies, extra...)
	policies = append(policies, BedroomTierPolicy(cfg.BedroomTiers))

	return &ConfigResolver{cfg: cfg, policies: policies}, nil
}

func (c Config) Validate() error {
	if c.Currency != entity.CurrencyUSD {
		return apperror.InvalidPricingConfig("unsupported charge currency", map[string]any{"currency": c.Currency})
	}
	if c.DefaultAmount < 0 {
		return apperror.InvalidPricingConfig("default charge amount is negative", map[string]any{"amount": c.DefaultAmount})
	}
	for bedrooms, amount := range c.BedroomTiers {
		if !bedrooms.Valid() {
			return apperror.InvalidPricingConfig("unknown bedroom tier", map[string]any{"bedrooms": string(bedrooms)})
		}
		if amount < 0 {
			return apperror.InvalidPricingConfig("tier charge amount is negative", map[string]any{"bedrooms": string(bedrooms), "amount": amount})
		}
	}
	if c.PromoFreeFrom != nil && c.PromoFreeUntil != nil && c.PromoFreeUntil.Before(*c.PromoFreeFrom) {
		return apperror.InvalidPricingConfig("promotional window ends before it starts", nil)
	}
	return nil
}

func (r *ConfigResolver) Resolve(in Input) (Decision, error) {
	if in.Request == nil {
		return Decision{}, apperror.InvalidPricingConfig("pricing input has no request", nil)
	}

	amount := r.cfg.DefaultAmount
	for _, p := range r.policies {
		if v, ok := p.Amount(in); ok {
			amount = v
			break
		}
	}

	if amount < 0 {
		return Decision{}, apperror.InvalidPricingConfig(fmt.Sprintf("resolved negative amount %.2f", amount), nil)
	}
	if amount == 0 {
		return Decision{Kind: KindFree, Currency: r.cfg.Currency}, nil
	}
	return Decision{Kind: KindCharged, Amount: amount, Currency: r.cfg.Currency}, nil
}

// PromoWindowPolicy makes access free inside [from, until). A nil bound is open.
func PromoWindowPolicy(from, until *time.Time) Policy {
	return PolicyFunc(func(in Input) (float64, bool) {
		if from == nil && until == nil {
			return 0, false
		}
		if from != nil && in.At.Before(*from) {
			return 0, false
		}
		if until != nil && !in.At.Before(*until) {
			return 0, false
		}
		return 0, true
	})
}

func BedroomTierPolicy(tiers map[entity.Bedrooms]float64) Policy {
	return PolicyFunc(func(in Input) (float64, bool) {
		amount, ok := tiers[in.Request.Bedrooms]
		return amount, ok
	})
}
