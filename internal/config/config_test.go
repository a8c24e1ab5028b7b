package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAX_PAYMENT_ATTEMPTS", "")
	t.Setenv("WEBHOOK_TIMEOUT_MS", "")
	t.Setenv("ALLOW_REGRANT_AFTER_REJECTION", "")

	cfg := Load()
	assert.Equal(t, 3, cfg.Access.MaxPaymentAttempts)
	assert.Equal(t, 5*time.Second, cfg.Access.WebhookTimeout())
	assert.Equal(t, "USD", cfg.Access.ChargeCurrency)
	assert.False(t, cfg.Access.AllowRegrantAfterRejection)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_PAYMENT_ATTEMPTS", "5")
	t.Setenv("DEFAULT_CHARGE_AMOUNT", "49.5")
	t.Setenv("ALLOW_REGRANT_AFTER_REJECTION", "true")
	t.Setenv("GRANT_TTL_HOURS", "48")

	cfg := Load()
	assert.Equal(t, 5, cfg.Access.MaxPaymentAttempts)
	assert.Equal(t, 49.5, cfg.Access.DefaultChargeAmount)
	assert.True(t, cfg.Access.AllowRegrantAfterRejection)
	assert.Equal(t, 48*time.Hour, cfg.Access.GrantTTL())
}

func TestBedroomTiers(t *testing.T) {
	tiers, err := AccessConfig{PricingTiers: "4BR+:75, 3BR:60"}.BedroomTiers()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"4BR+": 75, "3BR": 60}, tiers)

	_, err = AccessConfig{PricingTiers: "3BR"}.BedroomTiers()
	assert.Error(t, err)

	_, err = AccessConfig{PricingTiers: "3BR:abc"}.BedroomTiers()
	assert.Error(t, err)
}

func TestPromoWindow(t *testing.T) {
	from, until, err := AccessConfig{PromoFreeFrom: "2026-01-01T00:00:00Z"}.PromoWindow()
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Nil(t, until)

	_, _, err = AccessConfig{PromoFreeUntil: "tomorrow"}.PromoWindow()
	assert.Error(t, err)
}
