package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Access   AccessConfig
	Payment  PaymentConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port                  string
	Environment           string
	LogFilePath           string
	WorkerLogFilePath     string
	CorsAllowedOrigins    string
	NatsURL               string
	RedisURL              string
	JwtSecret             string
	ReplayCacheTTLMinutes int
	SweepIntervalSeconds  int
	WorkerConcurrency     int
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AccessConfig struct {
	MaxPaymentAttempts         int
	WebhookTimeoutMs           int
	DefaultChargeAmount        float64
	ChargeCurrency             string
	PricingTiers               string // "4BR+:75,3BR:60"
	PromoFreeFrom              string // RFC3339
	PromoFreeUntil             string // RFC3339
	AllowRegrantAfterRejection bool
	GrantTTLHours              int
	ConflictRetryMax           int
}

type PaymentConfig struct {
	Provider             string // "midtrans" or "sandbox"
	MidtransServerKey    string
	MidtransIsProduction bool
	FinishRedirectURL    string
	SandboxKey           string
}

type TracingConfig struct {
	Enabled      bool
	OtlpEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                  getEnv("APP_PORT", "3000"),
			Environment:           getEnv("GO_ENV", "development"),
			LogFilePath:           getEnv("LOG_FILE_PATH", "logs/app.log"),
			WorkerLogFilePath:     getEnv("WORKER_LOG_FILE_PATH", "logs/worker.log"),
			CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:               getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:             getEnv("JWT_SECRET", ""),
			ReplayCacheTTLMinutes: getEnvAsInt("REPLAY_CACHE_TTL_MINUTES", 30),
			SweepIntervalSeconds:  getEnvAsInt("TIMEOUT_SWEEP_INTERVAL_SECONDS", 30),
			WorkerConcurrency:     getEnvAsInt("WORKER_CONCURRENCY", 10),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Access: AccessConfig{
			MaxPaymentAttempts:         getEnvAsInt("MAX_PAYMENT_ATTEMPTS", 3),
			WebhookTimeoutMs:           getEnvAsInt("WEBHOOK_TIMEOUT_MS", 5000),
			DefaultChargeAmount:        getEnvAsFloat("DEFAULT_CHARGE_AMOUNT", 0),
			ChargeCurrency:             getEnv("CHARGE_CURRENCY", "USD"),
			PricingTiers:               getEnv("PRICING_TIERS", ""),
			PromoFreeFrom:              getEnv("PROMO_FREE_FROM", ""),
			PromoFreeUntil:             getEnv("PROMO_FREE_UNTIL", ""),
			AllowRegrantAfterRejection: getEnvAsBool("ALLOW_REGRANT_AFTER_REJECTION", false),
			GrantTTLHours:              getEnvAsInt("GRANT_TTL_HOURS", 0),
			ConflictRetryMax:           getEnvAsInt("CONFLICT_RETRY_MAX", 5),
		},
		Payment: PaymentConfig{
			Provider:             getEnv("PAYMENT_PROVIDER", "midtrans"),
			MidtransServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransIsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			FinishRedirectURL:    getEnv("PAYMENT_FINISH_URL", ""),
			SandboxKey:           getEnv("SANDBOX_PAYMENT_KEY", "sandbox"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OtlpEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "premarket-access-backend"),
		},
	}
}

func (c AccessConfig) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutMs) * time.Millisecond
}

func (c AccessConfig) GrantTTL() time.Duration {
	return time.Duration(c.GrantTTLHours) * time.Hour
}

// BedroomTiers parses PRICING_TIERS into bedroom label -> amount.
func (c AccessConfig) BedroomTiers() (map[string]float64, error) {
	tiers := make(map[string]float64)
	if strings.TrimSpace(c.PricingTiers) == "" {
		return tiers, nil
	}
	for _, part := range strings.Split(c.PricingTiers, ",") {
		label, amount, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid pricing tier %q", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid pricing tier amount %q: %w", part, err)
		}
		tiers[strings.TrimSpace(label)] = v
	}
	return tiers, nil
}

// PromoWindow parses the optional promotional free-access window.
func (c AccessConfig) PromoWindow() (from, until *time.Time, err error) {
	parse := func(v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	if from, err = parse(c.PromoFreeFrom); err != nil {
		return nil, nil, fmt.Errorf("invalid PROMO_FREE_FROM: %w", err)
	}
	if until, err = parse(c.PromoFreeUntil); err != nil {
		return nil, nil, fmt.Errorf("invalid PROMO_FREE_UNTIL: %w", err)
	}
	return from, until, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
