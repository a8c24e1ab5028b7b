package provider

import (
	"context"
	"encoding/json"
	"time"

	"premarket-access-be/internal/entity"
)

const (
	NameMidtrans = "midtrans"
	NameSandbox  = "sandbox"
)

type ChargeRequest struct {
	// Reference is chosen by the caller and echoed back in notifications
	Reference   string
	Amount      float64
	Currency    string
	Description string
}

type Charge struct {
	ProviderReference string
	Token             string
	RedirectURL       string
}

// Notification is a verified, provider-neutral payment notification.
type Notification struct {
	Provider          string
	EventId           string
	ProviderReference string
	Outcome           entity.PaymentOutcome
	OccurredAt        time.Time
	Raw               json.RawMessage
}

type Gateway interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// ParseNotification verifies and decodes a notification body.
	ParseNotification(body []byte) (*Notification, error)
}
