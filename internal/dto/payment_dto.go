package dto

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is a verified provider notification in neutral form
type PaymentEvent struct {
	Provider          string    `validate:"required"`
	ProviderEventId   string    `validate:"required,max=120"`
	ProviderReference string    `validate:"required"`
	Outcome           string    `validate:"required,oneof=succeeded failed pending"`
	OccurredAt        time.Time `validate:"required"`
	Raw               []byte
}

type WebhookResult struct {
	GrantId       uuid.UUID `json:"grant_id"`
	PaymentId     uuid.UUID `json:"payment_id"`
	GrantStatus   string    `json:"grant_status"`
	PaymentStatus string    `json:"payment_status"`
	Attempts      int       `json:"attempts"`
	Disposition   string    `json:"disposition"`
	Replayed      bool      `json:"replayed"`
}

type TimeoutResult struct {
	GrantId       uuid.UUID `json:"grant_id"`
	TimedOut      bool      `json:"timed_out"`
	GrantStatus   string    `json:"grant_status"`
	PaymentStatus string    `json:"payment_status"`
	Attempts      int       `json:"attempts"`
}
