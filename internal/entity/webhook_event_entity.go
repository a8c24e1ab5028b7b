package entity

import (
	"time"

	"github.com/google/uuid"
)

type WebhookDisposition string

const (
	WebhookDispositionApplied         WebhookDisposition = "applied"
	WebhookDispositionIgnoredTerminal WebhookDisposition = "ignored_terminal"
	WebhookDispositionIgnoredPending  WebhookDisposition = "ignored_pending"

	// ProviderTimeout marks failures synthesized when no notification arrived in time
	ProviderTimeout = "timeout"
)

// WebhookEvent is the durable record of a processed provider notification.
// (Provider, ProviderEventId) is unique.
type WebhookEvent struct {
	Id                uuid.UUID
	Provider          string
	ProviderEventId   string
	ProviderReference string
	PaymentId         uuid.UUID
	Outcome           PaymentOutcome
	Disposition       WebhookDisposition
	OccurredAt        time.Time
	ReceivedAt        time.Time
	Payload           []byte
}
