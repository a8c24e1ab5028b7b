package provider

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
)

type SandboxNotification struct {
	EventId    string    `json:"event_id"`
	Reference  string    `json:"reference"`
	Outcome    string    `json:"outcome"`
	OccurredAt time.Time `json:"occurred_at"`
	Signature  string    `json:"signature"`
}

// SandboxGateway accepts every charge and trusts notifications signed with
// the shared key. It backs local development and end-to-end tests.
type SandboxGateway struct {
	key string
	now func() time.Time
}

func NewSandboxGateway(key string) *SandboxGateway {
	return &SandboxGateway{
		key: key,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (g *SandboxGateway) Name() string {
	return NameSandbox
}

func (g *SandboxGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Charge{
		ProviderReference: req.Reference,
		Token:             "sandbox-" + req.Reference,
	}, nil
}

func SandboxSignature(eventId, reference, outcome, key string) string {
	sum := sha512.Sum512([]byte(eventId + reference + outcome + key))
	return hex.EncodeToString(sum[:])
}

func (g *SandboxGateway) ParseNotification(body []byte) (*Notification, error) {
	var n SandboxNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, apperror.Validation("malformed sandbox notification", map[string]any{"error": err.Error()})
	}
	if n.EventId == "" || n.Reference == "" {
		return nil, apperror.Validation("sandbox notification is missing event_id or reference", nil)
	}

	expected := SandboxSignature(n.EventId, n.Reference, n.Outcome, g.key)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.Signature)) != 1 {
		return nil, apperror.InvalidSignature()
	}

	outcome := entity.PaymentOutcome(n.Outcome)
	if !outcome.Valid() {
		return nil, apperror.Validation("unknown sandbox outcome", map[string]any{"outcome": n.Outcome})
	}

	occurredAt := n.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = g.now()
	}

	return &Notification{
		Provider:          NameSandbox,
		EventId:           n.EventId,
		ProviderReference: n.Reference,
		Outcome:           outcome,
		OccurredAt:        occurredAt.UTC(),
		Raw:               json.RawMessage(body),
	}, nil
}
