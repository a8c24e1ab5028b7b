package events

import "time"

const (
	TypeGrantAccessUnlocked = "GRANT_ACCESS_UNLOCKED"
	TypePaymentFailed       = "GRANT_PAYMENT_FAILED"
	TypeGrantRejected       = "GRANT_ACCESS_REJECTED"
)

// Event defines the contract for all published events.
type Event interface {
	// EventID is unique per occurrence and used for broker-side dedupe.
	EventID() string
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Id         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventID() string {
	return e.Id
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
