package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string
type PaymentOutcome string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusFree      PaymentStatus = "free"

	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
	PaymentOutcomePending   PaymentOutcome = "pending"

	CurrencyUSD = "USD"
)

// free is an initial state only; it is never entered by transition
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSucceeded, PaymentStatusFailed},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusFree:
		return true
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (o PaymentOutcome) Valid() bool {
	switch o {
	case PaymentOutcomeSucceeded, PaymentOutcomeFailed, PaymentOutcomePending:
		return true
	}
	return false
}

type Payment struct {
	Id           uuid.UUID
	GrantId      uuid.UUID
	Amount       float64
	Currency     string
	Status       PaymentStatus
	AttemptCount int
	// ChargeSeq numbers provider charges; it is part of the provider reference
	ChargeSeq         int
	ProviderReference *string
	ChargedAt         *time.Time
	// ChargeDeadline is set while a charge awaits its notification
	ChargeDeadline *time.Time
	LastWebhookAt  *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Payment) ChargeInFlight() bool {
	return p.ChargeDeadline != nil
}
