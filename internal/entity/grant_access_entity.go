package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GrantStatus string

const (
	GrantStatusPending  GrantStatus = "pending"
	GrantStatusApproved GrantStatus = "approved" // priced and awaiting payment, still locked
	GrantStatusFree     GrantStatus = "free"
	GrantStatusRejected GrantStatus = "rejected"
	GrantStatusPaid     GrantStatus = "paid"
)

const (
	RejectionPaymentAttemptsExhausted = "payment_attempts_exhausted"
	RejectionRequestDeleted           = "request_deleted"
	RejectionAdmin                    = "rejected_by_admin"
)

var grantTransitions = map[GrantStatus][]GrantStatus{
	GrantStatusPending:  {GrantStatusFree, GrantStatusApproved, GrantStatusRejected},
	GrantStatusApproved: {GrantStatusPaid, GrantStatusRejected},
}

func (s GrantStatus) Valid() bool {
	switch s {
	case GrantStatusPending, GrantStatusApproved, GrantStatusFree, GrantStatusRejected, GrantStatusPaid:
		return true
	}
	return false
}

func (s GrantStatus) IsTerminal() bool {
	return s == GrantStatusFree || s == GrantStatusPaid || s == GrantStatusRejected
}

// IsUnlocked reports whether the status grants full-detail access.
func (s GrantStatus) IsUnlocked() bool {
	return s == GrantStatusFree || s == GrantStatusPaid
}

func (s GrantStatus) CanTransitionTo(next GrantStatus) bool {
	for _, allowed := range grantTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// GrantAccess is an agent's request to unlock a PreMarketRequest.
// PaymentStatus and Attempts mirror the linked Payment.
type GrantAccess struct {
	Id              uuid.UUID
	RequestId       string
	AgentId         uuid.UUID
	Status          GrantStatus
	PaymentStatus   PaymentStatus
	PaymentId       *uuid.UUID
	ChargeAmount    float64
	Currency        string
	Attempts        int
	RejectionReason string
	CreatedAt       time.Time
	TransitionedAt  time.Time
	ExpiresAt       *time.Time
	Version         int64
}

// IsActive reports whether the grant still occupies the (request, agent) slot.
func (g *GrantAccess) IsActive(now time.Time) bool {
	if g.Status == GrantStatusRejected {
		return false
	}
	return !g.IsExpired(now)
}

func (g *GrantAccess) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

func (g *GrantAccess) IsUnlocked(now time.Time) bool {
	return g.Status.IsUnlocked() && !g.IsExpired(now)
}

func ActiveGrantKey(requestId string, agentId uuid.UUID) string {
	return fmt.Sprintf("%s:%s", requestId, agentId)
}
