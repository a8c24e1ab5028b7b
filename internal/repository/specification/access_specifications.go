package specification

import (
	"time"

	"premarket-access-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestByStatus struct {
	Statuses []entity.RequestStatus
}

func (s RequestByStatus) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, 0, len(s.Statuses))
	for _, st := range s.Statuses {
		values = append(values, string(st))
	}
	return db.Where("status IN ?", values)
}

// ActiveGrantFor matches the grant currently holding the (request, agent) slot
type ActiveGrantFor struct {
	RequestId string
	AgentId   uuid.UUID
}

func (s ActiveGrantFor) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("active_key = ?", entity.ActiveGrantKey(s.RequestId, s.AgentId))
}

type GrantsForRequest struct {
	RequestId string
}

func (s GrantsForRequest) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("request_id = ?", s.RequestId)
}

type GrantsForAgent struct {
	AgentId uuid.UUID
}

func (s GrantsForAgent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("agent_id = ?", s.AgentId)
}

type GrantByStatus struct {
	Statuses []entity.GrantStatus
}

func (s GrantByStatus) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, 0, len(s.Statuses))
	for _, st := range s.Statuses {
		values = append(values, string(st))
	}
	return db.Where("status IN ?", values)
}

// NonTerminalGrants matches grants that can still be rejected
func NonTerminalGrants() Specification {
	return GrantByStatus{Statuses: []entity.GrantStatus{entity.GrantStatusPending, entity.GrantStatusApproved}}
}

type PaymentForGrant struct {
	GrantId uuid.UUID
}

func (s PaymentForGrant) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("grant_id = ?", s.GrantId)
}

// DueChargeTimeouts matches pending payments whose charge deadline has passed
type DueChargeTimeouts struct {
	Now time.Time
}

func (s DueChargeTimeouts) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND charge_deadline IS NOT NULL AND charge_deadline <= ?",
		string(entity.PaymentStatusPending), s.Now)
}

type ByProviderEvent struct {
	Provider string
	EventId  string
}

func (s ByProviderEvent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider = ? AND provider_event_id = ?", s.Provider, s.EventId)
}
