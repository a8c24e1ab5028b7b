package model

import (
	"time"

	"github.com/google/uuid"
)

type GrantAccess struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestId string    `gorm:"type:varchar(32);not null;index"`
	AgentId   uuid.UUID `gorm:"type:uuid;not null;index"`
	// ActiveKey is "requestId:agentId" while the grant is active and NULL once released
	ActiveKey       *string    `gorm:"type:varchar(80);uniqueIndex"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	PaymentStatus   string     `gorm:"type:varchar(20);not null"`
	PaymentId       *uuid.UUID `gorm:"type:uuid"`
	ChargeAmount    float64    `gorm:"type:decimal(12,2);not null"`
	Currency        string     `gorm:"type:varchar(3);not null"`
	Attempts        int        `gorm:"not null"`
	RejectionReason string     `gorm:"type:varchar(100)"`
	TransitionedAt  time.Time  `gorm:"not null"`
	ExpiresAt       *time.Time
	Version         int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (GrantAccess) TableName() string {
	return "grant_accesses"
}
