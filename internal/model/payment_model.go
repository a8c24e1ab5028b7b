package model

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"`
	GrantId           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Amount            float64   `gorm:"type:decimal(12,2);not null"`
	Currency          string    `gorm:"type:varchar(3);not null"`
	Status            string    `gorm:"type:varchar(20);not null;index"`
	AttemptCount      int       `gorm:"not null"`
	ChargeSeq         int       `gorm:"not null"`
	ProviderReference *string   `gorm:"type:varchar(80)"`
	ChargedAt         *time.Time
	ChargeDeadline    *time.Time `gorm:"index"`
	LastWebhookAt     *time.Time
	Version           int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
