package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WebhookEvent struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Provider          string         `gorm:"type:varchar(30);not null;uniqueIndex:idx_webhook_provider_event"`
	ProviderEventId   string         `gorm:"type:varchar(120);not null;uniqueIndex:idx_webhook_provider_event"`
	ProviderReference string         `gorm:"type:varchar(80);not null;index"`
	PaymentId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Outcome           string         `gorm:"type:varchar(20);not null"`
	Disposition       string         `gorm:"type:varchar(30);not null"`
	OccurredAt        time.Time      `gorm:"not null"`
	ReceivedAt        time.Time      `gorm:"not null"`
	Payload           datatypes.JSON
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
