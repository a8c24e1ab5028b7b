package model

import (
	"time"

	"github.com/google/uuid"
)

type PreMarketRequest struct {
	Id                 string     `gorm:"type:varchar(32);primaryKey"`
	RequesterId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Bedrooms           string     `gorm:"type:varchar(10);not null"`
	Bathrooms          string     `gorm:"type:varchar(5);not null"`
	PriceMin           float64    `gorm:"type:decimal(14,2);not null"`
	PriceMax           float64    `gorm:"type:decimal(14,2);not null"`
	Description        string     `gorm:"type:varchar(2000)"`
	MovingDateEarliest time.Time  `gorm:"not null"`
	MovingDateLatest   time.Time  `gorm:"not null"`
	Status             string     `gorm:"type:varchar(20);not null;index"`
	Version            int64      `gorm:"not null"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
	DeletedAt          *time.Time // status-driven soft delete, rows stay readable
}

func (PreMarketRequest) TableName() string {
	return "premarket_requests"
}
