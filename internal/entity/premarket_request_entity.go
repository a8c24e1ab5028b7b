package entity

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string
type Bedrooms string
type Bathrooms string

const (
	RequestStatusActive   RequestStatus = "active"
	RequestStatusArchived RequestStatus = "archived"
	RequestStatusDeleted  RequestStatus = "deleted"

	BedroomsStudio Bedrooms = "Studio"
	Bedrooms1BR    Bedrooms = "1BR"
	Bedrooms2BR    Bedrooms = "2BR"
	Bedrooms3BR    Bedrooms = "3BR"
	Bedrooms4Plus  Bedrooms = "4BR+"

	Bathrooms1     Bathrooms = "1"
	Bathrooms2     Bathrooms = "2"
	Bathrooms3     Bathrooms = "3"
	Bathrooms4Plus Bathrooms = "4+"

	// MaxRequestPrice bounds the upper end of a request's price range
	MaxRequestPrice = 10_000_000_000
	// MaxDescriptionLength is measured in characters, not bytes
	MaxDescriptionLength = 500
	// MovingWindow is how far ahead a moving date may be placed at creation
	MovingWindow = 365 * 24 * time.Hour
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusActive:   {RequestStatusArchived, RequestStatusDeleted},
	RequestStatusArchived: {RequestStatusDeleted},
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusActive, RequestStatusArchived, RequestStatusDeleted:
		return true
	}
	return false
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (b Bedrooms) Valid() bool {
	switch b {
	case BedroomsStudio, Bedrooms1BR, Bedrooms2BR, Bedrooms3BR, Bedrooms4Plus:
		return true
	}
	return false
}

func (b Bathrooms) Valid() bool {
	switch b {
	case Bathrooms1, Bathrooms2, Bathrooms3, Bathrooms4Plus:
		return true
	}
	return false
}

// PreMarketRequest is a renter's private listing request. Full details are
// visible only to the owner, admins and agents holding an unlocked grant.
type PreMarketRequest struct {
	Id                 string
	RequesterId        uuid.UUID
	Bedrooms           Bedrooms
	Bathrooms          Bathrooms
	PriceMin           float64
	PriceMax           float64
	Description        string
	MovingDateEarliest time.Time
	MovingDateLatest   time.Time
	Status             RequestStatus
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

func (r *PreMarketRequest) IsDeleted() bool {
	return r.Status == RequestStatusDeleted
}

func (r *PreMarketRequest) IsOwnedBy(userId uuid.UUID) bool {
	return r.RequesterId == userId
}
