package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePreMarketRequest struct {
	Bedrooms           string    `json:"bedrooms" validate:"required,oneof=Studio 1BR 2BR 3BR 4BR+"`
	Bathrooms          string    `json:"bathrooms" validate:"required,oneof=1 2 3 4+"`
	PriceMin           float64   `json:"price_min" validate:"gte=0,lte=10000000000"`
	PriceMax           float64   `json:"price_max" validate:"gte=0,lte=10000000000,gtefield=PriceMin"`
	Description        string    `json:"description" validate:"max=500"`
	MovingDateEarliest time.Time `json:"moving_date_earliest" validate:"required"`
	MovingDateLatest   time.Time `json:"moving_date_latest" validate:"required,gtefield=MovingDateEarliest"`
}

// PreMarketRequestResponse always carries the summary fields. The detail
// fields are only filled when the caller may view full details.
type PreMarketRequestResponse struct {
	Id          string    `json:"id"`
	Bedrooms    string    `json:"bedrooms"`
	Bathrooms   string    `json:"bathrooms"`
	PriceMin    float64   `json:"price_min"`
	PriceMax    float64   `json:"price_max"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	FullDetails bool      `json:"full_details"`

	RequesterId        *uuid.UUID `json:"requester_id,omitempty"`
	Description        string     `json:"description,omitempty"`
	MovingDateEarliest *time.Time `json:"moving_date_earliest,omitempty"`
	MovingDateLatest   *time.Time `json:"moving_date_latest,omitempty"`
}

type DeleteRequestResponse struct {
	Request        *PreMarketRequestResponse `json:"request"`
	RejectedGrants int                       `json:"rejected_grants"`
}

type CanViewResponse struct {
	RequestId string    `json:"request_id"`
	AgentId   uuid.UUID `json:"agent_id"`
	CanView   bool      `json:"can_view"`
}
