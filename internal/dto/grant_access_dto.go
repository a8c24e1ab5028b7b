package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateGrantRequest struct {
	// AgentId lets an admin create a grant on an agent's behalf
	AgentId *uuid.UUID `json:"agent_id"`
}

type RejectGrantRequest struct {
	Reason string `json:"reason" validate:"max=100"`
}

type CheckoutResponse struct {
	Reference   string `json:"reference"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type GrantAccessResponse struct {
	Id              uuid.UUID         `json:"id"`
	RequestId       string            `json:"request_id"`
	AgentId         uuid.UUID         `json:"agent_id"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentId       *uuid.UUID        `json:"payment_id,omitempty"`
	ChargeAmount    float64           `json:"charge_amount"`
	Currency        string            `json:"currency"`
	Attempts        int               `json:"attempts"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	TransitionedAt  time.Time         `json:"transitioned_at"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	Checkout        *CheckoutResponse `json:"checkout,omitempty"`
}
