package unitofwork

import (
	"context"

	"premarket-access-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PreMarketRequestRepository() contract.PreMarketRequestRepository
	GrantAccessRepository() contract.GrantAccessRepository
	PaymentRepository() contract.PaymentRepository
	WebhookEventRepository() contract.WebhookEventRepository
}
