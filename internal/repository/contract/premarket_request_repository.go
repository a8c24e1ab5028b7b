package contract

import (
	"context"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/repository/specification"
)

type PreMarketRequestRepository interface {
	Create(ctx context.Context, request *entity.PreMarketRequest) error
	// Update writes the request if its version is unchanged and bumps it.
	Update(ctx context.Context, request *entity.PreMarketRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PreMarketRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PreMarketRequest, error)
}
