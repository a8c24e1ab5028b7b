package contract

import (
	"context"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/repository/specification"
)

type WebhookEventRepository interface {
	// Create returns ErrDuplicate when (provider, provider event id) was already recorded.
	Create(ctx context.Context, event *entity.WebhookEvent) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WebhookEvent, error)
}
