package contract

import (
	"context"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/repository/specification"
)

type GrantAccessRepository interface {
	Create(ctx context.Context, grant *entity.GrantAccess) error
	Update(ctx context.Context, grant *entity.GrantAccess) error
	// ReleaseActiveKey frees the (request, agent) slot held by an expired grant.
	// The write is version-checked like Update.
	ReleaseActiveKey(ctx context.Context, grant *entity.GrantAccess, now time.Time) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GrantAccess, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GrantAccess, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
