package implementation

import (
	"context"
	"errors"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/mapper"
	"premarket-access-be/internal/model"
	"premarket-access-be/internal/repository/contract"
	"premarket-access-be/internal/repository/specification"

	"gorm.io/gorm"
)

type grantAccessRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GrantAccessMapper
}

func NewGrantAccessRepository(db *gorm.DB) contract.GrantAccessRepository {
	return &grantAccessRepositoryImpl{
		db:     db,
		mapper: mapper.NewGrantAccessMapper(),
	}
}

func (r *grantAccessRepositoryImpl) Create(ctx context.Context, grant *entity.GrantAccess) error {
	m := r.mapper.ToModel(grant)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	grant.CreatedAt = m.CreatedAt
	return nil
}

func (r *grantAccessRepositoryImpl) Update(ctx context.Context, grant *entity.GrantAccess) error {
	m := r.mapper.ToModel(grant)
	res := r.db.WithContext(ctx).Model(&model.GrantAccess{}).
		Where("id = ? AND version = ?", grant.Id, grant.Version).
		Updates(map[string]interface{}{
			"active_key":       m.ActiveKey,
			"status":           m.Status,
			"payment_status":   m.PaymentStatus,
			"payment_id":       m.PaymentId,
			"charge_amount":    m.ChargeAmount,
			"attempts":         m.Attempts,
			"rejection_reason": m.RejectionReason,
			"transitioned_at":  m.TransitionedAt,
			"expires_at":       m.ExpiresAt,
			"version":          grant.Version + 1,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}
	grant.Version++
	return nil
}

func (r *grantAccessRepositoryImpl) ReleaseActiveKey(ctx context.Context, grant *entity.GrantAccess, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.GrantAccess{}).
		Where("id = ? AND version = ?", grant.Id, grant.Version).
		Updates(map[string]interface{}{
			"active_key": nil,
			"updated_at": now,
			"version":    grant.Version + 1,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}
	grant.Version++
	return nil
}

func (r *grantAccessRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GrantAccess, error) {
	var m model.GrantAccess
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *grantAccessRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GrantAccess, error) {
	var models []*model.GrantAccess
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *grantAccessRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.GrantAccess{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
