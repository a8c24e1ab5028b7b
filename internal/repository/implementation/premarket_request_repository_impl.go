package implementation

import (
	"context"
	"errors"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/mapper"
	"premarket-access-be/internal/model"
	"premarket-access-be/internal/repository/contract"
	"premarket-access-be/internal/repository/specification"

	"gorm.io/gorm"
)

type preMarketRequestRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PreMarketRequestMapper
}

func NewPreMarketRequestRepository(db *gorm.DB) contract.PreMarketRequestRepository {
	return &preMarketRequestRepositoryImpl{
		db:     db,
		mapper: mapper.NewPreMarketRequestMapper(),
	}
}

func (r *preMarketRequestRepositoryImpl) Create(ctx context.Context, request *entity.PreMarketRequest) error {
	m := r.mapper.ToModel(request)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	request.CreatedAt = m.CreatedAt
	request.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *preMarketRequestRepositoryImpl) Update(ctx context.Context, request *entity.PreMarketRequest) error {
	m := r.mapper.ToModel(request)
	res := r.db.WithContext(ctx).Model(&model.PreMarketRequest{}).
		Where("id = ? AND version = ?", request.Id, request.Version).
		Updates(map[string]interface{}{
			"bedrooms":             m.Bedrooms,
			"bathrooms":            m.Bathrooms,
			"price_min":            m.PriceMin,
			"price_max":            m.PriceMax,
			"description":          m.Description,
			"moving_date_earliest": m.MovingDateEarliest,
			"moving_date_latest":   m.MovingDateLatest,
			"status":               m.Status,
			"deleted_at":           m.DeletedAt,
			"version":              request.Version + 1,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}
	request.Version++
	return nil
}

func (r *preMarketRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PreMarketRequest, error) {
	var m model.PreMarketRequest
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

func (r *preMarketRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PreMarketRequest, error) {
	var models []*model.PreMarketRequest
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
