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

type webhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WebhookEventMapper
}

func NewWebhookEventRepository(db *gorm.DB) contract.WebhookEventRepository {
	return &webhookEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewWebhookEventMapper(),
	}
}

func (r *webhookEventRepositoryImpl) Create(ctx context.Context, event *entity.WebhookEvent) error {
	return translateError(r.db.WithContext(ctx).Create(r.mapper.ToModel(event)).Error)
}

func (r *webhookEventRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error) {
	var m model.WebhookEvent
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

func (r *webhookEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WebhookEvent, error) {
	var models []*model.WebhookEvent
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	res := make([]*entity.WebhookEvent, 0, len(models))
	for _, m := range models {
		res = append(res, r.mapper.ToEntity(m))
	}
	return res, nil
}
