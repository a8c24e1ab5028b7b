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

type paymentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PaymentMapper
}

func NewPaymentRepository(db *gorm.DB) contract.PaymentRepository {
	return &paymentRepositoryImpl{
		db:     db,
		mapper: mapper.NewPaymentMapper(),
	}
}

func (r *paymentRepositoryImpl) Create(ctx context.Context, payment *entity.Payment) error {
	m := r.mapper.ToModel(payment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	payment.CreatedAt = m.CreatedAt
	payment.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *paymentRepositoryImpl) Update(ctx context.Context, payment *entity.Payment) error {
	m := r.mapper.ToModel(payment)
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND version = ?", payment.Id, payment.Version).
		Updates(map[string]interface{}{
			"status":             m.Status,
			"attempt_count":      m.AttemptCount,
			"charge_seq":         m.ChargeSeq,
			"provider_reference": m.ProviderReference,
			"charged_at":         m.ChargedAt,
			"charge_deadline":    m.ChargeDeadline,
			"last_webhook_at":    m.LastWebhookAt,
			"version":            payment.Version + 1,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}
	payment.Version++
	return nil
}

func (r *paymentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	var m model.Payment
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

func (r *paymentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	var models []*model.Payment
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
