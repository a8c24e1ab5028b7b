package mapper

import (
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/model"
)

type PaymentMapper struct{}

func NewPaymentMapper() *PaymentMapper {
	return &PaymentMapper{}
}

func (m *PaymentMapper) ToEntity(p *model.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	return &entity.Payment{
		Id:                p.Id,
		GrantId:           p.GrantId,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            entity.PaymentStatus(p.Status),
		AttemptCount:      p.AttemptCount,
		ChargeSeq:         p.ChargeSeq,
		ProviderReference: p.ProviderReference,
		ChargedAt:         p.ChargedAt,
		ChargeDeadline:    p.ChargeDeadline,
		LastWebhookAt:     p.LastWebhookAt,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (m *PaymentMapper) ToModel(p *entity.Payment) *model.Payment {
	if p == nil {
		return nil
	}
	return &model.Payment{
		Id:                p.Id,
		GrantId:           p.GrantId,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            string(p.Status),
		AttemptCount:      p.AttemptCount,
		ChargeSeq:         p.ChargeSeq,
		ProviderReference: p.ProviderReference,
		ChargedAt:         p.ChargedAt,
		ChargeDeadline:    p.ChargeDeadline,
		LastWebhookAt:     p.LastWebhookAt,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (m *PaymentMapper) ToEntities(payments []*model.Payment) []*entity.Payment {
	res := make([]*entity.Payment, 0, len(payments))
	for _, p := range payments {
		res = append(res, m.ToEntity(p))
	}
	return res
}
