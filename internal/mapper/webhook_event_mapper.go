package mapper

import (
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/model"

	"gorm.io/datatypes"
)

type WebhookEventMapper struct{}

func NewWebhookEventMapper() *WebhookEventMapper {
	return &WebhookEventMapper{}
}

func (m *WebhookEventMapper) ToEntity(e *model.WebhookEvent) *entity.WebhookEvent {
	if e == nil {
		return nil
	}
	return &entity.WebhookEvent{
		Id:                e.Id,
		Provider:          e.Provider,
		ProviderEventId:   e.ProviderEventId,
		ProviderReference: e.ProviderReference,
		PaymentId:         e.PaymentId,
		Outcome:           entity.PaymentOutcome(e.Outcome),
		Disposition:       entity.WebhookDisposition(e.Disposition),
		OccurredAt:        e.OccurredAt,
		ReceivedAt:        e.ReceivedAt,
		Payload:           []byte(e.Payload),
	}
}

func (m *WebhookEventMapper) ToModel(e *entity.WebhookEvent) *model.WebhookEvent {
	if e == nil {
		return nil
	}
	payload := datatypes.JSON(e.Payload)
	if len(payload) == 0 {
		payload = datatypes.JSON("{}")
	}
	return &model.WebhookEvent{
		Id:                e.Id,
		Provider:          e.Provider,
		ProviderEventId:   e.ProviderEventId,
		ProviderReference: e.ProviderReference,
		PaymentId:         e.PaymentId,
		Outcome:           string(e.Outcome),
		Disposition:       string(e.Disposition),
		OccurredAt:        e.OccurredAt,
		ReceivedAt:        e.ReceivedAt,
		Payload:           payload,
	}
}
