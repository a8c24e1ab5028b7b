package mapper

import (
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/model"
)

type GrantAccessMapper struct{}

func NewGrantAccessMapper() *GrantAccessMapper {
	return &GrantAccessMapper{}
}

func (m *GrantAccessMapper) ToEntity(g *model.GrantAccess) *entity.GrantAccess {
	if g == nil {
		return nil
	}
	return &entity.GrantAccess{
		Id:              g.Id,
		RequestId:       g.RequestId,
		AgentId:         g.AgentId,
		Status:          entity.GrantStatus(g.Status),
		PaymentStatus:   entity.PaymentStatus(g.PaymentStatus),
		PaymentId:       g.PaymentId,
		ChargeAmount:    g.ChargeAmount,
		Currency:        g.Currency,
		Attempts:        g.Attempts,
		RejectionReason: g.RejectionReason,
		CreatedAt:       g.CreatedAt,
		TransitionedAt:  g.TransitionedAt,
		ExpiresAt:       g.ExpiresAt,
		Version:         g.Version,
	}
}

// ToModel derives the active key from status: rejected grants release it.
// Expired grants release it explicitly through the repository.
func (m *GrantAccessMapper) ToModel(g *entity.GrantAccess) *model.GrantAccess {
	if g == nil {
		return nil
	}
	return &model.GrantAccess{
		Id:              g.Id,
		RequestId:       g.RequestId,
		AgentId:         g.AgentId,
		ActiveKey:       m.ActiveKey(g),
		Status:          string(g.Status),
		PaymentStatus:   string(g.PaymentStatus),
		PaymentId:       g.PaymentId,
		ChargeAmount:    g.ChargeAmount,
		Currency:        g.Currency,
		Attempts:        g.Attempts,
		RejectionReason: g.RejectionReason,
		TransitionedAt:  g.TransitionedAt,
		ExpiresAt:       g.ExpiresAt,
		Version:         g.Version,
		CreatedAt:       g.CreatedAt,
	}
}

func (m *GrantAccessMapper) ActiveKey(g *entity.GrantAccess) *string {
	if g.Status == entity.GrantStatusRejected {
		return nil
	}
	key := entity.ActiveGrantKey(g.RequestId, g.AgentId)
	return &key
}

func (m *GrantAccessMapper) ToEntities(grants []*model.GrantAccess) []*entity.GrantAccess {
	res := make([]*entity.GrantAccess, 0, len(grants))
	for _, g := range grants {
		res = append(res, m.ToEntity(g))
	}
	return res
}
