package mapper

import (
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/model"
)

type PreMarketRequestMapper struct{}

func NewPreMarketRequestMapper() *PreMarketRequestMapper {
	return &PreMarketRequestMapper{}
}

func (m *PreMarketRequestMapper) ToEntity(r *model.PreMarketRequest) *entity.PreMarketRequest {
	if r == nil {
		return nil
	}
	return &entity.PreMarketRequest{
		Id:                 r.Id,
		RequesterId:        r.RequesterId,
		Bedrooms:           entity.Bedrooms(r.Bedrooms),
		Bathrooms:          entity.Bathrooms(r.Bathrooms),
		PriceMin:           r.PriceMin,
		PriceMax:           r.PriceMax,
		Description:        r.Description,
		MovingDateEarliest: r.MovingDateEarliest,
		MovingDateLatest:   r.MovingDateLatest,
		Status:             entity.RequestStatus(r.Status),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		DeletedAt:          r.DeletedAt,
	}
}

func (m *PreMarketRequestMapper) ToModel(r *entity.PreMarketRequest) *model.PreMarketRequest {
	if r == nil {
		return nil
	}
	return &model.PreMarketRequest{
		Id:                 r.Id,
		RequesterId:        r.RequesterId,
		Bedrooms:           string(r.Bedrooms),
		Bathrooms:          string(r.Bathrooms),
		PriceMin:           r.PriceMin,
		PriceMax:           r.PriceMax,
		Description:        r.Description,
		MovingDateEarliest: r.MovingDateEarliest,
		MovingDateLatest:   r.MovingDateLatest,
		Status:             string(r.Status),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		DeletedAt:          r.DeletedAt,
	}
}

func (m *PreMarketRequestMapper) ToEntities(requests []*model.PreMarketRequest) []*entity.PreMarketRequest {
	res := make([]*entity.PreMarketRequest, 0, len(requests))
	for _, r := range requests {
		res = append(res, m.ToEntity(r))
	}
	return res
}
