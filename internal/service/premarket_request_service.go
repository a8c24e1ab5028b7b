package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/repository/specification"
	"premarket-access-be/internal/repository/unitofwork"
	"premarket-access-be/pkg/access/events"
	"premarket-access-be/pkg/access/grant"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

const defaultPageSize = 20

type IPreMarketRequestService interface {
	CreateRequest(ctx context.Context, actor entity.Actor, req *dto.CreatePreMarketRequest) (*dto.PreMarketRequestResponse, error)
	GetRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.PreMarketRequestResponse, error)
	ListActiveRequests(ctx context.Context, actor entity.Actor, page, pageSize int) ([]*dto.PreMarketRequestResponse, error)
	ArchiveRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.PreMarketRequestResponse, error)
	DeleteRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.DeleteRequestResponse, error)
	CanViewFullDetails(ctx context.Context, requestId string, agentId uuid.UUID) (bool, error)
}

type preMarketRequestService struct {
	uowFactory unitofwork.RepositoryFactory
	grants     *grant.Manager
	dispatcher events.Dispatcher
	logger     logger.ILogger
	cfg        AccessConfig
}

func NewPreMarketRequestService(
	uowFactory unitofwork.RepositoryFactory,
	grants *grant.Manager,
	dispatcher events.Dispatcher,
	logger logger.ILogger,
	cfg AccessConfig,
) IPreMarketRequestService {
	return &preMarketRequestService{
		uowFactory: uowFactory,
		grants:     grants,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

func (s *preMarketRequestService) CreateRequest(ctx context.Context, actor entity.Actor, req *dto.CreatePreMarketRequest) (*dto.PreMarketRequestResponse, error) {
	if actor.Role == entity.RoleAgent {
		return nil, apperror.Forbidden("agents cannot create pre-market requests")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	now := s.cfg.now()
	if err := validateRequestFields(req, now); err != nil {
		return nil, err
	}

	request := &entity.PreMarketRequest{
		Id:                 "R" + shortuuid.New(),
		RequesterId:        actor.UserId,
		Bedrooms:           entity.Bedrooms(req.Bedrooms),
		Bathrooms:          entity.Bathrooms(req.Bathrooms),
		PriceMin:           req.PriceMin,
		PriceMax:           req.PriceMax,
		Description:        strings.TrimSpace(req.Description),
		MovingDateEarliest: req.MovingDateEarliest.UTC(),
		MovingDateLatest:   req.MovingDateLatest.UTC(),
		Status:             entity.RequestStatusActive,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PreMarketRequestRepository().Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info(logger.ModuleRequest, "Pre-market request created", map[string]interface{}{
		"request_id":   request.Id,
		"requester_id": actor.UserId.String(),
	})
	return toRequestResponse(request, true), nil
}

// validateRequestFields checks the rules struct tags cannot express.
func validateRequestFields(req *dto.CreatePreMarketRequest, now time.Time) error {
	if !entity.Bedrooms(req.Bedrooms).Valid() || !entity.Bathrooms(req.Bathrooms).Valid() {
		return apperror.Validation("unknown bedroom or bathroom value", map[string]any{
			"bedrooms":  req.Bedrooms,
			"bathrooms": req.Bathrooms,
		})
	}
	if req.PriceMin < 0 || req.PriceMax > entity.MaxRequestPrice || req.PriceMin > req.PriceMax {
		return apperror.Validation("price range must satisfy 0 <= min <= max <= 10000000000", map[string]any{
			"price_min": req.PriceMin,
			"price_max": req.PriceMax,
		})
	}
	if utf8.RuneCountInString(req.Description) > entity.MaxDescriptionLength {
		return apperror.Validation("description is too long", map[string]any{"max": entity.MaxDescriptionLength})
	}

	today := now.Truncate(24 * time.Hour)
	horizon := today.Add(entity.MovingWindow)
	earliest := req.MovingDateEarliest.UTC()
	latest := req.MovingDateLatest.UTC()
	if earliest.After(latest) {
		return apperror.Validation("moving date range is inverted", nil)
	}
	if earliest.Before(today) || latest.After(horizon) {
		return apperror.Validation("moving dates must fall within the next 365 days", map[string]any{
			"earliest_allowed": today,
			"latest_allowed":   horizon,
		})
	}
	return nil
}

func (s *preMarketRequestService) GetRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.PreMarketRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, apperror.RequestNotFound(requestId)
	}

	privileged := actor.IsAdmin() || request.IsOwnedBy(actor.UserId)
	if request.IsDeleted() && !privileged {
		return nil, apperror.RequestNotFound(requestId)
	}

	full := privileged
	if !full {
		full, err = s.canView(ctx, uow, request, actor.UserId)
		if err != nil {
			return nil, err
		}
	}
	return toRequestResponse(request, full), nil
}

func (s *preMarketRequestService) ListActiveRequests(ctx context.Context, actor entity.Actor, page, pageSize int) ([]*dto.PreMarketRequestResponse, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	requests, err := uow.PreMarketRequestRepository().FindAll(ctx,
		specification.RequestByStatus{Statuses: []entity.RequestStatus{entity.RequestStatusActive}},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PreMarketRequestResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, toRequestResponse(r, actor.IsAdmin() || r.IsOwnedBy(actor.UserId)))
	}
	return res, nil
}

func (s *preMarketRequestService) ArchiveRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.PreMarketRequestResponse, error) {
	var archived *entity.PreMarketRequest

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "premarket_request", func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		request, err := s.loadOwned(ctx, uow, actor, requestId)
		if err != nil {
			return err
		}

		switch request.Status {
		case entity.RequestStatusArchived:
			archived = request
			return nil
		case entity.RequestStatusDeleted:
			return apperror.RequestDeleted(requestId)
		}

		request.Status = entity.RequestStatusArchived
		request.UpdatedAt = s.cfg.now()
		if err := uow.PreMarketRequestRepository().Update(ctx, request); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		archived = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRequestResponse(archived, true), nil
}

// DeleteRequest soft-deletes the request and rejects its unsettled grants
// in the same transaction. Deleting twice is a no-op.
func (s *preMarketRequestService) DeleteRequest(ctx context.Context, actor entity.Actor, requestId string) (*dto.DeleteRequestResponse, error) {
	var (
		deleted  *entity.PreMarketRequest
		rejected []*entity.GrantAccess
	)

	err := withConflictRetry(ctx, s.cfg.ConflictRetryMax, "premarket_request", func() error {
		rejected = nil

		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		request, err := s.loadOwned(ctx, uow, actor, requestId)
		if err != nil {
			return err
		}

		now := s.cfg.now()
		if !request.IsDeleted() {
			request.Status = entity.RequestStatusDeleted
			request.DeletedAt = &now
			request.UpdatedAt = now
			if err := uow.PreMarketRequestRepository().Update(ctx, request); err != nil {
				return err
			}
		}

		rejected, err = s.grants.RejectUnsettled(ctx, uow, requestId, entity.RejectionRequestDeleted, now)
		if err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		deleted = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, g := range rejected {
		s.dispatcher.GrantRejected(ctx, g)
	}

	s.logger.Info(logger.ModuleRequest, "Pre-market request deleted", map[string]interface{}{
		"request_id":      requestId,
		"rejected_grants": len(rejected),
	})
	return &dto.DeleteRequestResponse{
		Request:        toRequestResponse(deleted, true),
		RejectedGrants: len(rejected),
	}, nil
}

func (s *preMarketRequestService) CanViewFullDetails(ctx context.Context, requestId string, agentId uuid.UUID) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
	if err != nil {
		return false, err
	}
	if request == nil {
		return false, nil
	}
	return s.canView(ctx, uow, request, agentId)
}

func (s *preMarketRequestService) canView(ctx context.Context, uow unitofwork.UnitOfWork, request *entity.PreMarketRequest, agentId uuid.UUID) (bool, error) {
	if request.IsDeleted() {
		return false, nil
	}
	g, err := uow.GrantAccessRepository().FindOne(ctx, specification.ActiveGrantFor{RequestId: request.Id, AgentId: agentId})
	if err != nil {
		return false, err
	}
	return g != nil && g.IsUnlocked(s.cfg.now()), nil
}

func (s *preMarketRequestService) loadOwned(ctx context.Context, uow unitofwork.UnitOfWork, actor entity.Actor, requestId string) (*entity.PreMarketRequest, error) {
	request, err := uow.PreMarketRequestRepository().FindOne(ctx, specification.ByKey{Key: requestId})
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, apperror.RequestNotFound(requestId)
	}
	if !actor.IsAdmin() && !request.IsOwnedBy(actor.UserId) {
		return nil, apperror.Forbidden("only the owner or an admin may change this request")
	}
	return request, nil
}
