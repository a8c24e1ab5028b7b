package controller

import (
	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRequestController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Archive(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	CanView(ctx *fiber.Ctx) error
}

type requestController struct {
	service service.IPreMarketRequestService
	auth    fiber.Handler
}

func NewRequestController(service service.IPreMarketRequestService, auth fiber.Handler) IRequestController {
	return &requestController{service: service, auth: auth}
}

func (c *requestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/requests", c.auth)
	h.Post("/", c.Create)
	h.Get("/", c.List)
	h.Get("/:id", c.Get)
	h.Post("/:id/archive", c.Archive)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/access", c.CanView)
}

func (c *requestController) Create(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.CreatePreMarketRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body", map[string]any{"error": err.Error()})
	}

	res, err := c.service.CreateRequest(ctx.UserContext(), actor, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Pre-market request created", res))
}

func (c *requestController) List(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListActiveRequests(ctx.UserContext(), actor, ctx.QueryInt("page", 1), ctx.QueryInt("page_size", 20))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching requests", res))
}

func (c *requestController) Get(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetRequest(ctx.UserContext(), actor, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching request", res))
}

func (c *requestController) Archive(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ArchiveRequest(ctx.UserContext(), actor, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pre-market request archived", res))
}

func (c *requestController) Delete(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.DeleteRequest(ctx.UserContext(), actor, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pre-market request deleted", res))
}

// CanView reports whether an agent may see the request's full details.
// Admins may ask about any agent with ?agent_id=.
func (c *requestController) CanView(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	agentId := actor.UserId
	if raw := ctx.Query("agent_id"); raw != "" {
		if !actor.IsAdmin() {
			return apperror.Forbidden("only admins may query another agent's access")
		}
		if agentId, err = uuid.Parse(raw); err != nil {
			return apperror.Validation("invalid agent_id format", nil)
		}
	}

	requestId := ctx.Params("id")
	ok, err := c.service.CanViewFullDetails(ctx.UserContext(), requestId, agentId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Access checked", &dto.CanViewResponse{
		RequestId: requestId,
		AgentId:   agentId,
		CanView:   ok,
	}))
}
