package controller

import (
	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IGrantController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	ListForRequest(ctx *fiber.Ctx) error
	ListMine(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	RetryCharge(ctx *fiber.Ctx) error
	Reject(ctx *fiber.Ctx) error
	Timeout(ctx *fiber.Ctx) error
}

type grantController struct {
	service    service.IGrantAccessService
	reconciler service.IWebhookReconcilerService
	auth       fiber.Handler
}

func NewGrantController(service service.IGrantAccessService, reconciler service.IWebhookReconcilerService, auth fiber.Handler) IGrantController {
	return &grantController{
		service:    service,
		reconciler: reconciler,
		auth:       auth,
	}
}

func (c *grantController) RegisterRoutes(r fiber.Router) {
	r.Post("/requests/:id/grants", c.auth, c.Create)
	r.Get("/requests/:id/grants", c.auth, c.ListForRequest)

	h := r.Group("/grants", c.auth)
	h.Get("/mine", c.ListMine)
	h.Get("/:id", c.Get)
	h.Post("/:id/retry", c.RetryCharge)
	h.Post("/:id/reject", c.Reject)
	h.Post("/:id/timeout", c.Timeout)
}

func grantIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid grant id format", nil)
	}
	return id, nil
}

func (c *grantController) Create(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateGrantRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.Validation("malformed request body", map[string]any{"error": err.Error()})
		}
	}

	res, err := c.service.CreateGrant(ctx.UserContext(), actor, ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Grant created", res))
}

func (c *grantController) ListForRequest(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListGrantsForRequest(ctx.UserContext(), actor, ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching grants", res))
}

func (c *grantController) ListMine(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListAgentGrants(ctx.UserContext(), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching grants", res))
}

func (c *grantController) Get(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}
	grantId, err := grantIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetGrant(ctx.UserContext(), actor, grantId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching grant", res))
}

func (c *grantController) RetryCharge(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}
	grantId, err := grantIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.RetryCharge(ctx.UserContext(), actor, grantId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Charge started", res))
}

func (c *grantController) Reject(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}
	grantId, err := grantIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.RejectGrantRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.Validation("malformed request body", map[string]any{"error": err.Error()})
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RejectGrant(ctx.UserContext(), actor, grantId, req.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Grant rejected", res))
}

// Timeout lets an admin force the timeout check for a grant's charge.
func (c *grantController) Timeout(ctx *fiber.Ctx) error {
	actor, err := serverutils.ActorFrom(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperror.Forbidden("only admins may trigger timeouts")
	}
	grantId, err := grantIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.reconciler.HandleTimeout(ctx.UserContext(), grantId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Timeout checked", res))
}
