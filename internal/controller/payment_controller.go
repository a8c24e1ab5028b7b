package controller

import (
	"premarket-access-be/internal/dto"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/pkg/serverutils"
	"premarket-access-be/internal/service"
	"premarket-access-be/pkg/provider"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	Notification(ctx *fiber.Ctx) error
}

type paymentController struct {
	reconciler service.IWebhookReconcilerService
	gateways   map[string]provider.Gateway
	logger     logger.ILogger
}

// NewPaymentController exposes one public notification route per gateway.
func NewPaymentController(reconciler service.IWebhookReconcilerService, logger logger.ILogger, gateways ...provider.Gateway) IPaymentController {
	byName := make(map[string]provider.Gateway, len(gateways))
	for _, g := range gateways {
		byName[g.Name()] = g
	}
	return &paymentController{
		reconciler: reconciler,
		gateways:   byName,
		logger:     logger,
	}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payment")
	h.Post("/:provider/notification", c.Notification)
}

func (c *paymentController) Notification(ctx *fiber.Ctx) error {
	gateway, ok := c.gateways[ctx.Params("provider")]
	if !ok {
		return fiber.ErrNotFound
	}

	notification, err := gateway.ParseNotification(ctx.Body())
	if err != nil {
		c.logger.Warn(logger.ModuleWebhook, "Rejected payment notification", map[string]interface{}{
			"provider": gateway.Name(),
			"error":    err.Error(),
			"ip":       ctx.IP(),
		})
		return err
	}

	res, err := c.reconciler.HandleWebhook(ctx.UserContext(), &dto.PaymentEvent{
		Provider:          notification.Provider,
		ProviderEventId:   notification.EventId,
		ProviderReference: notification.ProviderReference,
		Outcome:           string(notification.Outcome),
		OccurredAt:        notification.OccurredAt,
		Raw:               notification.Raw,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification processed", res))
}
