package serverutils

import (
	"errors"

	"premarket-access-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders errors returned by downstream handlers.
// Rich errors keep their HTTP code and text code; anything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	if rich, ok := apperror.From(err); ok {
		code := rich.Code
		if code == 0 {
			code = fiber.StatusInternalServerError
		}
		return ctx.Status(code).JSON(&ErrorBody{
			Success:  false,
			Code:     code,
			TextCode: rich.TextCode,
			Message:  rich.Message,
			Metadata: rich.Metadata,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(&ErrorBody{
		Success:  false,
		Code:     fiber.StatusInternalServerError,
		TextCode: apperror.CodeInternal,
		Message:  "internal server error",
	})
}
