package api

import (
	"errors"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const msgInternal = "Internal server error"

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders a service error. Internal errors are logged and hidden.
func writeError(c *fiber.Ctx, logger *zap.SugaredLogger, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"message": msgInternal})
	}
	return c.Status(status).JSON(fiber.Map{"message": service.Message(err, msgInternal)})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  utils.FormatValidationErrors(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg})
}

// errorHandler is the last line of defense for errors returned by handlers
// and middleware, including fiber's own (404 route, 405, body too large).
func errorHandler(logger *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		logger.Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": msgInternal})
	}
}
