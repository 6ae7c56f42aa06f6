package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// FiberErrorHandler renders every error escaping a route as {"error": msg}.
// Server-side failures are logged with their cause and answered with a
// generic message.
func FiberErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := http.StatusInternalServerError, MsgInternal

		var appErr *Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.Status()
			if status < http.StatusInternalServerError {
				message = appErr.Message
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			if status < http.StatusInternalServerError {
				message = fiberErr.Message
			}
		}

		if status >= http.StatusInternalServerError && logger != nil {
			requestID, _ := c.Locals("X-Request-ID").(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Any("error", err),
			)
		}

		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}
