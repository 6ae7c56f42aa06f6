package dashboard

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/auth"
)

// Handler exposes the dashboards.
type Handler struct {
	service *Service
}

// NewHandler builds a dashboard Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// User returns the authenticated user's dashboard.
func (h *Handler) User(c *fiber.Ctx) error {
	userID, _ := c.Locals(auth.LocalsUserID).(string)
	view, err := h.service.User(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(view)
}

// Admin returns the platform statistics.
func (h *Handler) Admin(c *fiber.Ctx) error {
	stats, err := h.service.Admin(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(stats)
}

// Invalidating wraps next so that a successful write drops the cached admin
// summary.
func (h *Handler) Invalidating(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := next(c); err != nil {
			return err
		}
		h.service.Invalidate(c.UserContext())
		return nil
	}
}
