package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/dashboard"
	"github.com/aumarche/aumarche/internal/orders"
	"github.com/aumarche/aumarche/internal/referral"
	"github.com/aumarche/aumarche/internal/rewards"
)

type adminHandlers struct {
	dashboard *dashboard.Handler
	profiles  *auth.ProfileHandler
	referrals *referral.Service
	orders    *orders.Handler
	rewards   *rewards.Handler
}

// RegisterAdminRoutes wires the back-office endpoints. r must already
// require an admin.
func RegisterAdminRoutes(r fiber.Router, h adminHandlers) {
	r.Get("/stats", h.dashboard.Admin)

	r.Patch("/users/:id", h.dashboard.Invalidating(h.profiles.UpdateUser))
	r.Delete("/users/:id", h.dashboard.Invalidating(h.profiles.DeleteUser))

	r.Patch("/referrals/:id", h.dashboard.Invalidating(referralStatus(h.referrals)))
	r.Delete("/referrals/:id", h.dashboard.Invalidating(referralDelete(h.referrals)))

	r.Patch("/orders/:id", h.dashboard.Invalidating(h.orders.SetStatus))
	r.Delete("/orders/:id", h.dashboard.Invalidating(h.orders.Delete))

	r.Post("/rewards", h.rewards.Grant)
	r.Patch("/rewards/:id", h.rewards.SetStatus)
	r.Delete("/rewards/:id", h.rewards.Delete)
}

func referralStatus(svc *referral.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Status referral.Status `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
		}
		ref, err := svc.SetStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(ref)
	}
}

func referralDelete(svc *referral.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}
}
