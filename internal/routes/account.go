package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/dashboard"
	"github.com/aumarche/aumarche/internal/orders"
	"github.com/aumarche/aumarche/internal/rewards"
)

type accountHandlers struct {
	auth        *auth.Handler
	profiles    *auth.ProfileHandler
	dashboard   *dashboard.Handler
	orders      *orders.Handler
	rewards     *rewards.Handler
	idempotency fiber.Handler
}

// RegisterAccountRoutes wires the endpoints of a signed-in user. r must
// already require a bearer token.
func RegisterAccountRoutes(r fiber.Router, h accountHandlers) {
	r.Get("/me", h.auth.Me)
	r.Patch("/me", h.profiles.UpdateMe)
	r.Get("/dashboard", h.dashboard.User)
	r.Get("/orders", h.orders.List)
	r.Post("/orders", h.idempotency, h.dashboard.Invalidating(h.orders.Create))
	r.Get("/rewards", h.rewards.List)
}
