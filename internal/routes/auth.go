package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/otp"
)

// RegisterOTPRoutes wires the phone login endpoints. sendLimit guards code
// dispatch.
func RegisterOTPRoutes(r fiber.Router, h *otp.Handler, sendLimit fiber.Handler) {
	r.Post("/send-otp", sendLimit, h.SendOTP)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/auth/otp", sendLimit, h.AuthOTP)
}

// RegisterAuthRoutes wires account endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, idempotency, bearer fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", idempotency, h.SignUp)
	group.Post("/login", h.Login)
	group.Post("/logout", bearer, h.Logout)

	r.Get("/referrals/:code", h.CheckReferralCode)
}
