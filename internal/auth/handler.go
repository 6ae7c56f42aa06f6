package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Locals keys set by the bearer middleware.
const (
	LocalsUserID = "user_id"
	LocalsToken  = "access_token"
)

// BearerToken extracts the token from an Authorization header.
func BearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Handler exposes the account endpoints.
type Handler struct {
	gateway *Gateway
}

// NewHandler builds an auth Handler.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// signUpRequest also accepts the signup form's historical parrainCode field.
type signUpRequest struct {
	SignUpInput
	ParrainCode string `json:"parrainCode"`
}

// SignUp registers an account and its profile.
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	if req.ReferralCode == "" {
		req.ReferralCode = req.ParrainCode
	}
	user, err := h.gateway.SignUp(c.UserContext(), req.SignUpInput)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Compte créé avec succès.", "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login opens a session with email and password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	session, err := h.gateway.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"session": session})
}

// Logout revokes the caller's token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals(LocalsToken).(string)
	if err := h.gateway.SignOut(c.UserContext(), token); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Déconnexion réussie."})
}

// Me returns the caller's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	token, _ := c.Locals(LocalsToken).(string)
	user, err := h.gateway.CurrentUser(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(user)
}

// CheckReferralCode tells the signup form whether a referral code exists and
// whose it is.
func (h *Handler) CheckReferralCode(c *fiber.Ctx) error {
	owner, err := h.gateway.ReferralCodeOwner(c.UserContext(), c.Params("code"))
	if apperr.Has(err, apperr.KindValidation) {
		return c.Status(http.StatusOK).JSON(fiber.Map{"valid": false})
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"valid": true, "referrer": owner.FirstName()})
}
