package otp

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
)

var (
	errPhoneRequired = apperr.New(apperr.KindValidation, apperr.MsgPhoneRequired)
	errCodeRequired  = apperr.New(apperr.KindValidation, apperr.MsgCodeRequired)
	errInvalidAction = apperr.New(apperr.KindValidation, apperr.MsgInvalidAction)
)

const (
	actionSend   = "send"
	actionVerify = "verify"
)

// Handler exposes the phone login endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler builds an OTP Handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type sendRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type authRequest struct {
	Phone  string `json:"phone"`
	OTP    string `json:"otp"`
	Action string `json:"action"`
}

// SendOTP issues a code for the posted phone.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	if err := h.send(c, req.Phone); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Code OTP envoyé avec succès."})
}

// VerifyOTP checks the posted code and returns the login session.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	return h.verify(c, req.Phone, req.Code)
}

// AuthOTP serves both steps behind one endpoint, selected by action.
func (h *Handler) AuthOTP(c *fiber.Ctx) error {
	var req authRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case actionSend:
		if err := h.send(c, req.Phone); err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"message": "OTP envoyé"})
	case actionVerify:
		return h.verify(c, req.Phone, req.OTP)
	default:
		return errInvalidAction
	}
}

func (h *Handler) send(c *fiber.Ctx, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return errPhoneRequired
	}
	_, err := h.manager.Send(c.UserContext(), phone, ClientIP(c))
	return err
}

func (h *Handler) verify(c *fiber.Ctx, phone, code string) error {
	if strings.TrimSpace(phone) == "" {
		return errPhoneRequired
	}
	if strings.TrimSpace(code) == "" {
		return errCodeRequired
	}
	session, err := h.manager.Verify(c.UserContext(), phone, code)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "OTP vérifié", "session": session})
}

// ClientIP returns the client address as resolved by fiber, which honours
// forwarding headers only from configured trusted proxies.
func ClientIP(c *fiber.Ctx) string {
	if ip := c.IP(); ip != "" {
		return ip
	}
	return unknownIP
}
