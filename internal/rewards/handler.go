package rewards

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
)

// Handler exposes reward HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a reward HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns the authenticated user's rewards.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals(auth.LocalsUserID).(string)
	list, err := h.service.ListByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []Reward{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"rewards": list})
}

// Grant hands a reward to a user.
func (h *Handler) Grant(c *fiber.Ctx) error {
	var req GrantInput
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	reward, err := h.service.Grant(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(reward)
}

// SetStatus marks a reward used or expired.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	reward, err := h.service.SetStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(reward)
}

// Delete removes a reward.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
