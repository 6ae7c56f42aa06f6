package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/identity"
)

// ProfileHandler exposes profile edits. The phone number stays fixed
// because the identity provider keys phone login on it.
type ProfileHandler struct {
	profiles *identity.Service
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles *identity.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// UpdateMe renames the caller.
func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		Name *string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	userID, _ := c.Locals(LocalsUserID).(string)
	user, err := h.profiles.Update(c.UserContext(), userID, identity.Changes{Name: req.Name})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(user)
}

// UpdateUser lets an admin rename a user or change their role.
func (h *ProfileHandler) UpdateUser(c *fiber.Ctx) error {
	var req struct {
		Name *string        `json:"name"`
		Role *identity.Role `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	user, err := h.profiles.Update(c.UserContext(), c.Params("id"), identity.Changes{Name: req.Name, Role: req.Role})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(user)
}

// DeleteUser removes a profile.
func (h *ProfileHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
