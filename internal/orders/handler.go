package orders

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
)

// Handler exposes order HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an order HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Amount int64 `json:"amount"`
}

type statusRequest struct {
	Status Status `json:"status"`
}

// Create records an order for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	userID, _ := c.Locals(auth.LocalsUserID).(string)
	order, err := h.service.Create(c.UserContext(), userID, req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(order)
}

// List returns the authenticated user's orders.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals(auth.LocalsUserID).(string)
	list, err := h.service.ListByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []Order{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"orders": list})
}

// SetStatus delivers or cancels an order.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
	}
	order, err := h.service.SetStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(order)
}

// Delete removes an order.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
