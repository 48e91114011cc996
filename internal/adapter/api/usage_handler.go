package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/usecase"
)

type UsageHandler struct {
	quota   *usecase.QuotaService
	observe func(result string)
}

// NewUsageHandler meters voice usage. observe may be nil.
func NewUsageHandler(quota *usecase.QuotaService, observe func(result string)) *UsageHandler {
	return &UsageHandler{quota: quota, observe: observe}
}

func (h *UsageHandler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(string)
	st, err := h.quota.Status(c.UserContext(), userID)
	if err != nil {
		return quotaError(c, err)
	}
	return c.JSON(st)
}

type consumeRequest struct {
	Units int64 `json:"units"`
}

func (h *UsageHandler) Consume(c *fiber.Ctx) error {
	req := consumeRequest{Units: 1}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	userID, _ := c.Locals(localUserID).(string)
	st, err := h.quota.Consume(c.UserContext(), userID, req.Units)
	h.record(err)
	if errors.Is(err, entity.ErrQuotaExceeded) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error(), "usage": st})
	}
	if err != nil {
		return quotaError(c, err)
	}
	return c.JSON(st)
}

func (h *UsageHandler) record(err error) {
	if h.observe == nil {
		return
	}
	switch {
	case err == nil:
		h.observe("granted")
	case errors.Is(err, entity.ErrQuotaExceeded):
		h.observe("exceeded")
	default:
		h.observe("error")
	}
}

func quotaError(c *fiber.Ctx, err error) error {
	if errors.Is(err, entity.ErrInvalidRequest) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "usage store unavailable"})
}
