package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/usecase"
)

// KeyProvider hands out the currently valid Gemini key.
type KeyProvider interface {
	Key(ctx context.Context) (string, error)
}

// FunctionHandler serves the function endpoints the browser client used to
// call on Supabase.
type FunctionHandler struct {
	wisdom *usecase.WisdomFunction
	keys   KeyProvider
}

func NewFunctionHandler(wisdom *usecase.WisdomFunction, keys KeyProvider) *FunctionHandler {
	return &FunctionHandler{wisdom: wisdom, keys: keys}
}

func (h *FunctionHandler) GetWisdom(c *fiber.Ctx) error {
	var req entity.WisdomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(entity.RemoteResult{
			Status: "error", Error: "invalid request body", ErrorKind: entity.FailureUpstream.String(),
		})
	}

	result := h.wisdom.Handle(c.UserContext(), req)
	status := fiber.StatusOK
	if result.Status == "error" && !result.UseFallback {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(result)
}

func (h *FunctionHandler) GetGeminiKey(c *fiber.Ctx) error {
	if h.keys == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": entity.ErrNoValidKey.Error()})
	}
	key, err := h.keys.Key(c.UserContext())
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, entity.ErrNoValidKey) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"error": entity.ErrNoValidKey.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"apiKey": key}})
}
