package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/retry"
	"wisdom-core/internal/usecase"
)

type WisdomHandler struct {
	sessions *usecase.SessionManager
}

func NewWisdomHandler(sessions *usecase.SessionManager) *WisdomHandler {
	return &WisdomHandler{sessions: sessions}
}

type wisdomReply struct {
	entity.WisdomResponse
	SessionID string `json:"sessionId"`
	Attempt   int    `json:"attempt"`
	CanRetry  bool   `json:"canRetry"`
}

func (h *WisdomHandler) reply(c *fiber.Ctx, sess *usecase.Session, resp entity.WisdomResponse) error {
	c.Set("X-Wisdom-Cache-Hit", "false")
	if resp.Cached {
		c.Set("X-Wisdom-Cache-Hit", "true")
	}
	return c.Status(fiber.StatusOK).JSON(wisdomReply{
		WisdomResponse: resp,
		SessionID:      sess.ID,
		Attempt:        sess.Attempts(),
		CanRetry:       sess.CanRetry(),
	})
}

func (h *WisdomHandler) Ask(c *fiber.Ctx) error {
	var req entity.WisdomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	sess, resp := h.sessions.Start(c.UserContext(), req)
	return h.reply(c, sess, resp)
}

func (h *WisdomHandler) Retry(c *fiber.Ctx) error {
	sess, resp, err := h.sessions.Retry(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found or expired"})
	case errors.Is(err, retry.ErrExhausted):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"status": "exhausted",
			"error":  "Too many retries. Please stop retrying and try again later.",
		})
	case errors.Is(err, retry.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return h.reply(c, sess, resp)
}
