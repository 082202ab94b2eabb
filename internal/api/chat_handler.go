package api

import (
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ChatGigs(c *fiber.Ctx) error {
	gigs, err := h.deps.Chat.ListChatGigs(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(gigs)
}

func (h *Handler) ChatMessages(c *fiber.Ctx) error {
	msgs, err := h.deps.Chat.History(c.UserContext(), middleware.UserID(c), c.Params("gigId"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(msgs)
}

func (h *Handler) UserPresence(c *fiber.Ctx) error {
	if h.deps.Presence == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "Presence is not available"})
	}
	p, err := h.deps.Presence.GetPresence(c.UserContext(), c.Params("id"))
	if err != nil {
		h.logger.Warnw("presence lookup failed", "user_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "Presence is not available"})
	}
	return c.JSON(p)
}
