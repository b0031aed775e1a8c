package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wayfarer/internal/services"
)

// ConversationHandler handles conversation lifecycle requests.
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// Reset discards a session's dialogue state. Resetting a session that does
// not exist is fine; the next message starts fresh either way.
func (h *ConversationHandler) Reset(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session id is required",
		})
	}

	h.conversations.Reset(sessionID)
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"status":     "reset",
	})
}
