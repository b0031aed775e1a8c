package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"wayfarer/internal/models"
	"wayfarer/internal/services"
)

// ChatHandler handles chat message requests.
type ChatHandler struct {
	dialogue *services.DialogueService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(dialogue *services.DialogueService) *ChatHandler {
	return &ChatHandler{dialogue: dialogue}
}

// Handle processes one user message and returns the assistant's replies.
// An absent session_id starts a new session; its id comes back in the
// response so the client can continue the conversation.
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	resp, err := h.dialogue.HandleMessage(c.Context(), req.SessionID, req.Message)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(resp)
}
