package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/support-agent/internal/agent"
	"github.com/spec-kit/support-agent/internal/api/dto"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// ChatHandler exposes the conversational endpoint. It is a pass-through
// adapter: everything interesting happens inside the agent.
type ChatHandler struct {
	agent *agent.Agent
}

// NewChatHandler constructs handler.
func NewChatHandler(a *agent.Agent) *ChatHandler {
	return &ChatHandler{agent: a}
}

// Chat POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	reply, err := h.agent.Respond(c.UserContext(), conversationID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(dto.ChatResponse{
		Reply:          reply,
		ConversationID: conversationID,
	})
}
