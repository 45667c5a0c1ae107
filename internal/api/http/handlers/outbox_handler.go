package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/storage"
)

// OutboxHandler exposes the queued outbound emails for inspection. There is
// no real delivery; this is the observable end of the pipeline.
type OutboxHandler struct {
	outbox *storage.Outbox
}

// NewOutboxHandler constructs handler.
func NewOutboxHandler(outbox *storage.Outbox) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// List GET /outbox.
func (h *OutboxHandler) List(c *fiber.Ctx) error {
	msgs, err := h.outbox.ReadAll()
	if err != nil {
		return err
	}
	items := make([]dto.OutboundMessageSummary, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, dto.OutboundMessageSummary{
			TS:      msg.TS,
			To:      msg.To,
			Subject: msg.Subject,
			Meta:    msg.Meta,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
