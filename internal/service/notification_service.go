package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/storage"
)

// NotificationService turns domain events and explicit requests into
// outbound email records. Delivery is the append itself: failures are
// logged and never propagated to the operation that triggered them.
type NotificationService struct {
	outbox     *storage.Outbox
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(outbox *storage.Outbox, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		outbox:     outbox,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
}

// handleTicketEscalated queues the escalation email to the support team.
func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Escalation: ticket %s (%s urgency)", event.TicketID, payload.Urgency)
	body := fmt.Sprintf(
		"Ticket %s requires attention.\n\nUser: %s\nTopic: %s\nUrgency: %s\nEmotion: %s\n\nMessage:\n%s\n",
		event.TicketID, event.UserEmail, payload.Topic, payload.Urgency, payload.Emotion, payload.Message)

	err := n.outbox.Append(domain.OutboundMessage{
		TS:      domain.EpochSeconds(n.now()),
		To:      n.cfg.SupportAddress,
		Subject: subject,
		Body:    body,
		Meta: map[string]any{
			"source":    "ticket_service",
			"ticket_id": event.TicketID,
			"reason":    "urgency_escalation",
		},
	})
	if err != nil {
		n.logger.Error("failed to queue escalation email",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return err
}

// QueueFollowUp appends a stale-ticket follow-up addressed directly to the
// customer.
func (n *NotificationService) QueueFollowUp(ticketID, to, body string) error {
	return n.outbox.Append(domain.OutboundMessage{
		TS:      domain.EpochSeconds(n.now()),
		To:      to,
		Subject: fmt.Sprintf("Checking in about your ticket %s", ticketID),
		Body:    body,
		Meta: map[string]any{
			"source":    "followup_worker",
			"ticket_id": ticketID,
			"reason":    "stale_open_ticket",
		},
	})
}

// QueueEmail appends an arbitrary outbound message. An empty recipient
// falls back to the support address.
func (n *NotificationService) QueueEmail(to, subject, body string, meta map[string]any) error {
	if to == "" {
		to = n.cfg.SupportAddress
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return n.outbox.Append(domain.OutboundMessage{
		TS:      domain.EpochSeconds(n.now()),
		To:      to,
		Subject: subject,
		Body:    body,
		Meta:    meta,
	})
}
