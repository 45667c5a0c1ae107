package events

import (
	"time"

	"github.com/spec-kit/support-agent/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketClosed    EventType = "ticket_closed"
	EventTicketEscalated EventType = "ticket_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	UserEmail string      `json:"user_email"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRecordedPayload describes a created or updated ticket event.
type TicketRecordedPayload struct {
	Topic      domain.TicketTopic      `json:"topic"`
	Department domain.TicketDepartment `json:"department"`
	Urgency    domain.TicketUrgency    `json:"urgency"`
	Emotion    domain.TicketEmotion    `json:"emotion"`
	Status     domain.TicketStatus     `json:"status"`
	Preview    string                  `json:"preview"`
}

// TicketEscalatedPayload carries what the escalation email needs.
type TicketEscalatedPayload struct {
	Topic   domain.TicketTopic   `json:"topic"`
	Urgency domain.TicketUrgency `json:"urgency"`
	Emotion domain.TicketEmotion `json:"emotion"`
	Message string               `json:"message"`
}

// TicketClosedPayload describes a closure appended by the service.
type TicketClosedPayload struct {
	ClosedTS float64 `json:"closed_ts"`
}
