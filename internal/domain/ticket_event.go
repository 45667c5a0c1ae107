package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "open"
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusResolved  TicketStatus = "resolved"
	TicketStatusEscalated TicketStatus = "escalated"
	TicketStatusClosed    TicketStatus = "closed"
)

// Terminal reports whether the status ends a ticket's life.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketUrgency enumerates classification of how pressing an issue is.
type TicketUrgency string

const (
	UrgencyLow      TicketUrgency = "low"
	UrgencyMedium   TicketUrgency = "medium"
	UrgencyHigh     TicketUrgency = "high"
	UrgencyCritical TicketUrgency = "critical"
)

// Escalates reports whether the urgency triggers the escalation side effect.
func (u TicketUrgency) Escalates() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// TicketTopic enumerates supported issue categories.
type TicketTopic string

const (
	TopicOrderStatus     TicketTopic = "order_status"
	TopicDeliveryIssue   TicketTopic = "delivery_issue"
	TopicRefund          TicketTopic = "refund"
	TopicReturnExchange  TicketTopic = "return_exchange"
	TopicBillingPayment  TicketTopic = "billing_payment"
	TopicTechnicalIssue  TicketTopic = "technical_issue"
	TopicAccountAccess   TicketTopic = "account_access"
	TopicGeneralQuestion TicketTopic = "general_question"
)

// TicketDepartment enumerates routing destinations.
type TicketDepartment string

const (
	DepartmentSupport   TicketDepartment = "support"
	DepartmentBilling   TicketDepartment = "billing"
	DepartmentTechnical TicketDepartment = "technical"
	DepartmentSales     TicketDepartment = "sales"
	DepartmentGeneral   TicketDepartment = "general"
)

// TicketEmotion enumerates the detected customer sentiment.
type TicketEmotion string

const (
	EmotionNeutral    TicketEmotion = "neutral"
	EmotionConfused   TicketEmotion = "confused"
	EmotionFrustrated TicketEmotion = "frustrated"
	EmotionAngry      TicketEmotion = "angry"
	EmotionSad        TicketEmotion = "sad"
	EmotionHappy      TicketEmotion = "happy"
)

// EventKind distinguishes the first event of a ticket from later ones.
type EventKind string

const (
	EventKindCreated EventKind = "created"
	EventKindUpdated EventKind = "updated"
)

// TicketEventSchema is the wire schema version for ticket events.
const TicketEventSchema = 1

// TicketEventType is the record discriminator on the wire.
const TicketEventType = "ticket_event"

// TicketEvent is one immutable record in the append-only ticket log. The
// current state of a ticket is the event with the greatest TS among all
// events sharing its TicketID; events are never edited or deleted.
type TicketEvent struct {
	Schema     int              `json:"schema"`
	Type       string           `json:"type"`
	TS         float64          `json:"ts"`
	TicketID   string           `json:"ticket_id"`
	UserID     string           `json:"user_id"`
	Message    string           `json:"message"`
	Topic      TicketTopic      `json:"topic"`
	Urgency    TicketUrgency    `json:"urgency"`
	Department TicketDepartment `json:"department"`
	Status     TicketStatus     `json:"status"`
	Emotion    TicketEmotion    `json:"emotion"`
	Event      EventKind        `json:"event"`
	Meta       map[string]any   `json:"meta"`
}

// Open reports whether the event describes a non-terminal ticket state.
func (e TicketEvent) Open() bool {
	return !e.Status.Terminal()
}

// Time converts the float epoch timestamp to a time.Time.
func (e TicketEvent) Time() time.Time {
	sec := int64(e.TS)
	nsec := int64((e.TS - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// EpochSeconds converts a time.Time to the float epoch format used on the wire.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// NormalizeEmail canonicalizes a user id for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validTopics = map[TicketTopic]bool{
	TopicOrderStatus: true, TopicDeliveryIssue: true, TopicRefund: true,
	TopicReturnExchange: true, TopicBillingPayment: true, TopicTechnicalIssue: true,
	TopicAccountAccess: true, TopicGeneralQuestion: true,
}

var validDepartments = map[TicketDepartment]bool{
	DepartmentSupport: true, DepartmentBilling: true, DepartmentTechnical: true,
	DepartmentSales: true, DepartmentGeneral: true,
}

var validUrgencies = map[TicketUrgency]bool{
	UrgencyLow: true, UrgencyMedium: true, UrgencyHigh: true, UrgencyCritical: true,
}

var validEmotions = map[TicketEmotion]bool{
	EmotionNeutral: true, EmotionConfused: true, EmotionFrustrated: true,
	EmotionAngry: true, EmotionSad: true, EmotionHappy: true,
}

var validStatuses = map[TicketStatus]bool{
	TicketStatusOpen: true, TicketStatusPending: true, TicketStatusResolved: true,
	TicketStatusEscalated: true, TicketStatusClosed: true,
}

// ValidTopic reports enum membership.
func ValidTopic(t TicketTopic) bool { return validTopics[t] }

// ValidDepartment reports enum membership.
func ValidDepartment(d TicketDepartment) bool { return validDepartments[d] }

// ValidUrgency reports enum membership.
func ValidUrgency(u TicketUrgency) bool { return validUrgencies[u] }

// ValidEmotion reports enum membership.
func ValidEmotion(e TicketEmotion) bool { return validEmotions[e] }

// ValidStatus reports enum membership.
func ValidStatus(s TicketStatus) bool { return validStatuses[s] }
