package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/projection"
	"github.com/spec-kit/support-agent/internal/storage"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// closureNote replaces the customer message on auto-closed tickets.
const closureNote = "Ticket closed on customer request via support assistant."

// TicketService owns every mutation of the ticket event log. State is never
// edited in place: creating, updating and closing a ticket all append a new
// event, and current state is derived by projection.
type TicketService struct {
	log        *storage.EventLog
	identity   *storage.IdentityStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	EventLog   *storage.EventLog
	Identity   *storage.IdentityStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		log:        deps.EventLog,
		identity:   deps.Identity,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// TicketInput describes a create-or-update request. TicketID empty means
// "create a new ticket"; a supplied id appends to that ticket's timeline
// without checking that it exists.
type TicketInput struct {
	UserEmail  string
	Message    string
	Topic      domain.TicketTopic
	Urgency    domain.TicketUrgency
	Department domain.TicketDepartment
	Emotion    domain.TicketEmotion
	Status     domain.TicketStatus
	TicketID   string
}

// TicketResult reports a recorded ticket event.
type TicketResult struct {
	TicketID   string                  `json:"ticket_id"`
	Operation  domain.EventKind        `json:"operation"`
	Topic      domain.TicketTopic      `json:"topic"`
	Urgency    domain.TicketUrgency    `json:"urgency"`
	Department domain.TicketDepartment `json:"department"`
	Status     domain.TicketStatus     `json:"status"`
	Emotion    domain.TicketEmotion    `json:"emotion"`
	UserEmail  string                  `json:"user_email"`
}

// CreateOrUpdateTicket records one ticket event for a known user. When the
// recorded urgency is high or critical and the status is not terminal, an
// escalation event is published; its handlers run best-effort and cannot
// fail the call. Only a storage append failure propagates as an error.
func (s *TicketService) CreateOrUpdateTicket(ctx context.Context, input TicketInput) (*TicketResult, error) {
	email := domain.NormalizeEmail(input.UserEmail)
	if _, ok := s.identity.Lookup(email); !ok {
		return nil, apperrors.NewUnknownUser(email)
	}

	if input.Status == "" {
		input.Status = domain.TicketStatusOpen
	}
	if err := validateClassification(input); err != nil {
		return nil, err
	}

	operation := domain.EventKindUpdated
	ticketID := input.TicketID
	if ticketID == "" {
		all, err := s.log.ReadAll()
		if err != nil {
			return nil, err
		}
		ticketID = projection.NextTicketID(all)
		operation = domain.EventKindCreated
	}

	event := domain.TicketEvent{
		TS:         domain.EpochSeconds(s.now()),
		TicketID:   ticketID,
		UserID:     email,
		Message:    input.Message,
		Topic:      input.Topic,
		Urgency:    input.Urgency,
		Department: input.Department,
		Status:     input.Status,
		Emotion:    input.Emotion,
		Event:      operation,
	}
	if err := s.log.Append(event); err != nil {
		return nil, err
	}

	eventType := events.EventTicketCreated
	if operation == domain.EventKindUpdated {
		eventType = events.EventTicketUpdated
	}
	s.publishEvent(ctx, events.Event{
		Type:      eventType,
		TicketID:  ticketID,
		UserEmail: email,
		Payload: events.TicketRecordedPayload{
			Topic:      input.Topic,
			Department: input.Department,
			Urgency:    input.Urgency,
			Emotion:    input.Emotion,
			Status:     input.Status,
			Preview:    stringPreview(input.Message, 120),
		},
	})

	if input.Urgency.Escalates() && !input.Status.Terminal() {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTicketEscalated,
			TicketID:  ticketID,
			UserEmail: email,
			Payload: events.TicketEscalatedPayload{
				Topic:   input.Topic,
				Urgency: input.Urgency,
				Emotion: input.Emotion,
				Message: input.Message,
			},
		})
	}

	return &TicketResult{
		TicketID:   ticketID,
		Operation:  operation,
		Topic:      input.Topic,
		Urgency:    input.Urgency,
		Department: input.Department,
		Status:     input.Status,
		Emotion:    input.Emotion,
		UserEmail:  email,
	}, nil
}

// UserProfileResult reports the derived profile for a user.
type UserProfileResult struct {
	UserEmail      string         `json:"user_email"`
	KnownUser      bool           `json:"known_user"`
	IsNewUser      bool           `json:"is_new_user"`
	TotalTickets   int            `json:"total_tickets"`
	OpenTickets    int            `json:"open_tickets"`
	HasOpenTickets bool           `json:"has_open_tickets"`
	LastTicketTS   float64        `json:"last_ticket_ts,omitempty"`
	Profile        map[string]any `json:"profile,omitempty"`
}

// GetUserProfile derives ticket counts and recency for a user. An unknown
// email is a reportable result, not an error: callers phrase their reply
// from the known_user flag.
func (s *TicketService) GetUserProfile(ctx context.Context, userEmail string) (*UserProfileResult, error) {
	email := domain.NormalizeEmail(userEmail)
	profile, known := s.identity.Lookup(email)
	if !known {
		return &UserProfileResult{
			UserEmail: email,
			KnownUser: false,
			IsNewUser: true,
		}, nil
	}

	all, err := s.log.ReadAll()
	if err != nil {
		return nil, err
	}
	summary := projection.SummarizeUser(email, all)
	result := &UserProfileResult{
		UserEmail:      email,
		KnownUser:      true,
		IsNewUser:      !summary.HasEvents,
		TotalTickets:   summary.TotalTickets,
		OpenTickets:    summary.OpenTickets,
		HasOpenTickets: summary.OpenTickets > 0,
		LastTicketTS:   summary.LastEventTS,
		Profile:        profile.Attributes,
	}
	return result, nil
}

// CloseResult reports a successful closure.
type CloseResult struct {
	OK        bool                `json:"ok"`
	TicketID  string              `json:"ticket_id"`
	Status    domain.TicketStatus `json:"status"`
	ClosedTS  float64             `json:"closed_ts"`
	UserEmail string              `json:"user_id"`
}

// CloseLatestOpenTicket resolves the user's most recently touched open
// ticket by appending a resolved event against the same ticket id. The
// classification fields are copied forward unchanged so closing never
// silently reclassifies a ticket, and no escalation is triggered.
func (s *TicketService) CloseLatestOpenTicket(ctx context.Context, userEmail string) (*CloseResult, error) {
	email := domain.NormalizeEmail(userEmail)
	if _, ok := s.identity.Lookup(email); !ok {
		return nil, apperrors.NewUnknownUser(email)
	}

	all, err := s.log.ReadAll()
	if err != nil {
		return nil, err
	}
	var mine []domain.TicketEvent
	for _, event := range all {
		if domain.NormalizeEmail(event.UserID) == email {
			mine = append(mine, event)
		}
	}
	if len(mine) == 0 {
		return nil, apperrors.NewNoTicketsForUser(email)
	}

	anyOpen := false
	for _, current := range projection.LatestStatePerTicket(mine) {
		if current.Open() {
			anyOpen = true
			break
		}
	}
	if !anyOpen {
		return nil, apperrors.NewNoOpenTicket(email)
	}

	target, ok := projection.LatestOpenTicket(mine, email)
	if !ok {
		return nil, apperrors.NewNoOpenTicket(email)
	}

	closedTS := domain.EpochSeconds(s.now())
	closure := domain.TicketEvent{
		TS:         closedTS,
		TicketID:   target.TicketID,
		UserID:     email,
		Message:    closureNote,
		Topic:      target.Topic,
		Urgency:    target.Urgency,
		Department: target.Department,
		Status:     domain.TicketStatusResolved,
		Emotion:    target.Emotion,
		Event:      domain.EventKindUpdated,
		Meta:       map[string]any{"auto_closed": true},
	}
	if err := s.log.Append(closure); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		TicketID:  target.TicketID,
		UserEmail: email,
		Payload:   events.TicketClosedPayload{ClosedTS: closedTS},
	})

	return &CloseResult{
		OK:        true,
		TicketID:  target.TicketID,
		Status:    domain.TicketStatusResolved,
		ClosedTS:  closedTS,
		UserEmail: email,
	}, nil
}

func validateClassification(input TicketInput) error {
	details := map[string]any{}
	if !domain.ValidTopic(input.Topic) {
		details["topic"] = input.Topic
	}
	if !domain.ValidUrgency(input.Urgency) {
		details["urgency"] = input.Urgency
	}
	if !domain.ValidDepartment(input.Department) {
		details["department"] = input.Department
	}
	if !domain.ValidEmotion(input.Emotion) {
		details["emotion"] = input.Emotion
	}
	if !domain.ValidStatus(input.Status) {
		details["status"] = input.Status
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid classification value", details)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
