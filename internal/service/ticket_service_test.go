package service

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/storage"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

type testEnv struct {
	tickets  *TicketService
	eventLog *storage.EventLog
	outbox   *storage.Outbox
}

func newTestEnv(t *testing.T, users map[string]domain.UserProfile, now func() time.Time) *testEnv {
	t.Helper()
	dir := t.TempDir()
	eventLog := storage.NewEventLog(filepath.Join(dir, "tickets.jsonl"), zap.NewNop())
	outbox := storage.NewOutbox(filepath.Join(dir, "emails.jsonl"), zap.NewNop())

	dispatcher := events.NewInMemoryDispatcher()
	notifier := NewNotificationService(outbox, dispatcher, zap.NewNop(), config.NotificationConfig{
		SupportAddress: "support@example.com",
	})
	notifier.RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{
		EventLog:   eventLog,
		Identity:   storage.NewIdentityStore(users),
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        now,
	})
	return &testEnv{tickets: tickets, eventLog: eventLog, outbox: outbox}
}

func singleUser() map[string]domain.UserProfile {
	return map[string]domain.UserProfile{
		"a@x.com": {Name: "A", Attributes: map[string]any{"name": "A"}},
	}
}

func basicInput(urgency domain.TicketUrgency) TicketInput {
	return TicketInput{
		UserEmail:  "a@x.com",
		Message:    "help",
		Topic:      domain.TopicRefund,
		Urgency:    urgency,
		Department: domain.DepartmentBilling,
		Emotion:    domain.EmotionAngry,
	}
}

func TestCreateTicketGeneratesIncreasingIDs(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)
	ctx := context.Background()

	first, err := env.tickets.CreateOrUpdateTicket(ctx, basicInput(domain.UrgencyLow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.TicketID != "T-000001" {
		t.Errorf("first id=%q, want T-000001", first.TicketID)
	}
	if first.Operation != domain.EventKindCreated {
		t.Errorf("operation=%q, want created", first.Operation)
	}

	// A manually inserted higher id bumps the sequence past it.
	if err := env.eventLog.Append(domain.TicketEvent{
		TicketID: "T-000050", UserID: "a@x.com", TS: 5, Status: domain.TicketStatusOpen,
	}); err != nil {
		t.Fatalf("append manual event: %v", err)
	}

	second, err := env.tickets.CreateOrUpdateTicket(ctx, basicInput(domain.UrgencyLow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.TicketID != "T-000051" {
		t.Errorf("second id=%q, want T-000051", second.TicketID)
	}
}

func TestCreateTicketUnknownUserAppendsNothing(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)

	input := basicInput(domain.UrgencyCritical)
	input.UserEmail = "stranger@x.com"
	_, err := env.tickets.CreateOrUpdateTicket(context.Background(), input)
	if !apperrors.IsCode(err, "UNKNOWN_USER") {
		t.Fatalf("err=%v, want UNKNOWN_USER", err)
	}

	all, err := env.eventLog.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("log has %d events, want 0", len(all))
	}
	msgs, _ := env.outbox.ReadAll()
	if len(msgs) != 0 {
		t.Errorf("outbox has %d messages, want 0", len(msgs))
	}
}

func TestCreateTicketEscalation(t *testing.T) {
	cases := []struct {
		name       string
		urgency    domain.TicketUrgency
		status     domain.TicketStatus
		wantEmails int
	}{
		{"critical open escalates", domain.UrgencyCritical, domain.TicketStatusOpen, 1},
		{"high open escalates", domain.UrgencyHigh, "", 1},
		{"low open does not", domain.UrgencyLow, domain.TicketStatusOpen, 0},
		{"critical resolved does not", domain.UrgencyCritical, domain.TicketStatusResolved, 0},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, singleUser(), nil)
			input := basicInput(tt.urgency)
			input.Status = tt.status
			if _, err := env.tickets.CreateOrUpdateTicket(context.Background(), input); err != nil {
				t.Fatalf("create: %v", err)
			}
			msgs, err := env.outbox.ReadAll()
			if err != nil {
				t.Fatalf("outbox ReadAll: %v", err)
			}
			if len(msgs) != tt.wantEmails {
				t.Fatalf("outbox has %d messages, want %d", len(msgs), tt.wantEmails)
			}
			if tt.wantEmails == 1 {
				if msgs[0].To != "support@example.com" {
					t.Errorf("escalation to=%q, want support address", msgs[0].To)
				}
				if msgs[0].Meta["reason"] != "urgency_escalation" {
					t.Errorf("meta=%v, want urgency_escalation reason", msgs[0].Meta)
				}
			}
		})
	}
}

func TestUpdateTicketKeepsSuppliedID(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)

	input := basicInput(domain.UrgencyLow)
	input.TicketID = "T-000007"
	result, err := env.tickets.CreateOrUpdateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.TicketID != "T-000007" {
		t.Errorf("id=%q, want supplied T-000007", result.TicketID)
	}
	if result.Operation != domain.EventKindUpdated {
		t.Errorf("operation=%q, want updated", result.Operation)
	}
}

func TestCreateTicketRejectsInvalidClassification(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)

	input := basicInput(domain.UrgencyLow)
	input.Topic = "weather"
	_, err := env.tickets.CreateOrUpdateTicket(context.Background(), input)
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err=%v, want VALIDATION_FAILED", err)
	}
}

func TestCloseLatestOpenTicket(t *testing.T) {
	clock := time.Unix(1000, 0)
	env := newTestEnv(t, singleUser(), func() time.Time { return clock })
	ctx := context.Background()

	// One resolved ticket (latest event ts=100) and one open ticket (ts=200).
	seed := []domain.TicketEvent{
		{TicketID: "T-000001", UserID: "a@x.com", TS: 50, Status: domain.TicketStatusOpen,
			Topic: domain.TopicRefund, Urgency: domain.UrgencyLow, Department: domain.DepartmentBilling, Emotion: domain.EmotionNeutral},
		{TicketID: "T-000001", UserID: "a@x.com", TS: 100, Status: domain.TicketStatusResolved,
			Topic: domain.TopicRefund, Urgency: domain.UrgencyLow, Department: domain.DepartmentBilling, Emotion: domain.EmotionNeutral},
		{TicketID: "T-000002", UserID: "a@x.com", TS: 200, Status: domain.TicketStatusOpen,
			Topic: domain.TopicDeliveryIssue, Urgency: domain.UrgencyHigh, Department: domain.DepartmentSupport, Emotion: domain.EmotionFrustrated},
	}
	for _, ev := range seed {
		if err := env.eventLog.Append(ev); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result, err := env.tickets.CloseLatestOpenTicket(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.OK || result.TicketID != "T-000002" || result.Status != domain.TicketStatusResolved {
		t.Fatalf("unexpected result: %+v", result)
	}

	all, err := env.eventLog.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	closure := all[len(all)-1]
	if closure.TicketID != "T-000002" {
		t.Errorf("closure ticket=%q, want T-000002", closure.TicketID)
	}
	if closure.Event != domain.EventKindUpdated || closure.Status != domain.TicketStatusResolved {
		t.Errorf("closure event/status=%q/%q", closure.Event, closure.Status)
	}
	if closure.Meta["auto_closed"] != true {
		t.Errorf("meta=%v, want auto_closed", closure.Meta)
	}
	// Classification copied forward from the record being closed.
	if closure.Topic != domain.TopicDeliveryIssue || closure.Urgency != domain.UrgencyHigh ||
		closure.Department != domain.DepartmentSupport || closure.Emotion != domain.EmotionFrustrated {
		t.Errorf("closure reclassified the ticket: %+v", closure)
	}

	// The resolved closure of a high-urgency ticket must not escalate.
	msgs, _ := env.outbox.ReadAll()
	if len(msgs) != 0 {
		t.Errorf("outbox has %d messages after close, want 0", len(msgs))
	}

	// Everything is terminal now.
	_, err = env.tickets.CloseLatestOpenTicket(ctx, "a@x.com")
	if !apperrors.IsCode(err, "NO_OPEN_TICKET") {
		t.Fatalf("second close err=%v, want NO_OPEN_TICKET", err)
	}
}

func TestCloseLatestOpenTicketFailures(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)
	ctx := context.Background()

	if _, err := env.tickets.CloseLatestOpenTicket(ctx, "stranger@x.com"); !apperrors.IsCode(err, "UNKNOWN_USER") {
		t.Errorf("err=%v, want UNKNOWN_USER", err)
	}
	if _, err := env.tickets.CloseLatestOpenTicket(ctx, "a@x.com"); !apperrors.IsCode(err, "NO_TICKETS_FOR_USER") {
		t.Errorf("err=%v, want NO_TICKETS_FOR_USER", err)
	}
}

func TestGetUserProfile(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)
	ctx := context.Background()

	unknown, err := env.tickets.GetUserProfile(ctx, "stranger@x.com")
	if err != nil {
		t.Fatalf("unknown user should be a result, not an error: %v", err)
	}
	if unknown.KnownUser || !unknown.IsNewUser || unknown.TotalTickets != 0 {
		t.Errorf("unexpected unknown-user result: %+v", unknown)
	}

	fresh, err := env.tickets.GetUserProfile(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !fresh.KnownUser || !fresh.IsNewUser || fresh.Profile == nil {
		t.Errorf("unexpected fresh-user result: %+v", fresh)
	}

	if _, err := env.tickets.CreateOrUpdateTicket(ctx, basicInput(domain.UrgencyLow)); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := env.tickets.GetUserProfile(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if first.IsNewUser || first.TotalTickets != 1 || first.OpenTickets != 1 || !first.HasOpenTickets {
		t.Errorf("unexpected result: %+v", first)
	}

	// Idempotent with no intervening writes.
	second, err := env.tickets.GetUserProfile(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("profile not idempotent:\n first %+v\nsecond %+v", first, second)
	}
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t, singleUser(), nil)
	ctx := context.Background()

	created, err := env.tickets.CreateOrUpdateTicket(ctx, TicketInput{
		UserEmail:  "A@X.com ",
		Message:    "help",
		Topic:      domain.TopicRefund,
		Urgency:    domain.UrgencyHigh,
		Department: domain.DepartmentBilling,
		Emotion:    domain.EmotionAngry,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TicketID != "T-000001" || created.Operation != domain.EventKindCreated {
		t.Fatalf("unexpected create result: %+v", created)
	}
	if created.UserEmail != "a@x.com" {
		t.Errorf("email not normalized: %q", created.UserEmail)
	}
	msgs, _ := env.outbox.ReadAll()
	if len(msgs) != 1 {
		t.Fatalf("outbox has %d messages, want 1 escalation", len(msgs))
	}

	closed, err := env.tickets.CloseLatestOpenTicket(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.OK || closed.TicketID != "T-000001" || closed.Status != domain.TicketStatusResolved {
		t.Fatalf("unexpected close result: %+v", closed)
	}

	profile, err := env.tickets.GetUserProfile(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalTickets != 1 || profile.OpenTickets != 0 {
		t.Errorf("profile totals=%d/%d, want 1/0", profile.TotalTickets, profile.OpenTickets)
	}
}
