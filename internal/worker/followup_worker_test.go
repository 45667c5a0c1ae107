package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
)

type fakeDrafter struct {
	failFor map[string]bool
	calls   []string
}

func (d *fakeDrafter) DraftFollowUp(_ context.Context, ticket domain.TicketEvent, profile domain.UserProfile) (string, error) {
	d.calls = append(d.calls, ticket.TicketID)
	if d.failFor[ticket.TicketID] {
		return "", errors.New("model unavailable")
	}
	name := profile.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s, checking in on %s.", name, ticket.TicketID), nil
}

type workerEnv struct {
	worker  *FollowupWorker
	outbox  *storage.Outbox
	drafter *fakeDrafter
	log     *storage.EventLog
}

func newWorkerEnv(t *testing.T, now time.Time) *workerEnv {
	t.Helper()
	dir := t.TempDir()
	eventLog := storage.NewEventLog(filepath.Join(dir, "tickets.jsonl"), zap.NewNop())
	outbox := storage.NewOutbox(filepath.Join(dir, "emails.jsonl"), zap.NewNop())

	notifier := service.NewNotificationService(outbox, events.NewInMemoryDispatcher(), zap.NewNop(), config.NotificationConfig{
		SupportAddress: "support@example.com",
	})
	drafter := &fakeDrafter{failFor: map[string]bool{}}

	worker := NewFollowupWorker(FollowupDependencies{
		EventLog: eventLog,
		Identity: storage.NewIdentityStore(map[string]domain.UserProfile{
			"a@x.com": {Name: "A"},
			"b@x.com": {Name: "B"},
		}),
		Notifier:  notifier,
		Drafter:   drafter,
		Logger:    zap.NewNop(),
		Threshold: 24 * time.Hour,
		Now:       func() time.Time { return now },
	})
	return &workerEnv{worker: worker, outbox: outbox, drafter: drafter, log: eventLog}
}

func seedEvent(t *testing.T, env *workerEnv, ticketID, userID string, age time.Duration, now time.Time, status domain.TicketStatus) {
	t.Helper()
	err := env.log.Append(domain.TicketEvent{
		TS:       domain.EpochSeconds(now.Add(-age)),
		TicketID: ticketID,
		UserID:   userID,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", ticketID, err)
	}
}

func TestRunOnceQueuesFollowUpsForStaleTickets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	env := newWorkerEnv(t, now)

	seedEvent(t, env, "T-000001", "a@x.com", 25*time.Hour, now, domain.TicketStatusOpen)
	seedEvent(t, env, "T-000002", "b@x.com", 1*time.Hour, now, domain.TicketStatusOpen)
	seedEvent(t, env, "T-000003", "a@x.com", 48*time.Hour, now, domain.TicketStatusResolved)

	queued, err := env.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if queued != 1 {
		t.Fatalf("queued=%d, want 1", queued)
	}

	msgs, err := env.outbox.ReadAll()
	if err != nil {
		t.Fatalf("outbox ReadAll: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("outbox has %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.To != "a@x.com" {
		t.Errorf("to=%q, want a@x.com", msg.To)
	}
	if want := "Checking in about your ticket T-000001"; msg.Subject != want {
		t.Errorf("subject=%q, want %q", msg.Subject, want)
	}
	if msg.Meta["source"] != "followup_worker" || msg.Meta["ticket_id"] != "T-000001" || msg.Meta["reason"] != "stale_open_ticket" {
		t.Errorf("meta=%v", msg.Meta)
	}
}

func TestRunOnceStaleOnlyByLatestEvent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	env := newWorkerEnv(t, now)

	// The ticket was opened long ago but touched an hour ago; the latest
	// event decides staleness.
	seedEvent(t, env, "T-000001", "a@x.com", 72*time.Hour, now, domain.TicketStatusOpen)
	seedEvent(t, env, "T-000001", "a@x.com", 1*time.Hour, now, domain.TicketStatusOpen)

	queued, err := env.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if queued != 0 {
		t.Errorf("queued=%d, want 0", queued)
	}
}

func TestRunOnceSkipsInvalidEmail(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	env := newWorkerEnv(t, now)

	seedEvent(t, env, "T-000001", "not-an-email", 30*time.Hour, now, domain.TicketStatusOpen)

	queued, err := env.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if queued != 0 {
		t.Errorf("queued=%d, want 0", queued)
	}
	if len(env.drafter.calls) != 0 {
		t.Errorf("drafter called for invalid email: %v", env.drafter.calls)
	}
}

func TestRunOnceContinuesPastDrafterFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	env := newWorkerEnv(t, now)
	env.drafter.failFor["T-000001"] = true

	seedEvent(t, env, "T-000001", "a@x.com", 30*time.Hour, now, domain.TicketStatusOpen)
	seedEvent(t, env, "T-000002", "b@x.com", 30*time.Hour, now, domain.TicketStatusOpen)

	queued, err := env.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if queued != 1 {
		t.Fatalf("queued=%d, want 1", queued)
	}
	// Tickets are processed in id order even though projection order is
	// map-random.
	if len(env.drafter.calls) != 2 || env.drafter.calls[0] != "T-000001" || env.drafter.calls[1] != "T-000002" {
		t.Errorf("drafter calls=%v", env.drafter.calls)
	}
	msgs, _ := env.outbox.ReadAll()
	if len(msgs) != 1 || msgs[0].To != "b@x.com" {
		t.Errorf("unexpected outbox: %+v", msgs)
	}
}
