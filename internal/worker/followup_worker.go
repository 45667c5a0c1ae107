package worker

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/projection"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
)

// Drafter produces the follow-up email body for one stale ticket.
type Drafter interface {
	DraftFollowUp(ctx context.Context, ticket domain.TicketEvent, profile domain.UserProfile) (string, error)
}

// FollowupWorker periodically scans the event log for open tickets whose
// latest event is older than the staleness threshold and queues a follow-up
// email to each affected customer. It only notifies; it never closes
// tickets. Per-ticket failures are logged and skipped so one bad record
// cannot abort the sweep.
type FollowupWorker struct {
	log       *storage.EventLog
	identity  *storage.IdentityStore
	notifier  *service.NotificationService
	drafter   Drafter
	logger    *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

// FollowupDependencies bundles collaborators for the sweeper.
type FollowupDependencies struct {
	EventLog  *storage.EventLog
	Identity  *storage.IdentityStore
	Notifier  *service.NotificationService
	Drafter   Drafter
	Logger    *zap.Logger
	Threshold time.Duration
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewFollowupWorker constructs the sweeper.
func NewFollowupWorker(deps FollowupDependencies) *FollowupWorker {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	return &FollowupWorker{
		log:       deps.EventLog,
		identity:  deps.Identity,
		notifier:  deps.Notifier,
		drafter:   deps.Drafter,
		logger:    logger,
		threshold: threshold,
		now:       now,
	}
}

// RunOnce performs a single sweep over the whole log. The returned count is
// the number of follow-ups queued; the error is only a log read failure.
func (w *FollowupWorker) RunOnce(ctx context.Context) (int, error) {
	all, err := w.log.ReadAll()
	if err != nil {
		return 0, err
	}

	var stale []domain.TicketEvent
	now := w.now()
	for _, current := range projection.LatestStatePerTicket(all) {
		if !current.Open() {
			continue
		}
		if now.Sub(current.Time()) < w.threshold {
			continue
		}
		stale = append(stale, current)
	}
	// Deterministic processing order for logs and tests.
	sort.Slice(stale, func(i, j int) bool { return stale[i].TicketID < stale[j].TicketID })

	if len(stale) == 0 {
		w.logger.Debug("no stale open tickets")
		return 0, nil
	}
	w.logger.Info("found stale open tickets", zap.Int("count", len(stale)))

	queued := 0
	for _, ticket := range stale {
		email := domain.NormalizeEmail(ticket.UserID)
		if email == "" || !strings.Contains(email, "@") {
			w.logger.Warn("skipping ticket with invalid user email",
				zap.String("ticket_id", ticket.TicketID))
			continue
		}
		profile, _ := w.identity.Lookup(email)

		body, err := w.drafter.DraftFollowUp(ctx, ticket, profile)
		if err != nil {
			w.logger.Error("failed to draft follow-up",
				zap.String("ticket_id", ticket.TicketID),
				zap.Error(err))
			continue
		}
		if err := w.notifier.QueueFollowUp(ticket.TicketID, email, body); err != nil {
			w.logger.Error("failed to queue follow-up",
				zap.String("ticket_id", ticket.TicketID),
				zap.Error(err))
			continue
		}
		w.logger.Info("follow-up queued",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("to", email))
		queued++
	}
	return queued, nil
}

// Start runs sweeps on the given interval until the context is canceled.
// Each pass runs to completion before the next is considered, so sweeps
// never overlap.
func (w *FollowupWorker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("follow-up worker started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("follow-up worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("follow-up sweep failed", zap.Error(err))
			}
		}
	}
}
