package projection

import (
	"testing"

	"github.com/spec-kit/support-agent/internal/domain"
)

func event(ticketID, userID string, ts float64, status domain.TicketStatus) domain.TicketEvent {
	return domain.TicketEvent{
		TicketID: ticketID,
		UserID:   userID,
		TS:       ts,
		Status:   status,
	}
}

func TestLatestStatePerTicket(t *testing.T) {
	events := []domain.TicketEvent{
		event("T-000001", "a@x.com", 100, domain.TicketStatusOpen),
		event("T-000001", "a@x.com", 300, domain.TicketStatusResolved),
		event("T-000001", "a@x.com", 200, domain.TicketStatusPending),
		event("T-000002", "b@x.com", 150, domain.TicketStatusOpen),
	}

	latest := LatestStatePerTicket(events)
	if len(latest) != 2 {
		t.Fatalf("got %d tickets, want 2", len(latest))
	}
	if got := latest["T-000001"].Status; got != domain.TicketStatusResolved {
		t.Errorf("T-000001 status=%q, want resolved", got)
	}
	if got := latest["T-000002"].TS; got != 150 {
		t.Errorf("T-000002 ts=%v, want 150", got)
	}
}

func TestLatestStatePerTicketTieBreaksByLogOrder(t *testing.T) {
	events := []domain.TicketEvent{
		event("T-000001", "a@x.com", 100, domain.TicketStatusOpen),
		event("T-000001", "a@x.com", 100, domain.TicketStatusResolved),
	}
	latest := LatestStatePerTicket(events)
	if got := latest["T-000001"].Status; got != domain.TicketStatusResolved {
		t.Errorf("tie should pick the later log entry, got status=%q", got)
	}
}

func TestNextTicketID(t *testing.T) {
	cases := []struct {
		name   string
		events []domain.TicketEvent
		want   string
	}{
		{"empty log", nil, "T-000001"},
		{"sequential", []domain.TicketEvent{
			event("T-000001", "a@x.com", 1, domain.TicketStatusOpen),
			event("T-000002", "a@x.com", 2, domain.TicketStatusOpen),
		}, "T-000003"},
		{"gap in ids", []domain.TicketEvent{
			event("T-000050", "a@x.com", 1, domain.TicketStatusOpen),
		}, "T-000051"},
		{"malformed ids ignored", []domain.TicketEvent{
			event("LEGACY-9", "a@x.com", 1, domain.TicketStatusOpen),
			event("T-abc", "a@x.com", 2, domain.TicketStatusOpen),
			event("T-000007", "a@x.com", 3, domain.TicketStatusOpen),
		}, "T-000008"},
		{"only malformed ids", []domain.TicketEvent{
			event("LEGACY-9", "a@x.com", 1, domain.TicketStatusOpen),
		}, "T-000001"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextTicketID(tt.events); got != tt.want {
				t.Errorf("NextTicketID=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeUser(t *testing.T) {
	events := []domain.TicketEvent{
		event("T-000001", "a@x.com", 100, domain.TicketStatusOpen),
		event("T-000001", "a@x.com", 400, domain.TicketStatusResolved),
		event("T-000002", "a@x.com", 200, domain.TicketStatusOpen),
		event("T-000003", "b@x.com", 900, domain.TicketStatusOpen),
	}

	summary := SummarizeUser("a@x.com", events)
	if !summary.HasEvents {
		t.Fatal("expected HasEvents")
	}
	if summary.TotalTickets != 2 {
		t.Errorf("TotalTickets=%d, want 2", summary.TotalTickets)
	}
	if summary.OpenTickets != 1 {
		t.Errorf("OpenTickets=%d, want 1", summary.OpenTickets)
	}
	// Max over all the user's events, not only per-ticket-latest ones.
	if summary.LastEventTS != 400 {
		t.Errorf("LastEventTS=%v, want 400", summary.LastEventTS)
	}

	empty := SummarizeUser("nobody@x.com", events)
	if empty.HasEvents || empty.TotalTickets != 0 || empty.OpenTickets != 0 {
		t.Errorf("unexpected summary for unknown user: %+v", empty)
	}
}

func TestLatestOpenTicket(t *testing.T) {
	events := []domain.TicketEvent{
		event("T-000001", "a@x.com", 100, domain.TicketStatusResolved),
		event("T-000002", "a@x.com", 200, domain.TicketStatusOpen),
		event("T-000003", "b@x.com", 300, domain.TicketStatusPending),
	}

	got, ok := LatestOpenTicket(events, "")
	if !ok || got.TicketID != "T-000003" {
		t.Fatalf("LatestOpenTicket(all)=%v/%v, want T-000003", got.TicketID, ok)
	}

	got, ok = LatestOpenTicket(events, "a@x.com")
	if !ok || got.TicketID != "T-000002" {
		t.Fatalf("LatestOpenTicket(a@x.com)=%v/%v, want T-000002", got.TicketID, ok)
	}

	_, ok = LatestOpenTicket([]domain.TicketEvent{
		event("T-000001", "a@x.com", 100, domain.TicketStatusClosed),
	}, "")
	if ok {
		t.Fatal("expected no open ticket")
	}
}
