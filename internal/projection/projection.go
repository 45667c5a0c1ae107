// Package projection derives point-in-time ticket state from the raw event
// log. Everything here is a pure function over a slice of events so the
// logic is testable without any file I/O.
package projection

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spec-kit/support-agent/internal/domain"
)

// ticketIDPattern matches generated ids. Ids that do not match (manual or
// legacy entries) are ignored by the generator but still project normally.
var ticketIDPattern = regexp.MustCompile(`^T-(\d+)$`)

// LatestStatePerTicket folds the log into the current event per ticket id:
// the event with the greatest timestamp, ties broken by log order (the later
// line wins).
func LatestStatePerTicket(events []domain.TicketEvent) map[string]domain.TicketEvent {
	latest := make(map[string]domain.TicketEvent)
	for _, event := range events {
		current, ok := latest[event.TicketID]
		if !ok || event.TS >= current.TS {
			latest[event.TicketID] = event
		}
	}
	return latest
}

// NextTicketID issues the next id in the T-NNNNNN sequence: one greater than
// the highest numeric suffix present in the log. Requires a full scan on
// every call, which is acceptable only while the log stays small.
func NextTicketID(events []domain.TicketEvent) string {
	max := 0
	for _, event := range events {
		m := ticketIDPattern.FindStringSubmatch(event.TicketID)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("T-%06d", max+1)
}

// UserSummary aggregates a single user's ticket history.
type UserSummary struct {
	TotalTickets int
	OpenTickets  int
	// LastEventTS is the greatest timestamp across ALL of the user's
	// events, not just the per-ticket-latest ones.
	LastEventTS float64
	HasEvents   bool
}

// SummarizeUser filters the log to one user and derives ticket counts and
// recency. The email must already be normalized.
func SummarizeUser(email string, events []domain.TicketEvent) UserSummary {
	var mine []domain.TicketEvent
	summary := UserSummary{}
	for _, event := range events {
		if domain.NormalizeEmail(event.UserID) != email {
			continue
		}
		mine = append(mine, event)
		summary.HasEvents = true
		if event.TS > summary.LastEventTS {
			summary.LastEventTS = event.TS
		}
	}
	for _, current := range LatestStatePerTicket(mine) {
		summary.TotalTickets++
		if current.Open() {
			summary.OpenTickets++
		}
	}
	return summary
}

// LatestOpenTicket finds the single raw event with the greatest timestamp
// whose status is non-terminal, optionally restricted to one (normalized)
// user email. Callers that need "no open ticket" to be exact must check the
// per-ticket projection first: an old open event of a since-resolved ticket
// still matches this scan.
func LatestOpenTicket(events []domain.TicketEvent, userFilter string) (domain.TicketEvent, bool) {
	var best domain.TicketEvent
	found := false
	for _, event := range events {
		if userFilter != "" && domain.NormalizeEmail(event.UserID) != userFilter {
			continue
		}
		if !event.Open() {
			continue
		}
		if !found || event.TS >= best.TS {
			best = event
			found = true
		}
	}
	return best, found
}
