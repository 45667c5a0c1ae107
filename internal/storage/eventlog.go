package storage

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
)

// EventLog is the append-only file of ticket events, one JSON object per
// line. It is the single source of truth for ticket state; all current-state
// queries are projections over ReadAll.
//
// The in-process mutex serializes appends within one process. There is no
// cross-process locking: the deployment assumes a single writer process, and
// read-then-append sequences built on top of this log (ticket id generation,
// close-latest selection) can race if that assumption is violated.
type EventLog struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewEventLog creates a log backed by the given file path. The file does not
// need to exist yet.
func NewEventLog(path string, logger *zap.Logger) *EventLog {
	return &EventLog{path: path, logger: logger}
}

// Append durably persists one event as a complete line. Filled-in schema and
// type fields are enforced here so every stored record is self-describing.
func (l *EventLog) Append(event domain.TicketEvent) error {
	event.Schema = domain.TicketEventSchema
	event.Type = domain.TicketEventType
	if event.Meta == nil {
		event.Meta = map[string]any{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendLine(l.path, event)
}

// ReadAll returns every parseable event in append order. Malformed lines are
// skipped so one corrupt record cannot make the whole log unreadable; a
// missing file reads as an empty log.
func (l *EventLog) ReadAll() ([]domain.TicketEvent, error) {
	var events []domain.TicketEvent
	skipped, err := readLines(l.path, func(line []byte) error {
		var event domain.TicketEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 && l.logger != nil {
		l.logger.Warn("skipped malformed event log lines",
			zap.String("path", l.path),
			zap.Int("skipped", skipped))
	}
	return events, nil
}
