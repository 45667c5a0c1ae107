package storage

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
)

// Outbox is the append-only file of outbound email records. Appending a
// record is the whole delivery contract; nothing downstream consumes it.
type Outbox struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewOutbox creates an outbox backed by the given file path.
func NewOutbox(path string, logger *zap.Logger) *Outbox {
	return &Outbox{path: path, logger: logger}
}

// Append queues one outbound message.
func (o *Outbox) Append(msg domain.OutboundMessage) error {
	if msg.Meta == nil {
		msg.Meta = map[string]any{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return appendLine(o.path, msg)
}

// ReadAll returns every parseable outbound message in append order,
// skipping malformed lines.
func (o *Outbox) ReadAll() ([]domain.OutboundMessage, error) {
	var msgs []domain.OutboundMessage
	skipped, err := readLines(o.path, func(line []byte) error {
		var msg domain.OutboundMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 && o.logger != nil {
		o.logger.Warn("skipped malformed outbox lines",
			zap.String("path", o.path),
			zap.Int("skipped", skipped))
	}
	return msgs, nil
}
