package storage

import (
	"encoding/json"
	"sync"

	"github.com/spec-kit/support-agent/internal/domain"
)

// TextLog is the append-only file of free-form notes saved by the agent
// (conversation snippets, FAQ candidates, fallback replies).
type TextLog struct {
	path string

	mu sync.Mutex
}

// NewTextLog creates a text log backed by the given file path.
func NewTextLog(path string) *TextLog {
	return &TextLog{path: path}
}

// Append saves one note.
func (t *TextLog) Append(note domain.TextNote) error {
	if note.Meta == nil {
		note.Meta = map[string]any{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return appendLine(t.path, note)
}

// ReadAll returns every parseable note in append order.
func (t *TextLog) ReadAll() ([]domain.TextNote, error) {
	var notes []domain.TextNote
	if _, err := readLines(t.path, func(line []byte) error {
		var note domain.TextNote
		if err := json.Unmarshal(line, &note); err != nil {
			return err
		}
		notes = append(notes, note)
		return nil
	}); err != nil {
		return nil, err
	}
	return notes, nil
}
