package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TranscriptWriter mirrors each conversation into one JSON file per
// conversation id, rewritten whole on every turn. The files are an audit
// artifact, not the working history.
type TranscriptWriter struct {
	dir string
}

// NewTranscriptWriter creates a writer rooted at dir. An empty dir disables
// writing.
func NewTranscriptWriter(dir string) *TranscriptWriter {
	return &TranscriptWriter{dir: dir}
}

type transcriptRecord struct {
	TS             float64   `json:"ts"`
	ConversationID string    `json:"session_id"`
	Messages       []Message `json:"messages"`
}

// Write persists the full transcript for a conversation.
func (w *TranscriptWriter) Write(conversationID string, history []Message) error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}
	record := transcriptRecord{
		TS:             float64(time.Now().UnixNano()) / float64(time.Second),
		ConversationID: conversationID,
		Messages:       history,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	path := filepath.Join(w.dir, conversationID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
