// Package memory stores per-conversation chat history for the agent loop.
package memory

import (
	"context"
	"sync"
)

// Message is one remembered chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps conversation transcripts keyed by conversation id.
type Store interface {
	History(ctx context.Context, conversationID string) ([]Message, error)
	Append(ctx context.Context, conversationID string, msgs ...Message) error
}

// inMemoryStore keeps history in process. Suitable for a single instance;
// history is lost on restart.
type inMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

// NewInMemoryStore creates an in-process store.
func NewInMemoryStore() Store {
	return &inMemoryStore{sessions: make(map[string][]Message)}
}

func (s *inMemoryStore) History(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[conversationID]
	out := make([]Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *inMemoryStore) Append(ctx context.Context, conversationID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[conversationID] = append(s.sessions[conversationID], msgs...)
	return nil
}
