package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spec-kit/support-agent/internal/domain"
)

// IdentityStore is the static email-to-profile mapping. It is loaded once at
// startup and read-only at runtime; ticket operations refuse to record
// events for emails it does not contain.
type IdentityStore struct {
	profiles map[string]domain.UserProfile
}

// NewIdentityStore builds a store from an in-memory mapping. Keys are
// normalized so lookups are case-insensitive. Intended for tests and for
// callers that assemble profiles themselves.
func NewIdentityStore(profiles map[string]domain.UserProfile) *IdentityStore {
	normalized := make(map[string]domain.UserProfile, len(profiles))
	for email, profile := range profiles {
		normalized[domain.NormalizeEmail(email)] = profile
	}
	return &IdentityStore{profiles: normalized}
}

// LoadIdentityStore reads the JSON profile file: a single object mapping
// email to profile attributes.
func LoadIdentityStore(path string) (*IdentityStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity store: %w", err)
	}
	var profiles map[string]domain.UserProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse identity store: %w", err)
	}
	return NewIdentityStore(profiles), nil
}

// Lookup returns the profile for a normalized email.
func (s *IdentityStore) Lookup(email string) (domain.UserProfile, bool) {
	profile, ok := s.profiles[domain.NormalizeEmail(email)]
	return profile, ok
}

// Len returns the number of known users.
func (s *IdentityStore) Len() int {
	return len(s.profiles)
}
