package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spec-kit/support-agent/internal/domain"
)

func TestLoadIdentityStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	content := `{
		"a@x.com": {"name": "A", "plan": "gold"},
		"B@X.COM": {"name": "B"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write users file: %v", err)
	}

	store, err := LoadIdentityStore(path)
	if err != nil {
		t.Fatalf("LoadIdentityStore: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len=%d, want 2", store.Len())
	}

	profile, ok := store.Lookup(" A@X.com ")
	if !ok {
		t.Fatal("lookup with unnormalized email should succeed")
	}
	if profile.Name != "A" {
		t.Errorf("Name=%q, want A", profile.Name)
	}
	if profile.Attributes["plan"] != "gold" {
		t.Errorf("extra attributes not retained: %+v", profile.Attributes)
	}

	// Keys are normalized at load time.
	if _, ok := store.Lookup("b@x.com"); !ok {
		t.Error("upper-cased key should be reachable via normalized email")
	}
}

func TestLoadIdentityStoreMissingFile(t *testing.T) {
	if _, err := LoadIdentityStore(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing identity file")
	}
}

func TestNewIdentityStoreNormalizesKeys(t *testing.T) {
	store := NewIdentityStore(map[string]domain.UserProfile{
		" C@X.com ": {Name: "C"},
	})
	if _, ok := store.Lookup("c@x.com"); !ok {
		t.Fatal("expected normalized lookup to succeed")
	}
}
