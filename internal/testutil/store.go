package testutil

import (
	"testing"

	"sitereg/internal/store"
)

// NewTestStore creates an in-memory SQLite store with the schema
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewStoreFromConfig("memory", "")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
