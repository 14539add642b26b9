package testsupport

import (
	"context"
	"testing"

	"automerge/internal/config"
	"automerge/internal/library"
)

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustImport loads a snapshot into store.
func MustImport(t testing.TB, store *library.Store, snap library.Snapshot) {
	t.Helper()

	if _, err := store.Import(context.Background(), snap); err != nil {
		t.Fatalf("store.Import: %v", err)
	}
}
