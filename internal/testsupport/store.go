package testsupport

import (
	"context"
	"testing"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
)

// MustOpenStore opens the configured ledger store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedLedger writes entries as the whole ledger.
func SeedLedger(t testing.TB, store ledger.Store, entries ...ledger.Entry) {
	t.Helper()

	if entries == nil {
		entries = []ledger.Entry{}
	}
	if err := store.Save(context.Background(), entries); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

// MustLoad returns the current ledger contents.
func MustLoad(t testing.TB, store ledger.Store) []ledger.Entry {
	t.Helper()

	entries, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return entries
}
