package testsupport

import (
	"context"
	"testing"

	"captioner/internal/config"
	"captioner/internal/history"
)

// MustOpenHistory opens the config's history database and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running run for tests.
func BeginRun(t testing.TB, store *history.Store, source, base string) *history.Run {
	t.Helper()

	run, err := store.Begin(context.Background(), source, base, config.BackendWhisperX, "base")
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return run
}
