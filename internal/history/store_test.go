package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"captioner/internal/artifacts"
	"captioner/internal/history"
	"captioner/internal/testsupport"
)

func TestBeginAndFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	run := testsupport.BeginRun(t, store, "/videos/aula.mp4", "aula")
	if run.ID == "" || run.Status != history.StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	names := artifacts.Namer{OutputDir: "/out"}.Derive("aula")
	if err := store.Finish(ctx, run.ID, history.Outcome{
		Status:    history.StatusSucceeded,
		Artifacts: names,
		Segments:  12,
	}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != history.StatusSucceeded || got.Artifacts != names || got.Segments != 12 {
		t.Fatalf("unexpected stored run %+v", got)
	}
	if got.FinishedAt == nil || got.FinishedAt.Before(got.StartedAt) {
		t.Fatalf("unexpected finish time %v (start %v)", got.FinishedAt, got.StartedAt)
	}
	if got.Model != "base" || got.SourcePath != "/videos/aula.mp4" {
		t.Fatalf("unexpected metadata %+v", got)
	}
}

func TestFinishFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	run := testsupport.BeginRun(t, store, "broken.mp4", "broken")
	if err := store.Finish(ctx, run.ID, history.Outcome{
		Status:       history.StatusFailed,
		FailedStep:   "extracting",
		ErrorKind:    "media_extraction_failed",
		ErrorMessage: "no audio stream",
	}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FailedStep != "extracting" || got.ErrorKind != "media_extraction_failed" || got.Artifacts != (artifacts.Names{}) {
		t.Fatalf("unexpected failed run %+v", got)
	}
}

func TestFinishValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Finish(ctx, "missing", history.Outcome{Status: history.StatusSucceeded}); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	run := testsupport.BeginRun(t, store, "a.mp4", "a")
	if err := store.Finish(ctx, run.ID, history.Outcome{Status: history.StatusRunning}); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	var ids []string
	for _, base := range []string{"one", "two", "three"} {
		ids = append(ids, testsupport.BeginRun(t, store, base+".mp4", base).ID)
	}
	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order: %+v", runs)
	}
	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("List(0) = %d runs, %v", len(all), err)
	}
}

func TestPruneKeepsRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	done := testsupport.BeginRun(t, store, "a.mp4", "a")
	if err := store.Finish(ctx, done.ID, history.Outcome{Status: history.StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	testsupport.BeginRun(t, store, "b.mp4", "b")

	removed, err := store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	runs, err := store.List(ctx, 0)
	if err != nil || len(runs) != 1 || runs[0].Status != history.StatusRunning {
		t.Fatalf("unexpected remaining runs %+v, %v", runs, err)
	}
}

func TestReopenAndSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := history.Open(ctx, cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	run, err := store.Begin(ctx, "a.mp4", "a", "whisperx", "")
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := history.Open(ctx, cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.Get(ctx, run.ID); err != nil {
		t.Fatalf("run lost across reopen: %v", err)
	}
	reopened.Close()

	db, err := sql.Open("sqlite", cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := history.Open(ctx, cfg.Paths.HistoryDB); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
