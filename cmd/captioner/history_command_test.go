package main

import (
	"context"
	"encoding/json"
	"testing"

	"captioner/internal/history"
	"captioner/internal/testsupport"
)

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "transcribe", env.media(t, "first.mp4")); err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	out, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "first")
	requireContains(t, out, "succeeded")
	requireContains(t, out, "whisperx")

	out, _, err = env.run(t, "history", "--json", "--limit", "5")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].BaseName != "first" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out, _, err = env.run(t, "history", "show", runs[0].ID)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
}

func TestHistoryShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "history", "show", "nope"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenHistory(t, env.cfg)
	run := testsupport.BeginRun(t, store, "/media/a.mp4", "a")
	if err := store.Finish(context.Background(), run.ID, history.Outcome{Status: history.StatusSucceeded}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out, _, err := env.run(t, "history", "prune", "--older-than", "1h")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 0 run(s)")

	if _, _, err := env.run(t, "history", "prune", "--older-than", "0s"); err == nil {
		t.Fatal("expected error for non-positive age")
	}
}
