package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"captioner/internal/history"
	"captioner/internal/preflight"
	"captioner/internal/runlock"
	"captioner/internal/services"
	"captioner/internal/testsupport"
)

func TestTranscribeWritesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.media(t, "lecture.mp4")

	out, _, err := env.run(t, "transcribe", source)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	requireContains(t, out, "lecture")
	requireContains(t, out, "2 segments")

	dir := env.cfg.Output.Dir
	if got := testsupport.ReadFile(t, filepath.Join(dir, "lecture_transcricao.txt")); got != "Hello world" {
		t.Fatalf("transcript = %q", got)
	}
	wantSRT := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n00:00:01,500 --> 00:00:03,000\nworld\n\n"
	if got := testsupport.ReadFile(t, filepath.Join(dir, "lecture.srt")); got != wantSRT {
		t.Fatalf("subtitle mismatch\n got: %q\nwant: %q", got, wantSRT)
	}
	testsupport.ReadFile(t, filepath.Join(dir, "lecture.wav"))

	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != history.StatusSucceeded || runs[0].BaseName != "lecture" || runs[0].Segments != 2 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	if runs[0].Model != "base" {
		t.Fatalf("model = %q, want base", runs[0].Model)
	}
}

func TestTranscribeOverridesOutputAndSuffix(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.media(t, "talk.mkv")
	outDir := filepath.Join(env.baseDir, "custom")

	if _, _, err := env.run(t, "transcribe", "-o", outDir, "--suffix", ".txt", "--model", "large", source); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	testsupport.ReadFile(t, filepath.Join(outDir, "talk.txt"))
	testsupport.ReadFile(t, filepath.Join(outDir, "talk.srt"))

	runs, err := testsupport.MustOpenHistory(t, env.cfg).List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if runs[0].Model != "large-v3" {
		t.Fatalf("model = %q, want large-v3", runs[0].Model)
	}
}

func TestTranscribeRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown model", args: []string{"--model", "huge"}},
		{name: "bad language", args: []string{"--language", "not a language"}},
		{name: "zero jobs", args: []string{"--jobs", "0"}},
		{name: "separator suffix", args: []string{"--suffix", "a/b.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			source := env.media(t, "clip.mp4")
			args := append([]string{"transcribe"}, tt.args...)
			_, _, err := env.run(t, append(args, source)...)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestTranscribeJSONReport(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.media(t, "episode.mp4")

	out, _, err := env.run(t, "transcribe", "--json", source)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	var reports []runReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	report := reports[0]
	if report.Status != history.StatusSucceeded || report.RunID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Artifacts.Subtitle != filepath.Join(env.cfg.Output.Dir, "episode.srt") {
		t.Fatalf("subtitle path = %q", report.Artifacts.Subtitle)
	}
}

func TestTranscribeFailureRecordsStep(t *testing.T) {
	env := setupCLITestEnv(t)
	env.transcriber.errFor = map[string]error{"broken.wav": errors.New("model crashed")}
	source := env.media(t, "broken.mp4")

	out, _, err := env.run(t, "transcribe", "--json", source)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	requireContains(t, out, `"failed_step": "transcribing"`)
	requireContains(t, out, `"error_kind": "transcription_failed"`)

	runs, err := testsupport.MustOpenHistory(t, env.cfg).List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if runs[0].Status != history.StatusFailed || runs[0].FailedStep != "transcribing" {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	requireNotExists(t, filepath.Join(env.cfg.Output.Dir, "broken.srt"))
}

func TestTranscribeMultipleAssetsContinuesPastFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.transcriber.errFor = map[string]error{"b.wav": errors.New("boom")}
	a := env.media(t, "a.mp4")
	b := env.media(t, "b.mp4")
	c := env.media(t, "c.mp4")

	out, _, err := env.run(t, "transcribe", "--jobs", "2", a, b, c)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 assets failed") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
	for _, base := range []string{"a", "c"} {
		testsupport.ReadFile(t, filepath.Join(env.cfg.Output.Dir, base+".srt"))
	}
	requireNotExists(t, filepath.Join(env.cfg.Output.Dir, "b.srt"))
}

func TestTranscribeReadsStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	env.stdin = strings.NewReader("uploaded bytes")

	if _, _, err := env.run(t, "transcribe", "--name", "upload.mp3", "-"); err != nil {
		t.Fatalf("transcribe stdin: %v", err)
	}
	testsupport.ReadFile(t, filepath.Join(env.cfg.Output.Dir, "upload_transcricao.txt"))
	testsupport.ReadFile(t, filepath.Join(env.cfg.Output.Dir, "upload.srt"))
	requireNotExists(t, filepath.Join(env.cfg.Paths.WorkDir, "temp_upload.mp3"))
}

func TestTranscribeStdinRequiresName(t *testing.T) {
	env := setupCLITestEnv(t)
	env.stdin = strings.NewReader("bytes")

	_, _, err := env.run(t, "transcribe", "-")
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTranscribePreflightFailureStopsBeforeWork(t *testing.T) {
	env := setupCLITestEnv(t)
	env.preflight = []preflight.Result{{Name: "Output directory", Passed: false, Detail: "not writable"}}
	source := env.media(t, "clip.mp4")

	_, _, err := env.run(t, "transcribe", source)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "not writable")
	if len(env.transcriber.seen) != 0 {
		t.Fatalf("transcriber should not run, saw %v", env.transcriber.seen)
	}

	if _, _, err := env.run(t, "transcribe", "--skip-preflight", source); err != nil {
		t.Fatalf("transcribe --skip-preflight: %v", err)
	}
}

func TestTranscribeTimeoutDiscardsArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	env.transcriber.block = true
	source := env.media(t, "slow.mp4")

	_, _, err := env.run(t, "transcribe", "--timeout", "1s", source)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	requireContains(t, err.Error(), "time limit")
	for _, name := range []string{"slow.wav", "slow_transcricao.txt", "slow.srt"} {
		requireNotExists(t, filepath.Join(env.cfg.Output.Dir, name))
	}
}

func TestTranscribeMissingSourceFailsExtraction(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "transcribe", filepath.Join(env.baseDir, "missing.mp4"))
	if !errors.Is(err, services.ErrMediaExtraction) {
		t.Fatalf("expected media extraction error, got %v", err)
	}
}

func TestTranscribeWAVSourceInOutputDirIsKept(t *testing.T) {
	env := setupCLITestEnv(t)
	source := testsupport.WriteFile(t, filepath.Join(env.cfg.Output.Dir, "interview.wav"), "RIFF original")

	_, _, err := env.run(t, "transcribe", "--timeout", "1s", source)
	if !errors.Is(err, services.ErrMediaExtraction) {
		t.Fatalf("expected media extraction error, got %v", err)
	}
	if got := testsupport.ReadFile(t, source); got != "RIFF original" {
		t.Fatalf("source media changed: %q", got)
	}
}

func TestTranscribeNoWaitFailsWhenLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.media(t, "busy.mp4")
	held, err := runlock.TryAcquire(env.cfg.Output.Dir, "busy")
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer held.Release()

	out, _, err := env.run(t, "transcribe", "--no-wait", "--json", source)
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	requireContains(t, out, `"error_kind": "artifact_write_failed"`)
	if len(env.transcriber.seen) != 0 {
		t.Fatalf("transcriber should not run, saw %v", env.transcriber.seen)
	}
	requireNotExists(t, filepath.Join(env.cfg.Output.Dir, "busy.srt"))

	if err := held.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, _, err := env.run(t, "transcribe", "--no-wait", source); err != nil {
		t.Fatalf("transcribe after release: %v", err)
	}
}
