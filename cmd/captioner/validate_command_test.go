package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"captioner/internal/services"
	"captioner/internal/srt"
	"captioner/internal/testsupport"
)

const validSRT = "1\n00:00:00,000 --> 00:00:02,000\nHello\n\n2\n00:00:02,000 --> 00:00:04,000\nworld\n\n"

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		args      []string
		wantErr   bool
		wantIssue string
	}{
		{name: "valid", body: validSRT},
		{name: "empty", body: "", wantErr: true, wantIssue: srt.IssueEmpty},
		{
			name:      "overlap",
			body:      "1\n00:00:00,000 --> 00:00:03,000\nA\n\n2\n00:00:02,000 --> 00:00:04,000\nB\n\n",
			wantErr:   true,
			wantIssue: srt.IssueOverlap,
		},
		{
			name: "within duration tolerance",
			body: validSRT,
			args: []string{"--media-seconds", "1"},
		},
		{
			name:      "far past media",
			body:      "1\n00:01:00,000 --> 00:01:02,000\nLate\n\n",
			args:      []string{"--media-seconds", "10"},
			wantErr:   true,
			wantIssue: srt.IssueDurationMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			path := testsupport.WriteFile(t, filepath.Join(env.baseDir, "sub.srt"), tt.body)
			args := append([]string{"validate"}, tt.args...)
			out, _, err := env.run(t, append(args, path)...)
			if tt.wantErr {
				if !errors.Is(err, services.ErrInvalidInput) {
					t.Fatalf("expected invalid input error, got %v", err)
				}
				requireContains(t, out, tt.wantIssue)
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			requireContains(t, out, "[OK]")
		})
	}
}

func TestValidateCommandReadsMediaDuration(t *testing.T) {
	env := setupCLITestEnv(t)
	env.ffprobeOutput = `{"streams":[],"format":{"duration":"5.000000"}}`
	sub := testsupport.WriteFile(t, filepath.Join(env.baseDir, "long.srt"),
		"1\n00:00:30,000 --> 00:00:31,000\nToo late\n\n")
	mediaPath := env.media(t, "short.mp4")

	out, _, err := env.run(t, "validate", "--json", "--media", mediaPath, sub)
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	var reports []validateReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(reports) != 1 || reports[0].Valid || reports[0].MediaSeconds != 5 {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestValidateCommandMediaInspectFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	sub := testsupport.WriteFile(t, filepath.Join(env.baseDir, "ok.srt"), validSRT)

	_, _, err := env.run(t, "validate", "--media", env.media(t, "x.mp4"), sub)
	if !errors.Is(err, services.ErrMediaExtraction) {
		t.Fatalf("expected media extraction error, got %v", err)
	}
}
