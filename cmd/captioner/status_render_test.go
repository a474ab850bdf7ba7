package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestStatusPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	printer := newStatusPrinter(&buf)
	printer.section("Preflight")
	printer.result("lecture", statusError, "transcription failed")
	printer.detail("audio", "/out/lecture.wav")
	printer.item("overlapping_cues")

	want := strings.Join([]string{
		"== Preflight ==",
		"---------------",
		fmt.Sprintf("  %-*s [ERROR] transcription failed", nameWidth, "lecture:"),
		fmt.Sprintf("    %-*s /out/lecture.wav", nameWidth-2, "audio"),
		"    - overlapping_cues",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("printer output mismatch\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestStatusPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	printer := &statusPrinter{out: &buf, color: true}
	printer.result("lecture", statusOK, "done")
	got := strings.TrimSuffix(buf.String(), "\n")
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestStatusKindString(t *testing.T) {
	tests := map[statusKind]string{
		statusInfo:     "INFO",
		statusOK:       "OK",
		statusWarn:     "WARN",
		statusError:    "ERROR",
		statusKind(42): "INFO",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Fatalf("statusKind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}

func TestPassKind(t *testing.T) {
	tests := []struct {
		passed, optional bool
		want             statusKind
	}{
		{passed: true, want: statusOK},
		{passed: true, optional: true, want: statusOK},
		{optional: true, want: statusWarn},
		{want: statusError},
	}
	for _, tt := range tests {
		if got := passKind(tt.passed, tt.optional); got != tt.want {
			t.Fatalf("passKind(%v, %v) = %v, want %v", tt.passed, tt.optional, got, tt.want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Asset", "Status"}, [][]string{{"lecture"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "lecture") || !strings.Contains(out, "Status") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table for no headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
