package artifacts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveIsDeterministic(t *testing.T) {
	namer := Namer{OutputDir: "/data/out"}
	first := namer.Derive("movie")
	second := namer.Derive("movie")
	if first != second {
		t.Fatalf("Derive not idempotent: %+v vs %+v", first, second)
	}
	want := Names{
		Transcript: "/data/out/movie_transcricao.txt",
		Audio:      "/data/out/movie.wav",
		Subtitle:   "/data/out/movie.srt",
	}
	if first != want {
		t.Fatalf("Derive = %+v, want %+v", first, want)
	}
}

func TestDeriveCustomSuffixAndDefaultDir(t *testing.T) {
	names := Namer{TranscriptSuffix: ".txt"}.Derive("talk")
	if names.Transcript != "talk.txt" || names.Audio != "talk.wav" || names.Subtitle != "talk.srt" {
		t.Fatalf("unexpected names %+v", names)
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"/videos/lecture.mp4":     "lecture",
		"clip.tar.gz":             "clip.tar",
		"noext":                   "noext",
		"/videos/aula 01.MKV":     "aula 01",
		"":                        "",
		"/":                       "",
		"relative/dir/file.webm ": "file",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemoveIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	names := Namer{OutputDir: dir}.Derive("movie")
	if err := os.WriteFile(names.Audio, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := names.Remove(); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "movie.wav")); !os.IsNotExist(err) {
		t.Fatalf("audio not removed: %v", err)
	}
}

func TestSanitizeUploadName(t *testing.T) {
	tests := map[string]string{
		"talk.mp3":          "talk.mp3",
		"  spaced name.m4a ": "spaced name.m4a",
		`a\b:c*d.wav`:       "a-b-c-d.wav",
		`what?"<>|.mp4`:     "what.mp4",
		"..":                "",
		"":                  "",
		"  ":                "",
	}
	for in, want := range tests {
		if got := SanitizeUploadName(in); got != want {
			t.Fatalf("SanitizeUploadName(%q) = %q, want %q", in, got, want)
		}
	}
}
