package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"captioner/internal/config"
	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
	"captioner/internal/srt"
	"captioner/internal/testsupport"
)

type fakeExtractor struct {
	err error
}

func (f fakeExtractor) ExtractAudio(_ context.Context, source, dest string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := os.Stat(source); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	return dest, os.WriteFile(dest, []byte("RIFF"), 0o644)
}

type fakeTranscriber struct {
	mu     sync.Mutex
	result pipeline.Result
	errFor map[string]error
	block  bool
	seen   []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio pipeline.Audio) (pipeline.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, audio.Path)
	err := f.errFor[filepath.Base(audio.Path)]
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return pipeline.Result{}, ctx.Err()
	}
	if err != nil {
		return pipeline.Result{}, err
	}
	return f.result, nil
}

func defaultResult() pipeline.Result {
	return pipeline.Result{
		Text: "Hello world",
		Segments: []srt.Segment{
			{Start: 0, End: 1.5, Text: "Hello"},
			{Start: 1.5, End: 3, Text: "world"},
		},
	}
}

type cliTestEnv struct {
	cfg           *config.Config
	configPath    string
	baseDir       string
	extractor     fakeExtractor
	transcriber   *fakeTranscriber
	preflight     []preflight.Result
	ffprobeOutput string
	stdin         io.Reader
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HF_TOKEN", "")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "captioner.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:         cfg,
		configPath:  configPath,
		baseDir:     base,
		transcriber: &fakeTranscriber{result: defaultResult()},
		preflight:   []preflight.Result{{Name: "Output directory", Passed: true, Detail: cfg.Output.Dir}},
	}
}

func (e *cliTestEnv) toolkit() toolkit {
	return toolkit{
		newExtractor: func(*config.Config) pipeline.Extractor { return e.extractor },
		newTranscriber: func(*config.Config, *slog.Logger) (pipeline.Transcriber, error) {
			return e.transcriber, nil
		},
		inspect: func(context.Context, string, ...string) ([]byte, error) {
			if e.ffprobeOutput == "" {
				return nil, errors.New("ffprobe output not configured")
			}
			return []byte(e.ffprobeOutput), nil
		},
		newLogger: func(*config.Config) (*slog.Logger, error) { return logging.NewNop(), nil },
		preflight: func(context.Context, *config.Config) []preflight.Result { return e.preflight },
	}
}

// media writes a placeholder media file under the env's base directory.
func (e *cliTestEnv) media(t *testing.T, name string) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(e.baseDir, "media", name), "not really video")
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.toolkit(), e.stdin, append([]string{"--config", e.configPath}, args...))
}

func runCLI(t *testing.T, rt toolkit, stdin io.Reader, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(rt)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[transcription]\nbackend = %q\nmodel_tier = %q\nopenai_api_key = %q\nopenai_base_url = %q\ntimeout_seconds = %d\n\n"+
			"[output]\ndir = %q\n\n"+
			"[paths]\nwork_dir = %q\nlog_dir = %q\nhistory_db = %q\n\n"+
			"[logging]\nlevel = \"error\"\n",
		cfg.Transcription.Backend,
		cfg.Transcription.ModelTier,
		cfg.Transcription.OpenAIAPIKey,
		cfg.Transcription.OpenAIBaseURL,
		cfg.Transcription.TimeoutSeconds,
		cfg.Output.Dir,
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
		cfg.Paths.HistoryDB,
	)
	testsupport.WriteFile(t, path, content)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
}
