package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"captioner/internal/fileutil"
)

// Command names for external tools.
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// Target audio format for speech recognition.
const (
	SampleRate = 16000
	Channels   = 1
	Codec      = "pcm_s16le"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

var (
	// ErrNoAudioStream is returned when the source contains nothing to extract.
	ErrNoAudioStream = errors.New("no audio stream")
	// ErrSourceIsDest is returned when the audio artifact path is the source
	// media itself, as with a .wav input whose output directory is its own.
	ErrSourceIsDest = errors.New("source media is the audio output path")
)

// Extractor converts source media into WAV audio using ffmpeg.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	run     CommandRunner
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCommandRunner replaces os/exec, mainly for tests.
func WithCommandRunner(run CommandRunner) Option {
	return func(e *Extractor) {
		if run != nil {
			e.run = run
		}
	}
}

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(e *Extractor) {
		if ffmpeg = strings.TrimSpace(ffmpeg); ffmpeg != "" {
			e.ffmpeg = ffmpeg
		}
		if ffprobe = strings.TrimSpace(ffprobe); ffprobe != "" {
			e.ffprobe = ffprobe
		}
	}
}

// NewExtractor builds an Extractor using ffmpeg and ffprobe from PATH unless
// overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{ffmpeg: FFmpegCommand, ffprobe: FFprobeCommand, run: ExecRunner}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractAudio writes the primary audio stream of source to dest and returns
// dest. ffmpeg writes to a temporary file beside dest that is renamed into
// place only on success, so a failed extraction leaves any existing dest
// untouched. A source that is dest itself is rejected with ErrSourceIsDest.
func (e *Extractor) ExtractAudio(ctx context.Context, source, dest string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", errors.New("extract audio: source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return "", errors.New("extract audio: destination path required")
	}
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	if fileutil.SamePath(source, dest) {
		return "", fmt.Errorf("extract audio: %s: %w", dest, ErrSourceIsDest)
	}
	info, err := Inspect(ctx, e.run, e.ffprobe, source)
	if err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	index := info.PrimaryAudioIndex()
	if index < 0 {
		return "", fmt.Errorf("extract audio: %s: %w", filepath.Base(source), ErrNoAudioStream)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("extract audio: ensure output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("extract audio: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := e.run(ctx, e.ffmpeg, extractArgs(source, index, tmpPath)...); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("extract audio: move into place: %w", err)
	}
	committed = true
	return dest, nil
}

func extractArgs(source string, audioIndex int, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", fmt.Sprintf("%d", Channels),
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-c:a", Codec,
		"-f", "wav",
		dest,
	}
}
