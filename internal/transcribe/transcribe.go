package transcribe

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"captioner/internal/config"
	"captioner/internal/pipeline"
	"captioner/internal/services"
	"captioner/internal/srt"
)

// New builds the backend selected by cfg.Transcription.Backend.
func New(cfg *config.Config, logger *slog.Logger) (pipeline.Transcriber, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration required", services.ErrConfiguration)
	}
	t := cfg.Transcription
	switch t.Backend {
	case config.BackendWhisperX:
		w := NewWhisperX(WhisperXConfig{
			Model:       WhisperXModel(t.ModelTier),
			Language:    config.BaseLanguage(t.Language),
			CUDAEnabled: t.CUDAEnabled,
			VADMethod:   t.VADMethod,
			HFToken:     t.HFToken,
			UVXBinary:   cfg.UVXBinary(),
			WorkDir:     cfg.Paths.WorkDir,
		})
		w.SetLogger(logger)
		return w, nil
	case config.BackendOpenAI:
		o := NewOpenAI(OpenAIConfig{
			BaseURL:  t.OpenAIBaseURL,
			APIKey:   t.OpenAIAPIKey,
			Model:    t.OpenAIModel,
			Language: config.BaseLanguage(t.Language),
		})
		o.SetLogger(logger)
		return o, nil
	default:
		return nil, fmt.Errorf("%w: unknown transcription backend %q", services.ErrConfiguration, t.Backend)
	}
}

// materialize returns a file path for audio. In-memory audio is written to a
// temporary file under dir; the returned cleanup removes it.
func materialize(audio pipeline.Audio, dir string) (string, func(), error) {
	if path := strings.TrimSpace(audio.Path); path != "" {
		return path, func() {}, nil
	}
	if len(audio.Data) == 0 {
		return "", nil, fmt.Errorf("%w: audio has neither a path nor data", services.ErrInvalidInput)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("ensure work dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, "audio-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("stage audio: %w", err)
	}
	_, writeErr := tmp.Write(audio.Data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("stage audio: %w", err)
	}
	path := tmp.Name()
	return path, func() { _ = os.Remove(path) }, nil
}

// segmentsFrom converts backend segments, dropping leading and trailing
// whitespace that recognizers tend to emit.
func segmentsFrom[T any](items []T, conv func(T) srt.Segment) []srt.Segment {
	segments := make([]srt.Segment, 0, len(items))
	for _, item := range items {
		seg := conv(item)
		seg.Text = strings.TrimSpace(seg.Text)
		segments = append(segments, seg)
	}
	return segments
}
