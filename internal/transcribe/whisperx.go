package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/srt"
)

// WhisperX invocation constants.
const (
	UVXCommand        = "uvx"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// WhisperXModel maps a model tier to the WhisperX model name.
func WhisperXModel(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "tiny":
		return "tiny"
	case "small":
		return "small"
	case "medium":
		return "medium"
	case "large":
		return "large-v3"
	default:
		return "base"
	}
}

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	Model       string
	Language    string
	CUDAEnabled bool
	VADMethod   string
	HFToken     string
	UVXBinary   string
	// WorkDir holds per-call output directories and staged in-memory audio.
	WorkDir string
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// WhisperX transcribes audio by shelling out to whisperx through uvx.
type WhisperX struct {
	cfg    WhisperXConfig
	run    CommandRunner
	logger *slog.Logger
}

// NewWhisperX creates a WhisperX backend.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	if cfg.Model == "" {
		cfg.Model = WhisperXModel("")
	}
	if cfg.UVXBinary == "" {
		cfg.UVXBinary = UVXCommand
	}
	if cfg.VADMethod == "" {
		cfg.VADMethod = VADMethodSilero
	}
	return &WhisperX{cfg: cfg, run: execRunner, logger: logging.NewNop()}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(run CommandRunner) {
	if run != nil {
		w.run = run
	}
}

// SetLogger replaces the backend logger.
func (w *WhisperX) SetLogger(logger *slog.Logger) {
	w.logger = logging.NewComponentLogger(logger, "whisperx")
}

// Model returns the WhisperX model name in use.
func (w *WhisperX) Model() string { return w.cfg.Model }

// Transcribe runs whisperx on the audio and loads the segments it wrote.
func (w *WhisperX) Transcribe(ctx context.Context, audio pipeline.Audio) (pipeline.Result, error) {
	source, cleanup, err := materialize(audio, w.cfg.WorkDir)
	if err != nil {
		return pipeline.Result{}, err
	}
	defer cleanup()

	if w.cfg.WorkDir != "" {
		if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
			return pipeline.Result{}, fmt.Errorf("whisperx: ensure work dir: %w", err)
		}
	}
	outputDir, err := os.MkdirTemp(w.cfg.WorkDir, "whisperx-*")
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("whisperx: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := w.buildArgs(source, outputDir)
	w.logger.DebugContext(ctx, "running whisperx",
		logging.String("model", w.cfg.Model),
		logging.Bool("cuda", w.cfg.CUDAEnabled),
		logging.String("language", w.cfg.Language),
	)
	if err := w.run(ctx, w.cfg.UVXBinary, args...); err != nil {
		return pipeline.Result{}, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	payload, err := loadPayload(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("whisperx: %w", err)
	}
	result := pipeline.Result{
		Segments: segmentsFrom(payload.Segments, func(s whisperXSegment) srt.Segment {
			return srt.Segment{Start: s.Start, End: s.End, Text: s.Text}
		}),
		Language: payload.Language,
	}
	result.Text = result.TranscriptText()
	return result, nil
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
		"--vad_method", w.cfg.VADMethod,
	)
	if w.cfg.VADMethod == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

func loadPayload(path string) (whisperXPayload, error) {
	var payload whisperXPayload
	data, err := os.ReadFile(path)
	if err != nil {
		return payload, fmt.Errorf("read output: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 made torch.load default to weights_only, which breaks the
	// WhisperX and pyannote checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
