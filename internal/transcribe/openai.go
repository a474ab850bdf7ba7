package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/services"
	"captioner/internal/srt"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "whisper-1"
	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 2048
)

// OpenAIConfig configures the OpenAI-compatible HTTP backend.
type OpenAIConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
}

// OpenAI transcribes audio through an OpenAI-compatible transcription endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *slog.Logger
}

// NewOpenAI creates the HTTP backend. Requests carry no client-side timeout;
// the caller's context bounds them.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &OpenAI{cfg: cfg, client: &http.Client{}, logger: logging.NewNop()}
}

// WithHTTPClient swaps the HTTP client (for testing).
func (o *OpenAI) WithHTTPClient(client *http.Client) {
	if client != nil {
		o.client = client
	}
}

// SetLogger replaces the backend logger.
func (o *OpenAI) SetLogger(logger *slog.Logger) {
	o.logger = logging.NewComponentLogger(logger, "openai")
}

type openAISegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type openAIResponse struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
	Segments []openAISegment `json:"segments"`
}

// Transcribe uploads the audio and converts the verbose_json response.
func (o *OpenAI) Transcribe(ctx context.Context, audio pipeline.Audio) (pipeline.Result, error) {
	if o.cfg.APIKey == "" {
		return pipeline.Result{}, fmt.Errorf("%w: openai api key not configured", services.ErrConfiguration)
	}
	data, filename, err := audioBytes(audio)
	if err != nil {
		return pipeline.Result{}, err
	}
	body, contentType, err := o.buildForm(data, filename)
	if err != nil {
		return pipeline.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("openai: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return pipeline.Result{}, fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var payload openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return pipeline.Result{}, fmt.Errorf("openai: decode response: %w", err)
	}

	o.logger.DebugContext(ctx, "openai transcription received",
		logging.String("model", o.cfg.Model),
		logging.Int("segments", len(payload.Segments)),
		logging.Float64("audio_seconds", payload.Duration),
		logging.Duration("elapsed", time.Since(started)),
	)
	return pipeline.Result{
		Text: strings.TrimSpace(payload.Text),
		Segments: segmentsFrom(payload.Segments, func(s openAISegment) srt.Segment {
			return srt.Segment{Start: s.Start, End: s.End, Text: s.Text}
		}),
		Language: payload.Language,
	}, nil
}

func (o *OpenAI) buildForm(data []byte, filename string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", o.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if o.cfg.Language != "" {
		fields = append(fields, [2]string{"language", o.cfg.Language})
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("openai: write form: %w", err)
		}
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("openai: write form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("openai: write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("openai: write form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

func audioBytes(audio pipeline.Audio) ([]byte, string, error) {
	if len(audio.Data) > 0 {
		return audio.Data, "audio.wav", nil
	}
	path := strings.TrimSpace(audio.Path)
	if path == "" {
		return nil, "", fmt.Errorf("%w: audio has neither a path nor data", services.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("openai: read audio: %w", err)
	}
	return data, filepath.Base(path), nil
}
