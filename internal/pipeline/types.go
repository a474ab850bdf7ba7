package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captioner/internal/artifacts"
	"captioner/internal/srt"
)

// Asset identifies the source media of a run. Base is derived once at
// construction and names every artifact of the run.
type Asset struct {
	Source string
	Base   string
}

// NewAsset derives the base name from the source file name.
func NewAsset(source string) (Asset, error) {
	return NewNamedAsset(source, artifacts.BaseName(source))
}

// NewNamedAsset uses base instead of deriving it, for staged uploads whose
// temporary file name differs from the name the user supplied.
func NewNamedAsset(source, base string) (Asset, error) {
	source = strings.TrimSpace(source)
	base = strings.TrimSpace(base)
	if source == "" {
		return Asset{}, errors.New("asset source path required")
	}
	if base == "" || strings.ContainsAny(base, `/\`) {
		return Asset{}, fmt.Errorf("invalid asset base name %q", base)
	}
	return Asset{Source: source, Base: base}, nil
}

// Audio is the hand-off from extraction to transcription. Path is set for
// on-disk audio; Data carries in-memory audio when there is no file.
type Audio struct {
	Path string
	Data []byte
}

// Result is what a Transcriber produces.
type Result struct {
	Text     string        `json:"text"`
	Segments []srt.Segment `json:"segments"`
	Language string        `json:"language,omitempty"`
}

// TranscriptText returns Text, or the trimmed segment texts joined by single
// spaces when the backend left Text blank.
func (r Result) TranscriptText() string {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Transcriber converts audio to text with timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (Result, error)
}

// Extractor writes the audio track of source to dest and returns the path
// actually written.
type Extractor interface {
	ExtractAudio(ctx context.Context, source, dest string) (string, error)
}

// Step names a pipeline phase.
type Step string

const (
	StepExtracting        Step = "extracting"
	StepTranscribing      Step = "transcribing"
	StepWritingTranscript Step = "writing_transcript"
	StepWritingSubtitles  Step = "writing_subtitles"
	StepDone              Step = "done"
)

// StepError reports the step at which a run stopped.
type StepError struct {
	Step  Step
	Asset Asset
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Asset.Base, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step recorded in err, or "" when err carries none.
func FailedStep(err error) Step {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
