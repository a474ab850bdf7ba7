package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrMediaExtraction = errors.New("media extraction failed")
	ErrTranscription   = errors.New("transcription failed")
	ErrArtifactWrite   = errors.New("artifact write failed")
	ErrConfiguration   = errors.New("configuration error")
)

// Error kinds reported by Kind. They are stable identifiers suitable for
// structured logs and the run history.
const (
	KindInvalidInput    = "invalid_input"
	KindMediaExtraction = "media_extraction_failed"
	KindTranscription   = "transcription_failed"
	KindArtifactWrite   = "artifact_write_failed"
	KindConfiguration   = "configuration"
	KindUnknown         = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker so callers can classify the failure with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTranscription
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the stable kind string of the first marker it carries.
// Pipeline markers take precedence over ErrInvalidInput because a malformed
// segment surfaces as an artifact write failure.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMediaExtraction):
		return KindMediaExtraction
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrArtifactWrite):
		return KindArtifactWrite
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
