package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if !slices.Contains(ModelTiers(), t.ModelTier) {
		return fmt.Errorf("transcription.model_tier must be one of %s (got %q)", strings.Join(ModelTiers(), ", "), t.ModelTier)
	}
	if t.TimeoutSeconds < 0 {
		return errors.New("transcription.timeout_seconds must be >= 0")
	}
	switch t.Backend {
	case BackendWhisperX:
		switch t.VADMethod {
		case "silero":
		case "pyannote":
			if t.HFToken == "" {
				return errors.New("transcription.hf_token must be set when transcription.vad_method is pyannote (or set HF_TOKEN)")
			}
		default:
			return fmt.Errorf("transcription.vad_method must be silero or pyannote (got %q)", t.VADMethod)
		}
	case BackendOpenAI:
		if t.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key must be set when transcription.backend is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.backend must be %s or %s (got %q)", BackendWhisperX, BackendOpenAI, t.Backend)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.ContainsAny(c.Output.TranscriptSuffix, `/\`) {
		return errors.New("output.transcript_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}
