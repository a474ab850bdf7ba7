package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MediaInfo is the subset of ffprobe output captioner relies on.
type MediaInfo struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	SampleRate  string            `json:"sample_rate"`
	Channels    int               `json:"channels"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes its JSON report.
func Inspect(ctx context.Context, run CommandRunner, binary, path string) (MediaInfo, error) {
	if run == nil {
		run = ExecRunner
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = FFprobeCommand
	}
	if strings.TrimSpace(path) == "" {
		return MediaInfo{}, errors.New("ffprobe: empty path")
	}
	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	var result MediaInfo
	if err := json.Unmarshal(output, &result); err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in container order.
func (r MediaInfo) AudioStreams() []Stream {
	var audio []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			audio = append(audio, stream)
		}
	}
	return audio
}

// PrimaryAudioIndex returns the container index of the stream to transcribe:
// the first audio stream flagged as default, otherwise the first audio
// stream. It returns -1 when the container has no audio.
func (r MediaInfo) PrimaryAudioIndex() int {
	audio := r.AudioStreams()
	if len(audio) == 0 {
		return -1
	}
	for _, stream := range audio {
		if stream.Disposition["default"] == 1 {
			return stream.Index
		}
	}
	return audio[0].Index
}

// DurationSeconds returns the container duration, or 0 when ffprobe did not
// report a usable value.
func (r MediaInfo) DurationSeconds() float64 {
	value := strings.TrimSpace(r.Format.Duration)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
