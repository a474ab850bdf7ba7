package srt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"captioner/internal/services"
)

// Segment is a time-bounded span of transcribed speech. Offsets are seconds
// from the start of the media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Arrow separates the start and end timestamps of a cue.
const Arrow = " --> "

// Serialize renders segments as an SRT body. Segments are numbered from 1 in
// the order given. An empty slice yields an empty body. The input is not
// modified.
func Serialize(segments []Segment) (string, error) {
	var b strings.Builder
	for i, seg := range segments {
		if seg.End < seg.Start {
			return "", fmt.Errorf("%w: segment %d ends at %v before it starts at %v", services.ErrInvalidInput, i+1, seg.End, seg.Start)
		}
		start, err := FormatTimestamp(seg.Start)
		if err != nil {
			return "", fmt.Errorf("segment %d start: %w", i+1, err)
		}
		end, err := FormatTimestamp(seg.End)
		if err != nil {
			return "", fmt.Errorf("segment %d end: %w", i+1, err)
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(start)
		b.WriteString(Arrow)
		b.WriteString(end)
		b.WriteByte('\n')
		// Empty text still gets its (blank) text line, so the cue ends with a
		// blank line after the timing line. Parse reads it back as "".
		b.WriteString(CleanText(seg.Text))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// Write serializes segments and writes the body to w. Nothing is written when
// serialization fails.
func Write(w io.Writer, segments []Segment) error {
	body, err := Serialize(segments)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, body)
	return err
}

// CleanText prepares segment text for a cue: Unicode NFC form, surrounding
// whitespace trimmed, and blank interior lines dropped so the text can never
// be mistaken for a cue boundary.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
