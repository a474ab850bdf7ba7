package srt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Cue is one parsed subtitle block.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Parse reads an SRT document. It tolerates a UTF-8 byte order mark, CRLF line
// endings, extra blank lines between cues and cue settings after the end
// timestamp. Indices are returned as written; use Validate to check numbering.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues   []Cue
		cur    *Cue
		text   []string
		lineNo int
		// 0: expecting index, 1: expecting timing, 2: reading text
		state int
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(text, "\n")
			cues = append(cues, *cur)
		}
		cur = nil
		text = text[:0]
		state = 0
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		switch state {
		case 0:
			if strings.TrimSpace(line) == "" {
				continue
			}
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("line %d: expected cue index, got %q", lineNo, line)
			}
			cur = &Cue{Index: index}
			state = 1
		case 1:
			start, end, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Start, cur.End = start, end
			state = 2
		case 2:
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			text = append(text, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if state == 1 {
		return nil, fmt.Errorf("line %d: cue %d has no timing line", lineNo, cur.Index)
	}
	flush()
	return cues, nil
}

// ParseFile reads and parses the SRT file at path.
func ParseFile(path string) ([]Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

func parseTiming(line string) (float64, float64, error) {
	startText, rest, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("expected timing line, got %q", line)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp in %q", line)
	}
	start, err := ParseTimestamp(startText)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
