package srt

import (
	"fmt"
	"math"
)

// Validation thresholds.
const (
	// overlapToleranceSeconds absorbs millisecond rounding between adjacent cues.
	overlapToleranceSeconds = 0.001
	// durationToleranceSeconds is how far the last cue may run past the media end.
	durationToleranceSeconds = 8.0
)

// Issue codes reported by Validate.
const (
	IssueEmpty            = "empty_subtitle_file"
	IssueIndexGap         = "index_not_contiguous"
	IssueInvertedRange    = "inverted_range"
	IssueOverlap          = "overlapping_cues"
	IssueDurationMismatch = "duration_mismatch"
)

// Validate checks parsed cues for the properties strict players rely on.
// mediaSeconds, when positive, enables the check that subtitles do not run
// past the end of the media. An empty result means validation passed.
func Validate(cues []Cue, mediaSeconds float64) []string {
	if len(cues) == 0 {
		return []string{IssueEmpty}
	}
	var issues []string
	var prevEnd, last float64
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("%s: cue %d has index %d", IssueIndexGap, i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("%s: cue %d ends before it starts", IssueInvertedRange, cue.Index))
		}
		if i > 0 && cue.Start+overlapToleranceSeconds < prevEnd {
			issues = append(issues, fmt.Sprintf("%s: cue %d starts before cue %d ends", IssueOverlap, cue.Index, cues[i-1].Index))
		}
		prevEnd = cue.End
		last = math.Max(last, cue.End)
	}
	if mediaSeconds > 0 && last > mediaSeconds+durationToleranceSeconds {
		issues = append(issues, fmt.Sprintf("%s: last cue ends at %.1fs, media is %.1fs", IssueDurationMismatch, last, mediaSeconds))
	}
	return issues
}

// ValidateFile parses path and validates its cues. Parse failures are reported
// as a single issue rather than an error so callers can present them uniformly.
func ValidateFile(path string, mediaSeconds float64) []string {
	cues, err := ParseFile(path)
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	return Validate(cues, mediaSeconds)
}
