// Package srt formats, writes, parses and validates SubRip subtitle files.
//
// Serialization is strict: indices start at 1 and are contiguous, the timing
// arrow is exactly " --> ", and each cue is followed by one blank line. A
// malformed segment aborts the whole serialization so callers never persist a
// partially written subtitle file.
package srt
