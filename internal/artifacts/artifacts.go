// Package artifacts derives and manages the output files of a pipeline run.
//
// Names are a pure function of the output directory, the transcript suffix
// and the asset base name. Two runs with the same base name and directory
// resolve to the same paths and the later run overwrites the earlier one.
package artifacts

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTranscriptSuffix is appended to the base name for the transcript.
const DefaultTranscriptSuffix = "_transcricao.txt"

// Fixed artifact extensions.
const (
	AudioExt    = ".wav"
	SubtitleExt = ".srt"
)

// Names holds the three artifact paths for one asset.
type Names struct {
	Transcript string `json:"transcript"`
	Audio      string `json:"audio"`
	Subtitle   string `json:"subtitle"`
}

// Paths lists the artifact paths in pipeline order: audio, transcript, subtitle.
func (n Names) Paths() []string {
	return []string{n.Audio, n.Transcript, n.Subtitle}
}

// Remove deletes every artifact that exists. Missing files are ignored.
func (n Names) Remove() error {
	var errs []error
	for _, path := range n.Paths() {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Namer maps base names to artifact paths.
type Namer struct {
	// OutputDir is where artifacts are placed. Empty means the working directory.
	OutputDir string
	// TranscriptSuffix replaces DefaultTranscriptSuffix when set.
	TranscriptSuffix string
}

// Derive returns the artifact paths for base. It performs no I/O.
func (n Namer) Derive(base string) Names {
	suffix := n.TranscriptSuffix
	if suffix == "" {
		suffix = DefaultTranscriptSuffix
	}
	dir := n.OutputDir
	if dir == "" {
		dir = "."
	}
	return Names{
		Transcript: filepath.Join(dir, base+suffix),
		Audio:      filepath.Join(dir, base+AudioExt),
		Subtitle:   filepath.Join(dir, base+SubtitleExt),
	}
}

// BaseName returns the file name of path without directory or final extension.
func BaseName(path string) string {
	name := filepath.Base(strings.TrimSpace(path))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// uploadNameReplacer maps characters that are unsafe in file names.
var uploadNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeUploadName turns a caller-supplied name for streamed media into a
// single safe path element. Separators and colons become dashes, other
// unsafe characters are dropped. It returns "" when nothing usable remains.
func SanitizeUploadName(name string) string {
	name = strings.TrimSpace(uploadNameReplacer.Replace(strings.TrimSpace(name)))
	if name == "" || strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}
