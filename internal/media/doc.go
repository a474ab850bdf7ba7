// Package media extracts transcription-ready audio from source media.
//
// Inspect wraps ffprobe JSON output and picks the audio stream to transcribe.
// Extractor drives ffmpeg to write that stream as 16-bit PCM, mono, 16 kHz
// WAV. Both accept a CommandRunner so tests can substitute the external tools.
package media
