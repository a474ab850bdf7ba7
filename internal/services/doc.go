// Package services defines shared utilities consumed by the pipeline, the
// transcription backends and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names and asset base names for
//     logging and history records.
//   - Structured error markers plus the Wrap helper so every failure carries the
//     pipeline condition it represents (media extraction, transcription,
//     artifact write, invalid input) alongside its underlying cause.
//
// Use these helpers when wiring new pipeline logic so error classification and
// observability stay uniform.
package services
