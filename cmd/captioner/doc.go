// Package main hosts the captioner CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the logger,
// extractor and transcription backend, and hands each media asset to the
// pipeline orchestrator. Everything a run needs around the core (staging
// stdin uploads, per-name locking, timeouts, run history) lives here so the
// pipeline package stays free of process concerns.
package main
