// Package pipeline turns one media asset into a transcript and a subtitle file.
//
// The Orchestrator runs four steps strictly in order: extract audio,
// transcribe, write the transcript, write the subtitles. It owns no model and
// no process state: the Extractor and Transcriber are injected, so a single
// Orchestrator can serve concurrent Run calls for different assets. Runs that
// share a base name write to the same paths; callers that need exclusivity
// must lock around Run (see internal/runlock).
//
// Every failure is returned as a *StepError naming the step that failed, with
// a services marker (ErrMediaExtraction, ErrTranscription, ErrArtifactWrite)
// in its chain. Nothing is retried.
package pipeline
