// Package transcribe provides the speech-to-text backends behind
// pipeline.Transcriber.
//
// WhisperX runs the whisperx CLI through uvx and reads back its JSON segment
// output. OpenAI posts audio to an OpenAI-compatible /audio/transcriptions
// endpoint and decodes the verbose_json response. New picks one from the
// transcription config section.
package transcribe
