// Package preflight provides readiness checks for the external tools and
// filesystem paths captioner depends on.
//
// The "captioner check" command prints every result. The transcribe command
// runs RunAll before starting and refuses to process media when a required
// check fails, so a missing ffmpeg is reported up front rather than as an
// extraction failure per asset.
package preflight
