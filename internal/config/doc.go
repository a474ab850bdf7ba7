// Package config loads, normalizes, and validates captioner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and HF_TOKEN. Language hints are canonicalized as BCP 47
// tags so every transcription backend receives the same form.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, a known model tier, and clear validation errors.
package config
