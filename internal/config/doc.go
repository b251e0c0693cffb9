// Package config loads, normalizes, and validates reelforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TTS_API_KEY and OPENROUTER_API_KEY. The Config type centralizes every knob
// the CLI and HTTP server need: asset locations, backend endpoints, timeline
// pacing, and ffmpeg output settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
