// Package logging assembles structured slog loggers and formatting helpers used
// across reelforge.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with request IDs and stage names automatically. WarnWithContext makes every
// degradation (alignment fallback, dropped media cue, oversized upload) carry
// an event_type, a hint, and an impact. NewNop serves tests and wiring code
// that cannot fail.
package logging
