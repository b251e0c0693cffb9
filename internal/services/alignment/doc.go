// Package alignment recovers per-word timings for a synthesized clip.
//
// Backends may fail or return nothing. Fallback wraps any Backend so that
// Align always yields usable timings: on an error or an empty result it logs
// an alignment_degraded warning and returns timing.Estimate instead.
package alignment
