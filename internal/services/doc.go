// Package services defines shared utilities consumed by the render pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper, and ErrorClass which maps
//     any failure onto the small set of classes reported to callers
//     (synthesis_error, synthesis_timeout, missing_asset, render_error,
//     validation_error, internal_error).
//   - The retry vocabulary shared by the backend clients: RetryState, a pure
//     Backoff function, and Sleep with an injectable sleeper.
//
// Subpackages hold the backend clients: speech synthesis, word alignment,
// local WhisperX runs, and the dialogue LLM.
package services
