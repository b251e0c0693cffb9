// Package speech synthesizes one line of dialogue into an audio clip.
//
// Client wraps a Backend with retries, a hard per-attempt timeout, and
// duration probing. The retry loop is a small state machine (attempting,
// succeeded, failed) whose delays come from the pure Backoff function, so
// tests drive it with an injected sleeper instead of real timers.
//
// Durations are always measured from the returned audio with ffprobe. When
// probing fails the clip gets FallbackDuration rather than failing the line.
//
// HTTPBackend talks to the TTS server: a multipart POST of text and voice to
// /tts/ that answers with audio bytes.
package speech
