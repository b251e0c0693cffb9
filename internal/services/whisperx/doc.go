// Package whisperx runs WhisperX locally through uvx to recover per-word
// timings for synthesized speech clips.
//
// It is the offline alternative to the HTTP alignment server: the clip is
// normalized to 16kHz mono WAV with ffmpeg, transcribed with word-level
// alignment, and the resulting JSON is flattened into timing.WordTiming
// values. Configuration options (model, CUDA, VAD method, language) are
// passed via Config.
package whisperx
