package whisperx

// buildNormalizeArgs converts a synthesized clip into the mono 16kHz WAV that
// WhisperX expects. The TTS backend may return MP3, OGG, or WAV at any rate.
func buildNormalizeArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", SampleRate,
		"-c:a", "pcm_s16le",
		dest,
	}
}
