// Package timing estimates per-word timings when no aligner result is
// available.
package timing

import "strings"

// WordTiming is a word positioned relative to the start of its own clip.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Estimate spreads duration evenly over the whitespace-separated words of
// text. Words are contiguous and the last one ends exactly at duration. Empty
// text or a non-positive duration yields no words.
func Estimate(text string, duration float64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 || duration <= 0 {
		return []WordTiming{}
	}
	step := duration / float64(len(words))
	out := make([]WordTiming, len(words))
	for i, word := range words {
		out[i] = WordTiming{
			Word:  word,
			Start: float64(i) * step,
			End:   float64(i+1) * step,
		}
	}
	out[len(out)-1].End = duration
	return out
}
