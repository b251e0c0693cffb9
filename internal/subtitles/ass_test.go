package subtitles

import (
	"strings"
	"testing"

	"reelforge/internal/dialogue"
	"reelforge/internal/timeline"
)

func dialogueLines(script string) []string {
	var out []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(line, "Dialogue:") {
			out = append(out, line)
		}
	}
	return out
}

func TestSerializeASSHeaderAndStyles(t *testing.T) {
	script := SerializeASS(nil, Options{})
	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: CharacterA,Arial Black,140,",
		"Style: CharacterB,Arial Black,140,",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
	} {
		if !strings.Contains(script, want) {
			t.Fatalf("expected %q in header:\n%s", want, script)
		}
	}
	if len(dialogueLines(script)) != 0 {
		t.Fatal("expected no events for empty input")
	}
}

func TestSerializeASSEventsSortedAndTrimmed(t *testing.T) {
	words := []timeline.Word{
		{Text: "second", Start: 1.2, End: 1.9, Character: dialogue.CharacterB},
		{Text: "first", Start: 0.0, End: 1.5, Character: dialogue.CharacterA},
		{Text: "  ", Start: 2.0, End: 2.5, Character: dialogue.CharacterA},
		{Text: "tiny", Start: 3.001, End: 3.009, Character: dialogue.CharacterA},
	}
	lines := dialogueLines(SerializeASS(words, DefaultOptions()))
	want := []string{
		"Dialogue: 0,0:00:00.00,0:00:01.20,CharacterA,,0,0,0,,first",
		"Dialogue: 0,0:00:01.20,0:00:01.90,CharacterB,,0,0,0,,second",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("event %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{1.15, "0:00:01.15"},
		{61.999, "0:01:01.99"},
		{3725.5, "1:02:05.50"},
		{-3, "0:00:00.00"},
	}
	for _, tt := range tests {
		if got := FormatTime(centiseconds(tt.seconds)); got != tt.want {
			t.Fatalf("FormatTime(%v) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func TestEscape(t *testing.T) {
	tests := map[string]string{
		"{\\b1}bold":  "(＼b1)bold",
		"line\nbreak": "line break",
		"  plain  ":   "plain",
		`back\Nslash`: "back＼Nslash",
	}
	for in, want := range tests {
		if got := Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}
