// Package subtitles serializes the word timeline into an ASS script with
// one style per character.
package subtitles

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"reelforge/internal/dialogue"
	"reelforge/internal/timeline"
)

// Style names referenced by Dialogue events.
const (
	StyleCharacterA = "CharacterA"
	StyleCharacterB = "CharacterB"
)

// Options controls the script header.
type Options struct {
	Width    int
	Height   int
	FontName string
	FontSize int
	// MarginV lifts the words off the bottom edge so they clear the
	// character art.
	MarginV int
}

// DefaultOptions matches a 1080x1920 vertical render.
func DefaultOptions() Options {
	return Options{Width: 1080, Height: 1920, FontName: "Arial Black", FontSize: 140, MarginV: 300}
}

type event struct {
	start, end float64
	style      string
	text       string
}

// SerializeASS renders one Dialogue event per word. Events are ordered by
// start time and trimmed so no two overlap; words that vanish after
// trimming or centisecond rounding are dropped.
func SerializeASS(words []timeline.Word, opts Options) string {
	opts = withDefaults(opts)

	events := make([]event, 0, len(words))
	for _, w := range words {
		text := Escape(w.Text)
		if text == "" {
			continue
		}
		events = append(events, event{start: w.Start, end: w.End, style: styleFor(w.Character), text: text})
	}
	slices.SortStableFunc(events, func(a, b event) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		default:
			return 0
		}
	})

	var b strings.Builder
	writeHeader(&b, opts)
	for i, ev := range events {
		if i+1 < len(events) && ev.end > events[i+1].start {
			ev.end = events[i+1].start
		}
		start, end := centiseconds(ev.start), centiseconds(ev.end)
		if end <= start {
			continue
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n", FormatTime(start), FormatTime(end), ev.style, ev.text)
	}
	return b.String()
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if strings.TrimSpace(opts.FontName) == "" {
		opts.FontName = def.FontName
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.MarginV < 0 {
		opts.MarginV = def.MarginV
	}
	return opts
}

func styleFor(character dialogue.Character) string {
	if character == dialogue.CharacterB {
		return StyleCharacterB
	}
	return StyleCharacterA
}

func writeHeader(b *strings.Builder, opts Options) {
	b.WriteString("[Script Info]\n")
	b.WriteString("Title: reelforge\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("YCbCr Matrix: None\n")
	fmt.Fprintf(b, "PlayResX: %d\n", opts.Width)
	fmt.Fprintf(b, "PlayResY: %d\n", opts.Height)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	// Colours are &HAABBGGRR: A is white, B is yellow.
	fmt.Fprintf(b, "Style: %s,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,8,3,2,10,10,%d,1\n",
		StyleCharacterA, opts.FontName, opts.FontSize, opts.MarginV)
	fmt.Fprintf(b, "Style: %s,%s,%d,&H0000FFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,8,3,2,10,10,%d,1\n",
		StyleCharacterB, opts.FontName, opts.FontSize, opts.MarginV)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
}

// centiseconds truncates seconds to whole centiseconds.
func centiseconds(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	// The small bias keeps values like 1.15 (1.1499999...) from losing a
	// centisecond to float representation.
	return int64(math.Floor(seconds*100 + 1e-6))
}

// FormatTime renders centiseconds as h:mm:ss.cc.
func FormatTime(cs int64) string {
	if cs < 0 {
		cs = 0
	}
	hours := cs / 360000
	cs -= hours * 360000
	minutes := cs / 6000
	cs -= minutes * 6000
	secs := cs / 100
	cs -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, cs)
}

// Escape neutralizes ASS override syntax in a word: braces open override
// blocks and a backslash starts a tag or hard break.
func Escape(text string) string {
	replacer := strings.NewReplacer(
		"{", "(",
		"}", ")",
		`\`, "＼",
		"\r\n", " ",
		"\n", " ",
		"\r", " ",
	)
	return strings.TrimSpace(replacer.Replace(text))
}
