package timeline

import (
	"reelforge/internal/dialogue"
	"reelforge/internal/media/assets"
)

// Segment is one synthesized line placed on the global clock.
type Segment struct {
	Task     dialogue.Task
	Audio    []byte
	Start    float64
	Duration float64
}

// End is the instant the segment's audio stops.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Word is a subtitle word on the global clock.
type Word struct {
	Text      string             `json:"text"`
	Start     float64            `json:"start"`
	End       float64            `json:"end"`
	Character dialogue.Character `json:"character"`
}

// Visibility is when a character's art is on screen.
type Visibility struct {
	Character dialogue.Character `json:"character"`
	Start     float64            `json:"start"`
	End       float64            `json:"end"`
}

// Overlay is a media asset shown from Start. Duration is nil for videos,
// which play their natural length.
type Overlay struct {
	Asset       *assets.Asset
	Turn        int
	Start       float64
	Duration    *float64
	Description string
}

// End returns the overlay end for images. ok is false for open-ended videos.
func (o Overlay) End() (end float64, ok bool) {
	if o.Duration == nil {
		return 0, false
	}
	return o.Start + *o.Duration, true
}

// Timeline is the assembled composition, ready for planning.
type Timeline struct {
	Segments      []Segment
	Words         []Word
	Visibility    []Visibility
	Overlays      []Overlay
	Gap           float64
	TotalDuration float64
}

// VisibilityFor filters intervals to one character, in time order.
func (t *Timeline) VisibilityFor(character dialogue.Character) []Visibility {
	out := make([]Visibility, 0, len(t.Visibility))
	for _, v := range t.Visibility {
		if v.Character == character {
			out = append(out, v)
		}
	}
	return out
}

// SpeechDuration is the summed length of all clips.
func (t *Timeline) SpeechDuration() float64 {
	total := 0.0
	for _, seg := range t.Segments {
		total += seg.Duration
	}
	return total
}
