package dialogue

import (
	"fmt"
	"strings"
)

// Character identifies one of the two speaking roles. Display names and
// voices are configured separately.
type Character string

const (
	CharacterA Character = "A"
	CharacterB Character = "B"
)

// ParseCharacter accepts "A"/"B" in any case.
func ParseCharacter(value string) (Character, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "A":
		return CharacterA, nil
	case "B":
		return CharacterB, nil
	default:
		return "", fmt.Errorf("unknown character %q", value)
	}
}

// Turn is one exchange: a line for A followed by a line for B.
type Turn struct {
	SpeakerA  string     `json:"speakerA"`
	SpeakerB  string     `json:"speakerB"`
	MediaCues []MediaCue `json:"mediaCues,omitempty"`
}

// MediaCue asks for a user-supplied image or clip to appear during its turn.
//
// Duration applies to images only. StartOffset, when set, is seconds from the
// start of the turn and takes precedence over TriggerWord.
type MediaCue struct {
	Filename    string   `json:"filename"`
	TriggerWord string   `json:"triggerWord,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	StartOffset *float64 `json:"startTime,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Task is a single line of speech to synthesize.
type Task struct {
	Index     int       `json:"index"`
	Turn      int       `json:"turn"`
	Text      string    `json:"text"`
	Character Character `json:"character"`
}

// Blank reports whether the task has nothing to say.
func (t Task) Blank() bool {
	return strings.TrimSpace(t.Text) == ""
}

// Flatten expands turns into speech tasks, A then B per turn, in turn order.
// It always returns exactly 2*len(turns) tasks; blank lines are kept so task
// indices stay aligned with turns.
func Flatten(turns []Turn) []Task {
	tasks := make([]Task, 0, len(turns)*2)
	for i, turn := range turns {
		tasks = append(tasks,
			Task{Index: 2 * i, Turn: i, Text: strings.TrimSpace(turn.SpeakerA), Character: CharacterA},
			Task{Index: 2*i + 1, Turn: i, Text: strings.TrimSpace(turn.SpeakerB), Character: CharacterB},
		)
	}
	return tasks
}
