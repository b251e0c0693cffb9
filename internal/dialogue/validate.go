package dialogue

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"reelforge/internal/services"
)

// MaxTurns bounds a single request.
const MaxTurns = 64

// Validate checks that turns form a renderable dialogue.
func Validate(turns []Turn) error {
	if len(turns) == 0 {
		return services.Wrap(services.ErrValidation, "dialogue", "validate", "at least one turn is required", nil)
	}
	if len(turns) > MaxTurns {
		return services.Wrap(services.ErrValidation, "dialogue", "validate",
			fmt.Sprintf("%d turns exceeds the limit of %d", len(turns), MaxTurns), nil)
	}
	spoken := false
	for i, turn := range turns {
		if strings.TrimSpace(turn.SpeakerA) != "" || strings.TrimSpace(turn.SpeakerB) != "" {
			spoken = true
		}
		for j, cue := range turn.MediaCues {
			if err := validateCue(cue); err != nil {
				return services.Wrap(services.ErrValidation, "dialogue", "validate",
					fmt.Sprintf("turn %d cue %d: %s", i, j, err.Error()), nil)
			}
		}
	}
	if !spoken {
		return services.Wrap(services.ErrValidation, "dialogue", "validate", "every line is blank", nil)
	}
	return nil
}

func validateCue(cue MediaCue) error {
	if strings.TrimSpace(cue.Filename) == "" {
		return errors.New("filename is required")
	}
	if cue.Duration != nil && (*cue.Duration <= 0 || math.IsNaN(*cue.Duration) || math.IsInf(*cue.Duration, 0)) {
		return errors.New("duration must be a positive number of seconds")
	}
	if cue.StartOffset != nil && (*cue.StartOffset < 0 || math.IsNaN(*cue.StartOffset) || math.IsInf(*cue.StartOffset, 0)) {
		return errors.New("startTime must be a non-negative number of seconds")
	}
	return nil
}
