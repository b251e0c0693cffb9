package speech

import (
	"fmt"

	"reelforge/internal/dialogue"
	"reelforge/internal/services"
)

// SynthesisError reports a line that could not be synthesized after every
// attempt was spent. It matches services.ErrSynthesis, and additionally
// services.ErrSynthesisTimeout when the final attempt timed out. Timeouts
// counts every attempt that hit the per-attempt deadline.
type SynthesisError struct {
	Character dialogue.Character
	Attempts  int
	TimedOut  bool
	Timeouts  int
	Err       error
}

func (e *SynthesisError) Error() string {
	reason := "failed"
	if e.TimedOut {
		reason = "timed out"
	}
	if e.Timeouts > 0 && !(e.TimedOut && e.Timeouts == e.Attempts) {
		return fmt.Sprintf("synthesize character %s: %s after %d attempts (%d timed out): %v", e.Character, reason, e.Attempts, e.Timeouts, e.Err)
	}
	return fmt.Sprintf("synthesize character %s: %s after %d attempts: %v", e.Character, reason, e.Attempts, e.Err)
}

func (e *SynthesisError) Unwrap() []error {
	errs := []error{services.ErrSynthesis}
	if e.TimedOut {
		errs = append(errs, services.ErrSynthesisTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
