package timeline

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/metrics"
)

// resolveCues turns each turn's media cues into overlays. Cues naming an
// asset that was not supplied are dropped with a warning.
func (a *Assembler) resolveCues(ctx context.Context, tl *Timeline, turns []dialogue.Turn, turnStarts []float64, library *assets.Library) {
	logger := logging.WithContext(ctx, a.logger)
	fold := cases.Fold()
	for turnIdx, turn := range turns {
		for _, cue := range turn.MediaCues {
			asset, ok := library.Lookup(cue.Filename)
			if !ok {
				metrics.UnresolvedCuesTotal.Inc()
				logging.WarnWithContext(logger, "media cue dropped", "media_cue_unresolved",
					logging.String("filename", cue.Filename),
					logging.Int("turn", turnIdx),
					logging.String(logging.FieldErrorHint, "upload the file or remove the cue"),
					logging.String(logging.FieldImpact, "overlay is not shown"),
				)
				continue
			}

			turnStart := turnStarts[turnIdx]
			offset := 0.0
			switch {
			case cue.StartOffset != nil:
				offset = *cue.StartOffset
			case strings.TrimSpace(cue.TriggerWord) != "":
				if at, found := findTrigger(fold, tl.Words, tl.Segments, turnIdx, cue.TriggerWord); found {
					offset = at - turnStart
				} else {
					logger.Info("trigger word not spoken, showing media at turn start",
						logging.String("filename", cue.Filename),
						logging.String("trigger_word", cue.TriggerWord),
						logging.Int("turn", turnIdx),
					)
				}
			}

			overlay := Overlay{
				Asset:       asset,
				Turn:        turnIdx,
				Start:       turnStart + offset,
				Description: cue.Description,
			}
			switch asset.Kind {
			case assets.KindImage:
				duration := a.opts.ImageDefaultDuration
				if cue.Duration != nil && *cue.Duration > 0 {
					duration = *cue.Duration
				} else {
					logging.WarnWithContext(logger, "image cue has no duration, using default", "media_cue_default_duration",
						logging.String("filename", cue.Filename),
						logging.Float64("duration", duration),
						logging.String(logging.FieldErrorHint, "set duration on image cues"),
						logging.String(logging.FieldImpact, "image shows for the default duration"),
					)
				}
				overlay.Duration = &duration
			case assets.KindVideo:
				if cue.Duration != nil {
					logging.WarnWithContext(logger, "video cue duration ignored", "media_cue_duration_ignored",
						logging.String("filename", cue.Filename),
						logging.String(logging.FieldErrorHint, "omit duration on video cues"),
						logging.String(logging.FieldImpact, "video plays its full length"),
					)
				}
			}
			tl.Overlays = append(tl.Overlays, overlay)
		}
	}
}

// findTrigger returns the global start of the first spoken occurrence of
// trigger within the given turn. Multi-word triggers match a consecutive run
// of words. Matching is case-folded and ignores surrounding punctuation.
func findTrigger(fold cases.Caser, words []Word, segments []Segment, turn int, trigger string) (float64, bool) {
	wanted := normalizedTokens(fold, trigger)
	if len(wanted) == 0 {
		return 0, false
	}
	turnWords := wordsInTurn(words, segments, turn)
	spoken := make([]string, len(turnWords))
	for i, w := range turnWords {
		spoken[i] = normalizeToken(fold, w.Text)
	}
	for i := 0; i+len(wanted) <= len(spoken); i++ {
		match := true
		for j, token := range wanted {
			if spoken[i+j] != token {
				match = false
				break
			}
		}
		if match {
			return turnWords[i].Start, true
		}
	}
	return 0, false
}

func wordsInTurn(words []Word, segments []Segment, turn int) []Word {
	var out []Word
	for _, seg := range segments {
		if seg.Task.Turn != turn {
			continue
		}
		for _, w := range words {
			if w.Character == seg.Task.Character && w.Start >= seg.Start-boundaryEpsilon && w.End <= seg.End()+boundaryEpsilon {
				out = append(out, w)
			}
		}
	}
	return out
}

func normalizedTokens(fold cases.Caser, text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if token := normalizeToken(fold, f); token != "" {
			out = append(out, token)
		}
	}
	return out
}

func normalizeToken(fold cases.Caser, word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
	return fold.String(trimmed)
}
