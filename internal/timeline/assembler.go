package timeline

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/services/speech"
	"reelforge/internal/timing"
)

const (
	DefaultGap           = 0.2
	DefaultTailBuffer    = 1.0
	DefaultBatchSize     = 2
	DefaultCooldown      = 2 * time.Second
	DefaultImageDuration = 3.0
	boundaryEpsilon      = 1e-9
)

// Synthesizer produces a clip for one line.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, character dialogue.Character) (speech.Clip, error)
}

// Aligner returns clip-local word timings and never fails.
type Aligner interface {
	Align(ctx context.Context, audio []byte, text string, duration float64) []timing.WordTiming
}

// Options tunes assembly. Gap and TailBuffer are taken as given (zero is
// valid); BatchSize and ImageDefaultDuration fall back to defaults when unset.
type Options struct {
	Gap                  float64
	TailBuffer           float64
	BatchSize            int
	Cooldown             time.Duration
	ImageDefaultDuration float64
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Gap:                  DefaultGap,
		TailBuffer:           DefaultTailBuffer,
		BatchSize:            DefaultBatchSize,
		Cooldown:             DefaultCooldown,
		ImageDefaultDuration: DefaultImageDuration,
	}
}

// Assembler builds timelines from dialogue.
type Assembler struct {
	synth   Synthesizer
	align   Aligner
	opts    Options
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option customizes the assembler.
type Option func(*Assembler)

// WithSleeper overrides how the inter-batch cooldown is waited out.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(a *Assembler) {
		a.sleeper = sleeper
	}
}

// NewAssembler wires a synthesizer and aligner.
func NewAssembler(synth Synthesizer, align Aligner, opts Options, logger *slog.Logger, options ...Option) *Assembler {
	if opts.Gap < 0 {
		opts.Gap = 0
	}
	if opts.TailBuffer < 0 {
		opts.TailBuffer = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.ImageDefaultDuration <= 0 {
		opts.ImageDefaultDuration = DefaultImageDuration
	}
	a := &Assembler{
		synth:  synth,
		align:  align,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "timeline"),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Gap is the silence between adjacent segments. The audio concatenator must
// be given the same value.
func (a *Assembler) Gap() float64 {
	return a.opts.Gap
}

// Assemble synthesizes, places, and aligns every line of turns and resolves
// media cues against library. Synthesis failures abort assembly.
func (a *Assembler) Assemble(ctx context.Context, turns []dialogue.Turn, library *assets.Library) (*Timeline, error) {
	logger := logging.WithContext(ctx, a.logger)
	tasks := dialogue.Flatten(turns)

	clips, err := a.synthesizeAll(ctx, tasks, logger)
	if err != nil {
		return nil, err
	}

	tl := &Timeline{Gap: a.opts.Gap}
	turnStarts := a.place(tl, tasks, clips, len(turns))
	a.alignAll(ctx, tl)
	a.resolveCues(ctx, tl, turns, turnStarts, library)

	logger.Info("timeline assembled",
		logging.Int("segments", len(tl.Segments)),
		logging.Int("words", len(tl.Words)),
		logging.Int("overlays", len(tl.Overlays)),
		logging.Float64("total_duration", tl.TotalDuration),
	)
	return tl, nil
}

// synthesizeAll runs non-blank tasks in batches. The returned slice is
// indexed by task index; blank tasks stay nil.
func (a *Assembler) synthesizeAll(ctx context.Context, tasks []dialogue.Task, logger *slog.Logger) ([]*speech.Clip, error) {
	clips := make([]*speech.Clip, len(tasks))
	active := make([]dialogue.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Blank() {
			logger.Debug("skipping blank line",
				logging.Int(logging.FieldTask, task.Index),
				logging.String(logging.FieldCharacter, string(task.Character)),
			)
			continue
		}
		active = append(active, task)
	}

	for batchStart := 0; batchStart < len(active); batchStart += a.opts.BatchSize {
		if batchStart > 0 {
			if err := a.cooldown(ctx); err != nil {
				return nil, err
			}
		}
		batch := active[batchStart:min(batchStart+a.opts.BatchSize, len(active))]
		group, groupCtx := errgroup.WithContext(ctx)
		for _, task := range batch {
			group.Go(func() error {
				clip, err := a.synth.Synthesize(groupCtx, task.Text, task.Character)
				if err != nil {
					return err
				}
				clips[task.Index] = &clip
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		logger.Debug("synthesis batch complete",
			logging.Int("batch_start", batchStart),
			logging.Int("batch_size", len(batch)),
		)
	}
	return clips, nil
}

func (a *Assembler) cooldown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.opts.Cooldown <= 0 {
		return nil
	}
	if a.sleeper != nil {
		a.sleeper(a.opts.Cooldown)
		return ctx.Err()
	}
	timer := time.NewTimer(a.opts.Cooldown)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// place folds clips into segments in task order and returns each turn's
// start on the global clock.
func (a *Assembler) place(tl *Timeline, tasks []dialogue.Task, clips []*speech.Clip, turnCount int) []float64 {
	turnStarts := make([]float64, turnCount)
	seen := make([]bool, turnCount)
	clock := 0.0
	for _, task := range tasks {
		if !seen[task.Turn] {
			turnStarts[task.Turn] = clock
			seen[task.Turn] = true
		}
		clip := clips[task.Index]
		if clip == nil {
			continue
		}
		seg := Segment{Task: task, Audio: clip.Audio, Start: clock, Duration: clip.Duration}
		tl.Segments = append(tl.Segments, seg)
		tl.Visibility = append(tl.Visibility, Visibility{Character: task.Character, Start: seg.Start, End: seg.End()})
		clock += clip.Duration + a.opts.Gap
	}
	if len(tl.Segments) == 0 {
		tl.TotalDuration = a.opts.TailBuffer
	} else {
		tl.TotalDuration = clock - a.opts.Gap + a.opts.TailBuffer
	}
	return turnStarts
}

// alignAll aligns segments concurrently, bounded by the batch size, and
// appends global words in segment order.
func (a *Assembler) alignAll(ctx context.Context, tl *Timeline) {
	perSegment := make([][]Word, len(tl.Segments))
	var group errgroup.Group
	group.SetLimit(a.opts.BatchSize)
	for i, seg := range tl.Segments {
		group.Go(func() error {
			local := a.align.Align(ctx, seg.Audio, seg.Task.Text, seg.Duration)
			perSegment[i] = globalWords(seg, local)
			return nil
		})
	}
	_ = group.Wait()
	for _, words := range perSegment {
		tl.Words = append(tl.Words, words...)
	}
}

// globalWords shifts clip-local timings onto the global clock, clamps them
// into the segment, and drops blank or empty-length words.
func globalWords(seg Segment, local []timing.WordTiming) []Word {
	out := make([]Word, 0, len(local))
	for _, w := range local {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		start := seg.Start + clamp(w.Start, 0, seg.Duration)
		end := seg.Start + clamp(w.End, 0, seg.Duration)
		if end-start <= boundaryEpsilon {
			continue
		}
		out = append(out, Word{Text: text, Start: start, End: end, Character: seg.Task.Character})
	}
	slices.SortStableFunc(out, func(x, y Word) int {
		switch {
		case x.Start < y.Start:
			return -1
		case x.Start > y.Start:
			return 1
		default:
			return 0
		}
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
