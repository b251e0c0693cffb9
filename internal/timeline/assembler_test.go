package timeline

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelforge/internal/dialogue"
	"reelforge/internal/media/assets"
	"reelforge/internal/services"
	"reelforge/internal/services/alignment"
	"reelforge/internal/services/speech"
	"reelforge/internal/timing"
)

const eps = 1e-9

type fakeSynth struct {
	durations map[string]float64
	fail      map[string]error
	gates     map[string]chan struct{}
	release   map[string]chan struct{}

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, character dialogue.Character) (speech.Clip, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if gate, ok := f.gates[text]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return speech.Clip{}, ctx.Err()
		}
	}
	if ch, ok := f.release[text]; ok {
		close(ch)
	}
	if err := f.fail[text]; err != nil {
		return speech.Clip{}, err
	}
	d, ok := f.durations[text]
	if !ok {
		d = 1.0
	}
	return speech.Clip{Audio: []byte(text), Duration: d, Character: character, Text: text}, nil
}

type estimateAligner struct{}

func (estimateAligner) Align(_ context.Context, _ []byte, text string, duration float64) []timing.WordTiming {
	return timing.Estimate(text, duration)
}

type alignerFunc func(ctx context.Context, audio []byte, text string, duration float64) []timing.WordTiming

func (f alignerFunc) Align(ctx context.Context, audio []byte, text string, duration float64) []timing.WordTiming {
	return f(ctx, audio, text, duration)
}

func newAssembler(synth Synthesizer, align Aligner, slept *[]time.Duration) *Assembler {
	return NewAssembler(synth, align, DefaultOptions(), nil, WithSleeper(func(d time.Duration) {
		if slept != nil {
			*slept = append(*slept, d)
		}
	}))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestAssembleTwoTurns(t *testing.T) {
	synth := &fakeSynth{durations: map[string]float64{
		"hello there": 1.0, "general kenobi": 1.5, "you are": 2.0, "bold": 0.5,
	}}
	turns := []dialogue.Turn{
		{SpeakerA: "hello there", SpeakerB: "general kenobi"},
		{SpeakerA: "you are", SpeakerB: "bold"},
	}
	tl, err := newAssembler(synth, estimateAligner{}, nil).Assemble(context.Background(), turns, assets.NewLibrary())
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(tl.Segments) != 4 || len(tl.Visibility) != 4 {
		t.Fatalf("expected 4 segments and visibility intervals, got %d/%d", len(tl.Segments), len(tl.Visibility))
	}
	wantStarts := []float64{0, 1.2, 2.9, 5.1}
	wantChars := []dialogue.Character{dialogue.CharacterA, dialogue.CharacterB, dialogue.CharacterA, dialogue.CharacterB}
	for i, seg := range tl.Segments {
		if !almostEqual(seg.Start, wantStarts[i]) {
			t.Fatalf("segment %d start %v, want %v", i, seg.Start, wantStarts[i])
		}
		if tl.Visibility[i].Character != wantChars[i] || !almostEqual(tl.Visibility[i].End, seg.End()) {
			t.Fatalf("visibility %d mismatch: %+v", i, tl.Visibility[i])
		}
		if i > 0 {
			prev := tl.Segments[i-1]
			if seg.Start+eps < prev.Start+prev.Duration+tl.Gap {
				t.Fatalf("segments %d and %d overlap", i-1, i)
			}
		}
	}
	want := tl.SpeechDuration() + 3*DefaultGap + DefaultTailBuffer
	if !almostEqual(tl.TotalDuration, want) || !almostEqual(tl.TotalDuration, 6.6) {
		t.Fatalf("total duration %v, want %v", tl.TotalDuration, want)
	}
	if len(tl.Words) != 7 {
		t.Fatalf("expected 7 words, got %d", len(tl.Words))
	}
	for _, w := range tl.Words {
		if w.End <= w.Start {
			t.Fatalf("word %+v has no length", w)
		}
	}
}

func TestAssemblePreservesTaskOrderUnderConcurrency(t *testing.T) {
	gate := make(chan struct{})
	synth := &fakeSynth{
		durations: map[string]float64{"first": 2.0, "second": 0.5},
		gates:     map[string]chan struct{}{"first": gate},
		release:   map[string]chan struct{}{"second": gate},
	}
	tl, err := newAssembler(synth, estimateAligner{}, nil).Assemble(context.Background(),
		[]dialogue.Turn{{SpeakerA: "first", SpeakerB: "second"}}, nil)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if tl.Segments[0].Task.Text != "first" || tl.Segments[1].Task.Text != "second" {
		t.Fatalf("segments out of task order: %+v", tl.Segments)
	}
	if !almostEqual(tl.Segments[1].Start, 2.2) {
		t.Fatalf("second segment should start after the first, got %v", tl.Segments[1].Start)
	}
}

func TestAssembleBatchesWithCooldown(t *testing.T) {
	synth := &fakeSynth{}
	turns := []dialogue.Turn{
		{SpeakerA: "a0", SpeakerB: "b0"},
		{SpeakerA: "a1", SpeakerB: "b1"},
		{SpeakerA: "a2", SpeakerB: "b2"},
	}
	var slept []time.Duration
	if _, err := newAssembler(synth, estimateAligner{}, &slept).Assemble(context.Background(), turns, nil); err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(synth.calls) != 6 {
		t.Fatalf("expected 6 synthesis calls, got %d", len(synth.calls))
	}
	if peak := synth.peak.Load(); peak > DefaultBatchSize {
		t.Fatalf("concurrency %d exceeded batch size", peak)
	}
	if !slices.Equal(slept, []time.Duration{DefaultCooldown, DefaultCooldown}) {
		t.Fatalf("expected two cooldowns, got %v", slept)
	}
}

func TestAssembleSkipsBlankLines(t *testing.T) {
	synth := &fakeSynth{durations: map[string]float64{"only me": 1.0}}
	tl, err := newAssembler(synth, estimateAligner{}, nil).Assemble(context.Background(),
		[]dialogue.Turn{{SpeakerA: "only me", SpeakerB: "   "}}, nil)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(synth.calls) != 1 || len(tl.Segments) != 1 || len(tl.Visibility) != 1 {
		t.Fatalf("blank line should be skipped: calls=%v segments=%d", synth.calls, len(tl.Segments))
	}
	if !almostEqual(tl.TotalDuration, 1.0+DefaultTailBuffer) {
		t.Fatalf("unexpected total %v", tl.TotalDuration)
	}
}

func TestAssembleEmptyDialogue(t *testing.T) {
	tl, err := newAssembler(&fakeSynth{}, estimateAligner{}, nil).Assemble(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(tl.Segments) != 0 || tl.TotalDuration != DefaultTailBuffer {
		t.Fatalf("unexpected empty timeline %+v", tl)
	}
}

func TestAssembleAbortsOnSynthesisFailure(t *testing.T) {
	synthErr := &speech.SynthesisError{Character: dialogue.CharacterB, Attempts: 4, Err: errors.New("down")}
	synth := &fakeSynth{fail: map[string]error{"b1": synthErr}}
	turns := []dialogue.Turn{
		{SpeakerA: "a0", SpeakerB: "b0"},
		{SpeakerA: "a1", SpeakerB: "b1"},
		{SpeakerA: "a2", SpeakerB: "b2"},
	}
	aligned := false
	_, err := newAssembler(synth, alignerFunc(func(context.Context, []byte, string, float64) []timing.WordTiming {
		aligned = true
		return nil
	}), nil).Assemble(context.Background(), turns, nil)
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if aligned {
		t.Fatal("alignment should not run after a synthesis failure")
	}
	if slices.Contains(synth.calls, "a2") {
		t.Fatalf("later batches should not start: %v", synth.calls)
	}
}

type flakyBackend struct{ failText string }

func (b flakyBackend) Align(_ context.Context, _ []byte, text string) ([]timing.WordTiming, error) {
	if text == b.failText {
		return nil, errors.New("alignment server down")
	}
	return []timing.WordTiming{{Word: "aligned", Start: 0.1, End: 0.3}}, nil
}

func TestAssembleAlignmentFailureUsesEstimator(t *testing.T) {
	synth := &fakeSynth{durations: map[string]float64{"one two three": 1.5, "fine": 0.8}}
	aligner := alignment.NewFallback(flakyBackend{failText: "one two three"}, 0, nil)
	tl, err := newAssembler(synth, aligner, nil).Assemble(context.Background(),
		[]dialogue.Turn{{SpeakerA: "one two three", SpeakerB: "fine"}}, nil)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	var estimated []Word
	for _, w := range tl.Words {
		if w.Character == dialogue.CharacterA {
			estimated = append(estimated, w)
		}
	}
	if len(estimated) != 3 {
		t.Fatalf("expected 3 estimated words, got %+v", estimated)
	}
	sum := 0.0
	for _, w := range estimated {
		sum += w.End - w.Start
	}
	if !almostEqual(sum, 1.5) {
		t.Fatalf("estimated words should span the segment, got %v", sum)
	}
	last := tl.Words[len(tl.Words)-1]
	if last.Text != "aligned" || !almostEqual(last.Start, 1.7+0.1) {
		t.Fatalf("unexpected aligned word %+v", last)
	}
}

func TestGlobalWordsClampsAndDrops(t *testing.T) {
	seg := Segment{Task: dialogue.Task{Character: dialogue.CharacterB}, Start: 10, Duration: 1}
	words := globalWords(seg, []timing.WordTiming{
		{Word: "late", Start: 0.6, End: 0.9},
		{Word: "early", Start: -0.2, End: 0.4},
		{Word: "  ", Start: 0.4, End: 0.5},
		{Word: "over", Start: 0.9, End: 1.7},
		{Word: "past", Start: 1.2, End: 1.5},
		{Word: "zero", Start: 0.5, End: 0.5},
	})
	got := make([]string, len(words))
	for i, w := range words {
		got[i] = w.Text
		if w.Start < seg.Start || w.End > seg.End() || w.End <= w.Start {
			t.Fatalf("word %+v outside segment", w)
		}
	}
	if !slices.Equal(got, []string{"early", "late", "over"}) {
		t.Fatalf("unexpected words %v", got)
	}
}

func TestAssembleResolvesMediaCues(t *testing.T) {
	lib := assets.NewLibrary()
	for _, name := range []string{"cat.png", "clip.mp4", "chart.jpg"} {
		if _, err := lib.Add(name, []byte(name)); err != nil {
			t.Fatalf("Add(%q): %v", name, err)
		}
	}
	imgDuration := 2.5
	offset := 0.4
	videoDuration := 9.0
	turns := []dialogue.Turn{
		{SpeakerA: "warmup", SpeakerB: "ok"},
		{
			SpeakerA: "look at this Cat, right",
			SpeakerB: "wow",
			MediaCues: []dialogue.MediaCue{
				{Filename: "cat.png", TriggerWord: "cat", Duration: &imgDuration, Description: "a cat"},
				{Filename: "clip.mp4", TriggerWord: "wow", Duration: &videoDuration},
				{Filename: "chart.jpg", TriggerWord: "cat", StartOffset: &offset},
				{Filename: "missing.png", TriggerWord: "look"},
				{Filename: "cat.png", TriggerWord: "dog"},
			},
		},
	}
	synth := &fakeSynth{durations: map[string]float64{
		"warmup": 1.0, "ok": 1.0, "look at this Cat, right": 2.5, "wow": 1.0,
	}}
	tl, err := newAssembler(synth, estimateAligner{}, nil).Assemble(context.Background(), turns, lib)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(tl.Overlays) != 4 {
		t.Fatalf("expected 4 overlays (missing asset dropped), got %d", len(tl.Overlays))
	}
	turnStart := 2.4

	cat := tl.Overlays[0]
	if cat.Asset.Filename != "cat.png" || !almostEqual(cat.Start, turnStart+1.5) || *cat.Duration != 2.5 || cat.Description != "a cat" {
		t.Fatalf("unexpected trigger overlay %+v", cat)
	}
	if end, ok := cat.End(); !ok || !almostEqual(end, turnStart+4.0) {
		t.Fatalf("image overlay needs a finite end, got %v %v", end, ok)
	}

	video := tl.Overlays[1]
	if video.Duration != nil {
		t.Fatalf("video overlay must not carry a duration: %+v", video)
	}
	if !almostEqual(video.Start, turnStart+2.5+DefaultGap) {
		t.Fatalf("video should start on the trigger word, got %v", video.Start)
	}

	chart := tl.Overlays[2]
	if !almostEqual(chart.Start, turnStart+offset) || *chart.Duration != DefaultImageDuration {
		t.Fatalf("explicit offset should win and default duration apply: %+v", chart)
	}

	unspoken := tl.Overlays[3]
	if !almostEqual(unspoken.Start, turnStart) {
		t.Fatalf("unspoken trigger should fall back to turn start, got %v", unspoken.Start)
	}
}
