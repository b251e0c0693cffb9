package pipeline_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelforge/internal/dialogue"
	"reelforge/internal/history"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/media/audio"
	"reelforge/internal/pipeline"
	"reelforge/internal/render"
	"reelforge/internal/services"
	"reelforge/internal/services/speech"
	"reelforge/internal/timeline"
	"reelforge/internal/timing"
)

type fakeAssembler struct {
	calls int
	tl    *timeline.Timeline
	err   error
}

func (f *fakeAssembler) Assemble(context.Context, []dialogue.Turn, *assets.Library) (*timeline.Timeline, error) {
	f.calls++
	return f.tl, f.err
}

type fakePlanner struct {
	calls int
	err   error
	dir   string
}

func (f *fakePlanner) Plan(_ context.Context, tl *timeline.Timeline, ws *render.Workspace) (*render.Plan, error) {
	f.calls++
	f.dir = ws.Dir()
	if f.err != nil {
		return nil, f.err
	}
	return &render.Plan{WorkDir: ws.Dir(), TotalDuration: tl.TotalDuration, OutputPath: ws.Path("output.mp4")}, nil
}

type fakeRenderer struct {
	calls int
	video []byte
	err   error
}

func (f *fakeRenderer) Render(context.Context, *render.Plan) ([]byte, error) {
	f.calls++
	return f.video, f.err
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memoryRecorder) Record(_ context.Context, entry history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) last(t *testing.T) history.Entry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		t.Fatal("no history entry recorded")
	}
	return m.entries[len(m.entries)-1]
}

func writeArt(t *testing.T) render.ArtPaths {
	t.Helper()
	dir := t.TempDir()
	art := render.ArtPaths{
		Background: filepath.Join(dir, "bg.mp4"),
		CharacterA: filepath.Join(dir, "a.png"),
		CharacterB: filepath.Join(dir, "b.png"),
	}
	for _, path := range []string{art.Background, art.CharacterA, art.CharacterB} {
		if err := os.WriteFile(path, []byte("art"), 0o644); err != nil {
			t.Fatalf("write art: %v", err)
		}
	}
	return art
}

func oneTurn() []dialogue.Turn {
	return []dialogue.Turn{{SpeakerA: "hello there", SpeakerB: "general kenobi"}}
}

func sampleTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Segments:      []timeline.Segment{{Start: 0, Duration: 1}},
		Words:         []timeline.Word{{Text: "hello", Start: 0, End: 0.5}},
		Gap:           0.2,
		TotalDuration: 2.0,
	}
}

func newPipeline(t *testing.T, asm pipeline.Assembler, planner pipeline.Planner, renderer pipeline.Renderer, rec pipeline.Recorder) (*pipeline.Pipeline, string) {
	t.Helper()
	scratch := t.TempDir()
	p := pipeline.New(asm, planner, renderer, rec, pipeline.Options{
		ScratchDir:    scratch,
		RenderTimeout: time.Minute,
		Art:           writeArt(t),
	}, logging.NewNop())
	return p, scratch
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected workspace to be removed, found %d entries", len(entries))
	}
}

func TestRunSuccessRecordsAndCleansUp(t *testing.T) {
	asm := &fakeAssembler{tl: sampleTimeline()}
	planner := &fakePlanner{}
	rec := &memoryRecorder{}
	p, scratch := newPipeline(t, asm, planner, &fakeRenderer{video: []byte("mp4-bytes")}, rec)

	result, err := p.Run(context.Background(), pipeline.Request{ID: "req-1", Turns: oneTurn(), Source: "test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(result.Video) != "mp4-bytes" || result.ID != "req-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if filepath.Base(planner.dir) != "req-1" {
		t.Fatalf("workspace not named after request: %s", planner.dir)
	}
	assertScratchEmpty(t, scratch)

	entry := rec.last(t)
	if entry.Status != history.StatusSucceeded || entry.VideoBytes != int64(len("mp4-bytes")) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Segments != 1 || entry.Words != 1 || entry.TotalDuration != 2.0 || entry.Source != "test" {
		t.Fatalf("unexpected counts: %+v", entry)
	}
}

func TestRunGeneratesRequestID(t *testing.T) {
	p, _ := newPipeline(t, &fakeAssembler{tl: sampleTimeline()}, &fakePlanner{}, &fakeRenderer{video: []byte("x")}, nil)
	result, err := p.Run(context.Background(), pipeline.Request{Turns: oneTurn()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(result.ID) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRunFailureClasses(t *testing.T) {
	synthErr := &speech.SynthesisError{Character: dialogue.CharacterA, Attempts: 4, Err: errors.New("503")}
	timeoutErr := &speech.SynthesisError{Character: dialogue.CharacterB, Attempts: 4, TimedOut: true, Err: context.DeadlineExceeded}
	renderErr := &render.Error{Stderr: "boom", Err: errors.New("exit status 1")}

	tests := []struct {
		name        string
		asm         *fakeAssembler
		planner     *fakePlanner
		renderer    *fakeRenderer
		want        services.Class
		wantPlans   int
		wantRenders int
	}{
		{"synthesis", &fakeAssembler{err: synthErr}, &fakePlanner{}, &fakeRenderer{}, services.ClassSynthesis, 0, 0},
		{"synthesis timeout", &fakeAssembler{err: timeoutErr}, &fakePlanner{}, &fakeRenderer{}, services.ClassSynthesisTimeout, 0, 0},
		{"planner", &fakeAssembler{tl: sampleTimeline()}, &fakePlanner{err: errors.New("concat failed")}, &fakeRenderer{}, services.ClassRender, 1, 0},
		{"render", &fakeAssembler{tl: sampleTimeline()}, &fakePlanner{}, &fakeRenderer{err: renderErr}, services.ClassRender, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			p, scratch := newPipeline(t, tt.asm, tt.planner, tt.renderer, rec)
			_, err := p.Run(context.Background(), pipeline.Request{ID: "req-fail", Turns: oneTurn()})
			perr, ok := pipeline.AsError(err)
			if !ok {
				t.Fatalf("expected *pipeline.Error, got %T %v", err, err)
			}
			if perr.Class != tt.want {
				t.Fatalf("class = %s, want %s", perr.Class, tt.want)
			}
			if perr.RequestID != "req-fail" || perr.Detail == "" {
				t.Fatalf("unexpected error fields: %+v", perr)
			}
			if tt.planner.calls != tt.wantPlans || tt.renderer.calls != tt.wantRenders {
				t.Fatalf("planner called %d times, renderer %d; want %d and %d",
					tt.planner.calls, tt.renderer.calls, tt.wantPlans, tt.wantRenders)
			}
			entry := rec.last(t)
			if entry.Status != history.StatusFailed || entry.ErrorClass != string(tt.want) {
				t.Fatalf("unexpected entry: %+v", entry)
			}
			assertScratchEmpty(t, scratch)
		})
	}
}

func TestRunRejectsInvalidDialogueBeforeSynthesis(t *testing.T) {
	asm := &fakeAssembler{tl: sampleTimeline()}
	p, _ := newPipeline(t, asm, &fakePlanner{}, &fakeRenderer{}, nil)

	_, err := p.Run(context.Background(), pipeline.Request{Turns: []dialogue.Turn{{SpeakerA: " ", SpeakerB: ""}}})
	perr, ok := pipeline.AsError(err)
	if !ok || perr.Class != services.ClassValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if asm.calls != 0 {
		t.Fatalf("assembler called %d times for invalid input", asm.calls)
	}
}

func TestRunMissingArtFailsBeforeSynthesis(t *testing.T) {
	asm := &fakeAssembler{tl: sampleTimeline()}
	art := writeArt(t)
	if err := os.Remove(art.CharacterB); err != nil {
		t.Fatalf("remove art: %v", err)
	}
	p := pipeline.New(asm, &fakePlanner{}, &fakeRenderer{}, nil, pipeline.Options{
		ScratchDir: t.TempDir(),
		Art:        art,
	}, logging.NewNop())

	_, err := p.Run(context.Background(), pipeline.Request{Turns: oneTurn()})
	perr, ok := pipeline.AsError(err)
	if !ok || perr.Class != services.ClassMissingAsset {
		t.Fatalf("expected missing asset error, got %v", err)
	}
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected chain to contain ErrMissingAsset: %v", err)
	}
	if asm.calls != 0 {
		t.Fatal("assembler should not run without artwork")
	}
}

type scriptedSynth struct{}

func (scriptedSynth) Synthesize(_ context.Context, text string, character dialogue.Character) (speech.Clip, error) {
	return speech.Clip{Audio: []byte(text), Duration: 2.0, Character: character, Text: text}, nil
}

type estimateAligner struct{}

func (estimateAligner) Align(_ context.Context, _ []byte, text string, duration float64) []timing.WordTiming {
	return timing.Estimate(text, duration)
}

type fileConcat struct{ gap float64 }

func (f fileConcat) Gap() float64 { return f.gap }

func (fileConcat) Concatenate(_ context.Context, dir string, clips []audio.Clip) (string, error) {
	path := filepath.Join(dir, "dialogue.wav")
	return path, os.WriteFile(path, []byte("wav"), 0o644)
}

func TestRunEndToEndWithRealAssemblerAndPlanner(t *testing.T) {
	art := writeArt(t)
	asm := timeline.NewAssembler(scriptedSynth{}, estimateAligner{}, timeline.Options{
		Gap:        0.2,
		TailBuffer: 1.0,
		BatchSize:  2,
	}, logging.NewNop(), timeline.WithSleeper(func(time.Duration) {}))
	planner := render.NewPlanner(fileConcat{gap: asm.Gap()}, art, render.DefaultSettings())

	var captured []string
	var subtitles string
	renderer := render.NewFFmpegRenderer("ffmpeg")
	renderer.WithCommandRunner(func(_ context.Context, dir, _ string, args ...string) ([]byte, error) {
		captured = args
		data, err := os.ReadFile(filepath.Join(dir, "subtitles.ass"))
		if err != nil {
			return nil, err
		}
		subtitles = string(data)
		return nil, os.WriteFile(filepath.Join(dir, "output.mp4"), []byte("video"), 0o644)
	})

	rec := &memoryRecorder{}
	scratch := t.TempDir()
	p := pipeline.New(asm, planner, renderer, rec, pipeline.Options{ScratchDir: scratch, Art: art}, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Request{ID: "e2e", Turns: oneTurn()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 2.0 + 0.2 + 2.0 + 0.2 - 0.2 + 1.0
	if math.Abs(result.Timeline.TotalDuration-5.2) > 1e-9 {
		t.Fatalf("total duration = %v, want 5.2", result.Timeline.TotalDuration)
	}
	if string(result.Video) != "video" {
		t.Fatalf("unexpected video: %q", result.Video)
	}
	if !strings.Contains(strings.Join(captured, " "), "5.200") {
		t.Fatalf("ffmpeg args missing total duration: %v", captured)
	}
	if !strings.Contains(subtitles, "Style: CharacterA") || !strings.Contains(subtitles, "kenobi") {
		t.Fatalf("unexpected subtitles: %s", subtitles)
	}
	if rec.last(t).Words != 4 {
		t.Fatalf("expected 4 words recorded, got %+v", rec.last(t))
	}
	assertScratchEmpty(t, scratch)
}
