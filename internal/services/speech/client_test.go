package speech

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"reelforge/internal/dialogue"
	"reelforge/internal/services"
)

type fakeBackend struct {
	mu     sync.Mutex
	calls  int
	voices []string
	fn     func(call int) ([]byte, error)
}

func (f *fakeBackend) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.voices = append(f.voices, voice)
	f.mu.Unlock()
	return f.fn(call)
}

type fakeDurations struct {
	duration float64
	err      error
	seen     []byte
}

func (p *fakeDurations) Duration(_ context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	p.seen = data
	return p.duration, p.err
}

func newTestClient(t *testing.T, backend Backend, durations DurationSource, opts Options) (*Client, *[]time.Duration) {
	t.Helper()
	var slept []time.Duration
	if opts.ScratchDir == "" {
		opts.ScratchDir = t.TempDir()
	}
	client := NewClient(backend, durations, opts, nil, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	return client, &slept
}

func TestSynthesizeMeasuresDurationFromAudio(t *testing.T) {
	backend := &fakeBackend{fn: func(int) ([]byte, error) { return []byte("RIFFdata"), nil }}
	durations := &fakeDurations{duration: 1.42}
	client, slept := newTestClient(t, backend, durations, Options{
		Retries: DefaultRetries,
		Voices:  map[dialogue.Character]string{dialogue.CharacterA: "stewie", dialogue.CharacterB: "peter"},
	})

	clip, err := client.Synthesize(context.Background(), "  Hello there  ", dialogue.CharacterB)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if clip.Duration != 1.42 || clip.Text != "Hello there" || clip.Character != dialogue.CharacterB {
		t.Fatalf("unexpected clip %+v", clip)
	}
	if string(durations.seen) != "RIFFdata" {
		t.Fatalf("duration source saw %q", durations.seen)
	}
	if backend.calls != 1 || len(*slept) != 0 {
		t.Fatalf("expected one call without sleeping, got %d calls and %v", backend.calls, *slept)
	}
	if !slices.Equal(backend.voices, []string{"peter"}) {
		t.Fatalf("unexpected voices %v", backend.voices)
	}
}

func TestSynthesizeExhaustsRetries(t *testing.T) {
	backend := &fakeBackend{fn: func(int) ([]byte, error) { return nil, errors.New("tts request: http 500: boom") }}
	client, slept := newTestClient(t, backend, &fakeDurations{duration: 1}, Options{Retries: 3})

	_, err := client.Synthesize(context.Background(), "line", dialogue.CharacterA)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Attempts != 4 || synthErr.Character != dialogue.CharacterA || synthErr.TimedOut {
		t.Fatalf("unexpected error fields %+v", synthErr)
	}
	if backend.calls != 4 {
		t.Fatalf("expected 4 backend calls, got %d", backend.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if !slices.Equal(*slept, want) {
		t.Fatalf("expected sleeps %v, got %v", want, *slept)
	}
	if !errors.Is(err, services.ErrSynthesis) || services.ErrorClass(err) != services.ClassSynthesis {
		t.Fatalf("expected synthesis class, got %q", services.ErrorClass(err))
	}
	if msg := err.Error(); !strings.Contains(msg, "character A") || !strings.Contains(msg, "4 attempts") {
		t.Fatalf("error should name character and attempts: %s", msg)
	}
}

func TestSynthesizeCapsBackoff(t *testing.T) {
	backend := &fakeBackend{fn: func(int) ([]byte, error) { return nil, errors.New("down") }}
	client, slept := newTestClient(t, backend, nil, Options{Retries: 3, MaxBackoff: 5 * time.Second})
	if _, err := client.Synthesize(context.Background(), "line", dialogue.CharacterA); err == nil {
		t.Fatal("expected error")
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second}
	if !slices.Equal(*slept, want) {
		t.Fatalf("expected sleeps %v, got %v", want, *slept)
	}
}

func TestSynthesizeRetriesEmptyAudio(t *testing.T) {
	backend := &fakeBackend{fn: func(call int) ([]byte, error) {
		if call < 3 {
			return []byte{}, nil
		}
		return []byte("audio"), nil
	}}
	client, slept := newTestClient(t, backend, &fakeDurations{duration: 2}, Options{Retries: 3})
	clip, err := client.Synthesize(context.Background(), "line", dialogue.CharacterA)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if clip.Duration != 2 || backend.calls != 3 || len(*slept) != 2 {
		t.Fatalf("unexpected result: clip=%+v calls=%d slept=%v", clip, backend.calls, *slept)
	}
}

func TestSynthesizeReportsTimeout(t *testing.T) {
	blocking := backendFunc(func(ctx context.Context, _, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	client, _ := newTestClient(t, blocking, nil, Options{Retries: 1, AttemptTimeout: 10 * time.Millisecond})

	_, err := client.Synthesize(context.Background(), "line", dialogue.CharacterB)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) || !synthErr.TimedOut || synthErr.Attempts != 2 {
		t.Fatalf("expected timed out SynthesisError after 2 attempts, got %v", err)
	}
	if synthErr.Timeouts != 2 {
		t.Fatalf("expected 2 timed out attempts, got %d", synthErr.Timeouts)
	}
	if services.ErrorClass(err) != services.ClassSynthesisTimeout {
		t.Fatalf("expected timeout class, got %q", services.ErrorClass(err))
	}
}

func TestSynthesizeCountsEarlierTimeouts(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	backend := backendFunc(func(ctx context.Context, _, _ string) ([]byte, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call < 4 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, errors.New("tts request: http 500: boom")
	})
	client, _ := newTestClient(t, backend, nil, Options{Retries: 3, AttemptTimeout: 10 * time.Millisecond})

	_, err := client.Synthesize(context.Background(), "line", dialogue.CharacterA)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Attempts != 4 || synthErr.Timeouts != 3 || synthErr.TimedOut {
		t.Fatalf("unexpected error fields %+v", synthErr)
	}
	if !strings.Contains(err.Error(), "(3 timed out)") {
		t.Fatalf("error should report earlier timeouts: %s", err)
	}
	if services.ErrorClass(err) != services.ClassSynthesis {
		t.Fatalf("expected class from final attempt, got %q", services.ErrorClass(err))
	}
}

func TestSynthesizeStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	backend := backendFunc(func(context.Context, string, string) ([]byte, error) {
		calls++
		cancel()
		return nil, errors.New("down")
	})
	client, slept := newTestClient(t, backend, nil, Options{Retries: 3})
	if _, err := client.Synthesize(ctx, "line", dialogue.CharacterA); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 || len(*slept) != 0 {
		t.Fatalf("expected a single attempt, got %d calls and sleeps %v", calls, *slept)
	}
}

func TestSynthesizeFallsBackWhenDurationUnavailable(t *testing.T) {
	backend := &fakeBackend{fn: func(int) ([]byte, error) { return []byte("audio"), nil }}
	client, _ := newTestClient(t, backend, &fakeDurations{err: errors.New("ffprobe missing")}, Options{})
	clip, err := client.Synthesize(context.Background(), "line", dialogue.CharacterA)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if clip.Duration != DefaultFallbackDuration {
		t.Fatalf("expected fallback duration, got %v", clip.Duration)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 2 * time.Second},
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{4, 32 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt); got != tt.want {
			t.Fatalf("Backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

type backendFunc func(ctx context.Context, text, voice string) ([]byte, error)

func (f backendFunc) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return f(ctx, text, voice)
}
