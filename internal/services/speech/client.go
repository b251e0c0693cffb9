package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/metrics"
	"reelforge/internal/services"
)

const (
	DefaultRetries          = 3
	DefaultAttemptTimeout   = 120 * time.Second
	DefaultMaxBackoff       = 30 * time.Second
	DefaultFallbackDuration = 3.0
)

// Clip is one synthesized line. Duration is measured from Audio.
type Clip struct {
	Audio     []byte
	Duration  float64
	Character dialogue.Character
	Text      string
}

// DurationSource measures the playable length of a media file.
type DurationSource interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	Retries          int
	AttemptTimeout   time.Duration
	MaxBackoff       time.Duration
	FallbackDuration float64
	ScratchDir       string
	Voices           map[dialogue.Character]string
}

// Client synthesizes lines through a Backend with bounded retries.
type Client struct {
	backend   Backend
	durations DurationSource
	opts      Options
	logger    *slog.Logger
	sleeper   func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Client. Retries is the number of extra attempts, so
// the backend is called at most Retries+1 times per line.
func NewClient(backend Backend, durations DurationSource, opts Options, logger *slog.Logger, options ...Option) *Client {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.FallbackDuration <= 0 {
		opts.FallbackDuration = DefaultFallbackDuration
	}
	c := &Client{
		backend:   backend,
		durations: durations,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "speech"),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Backoff returns the delay before the retry that follows attempt (0-based):
// 2s, 4s, 8s, ... It is uncapped; the client applies MaxBackoff.
func Backoff(attempt int) time.Duration {
	return services.Backoff(attempt, 2*time.Second, 0)
}

// Synthesize returns a clip for text spoken by character. It fails with
// *SynthesisError once every attempt is spent or ctx is done.
func (c *Client) Synthesize(ctx context.Context, text string, character dialogue.Character) (Clip, error) {
	text = strings.TrimSpace(text)
	voice := c.voice(character)
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldCharacter, string(character)))

	var (
		audio    []byte
		lastErr  error
		timedOut bool
		timeouts int
		attempt  int
	)
	state := services.RetryAttempting
	for state == services.RetryAttempting {
		audio, lastErr = c.attemptOnce(ctx, text, voice)
		timedOut = errors.Is(lastErr, services.ErrSynthesisTimeout)
		switch {
		case lastErr == nil:
			metrics.SynthesisAttemptsTotal.WithLabelValues(string(character), metrics.OutcomeOK).Inc()
			state = services.RetrySucceeded
			continue
		case timedOut:
			timeouts++
			metrics.SynthesisAttemptsTotal.WithLabelValues(string(character), metrics.OutcomeTimeout).Inc()
		default:
			metrics.SynthesisAttemptsTotal.WithLabelValues(string(character), metrics.OutcomeError).Inc()
		}

		if attempt >= c.opts.Retries || ctx.Err() != nil {
			state = services.RetryFailed
			continue
		}
		delay := min(Backoff(attempt), c.opts.MaxBackoff)
		logging.WarnWithContext(logger, "synthesis attempt failed", "synthesis_retry",
			logging.Int("attempt", attempt+1),
			logging.Bool("timed_out", timedOut),
			logging.Duration("retry_in", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "check the TTS server logs"),
			logging.String(logging.FieldImpact, "line will be retried"),
		)
		if err := services.Sleep(ctx, delay, c.sleeper); err != nil {
			lastErr = err
			state = services.RetryFailed
			continue
		}
		attempt++
	}

	if state == services.RetryFailed {
		return Clip{}, &SynthesisError{
			Character: character,
			Attempts:  attempt + 1,
			TimedOut:  timedOut,
			Timeouts:  timeouts,
			Err:       lastErr,
		}
	}

	duration := c.measure(ctx, audio, logger)
	logger.Debug("clip synthesized",
		logging.Int("attempts", attempt+1),
		logging.Float64("duration", duration),
		logging.Int("bytes", len(audio)),
	)
	return Clip{Audio: audio, Duration: duration, Character: character, Text: text}, nil
}

func (c *Client) attemptOnce(ctx context.Context, text, voice string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	audio, err := c.backend.Synthesize(attemptCtx, text, voice)
	if err == nil && len(audio) == 0 {
		err = errors.New("backend returned empty audio")
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within %s: %w", services.ErrSynthesisTimeout, c.opts.AttemptTimeout, err)
		}
		return nil, err
	}
	return audio, nil
}

// measure reads the duration of audio through a scratch file. Failures fall
// back to FallbackDuration.
func (c *Client) measure(ctx context.Context, audio []byte, logger *slog.Logger) float64 {
	duration, err := c.readDuration(ctx, audio)
	if err == nil && duration > 0 {
		return duration
	}
	if err == nil {
		err = errors.New("ffprobe reported zero duration")
	}
	logging.WarnWithContext(logger, "clip duration measurement failed", "duration_fallback",
		logging.Error(err),
		logging.Float64("fallback_duration", c.opts.FallbackDuration),
		logging.String(logging.FieldErrorHint, "verify ffprobe is installed and the TTS server returns a valid container"),
		logging.String(logging.FieldImpact, "line timing is approximate"),
	)
	return c.opts.FallbackDuration
}

func (c *Client) readDuration(ctx context.Context, audio []byte) (float64, error) {
	if c.durations == nil {
		return 0, errors.New("no duration source configured")
	}
	file, err := os.CreateTemp(c.opts.ScratchDir, "clip-*.audio")
	if err != nil {
		return 0, fmt.Errorf("create scratch clip: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)
	if _, err := file.Write(audio); err != nil {
		file.Close()
		return 0, fmt.Errorf("write scratch clip: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close scratch clip: %w", err)
	}
	return c.durations.Duration(ctx, path)
}

func (c *Client) voice(character dialogue.Character) string {
	if voice := strings.TrimSpace(c.opts.Voices[character]); voice != "" {
		return voice
	}
	return strings.ToLower(string(character))
}
