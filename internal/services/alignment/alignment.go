package alignment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/logging"
	"reelforge/internal/metrics"
	"reelforge/internal/services"
	"reelforge/internal/timing"
)

// Backend aligns audio against its reference text.
type Backend interface {
	Align(ctx context.Context, audio []byte, text string) ([]timing.WordTiming, error)
}

// Fallback composes a Backend with the timing estimator.
type Fallback struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// NewFallback wraps backend. A nil backend always estimates without warning,
// which is how the "none" alignment setting is expressed. timeout bounds
// each backend call; zero leaves it to ctx.
func NewFallback(backend Backend, timeout time.Duration, logger *slog.Logger) *Fallback {
	return &Fallback{
		backend: backend,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "alignment"),
	}
}

// Align returns clip-local word timings for audio. It never fails.
func (f *Fallback) Align(ctx context.Context, audio []byte, text string, duration float64) []timing.WordTiming {
	if f.backend == nil {
		return timing.Estimate(text, duration)
	}
	words, err := f.tryBackend(ctx, audio, text)
	if err == nil {
		return words
	}
	metrics.AlignmentFallbacksTotal.Inc()
	logging.WarnWithContext(logging.WithContext(ctx, f.logger), "alignment degraded, estimating word timings", "alignment_degraded",
		logging.Error(err),
		logging.Float64("duration", duration),
		logging.Int("words", len(strings.Fields(text))),
		logging.String(logging.FieldErrorHint, "check the alignment backend"),
		logging.String(logging.FieldImpact, "subtitle timing is evenly spaced for this line"),
	)
	return timing.Estimate(text, duration)
}

func (f *Fallback) tryBackend(ctx context.Context, audio []byte, text string) ([]timing.WordTiming, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	words, err := f.backend.Align(ctx, audio, text)
	if err != nil {
		return nil, services.Wrap(services.ErrAlignmentDegraded, "alignment", "align", "backend failed", err)
	}
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrAlignmentDegraded, "alignment", "align", "backend returned no word segments", nil)
	}
	return words, nil
}

// HTTPBackend calls a whisper-timestamped server.
type HTTPBackend struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPBackend returns a backend posting to <baseURL>/whisper-timestamped/.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{},
	}
}

type wordSegment struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type alignResponse struct {
	WordSegments []wordSegment `json:"word_segments"`
}

// Align uploads the clip as "audio" alongside the reference "text".
func (b *HTTPBackend) Align(ctx context.Context, audio []byte, text string) ([]timing.WordTiming, error) {
	if len(audio) == 0 {
		return nil, errors.New("alignment request: empty audio")
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio", "clip.wav")
	if err != nil {
		return nil, fmt.Errorf("alignment request: create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("alignment request: write audio: %w", err)
	}
	if err := form.WriteField("text", text); err != nil {
		return nil, fmt.Errorf("alignment request: encode text: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("alignment request: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/whisper-timestamped/", &body)
	if err != nil {
		return nil, fmt.Errorf("alignment request: new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alignment request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alignment request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("alignment request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded alignResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("alignment request: decode response: %w", err)
	}
	words := make([]timing.WordTiming, 0, len(decoded.WordSegments))
	for _, seg := range decoded.WordSegments {
		words = append(words, timing.WordTiming{Word: seg.Word, Start: seg.Start, End: seg.End})
	}
	return words, nil
}
