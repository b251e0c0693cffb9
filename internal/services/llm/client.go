package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelforge/internal/services"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultAttempts       = 5
	snippetLimit          = 160
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Prompt is one structured request. When Schema is set the model is held to
// it through a strict json_schema response format; otherwise any JSON object
// is accepted. Temperature overrides the client default for this request.
type Prompt struct {
	System      string
	User        string
	SchemaName  string
	Schema      map[string]any
	Temperature *float64
}

// Client wraps the OpenRouter chat completion API and decodes the model's
// JSON reply into a caller-supplied value.
type Client struct {
	cfg        Config
	httpClient *http.Client

	attempts    int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleeper     func(time.Duration)
	temperature float64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAttempts sets how many requests Complete may send (defaults to 5).
func WithAttempts(attempts int) Option {
	return func(c *Client) {
		c.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = baseDelay
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(c *Client) {
		if temperature >= 0 && temperature <= 2 {
			c.temperature = temperature
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		attempts:   defaultAttempts,
		baseDelay:  defaultRetryBaseDelay,
		maxDelay:   defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.attempts <= 0 {
		client.attempts = 1
	}
	return client
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, snippet(e.Body))
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// ReplyError is a completion whose content was empty or did not decode into
// the requested value.
type ReplyError struct {
	FinishReason string
	Snippet      string
	Err          error
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("llm reply: %v (finish_reason=%q, snippet=%s)", e.Err, e.FinishReason, e.Snippet)
}

func (e *ReplyError) Unwrap() error { return e.Err }

// RefusalError reports that the model declined the request. It is not retried.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("llm reply: model refused: %s", snippet(e.Reason))
}

// Complete sends prompt and decodes the model's JSON reply into out. Failed
// attempts are retried with exponential backoff when the failure is transient
// (HTTP 408/429/5xx, network timeouts, empty or malformed replies).
func (c *Client) Complete(ctx context.Context, prompt Prompt, out any) error {
	return c.complete(ctx, "llm complete", prompt, out)
}

// HealthCheck issues a fast request to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	zero := 0.0
	var reply struct {
		OK bool `json:"ok"`
	}
	err := c.complete(ctx, "llm health", Prompt{
		System:      "You must respond with JSON only.",
		User:        `Respond with {"ok":true}`,
		Temperature: &zero,
	}, &reply)
	if err != nil {
		return err
	}
	if !reply.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) complete(ctx context.Context, op string, prompt Prompt, out any) error {
	prompt.System = strings.TrimSpace(prompt.System)
	prompt.User = strings.TrimSpace(prompt.User)
	switch {
	case prompt.System == "":
		return fmt.Errorf("%s: system prompt required", op)
	case prompt.User == "":
		return fmt.Errorf("%s: user prompt required", op)
	case c.cfg.APIKey == "":
		return fmt.Errorf("%s: api key required", op)
	case out == nil:
		return fmt.Errorf("%s: nil destination", op)
	}
	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}

	var (
		lastErr error
		attempt int
	)
	state := services.RetryAttempting
	for state == services.RetryAttempting {
		lastErr = c.attemptOnce(ctx, body, out)
		if lastErr == nil {
			state = services.RetrySucceeded
			continue
		}
		delay, retry := c.retryDelay(ctx, lastErr, attempt)
		if !retry {
			state = services.RetryFailed
			continue
		}
		if err := services.Sleep(ctx, delay, c.sleeper); err != nil {
			lastErr = err
			state = services.RetryFailed
			continue
		}
		attempt++
	}
	if state == services.RetryFailed {
		if attempt == 0 {
			return fmt.Errorf("%s: %w", op, lastErr)
		}
		return fmt.Errorf("%s: failed after %d attempts: %w", op, attempt+1, lastErr)
	}
	return nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) buildRequest(prompt Prompt) chatRequest {
	temperature := c.temperature
	if prompt.Temperature != nil {
		temperature = *prompt.Temperature
	}
	format := responseFormat{Type: "json_object"}
	if prompt.Schema != nil {
		name := strings.TrimSpace(prompt.SchemaName)
		if name == "" {
			name = "reply"
		}
		format = responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: name, Strict: true, Schema: prompt.Schema},
		}
	}
	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature:    temperature,
		ResponseFormat: format,
	}
}

func (c *Client) attemptOnce(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw), RetryAfter: retryAfter}
	}

	var completion chatResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return &ReplyError{Snippet: snippet(string(raw)), Err: fmt.Errorf("decode response: %w", err)}
	}
	if completion.Error != nil {
		return fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return &ReplyError{Snippet: snippet(string(raw)), Err: errors.New("no choices")}
	}
	choice := completion.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return &RefusalError{Reason: refusal}
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return &ReplyError{FinishReason: choice.FinishReason, Snippet: snippet(string(raw)), Err: errors.New("empty content")}
	}
	payload, err := extractJSON(content)
	if err == nil {
		err = json.Unmarshal(payload, out)
	}
	if err != nil {
		return &ReplyError{FinishReason: choice.FinishReason, Snippet: snippet(content), Err: err}
	}
	return nil
}

// retryDelay reports whether the failure of attempt (0-based) is worth another
// request and how long to wait first.
func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt+1 >= c.attempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	backoff := services.Backoff(attempt, c.baseDelay, c.maxDelay)

	var statusErr *StatusError
	var replyErr *ReplyError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		if !statusErr.retryable() {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return min(statusErr.RetryAfter, c.maxDelay), true
		}
		return backoff, true
	case errors.As(err, &replyErr):
		return backoff, true
	case errors.As(err, &netErr) && netErr.Timeout():
		return backoff, true
	}
	return 0, false
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// extractJSON returns the JSON document in a reply, tolerating code fences and
// prose around a single object or array.
func extractJSON(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	body := stripCodeFence(trimmed)
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(body, pair[0])
		end := strings.LastIndex(body, pair[1])
		if start >= 0 && end > start {
			candidate := body[start : end+1]
			if json.Valid([]byte(candidate)) {
				return []byte(candidate), nil
			}
		}
	}
	return nil, errors.New("reply is not valid JSON")
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	body := strings.TrimLeft(content[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		clean = string(runes[:snippetLimit]) + "..."
	}
	return clean
}
