package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// Backend turns text into encoded audio for a given voice.
type Backend interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// HTTPBackend calls the TTS server's /tts/ endpoint.
type HTTPBackend struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPBackend returns a backend for baseURL. The client has no timeout of
// its own; the speech Client bounds each attempt through the context.
func NewHTTPBackend(baseURL, apiKey string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:     strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{},
	}
}

// Synthesize posts text and voice as multipart form fields.
func (b *HTTPBackend) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("text", text); err != nil {
		return nil, fmt.Errorf("tts request: encode text: %w", err)
	}
	if err := form.WriteField("character", voice); err != nil {
		return nil, fmt.Errorf("tts request: encode character: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("tts request: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/tts/", &body)
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tts request: http %d: %s", resp.StatusCode, snippet(payload))
	}
	if len(payload) == 0 {
		return nil, errors.New("tts request: empty audio payload")
	}
	return payload, nil
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if text == "" {
		return "<empty>"
	}
	return text
}
