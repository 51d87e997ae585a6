package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blackjack/internal/ports"

	"github.com/tidwall/gjson"
)

// maxReplyBytes caps how much of an oracle reply is read.
const maxReplyBytes = 64 << 10

// ErrEmptyCompletion is returned when the oracle answers without any text.
var ErrEmptyCompletion = errors.New("oracle returned an empty completion")

// HTTPAdapter implements ports.OraclePort against an OpenAI-compatible chat
// completion endpoint.
type HTTPAdapter struct {
	client   *http.Client
	endpoint *url.URL
	apiKey   string
	model    string
}

var _ ports.OraclePort = (*HTTPAdapter)(nil)

// NewHTTPAdapter constructs an adapter posting to endpoint.
// client may be nil to use a client with a 10 second timeout.
func NewHTTPAdapter(client *http.Client, endpoint, apiKey, model string) (*HTTPAdapter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("oracle endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse oracle endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("oracle endpoint must be http(s), got %q", parsed.Scheme)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAdapter{
		client:   client,
		endpoint: parsed,
		apiKey:   strings.TrimSpace(apiKey),
		model:    strings.TrimSpace(model),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// Complete posts the prompt and extracts the reply text.
func (a *HTTPAdapter) Complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	body := chatRequest{Model: a.model, Temperature: 0.7}
	if prompt.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: prompt.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: prompt.User})

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	text := extractCompletion(data)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// extractCompletion pulls the reply text out of the known response envelopes,
// falling back to the raw body when it is not JSON.
func extractCompletion(data []byte) string {
	if !gjson.ValidBytes(data) {
		return strings.TrimSpace(string(data))
	}
	for _, path := range []string{
		"choices.0.message.content",
		"choices.0.text",
		"output_text",
		"response",
		"text",
	} {
		if v := gjson.GetBytes(data, path); v.Exists() && v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	parsed := gjson.ParseBytes(data)
	if parsed.Type == gjson.String {
		return strings.TrimSpace(parsed.String())
	}
	if parsed.IsObject() && (parsed.Get("narrative").Exists() || parsed.Get("decision").Exists()) {
		return strings.TrimSpace(string(data))
	}
	return ""
}
