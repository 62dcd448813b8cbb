package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 1 << 20

// StatusError is a non-200 reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, body)
}

// endpoint holds what every HTTP-backed generator needs.
type endpoint struct {
	provider string
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
}

// newEndpoint resolves cfg against provider defaults. An empty key falls
// back to keyEnv when keyEnv is set.
func newEndpoint(provider string, cfg ClientConfig, keyEnv, defaultURL, defaultModel string) endpoint {
	e := endpoint{
		provider: provider,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: cfg.timeout()},
	}
	if e.apiKey == "" && keyEnv != "" {
		e.apiKey = os.Getenv(keyEnv)
	}
	if e.model == "" {
		e.model = defaultModel
	}
	if e.baseURL == "" {
		e.baseURL = defaultURL
	}
	return e
}

func (e endpoint) unavailable() error {
	return fmt.Errorf("%s: %w: missing API key", e.provider, ErrUnavailable)
}

// postJSON sends payload to path and decodes a 200 reply into out.
func (e endpoint) postJSON(ctx context.Context, path string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", e.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", e.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", e.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", e.provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Provider: e.provider, Code: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: parsing response: %w", e.provider, err)
	}
	return nil
}
