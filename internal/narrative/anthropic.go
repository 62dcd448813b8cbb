package narrative

import (
	"context"
	"fmt"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-3-haiku-20240307"
	anthropicMaxTokens    = 1024
)

// AnthropicClient narrates through the Anthropic Messages API.
type AnthropicClient struct {
	endpoint
}

// NewAnthropicClient creates an AnthropicClient. An empty key falls back to
// ANTHROPIC_API_KEY.
func NewAnthropicClient(cfg ClientConfig) *AnthropicClient {
	return &AnthropicClient{newEndpoint("anthropic", cfg, "ANTHROPIC_API_KEY", anthropicAPIURL, anthropicDefaultModel)}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Available reports whether an API key is set.
func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// Narrate returns the first text block of the reply.
func (c *AnthropicClient) Narrate(ctx context.Context, b Briefing) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	var resp anthropicResponse
	err := c.postJSON(ctx, "/v1/messages",
		map[string]string{"x-api-key": c.apiKey, "anthropic-version": anthropicAPIVersion},
		anthropicRequest{
			Model:     c.model,
			MaxTokens: anthropicMaxTokens,
			Messages:  []anthropicMessage{{Role: "user", Content: Prompt(b)}},
		}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic: %s: %s", resp.Error.Type, resp.Error.Message)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text content in response")
}
