package narrative

import (
	"context"
	"fmt"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
	ollamaBaseURL      = "http://localhost:11434/v1"
	ollamaDefaultModel = "llama3.2"
)

// OpenAIClient narrates through an OpenAI-compatible chat completions
// endpoint. Ollama uses the same client with a local URL and no key.
type OpenAIClient struct {
	endpoint
	keyRequired bool
}

// NewOpenAIClient creates a client for the OpenAI API. An empty key falls
// back to OPENAI_API_KEY.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:    newEndpoint("openai", cfg, "OPENAI_API_KEY", openAIBaseURL, openAIDefaultModel),
		keyRequired: true,
	}
}

// NewOllamaClient creates a client for a local Ollama server.
func NewOllamaClient(cfg ClientConfig) *OpenAIClient {
	return &OpenAIClient{endpoint: newEndpoint("ollama", cfg, "", ollamaBaseURL, ollamaDefaultModel)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Available reports whether the client has the credentials it needs.
func (c *OpenAIClient) Available() bool {
	return !c.keyRequired || c.apiKey != ""
}

// Narrate sends the prompt as one user message and returns the first choice.
func (c *OpenAIClient) Narrate(ctx context.Context, b Briefing) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatResponse
	err := c.postJSON(ctx, "/chat/completions", headers, chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(b)}},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s: %s", c.provider, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", c.provider)
	}
	return resp.Choices[0].Message.Content, nil
}
