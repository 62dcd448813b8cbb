package narrative

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-1.5-flash-latest"
)

// GeminiClient narrates through the Gemini generateContent API.
type GeminiClient struct {
	endpoint
}

// NewGeminiClient creates a GeminiClient. An empty key falls back to
// GEMINI_API_KEY.
func NewGeminiClient(cfg ClientConfig) *GeminiClient {
	return &GeminiClient{newEndpoint("gemini", cfg, "GEMINI_API_KEY", geminiBaseURL, geminiDefaultModel)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Available returns true if the API key is present.
func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

// Narrate joins the text parts of the first candidate.
func (c *GeminiClient) Narrate(ctx context.Context, b Briefing) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	var resp geminiResponse
	err := c.postJSON(ctx, "/models/"+url.PathEscape(c.model)+":generateContent",
		map[string]string{"x-goog-api-key": c.apiKey},
		geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: Prompt(b)}}}}},
		&resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini: %s: %s", resp.Error.Status, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini: no text content in response")
	}
	return text.String(), nil
}
