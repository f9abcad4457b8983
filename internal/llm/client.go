// Package llm implements decision.ChatClient against OpenAI-compatible
// chat-completion APIs (DeepSeek, OpenAI itself, or any self-hosted
// endpoint that speaks the same wire format).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client implements decision.ChatClient over an OpenAI-compatible
// /chat/completions endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. baseURL is the API root (no trailing slash),
// e.g. "https://api.deepseek.com/v1".
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements decision.ChatClient.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no API key configured")
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("llm request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("llm response read failed", "model", c.model, "error", err)
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("llm rate limited", "model", c.model, "retry_after", resp.Header.Get("Retry-After"))
		return "", fmt.Errorf("rate limited (status 429): %s", string(body))
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("llm api error", "model", c.model, "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Error("llm response parse failed", "model", c.model, "error", err)
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		slog.Error("llm api returned error", "model", c.model, "message", parsed.Error.Message)
		return "", fmt.Errorf("api error: %s", parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from api")
	}

	return parsed.Choices[0].Message.Content, nil
}

// MockClient is a deterministic stand-in for development without a
// configured API key.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete always returns a well-formed, harmless response.
func (c *MockClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return "ACTION: explore\nREASON: scouting the area", nil
}
