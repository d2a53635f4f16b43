// Package aiclient calls a hosted text-generation model.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("aiclient: no API key configured")

const apiVersion = "2023-06-01"

// Prompt is a system instruction plus the user message.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Client calls the Messages API of the configured provider.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate returns the model's text for p.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	if c.APIKey == "" {
		return "", ErrDisabled
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 1024
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     c.Model,
		MaxTokens: p.MaxTokens,
		System:    p.System,
		Messages:  []message{{Role: "user", Content: p.User}},
	})
	if err != nil {
		return "", fmt.Errorf("aiclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("aiclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("aiclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out messagesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("aiclient: decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		if out.Error != nil {
			return "", fmt.Errorf("aiclient: %s (%d): %s", out.Error.Type, resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("aiclient: status %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("aiclient: empty completion")
	}
	return text, nil
}
