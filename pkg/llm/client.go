// Package llm is a minimal chat-completions client used for decision reason
// decoration and interaction scoring. A primary provider is tried first;
// any transport error or non-200 response fails over to the fallback
// provider with the same wire contract.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/studymate/orchestrator/pkg/config"
)

// ErrNoProviders is returned when no provider is configured with an API key.
var ErrNoProviders = errors.New("no llm provider configured")

// Client calls OpenAI-compatible chat-completions endpoints.
type Client struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient builds a client over the configured providers. The per-call
// deadline comes from the caller's context.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{cfg: cfg, client: &http.Client{}}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the model's
// reply text.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	type provider struct {
		url, key, model string
	}
	providers := []provider{
		{c.cfg.PrimaryURL, c.cfg.PrimaryKey, c.cfg.PrimaryModel},
		{c.cfg.FallbackURL, c.cfg.FallbackKey, c.cfg.FallbackModel},
	}

	var lastErr error = ErrNoProviders
	for _, p := range providers {
		if p.key == "" || p.url == "" {
			continue
		}
		text, err := c.complete(ctx, p.url, p.key, p.model, prompt, temperature, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		slog.Warn("LLM provider failed, trying next", "url", p.url, "error", err)
	}
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, url, key, model, prompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
