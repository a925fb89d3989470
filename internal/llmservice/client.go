// Package llmservice holds the one completion client the summarizer talks
// through. The client is constructed once at startup and injected, never
// re-derived per call.
package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

type Client struct {
	llm     llms.Model
	timeout time.Duration
}

func New(cfg config.LLMConfig, timeout time.Duration) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{llm: llm, timeout: timeout}, nil
}

// Complete issues one single-turn completion. The timeout bounds the call;
// failures are surfaced, never retried.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrSummarizerProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", models.ErrSummarizerProvider)
	}
	return resp.Choices[0].Content, nil
}
