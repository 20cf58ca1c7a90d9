// Package llm summarizes text with Claude.
package llm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

//go:embed system_prompt.txt
var systemPrompt string

// ErrRateLimited is returned when Anthropic answers with a 429.
var ErrRateLimited = errors.New("rate limit hit")

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string // Overrides the API host, for tests
}

// Client implements [quantumwatch.Summarizer] over the Messages API.
type Client struct {
	claude    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ quantumwatch.Summarizer = (*Client)(nil)

func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// The pipeline owns retries: a failed item is picked up next run
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &Client{
		claude:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Summarize sends prompt as a single user message and returns the text of the reply.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := c.claude.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{{
			Text: systemPrompt,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		slog.WarnContext(ctx, "anthropic rate limit hit", "model", c.model)
		return "", fmt.Errorf("%w: %w", ErrRateLimited, quantumwatch.ErrUpstream)
	}
	if err != nil {
		return "", fmt.Errorf("error calling claude: %w: %w", quantumwatch.ErrUpstream, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(text.String()), nil
}
