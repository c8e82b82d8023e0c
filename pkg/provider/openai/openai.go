// Package openai implements provider.Provider against any
// OpenAI-compatible Chat Completions backend (OpenAI itself, but also
// Ollama's and vLLM's compatibility endpoints) via the official SDK.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sqlgym/sqlgym/pkg/provider"
)

// Config holds connection settings for an OpenAI-compatible backend.
type Config struct {
	// BaseURL overrides the API endpoint. Empty means api.openai.com.
	BaseURL string

	// APIKey authenticates requests. Required by OpenAI proper; local
	// compatibility servers usually accept anything.
	APIKey string

	// Model is the model name sent with every request.
	Model string

	// Timeout bounds each generation request (default: 5 minutes).
	Timeout time.Duration
}

// Client is an OpenAI-compatible provider.
type Client struct {
	client *openai.Client
	model  string
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new OpenAI-compatible provider.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
		// Retrying with backoff is the generator's job; one transport
		// attempt per Generate call keeps the retry accounting in one
		// place.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client, model: cfg.Model}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "openai" }

// Generate performs one non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, req provider.GenerationRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// Available checks that the backend serves the configured model.
func (c *Client) Available(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	for _, m := range page.Data {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not available on backend", c.model)
}

// Close releases client resources. The SDK manages its own connections,
// so there is nothing to release.
func (c *Client) Close() error { return nil }
