// Package ollama implements provider.Provider against the native Ollama
// HTTP API (/api/generate, /api/tags).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sqlgym/sqlgym/pkg/provider"
)

// Config holds connection settings for an Ollama backend.
type Config struct {
	// BaseURL is the Ollama server address (e.g., "http://localhost:11434").
	BaseURL string

	// Model is the model tag to generate with (e.g., "qwen3:4b").
	Model string

	// Timeout bounds each generation request (default: 5 minutes;
	// small local models can be slow to fill a long JSON payload).
	Timeout time.Duration
}

// Client is an Ollama-backed provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Ollama provider.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "ollama" }

// generateRequest is the /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the subset of the /api/generate response we read.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate performs one non-streaming generation call.
func (c *Client) Generate(ctx context.Context, req provider.GenerationRequest) (string, error) {
	genReq := generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	// format=json makes the model emit bare JSON, which also suppresses
	// the "thinking" preamble some models produce.
	if req.JSONOnly {
		genReq.Format = "json"
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %d", httpResp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("parsing ollama response: %w", err)
	}

	return genResp.Response, nil
}

// tagsResponse is the subset of the /api/tags response we read.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Available checks that the server responds and the configured model is
// in its local model list.
func (c *Client) Available(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating tags request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling ollama: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", httpResp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("parsing tags response: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == c.model || strings.HasPrefix(m.Name, c.model+":") {
			return nil
		}
	}
	return fmt.Errorf("model %q not available on ollama server", c.model)
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
