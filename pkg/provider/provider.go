// Package provider abstracts the language-model backend used to
// generate practice questions. Each adapter handles its own backend
// protocol (Ollama native API, OpenAI-compatible Chat Completions)
// internally and returns the model's raw text output; all parsing and
// validation of that output belongs to pkg/generator.
package provider

import "context"

// GenerationRequest is a single text-generation call. JSONOnly asks the
// backend for machine-parseable JSON output where the protocol supports
// constraining the format; backends without that capability ignore it.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSONOnly    bool
}

// Provider is a text-generation backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string

	// Generate performs one inference call and returns the raw model
	// output. Transport and backend failures are returned as errors;
	// no retrying happens at this level.
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// Available reports whether the backend is reachable and the
	// configured model is served. Used by the health endpoint.
	Available(ctx context.Context) error

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
