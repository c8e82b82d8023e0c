// Package config provides unified configuration for the sqlgym service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SQLGYM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the sqlgym service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Session       SessionConfig       `yaml:"session"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// DatabaseConfig holds settings for the shared Postgres instance that
// hosts all practice sandboxes.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`      // required
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MinConns       int32  `yaml:"min_conns"`        // default: 2
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// SandboxConfig holds resource limits applied to every SQL execution.
type SandboxConfig struct {
	StatementTimeout time.Duration `yaml:"statement_timeout"` // default: 30s
	MaxRows          int           `yaml:"max_rows"`          // default: 1000
}

// GeneratorConfig holds question generation and model backend settings.
type GeneratorConfig struct {
	Provider        string        `yaml:"provider"`          // "ollama" or "openai", default: "ollama"
	BaseURL         string        `yaml:"base_url"`          // default: http://localhost:11434
	Model           string        `yaml:"model"`             // default: qwen3:4b
	APIKey          string        `yaml:"api_key"`           // optional, openai provider
	APIKeyFile      string        `yaml:"api_key_file"`      // _file variant for api_key
	Temperature     float64       `yaml:"temperature"`       // default: 0.7
	MaxOutputTokens int           `yaml:"max_output_tokens"` // default: 768
	RequestTimeout  time.Duration `yaml:"request_timeout"`   // default: 5m
	MaxRetries      int           `yaml:"max_retries"`       // transport retries, default: 2
	RetryBackoff    time.Duration `yaml:"retry_backoff"`     // default: 500ms
	MaxRowsPerTable int           `yaml:"max_rows_per_table"` // default: 100
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	MaxIdleAge   time.Duration `yaml:"max_idle_age"`  // default: 2h
	ReapInterval time.Duration `yaml:"reap_interval"` // default: 5m
}

// RateLimitConfig holds generation rate limiting settings. Limit zero
// disables limiting.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`  // default: 3
	Window time.Duration `yaml:"window"` // default: 1m
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Database: DatabaseConfig{
			MinConns:       2,
			MaxConns:       10,
			MigrateOnStart: true,
		},
		Sandbox: SandboxConfig{
			StatementTimeout: 30 * time.Second,
			MaxRows:          1000,
		},
		Generator: GeneratorConfig{
			Provider:        "ollama",
			BaseURL:         "http://localhost:11434",
			Model:           "qwen3:4b",
			Temperature:     0.7,
			MaxOutputTokens: 768,
			RequestTimeout:  5 * time.Minute,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
			MaxRowsPerTable: 100,
		},
		Session: SessionConfig{
			MaxIdleAge:   2 * time.Hour,
			ReapInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Limit:  3,
			Window: time.Minute,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
