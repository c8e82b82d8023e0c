package sandbox

import (
	"log/slog"
	"time"
)

// Config holds connection settings and default resource limits for the
// shared sandbox database.
type Config struct {
	// DSN is the PostgreSQL connection string. The connection should use
	// a restricted role in production; the sandbox only provides
	// schema-level isolation.
	DSN string

	// MaxConns is the maximum number of connections in the pool (default: 10).
	MaxConns int32

	// MinConns is the minimum number of idle connections maintained (default: 2).
	MinConns int32

	// StatementTimeout is the default per-statement execution bound
	// (default: 30s). ExecOptions can lower it per call.
	StatementTimeout time.Duration

	// MaxRows is the default cap on returned rows (default: 1000).
	MaxRows int

	// MigrateOnStart applies the namespace registry schema at startup.
	MigrateOnStart bool

	// Logger receives sandbox lifecycle events (default: slog.Default()).
	Logger *slog.Logger
}

// defaults applies default values for unset configuration fields.
func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = 30 * time.Second
	}
	if c.MaxRows == 0 {
		c.MaxRows = 1000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ExecOptions override the sandbox defaults for one execution. Zero
// values fall back to the configured defaults.
type ExecOptions struct {
	// RowLimit caps the number of rows materialized in the result.
	RowLimit int

	// Timeout bounds the statement's execution time database-side.
	Timeout time.Duration
}
