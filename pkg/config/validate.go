package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.DSN == "" && c.Database.DSNFile == "" {
		errs = append(errs, fmt.Errorf("database.dsn or database.dsn_file is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Generator.Provider {
	case "ollama", "openai":
		// valid
	default:
		errs = append(errs, fmt.Errorf("generator.provider must be \"ollama\" or \"openai\", got %q", c.Generator.Provider))
	}

	if c.Generator.BaseURL == "" && c.Generator.Provider == "ollama" {
		errs = append(errs, fmt.Errorf("generator.base_url is required for the ollama provider"))
	}

	if c.Generator.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("generator.max_retries must be >= 0, got %d", c.Generator.MaxRetries))
	}

	if c.Generator.MaxRowsPerTable <= 0 {
		errs = append(errs, fmt.Errorf("generator.max_rows_per_table must be > 0, got %d", c.Generator.MaxRowsPerTable))
	}

	if c.Sandbox.StatementTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.statement_timeout must be > 0, got %v", c.Sandbox.StatementTimeout))
	}

	if c.Sandbox.MaxRows <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.max_rows must be > 0, got %d", c.Sandbox.MaxRows))
	}

	if c.Session.MaxIdleAge <= 0 {
		errs = append(errs, fmt.Errorf("session.max_idle_age must be > 0, got %v", c.Session.MaxIdleAge))
	}

	if c.Session.ReapInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.reap_interval must be > 0, got %v", c.Session.ReapInterval))
	}

	if c.RateLimit.Limit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.limit must be >= 0, got %d", c.RateLimit.Limit))
	}

	if c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.window must be > 0 when rate_limit.limit is set, got %v", c.RateLimit.Window))
	}

	return errors.Join(errs...)
}
