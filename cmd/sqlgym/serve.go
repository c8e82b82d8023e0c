package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/config"
	"github.com/sqlgym/sqlgym/pkg/debug"
	"github.com/sqlgym/sqlgym/pkg/generator"
	"github.com/sqlgym/sqlgym/pkg/provider"
	"github.com/sqlgym/sqlgym/pkg/provider/ollama"
	"github.com/sqlgym/sqlgym/pkg/provider/openai"
	"github.com/sqlgym/sqlgym/pkg/ratelimit"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
	"github.com/sqlgym/sqlgym/pkg/session"
	"github.com/sqlgym/sqlgym/pkg/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the practice engine HTTP server",
	Long: `Start the HTTP server serving the practice API.

Examples:
  sqlgym serve
  sqlgym serve --config /etc/sqlgym/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Sets the process-wide slog default from SQLGYM_LOG_LEVEL and
	// enables debug categories from SQLGYM_DEBUG.
	debug.Init("", "")
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sb, err := sandbox.New(ctx, sandbox.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MigrateOnStart:   cfg.Database.MigrateOnStart,
		StatementTimeout: cfg.Sandbox.StatementTimeout,
		MaxRows:          cfg.Sandbox.MaxRows,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("connecting sandbox database: %w", err)
	}
	defer sb.Close()

	prov, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()
	logger.Info("model backend configured",
		slog.String("provider", prov.Name()),
		slog.String("model", cfg.Generator.Model))

	gen := generator.New(prov, sb, generator.Config{
		Temperature:  cfg.Generator.Temperature,
		MaxTokens:    cfg.Generator.MaxOutputTokens,
		MaxRetries:   cfg.Generator.MaxRetries,
		RetryBackoff: cfg.Generator.RetryBackoff,
		MaxRows:      cfg.Generator.MaxRowsPerTable,
		Logger:       logger,
	})

	sessions := session.NewManager(gen, sb, session.Config{
		MaxIdleAge:   cfg.Session.MaxIdleAge,
		ReapInterval: cfg.Session.ReapInterval,
		Logger:       logger,
	})
	go sessions.Run(ctx)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Limit > 0 {
		limiter = ratelimit.NewSlidingWindowLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	handler := transport.NewHandler(transport.HandlerConfig{
		Sessions: sessions,
		Executor: sb,
		DB:       sb,
		Backend:  prov,
		Limiter:  limiter,
		Validate: api.DefaultValidationConfig(),
		Logger:   logger,
	})
	router := transport.NewRouter(handler, transport.RouterConfig{
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		Logger:         logger,
	})

	srv := transport.NewServer(router, transport.ServerConfig{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})
	return srv.Run(ctx)
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Generator.Provider {
	case "", "ollama":
		return ollama.New(ollama.Config{
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
			Timeout: cfg.Generator.RequestTimeout,
		})
	case "openai":
		return openai.New(openai.Config{
			BaseURL: cfg.Generator.BaseURL,
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			Timeout: cfg.Generator.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (want ollama or openai)", cfg.Generator.Provider)
	}
}
