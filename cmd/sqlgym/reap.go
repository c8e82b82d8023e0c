package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlgym/sqlgym/pkg/config"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
)

var reapMaxAge time.Duration

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Drop practice schemas older than --max-age",
	Long: `Drop sandbox schemas left behind by crashed or restarted servers.

Registered namespaces older than --max-age are dropped, along with any
practice schema present in the database but missing from the registry.

Examples:
  sqlgym reap
  sqlgym reap --max-age 30m`,
	RunE: runReap,
}

func init() {
	reapCmd.Flags().DurationVar(&reapMaxAge, "max-age", 2*time.Hour, "Namespace age cutoff")
	rootCmd.AddCommand(reapCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx := cmd.Context()
	sb, err := sandbox.New(ctx, sandbox.Config{
		DSN:            cfg.Database.DSN,
		MaxConns:       cfg.Database.MaxConns,
		MinConns:       cfg.Database.MinConns,
		MigrateOnStart: cfg.Database.MigrateOnStart,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("connecting sandbox database: %w", err)
	}
	defer sb.Close()

	dropped, err := sb.Reap(ctx, reapMaxAge)
	if err != nil {
		return fmt.Errorf("reaping namespaces: %w", err)
	}

	for _, ns := range dropped {
		logger.Info("namespace dropped", slog.String("namespace", ns))
	}
	fmt.Printf("dropped %d namespace(s)\n", len(dropped))
	return nil
}
