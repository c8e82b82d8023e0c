// Package sandbox provides namespace-scoped, resource-bounded SQL
// execution on a single shared PostgreSQL instance.
//
// Each practice session gets its own schema ("namespace"). Unqualified
// table names in learner SQL resolve inside that schema via search_path,
// so learner DDL and DML stay contained without per-statement analysis.
// Namespaces are recorded in a registry table so that schemas orphaned
// by a process crash can be swept later (see Reap).
//
// Resource limits (statement timeout, returned-row cap) are enforced
// database-side per call. SQL failures — including timeouts — are
// reported as non-success ExecutionResults, never as Go errors; the
// error return is reserved for the database being unreachable.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// Sandbox is the namespace-scoped execution surface. The session
// manager and question generator depend on this interface so tests can
// substitute a fake.
type Sandbox interface {
	// CreateNamespace allocates a fresh, empty, uniquely named schema
	// and registers it. Fails with a provisioning error if the name
	// collides or the database is unreachable.
	CreateNamespace(ctx context.Context) (string, error)

	// Execute runs a single SQL statement with unqualified table names
	// resolving in the given namespace (or the default schema when
	// namespace is empty). SQL errors and timeouts come back as
	// Success=false results.
	Execute(ctx context.Context, namespace, stmt string, opts ExecOptions) (*api.ExecutionResult, error)

	// ExecuteScript runs a multi-statement SQL script (question setup:
	// CREATE TABLE + INSERT) inside the namespace. No rows are
	// returned; failures come back as Success=false results.
	ExecuteScript(ctx context.Context, namespace, script string) (*api.ExecutionResult, error)

	// DestroyNamespace drops the schema and everything in it and
	// removes the registry entry. Destroying an absent namespace is a
	// no-op, tolerating races with the reaper.
	DestroyNamespace(ctx context.Context, namespace string) error
}

// Postgres is the pgx-backed Sandbox implementation. All sessions share
// one connection pool; per-call settings use SET LOCAL inside a
// transaction so search_path and statement_timeout never leak across
// pooled connections.
type Postgres struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// Ensure Postgres implements Sandbox at compile time.
var _ Sandbox = (*Postgres)(nil)

// New creates a Postgres sandbox with the given configuration. If
// MigrateOnStart is set, the namespace registry schema is applied.
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Postgres{pool: pool, cfg: cfg, logger: cfg.Logger}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Ping reports database reachability. Used by the health endpoint.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// CreateNamespace allocates and registers a fresh schema. Schema
// creation and registry insert commit together, so every schema this
// service creates is always visible to the orphan sweep.
func (s *Postgres) CreateNamespace(ctx context.Context) (string, error) {
	name := api.NewNamespace()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", api.NewProvisioningError(fmt.Sprintf("beginning transaction: %s", err))
	}
	defer tx.Rollback(ctx)

	// No IF NOT EXISTS: a name collision must fail, not silently adopt
	// another session's schema.
	if _, err := tx.Exec(ctx, "CREATE SCHEMA "+name); err != nil {
		return "", api.NewProvisioningError(fmt.Sprintf("creating schema %s: %s", name, err))
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO sandbox_namespaces (name) VALUES ($1)", name); err != nil {
		return "", api.NewProvisioningError(fmt.Sprintf("registering namespace %s: %s", name, err))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", api.NewProvisioningError(fmt.Sprintf("committing namespace %s: %s", name, err))
	}

	s.logger.Debug("namespace created", "namespace", name)
	return name, nil
}

// DestroyNamespace drops the schema and its registry entry. Idempotent:
// a namespace that is already gone is treated as success.
func (s *Postgres) DestroyNamespace(ctx context.Context, namespace string) error {
	if !api.ValidateNamespace(namespace) {
		return fmt.Errorf("invalid namespace %q", namespace)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP SCHEMA IF EXISTS "+namespace+" CASCADE"); err != nil {
		return fmt.Errorf("dropping schema %s: %w", namespace, err)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM sandbox_namespaces WHERE name = $1", namespace); err != nil {
		return fmt.Errorf("unregistering namespace %s: %w", namespace, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing destroy of %s: %w", namespace, err)
	}

	s.logger.Debug("namespace destroyed", "namespace", namespace)
	return nil
}

// isTimeout reports whether err is the Postgres query_canceled error
// raised when statement_timeout fires.
func isTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "57014"
}
