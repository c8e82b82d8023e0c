package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// Reap drops practice schemas that no live session can own anymore:
// registered namespaces older than maxAge (left behind by a process
// crash; the in-process session reaper handles them while the service
// runs) plus any unregistered practice_% schema, which can only exist
// if someone created it outside this service. Returns the names of the
// schemas dropped.
//
// Used by the `sqlgym reap` one-shot command and safe to run while a
// server is up: live sessions' namespaces are registered and younger
// than any sensible maxAge.
func (s *Postgres) Reap(ctx context.Context, maxAge time.Duration) ([]string, error) {
	var dropped []string

	rows, err := s.pool.Query(ctx,
		"SELECT name FROM sandbox_namespaces WHERE created_at < NOW() - $1::interval",
		maxAge.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired namespaces: %w", err)
	}
	expired, err := collectNames(rows)
	if err != nil {
		return nil, fmt.Errorf("reading expired namespaces: %w", err)
	}

	for _, name := range expired {
		if err := s.DestroyNamespace(ctx, name); err != nil {
			return dropped, err
		}
		s.logger.Info("reaped expired namespace", "namespace", name)
		dropped = append(dropped, name)
	}

	// Schemas matching our naming pattern but missing from the registry
	// were not created through this service; sweep them too.
	rows, err = s.pool.Query(ctx, `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name LIKE 'practice\_%'
		  AND schema_name NOT IN (SELECT name FROM sandbox_namespaces)
	`)
	if err != nil {
		return dropped, fmt.Errorf("listing unregistered schemas: %w", err)
	}
	orphans, err := collectNames(rows)
	if err != nil {
		return dropped, fmt.Errorf("reading unregistered schemas: %w", err)
	}

	for _, name := range orphans {
		if !api.ValidateNamespace(name) {
			continue
		}
		if err := s.DestroyNamespace(ctx, name); err != nil {
			return dropped, err
		}
		s.logger.Info("reaped unregistered schema", "namespace", name)
		dropped = append(dropped, name)
	}

	return dropped, nil
}

func collectNames(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
