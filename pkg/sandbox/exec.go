package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/debug"
)

// Execute runs a single SQL statement scoped to the namespace. The
// statement runs inside its own transaction so SET LOCAL search_path
// and statement_timeout cannot leak into other pooled calls; successful
// DML/DDL side effects are committed, which is intentional (learner
// statements may legitimately mutate their sandbox).
func (s *Postgres) Execute(ctx context.Context, namespace, stmt string, opts ExecOptions) (*api.ExecutionResult, error) {
	limit, timeout := s.limits(opts)

	if namespace != "" && !api.ValidateNamespace(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}
	debug.Trace("sandbox", "executing statement",
		"namespace", namespace, "sql", debug.Truncate(stmt, 500))

	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyLocalSettings(ctx, tx, namespace, timeout); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return failedResult(err, timeout, start), nil
	}

	columns, data, total, err := collectRows(rows, limit)
	if err != nil {
		return failedResult(err, timeout, start), nil
	}

	if err := tx.Commit(ctx); err != nil {
		return failedResult(err, timeout, start), nil
	}

	return &api.ExecutionResult{
		Success:    true,
		Columns:    columns,
		Rows:       data,
		RowCount:   total,
		Truncated:  total > limit,
		DurationMS: durationMS(start),
	}, nil
}

// ExecuteScript runs a multi-statement script (setup SQL) inside the
// namespace. Statements execute over the simple query protocol, which
// permits several statements in one string; all of them share one
// transaction, so a failing script leaves nothing half-applied.
func (s *Postgres) ExecuteScript(ctx context.Context, namespace, script string) (*api.ExecutionResult, error) {
	if namespace != "" && !api.ValidateNamespace(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}

	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyLocalSettings(ctx, tx, namespace, s.cfg.StatementTimeout); err != nil {
		return nil, err
	}

	// Exec without arguments uses the simple protocol, which is what
	// allows the multi-statement script.
	if _, err := tx.Exec(ctx, script); err != nil {
		return failedResult(err, s.cfg.StatementTimeout, start), nil
	}

	if err := tx.Commit(ctx); err != nil {
		return failedResult(err, s.cfg.StatementTimeout, start), nil
	}

	return &api.ExecutionResult{
		Success:    true,
		DurationMS: durationMS(start),
	}, nil
}

func (s *Postgres) limits(opts ExecOptions) (limit int, timeout time.Duration) {
	limit = opts.RowLimit
	if limit <= 0 {
		limit = s.cfg.MaxRows
	}
	timeout = opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.StatementTimeout
	}
	return limit, timeout
}

// applyLocalSettings scopes search_path and statement_timeout to the
// transaction. The namespace has already been validated against the
// generated-identifier pattern, so interpolating it is safe.
func applyLocalSettings(ctx context.Context, tx pgx.Tx, namespace string, timeout time.Duration) error {
	if namespace != "" {
		if _, err := tx.Exec(ctx, "SET LOCAL search_path TO "+namespace+", public"); err != nil {
			return fmt.Errorf("setting search_path: %w", err)
		}
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())); err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}
	return nil
}

// collectRows drains the result set, materializing at most limit rows
// while still counting the rest so RowCount stays exact under
// truncation. The statement timeout bounds the scan.
func collectRows(rows pgx.Rows, limit int) (columns []string, data [][]any, total int, err error) {
	defer rows.Close()

	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	for rows.Next() {
		total++
		if total > limit {
			continue
		}
		values, err := rows.Values()
		if err != nil {
			return nil, nil, 0, err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = serializeValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, 0, err
	}

	return columns, data, total, nil
}

// failedResult wraps a SQL-level failure as a non-success result.
// Timeouts get a stable message instead of the raw query_canceled text
// so clients can tell "your query is too slow" from "your query is
// wrong".
func failedResult(err error, timeout time.Duration, start time.Time) *api.ExecutionResult {
	msg := err.Error()
	timedOut := isTimeout(err)
	if timedOut {
		msg = fmt.Sprintf("statement timed out after %s", timeout)
	}
	return &api.ExecutionResult{
		Success:    false,
		TimedOut:   timedOut,
		Error:      msg,
		DurationMS: durationMS(start),
	}
}

func durationMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
