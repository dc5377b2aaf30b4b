// Package sqlite implements store.Store over modernc.org/sqlite, a pure-Go,
// CGO-free engine that supports WAL and concurrent multi-process access
// (spec §4.1).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
)

// SQLiteStore is the modernc.org/sqlite-backed store.Store implementation.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (and creates if absent) the database file at path, enables WAL
// mode and foreign keys, and creates the schema idempotently.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer connection avoids SQLITE_BUSY storms

	s := &SQLiteStore{db: db, path: path}
	if err := s.pragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) pragmas(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

var storeTracer = otel.Tracer("github.com/swarmhive/swarmhive/store")

var storeMetrics struct {
	retryCount metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/swarmhive/swarmhive/store")
	storeMetrics.retryCount, _ = m.Int64Counter("swarmhive.store.retry_count",
		metric.WithDescription("store operations retried due to lock contention"),
		metric.WithUnit("{retry}"),
	)
}

func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// withRetry retries op on SQLITE_BUSY-style lock contention with exponential
// backoff, up to config.GetStoreBackoffMaxAttempts attempts (spec §4.1).
func (s *SQLiteStore) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil && isBusyError(err) && attempts < config.GetStoreBackoffMaxAttempts() {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		storeMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

// Exec implements store.Store.
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := storeTracer.Start(ctx, "store.exec", trace.WithAttributes(
		attribute.String("db.operation", "exec"),
		attribute.String("db.statement", spanSQL(query)),
	))
	var result sql.Result
	err := s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	endSpan(span, err)
	return result, wrapErr("Store.Exec", err)
}

// Query implements store.Store.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, span := storeTracer.Start(ctx, "store.query", trace.WithAttributes(
		attribute.String("db.operation", "query"),
		attribute.String("db.statement", spanSQL(query)),
	))
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	endSpan(span, err)
	return rows, wrapErr("Store.Query", err)
}

// QueryRow implements store.Store.
func (s *SQLiteStore) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// Transaction implements store.Store. Event append + projection update run
// inside the same transaction (spec §4.1, §4.2).
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, span := storeTracer.Start(ctx, "store.transaction")
	err := s.withRetry(ctx, func() error {
		tx, beginErr := s.db.BeginTx(ctx, nil)
		if beginErr != nil {
			return beginErr
		}
		if fnErr := fn(tx); fnErr != nil {
			_ = tx.Rollback()
			if isBusyError(fnErr) {
				return fnErr
			}
			return backoff.Permanent(fnErr)
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return commitErr
		}
		return nil
	})
	endSpan(span, err)
	if err != nil {
		var op *backoff.PermanentError
		if errors.As(err, &op) {
			return op.Err
		}
		return wrapErr("Store.Transaction", err)
	}
	return nil
}

// Close implements store.Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for components that need driver-specific
// behavior (e.g. bulk checkpoint requests after JSONL import).
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Checkpoint requests a WAL checkpoint, recommended after bulk writes
// (spec §4.1).
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return wrapErr("Store.Checkpoint", err)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(op, errs.ErrNotFound, err)
	}
	return errs.Wrap(op, errs.ErrIO, err)
}
