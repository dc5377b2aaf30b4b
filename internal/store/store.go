// Package store defines the contract every swarmhive component builds on
// (spec §4.1): schema creation, transactional execution, and typed query
// helpers over one embedded SQL engine file shared by every process that
// coordinates a project.
package store

import (
	"context"
	"database/sql"
)

// Execer is satisfied by both *sql.DB and *sql.Tx, letting helper queries
// run either standalone or as part of a caller-managed transaction
// (grounded on the teacher's storage/sqlite execer interface).
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the contract components are built against. Implementations own
// one on-disk database file; multiple processes may open the same file
// concurrently (spec §4.1, §5).
type Store interface {
	// Exec runs a single statement outside any caller-managed transaction.
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Query runs a single statement outside any caller-managed transaction.
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// QueryRow runs a single row query outside any caller-managed transaction.
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row

	// Transaction runs fn inside a single SQL transaction, committing iff fn
	// returns nil and rolling back otherwise. Lock contention is retried
	// with backoff (spec §4.1 failure semantics).
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Close releases the underlying database handle.
	Close() error
}
