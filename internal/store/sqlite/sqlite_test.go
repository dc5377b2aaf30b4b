package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchemaIdempotently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	err = s2.QueryRow(context.Background(), "SELECT COUNT(id) FROM events").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO agents (project_key, name, registered_at, last_active_at)
			VALUES (?, ?, ?, ?)`, "proj", "agent-a", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z")
		return err
	})
	require.NoError(t, err)

	var name string
	err = s.QueryRow(ctx, "SELECT name FROM agents WHERE project_key = ?", "proj").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "agent-a", name)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO agents (project_key, name, registered_at, last_active_at)
			VALUES (?, ?, ?, ?)`, "proj", "agent-b", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z"); err != nil {
			return err
		}
		return assertErr
	})
	require.Error(t, err)

	var count int
	require.NoError(t, s.QueryRow(ctx, "SELECT COUNT(name) FROM agents WHERE project_key = ?", "proj").Scan(&count))
	assert.Equal(t, 0, count)
}

var assertErr = assertError{}

type assertError struct{}

func (assertError) Error() string { return "forced rollback" }

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)

	c := []float32{0, 1, 0}
	assert.InDelta(t, 0.0, CosineSimilarity(a, c), 1e-9)
}

func TestEncodeDecodeVector_RoundTrips(t *testing.T) {
	v := []float32{0.5, -0.25, 1.75}
	assert.Equal(t, v, DecodeVector(EncodeVector(v)))
}
