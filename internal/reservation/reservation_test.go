package reservation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/projector"
	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, eventlog.New(s, projector.New()))
}

func TestReserve_GrantsNonConflicting(t *testing.T) {
	m := newTestManager(t)
	result, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-1", Paths: []string{"src/a.go", "src/b.go"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.go", "src/b.go"}, result.Granted)
	assert.Empty(t, result.Conflicts)
}

func TestReserve_ConflictsAreAllOrNothing(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-1", Paths: []string{"src/a.go"}, Exclusive: true,
	})
	require.NoError(t, err)

	result, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-2", Paths: []string{"src/a.go", "src/c.go"}, Exclusive: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Granted, "no path should be granted when any conflicts")
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "worker-1", result.Conflicts[0].Holder)

	active, err := m.ActiveFor(context.Background(), "p")
	require.NoError(t, err)
	assert.Len(t, active, 1, "the losing reserve must not have written src/c.go")
}

func TestReserve_GlobIntersection(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-1", Paths: []string{"src/**/util.go"}, Exclusive: true,
	})
	require.NoError(t, err)

	result, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-2", Paths: []string{"src/pkg/foo/util.go"}, Exclusive: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Granted)
	require.Len(t, result.Conflicts, 1)
}

func TestRelease_WithNoArgsReleasesAll(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-1", Paths: []string{"a.go", "b.go"},
	})
	require.NoError(t, err)

	err = m.Release(context.Background(), ReleaseInput{ProjectKey: "p", Agent: "worker-1"})
	require.NoError(t, err)

	active, err := m.ActiveFor(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSharedReservations_DoNotConflict(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-1", Paths: []string{"a.go"}, Exclusive: false,
	})
	require.NoError(t, err)

	result, err := m.Reserve(context.Background(), ReserveInput{
		ProjectKey: "p", Agent: "worker-2", Paths: []string{"a.go"}, Exclusive: false,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, result.Granted)
}
