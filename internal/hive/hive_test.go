package hive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/jsonl"
	"github.com/swarmhive/swarmhive/internal/projector"
	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

func newTestHive(t *testing.T) *Hive {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, eventlog.New(s, projector.New()), "acme-widgets")
}

func TestCreateCell_ThenGet(t *testing.T) {
	h := newTestHive(t)
	c, err := h.CreateCell(context.Background(), CreateCellInput{
		Title: "add retry backoff", Type: types.CellTask, Priority: 1, CreatedBy: "agent-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, types.CellOpen, c.Status)

	got, err := h.GetCell(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "add retry backoff", got.Title)
}

func TestCreateCell_RejectsEmptyTitle(t *testing.T) {
	h := newTestHive(t)
	_, err := h.CreateCell(context.Background(), CreateCellInput{Type: types.CellTask})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrValidation))
}

func TestUpdateCell_ChangesTitle(t *testing.T) {
	h := newTestHive(t)
	c, err := h.CreateCell(context.Background(), CreateCellInput{Title: "first draft", Type: types.CellTask})
	require.NoError(t, err)

	updated, err := h.UpdateCell(context.Background(), c.ID, map[string]interface{}{"title": "second draft"})
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Title)
}

func TestChangeStatus_ClosingClearsBlockedCache(t *testing.T) {
	h := newTestHive(t)
	blocker, err := h.CreateCell(context.Background(), CreateCellInput{Title: "blocker", Type: types.CellTask})
	require.NoError(t, err)
	blocked, err := h.CreateCell(context.Background(), CreateCellInput{Title: "blocked", Type: types.CellTask})
	require.NoError(t, err)

	require.NoError(t, h.AddDependency(context.Background(), blocked.ID, blocker.ID, types.RelBlocks))

	isBlocked, err := h.IsBlocked(context.Background(), blocked.ID)
	require.NoError(t, err)
	assert.True(t, isBlocked)

	_, err = h.ChangeStatus(context.Background(), blocker.ID, types.CellClosed, "done")
	require.NoError(t, err)

	isBlocked, err = h.IsBlocked(context.Background(), blocked.ID)
	require.NoError(t, err)
	assert.False(t, isBlocked)
}

func TestAddDependency_RejectsCycle(t *testing.T) {
	h := newTestHive(t)
	a, err := h.CreateCell(context.Background(), CreateCellInput{Title: "a", Type: types.CellTask})
	require.NoError(t, err)
	b, err := h.CreateCell(context.Background(), CreateCellInput{Title: "b", Type: types.CellTask})
	require.NoError(t, err)

	require.NoError(t, h.AddDependency(context.Background(), a.ID, b.ID, types.RelBlocks))

	err = h.AddDependency(context.Background(), b.ID, a.ID, types.RelBlocks)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConflict))
}

func TestAddDependency_RejectsSelf(t *testing.T) {
	h := newTestHive(t)
	a, err := h.CreateCell(context.Background(), CreateCellInput{Title: "a", Type: types.CellTask})
	require.NoError(t, err)

	err = h.AddDependency(context.Background(), a.ID, a.ID, types.RelBlocks)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrValidation))
}

func TestCreateEpic_ReparentsSubtasks(t *testing.T) {
	h := newTestHive(t)
	result, err := h.CreateEpic(context.Background(), CreateEpicInput{
		Title: "ship the launch", CreatedBy: "agent-1",
		Subtasks: []CreateCellInput{
			{Title: "write docs", Type: types.CellTask},
			{Title: "cut release", Type: types.CellTask},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Epic.ID)
	require.Len(t, result.Subtasks, 2)

	for _, sub := range result.Subtasks {
		got, err := h.GetCell(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, result.Epic.ID, got.ParentID)
	}
}

func TestReadyWork_ExcludesBlockedAndClosed(t *testing.T) {
	h := newTestHive(t)
	blocker, err := h.CreateCell(context.Background(), CreateCellInput{Title: "blocker", Type: types.CellTask})
	require.NoError(t, err)
	blocked, err := h.CreateCell(context.Background(), CreateCellInput{Title: "blocked", Type: types.CellTask})
	require.NoError(t, err)
	free, err := h.CreateCell(context.Background(), CreateCellInput{Title: "free", Type: types.CellTask})
	require.NoError(t, err)

	require.NoError(t, h.AddDependency(context.Background(), blocked.ID, blocker.ID, types.RelBlocks))

	ready, err := h.ReadyWork(context.Background(), 10)
	require.NoError(t, err)
	var ids []string
	for _, c := range ready {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, blocker.ID)
	assert.Contains(t, ids, free.ID)
	assert.NotContains(t, ids, blocked.ID)
}

func TestResolve_AmbiguousSubstringReturnsRivals(t *testing.T) {
	h := newTestHive(t)
	_, err := h.CreateCell(context.Background(), CreateCellInput{Title: "one", Type: types.CellTask})
	require.NoError(t, err)
	_, err = h.CreateCell(context.Background(), CreateCellInput{Title: "two", Type: types.CellTask})
	require.NoError(t, err)

	_, err = h.Resolve(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConflict))
}

func TestExportImportJSONL_RoundTrip(t *testing.T) {
	h := newTestHive(t)
	c, err := h.CreateCell(context.Background(), CreateCellInput{
		Title: "round trip me", Type: types.CellTask, Priority: 2, Description: "desc",
	})
	require.NoError(t, err)

	rows, err := h.ExportJSONL(context.Background(), ExportOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, c.ID, rows[0].ID)

	result, err := h.ImportJSONL(context.Background(), ImportInput{Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
}

func TestImportJSONL_CreatesUnknownRows(t *testing.T) {
	h := newTestHive(t)
	result, err := h.ImportJSONL(context.Background(), ImportInput{
		Rows: []*jsonl.Row{{
			ID: "acme-widgets-aaaaaa-abc123", Title: "imported cell",
			Status: string(types.CellOpen), IssueType: string(types.CellTask),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	got, err := h.GetCell(context.Background(), "acme-widgets-aaaaaa-abc123")
	require.NoError(t, err)
	assert.Equal(t, "imported cell", got.Title)
}

func TestImportJSONL_DryRunWritesNothing(t *testing.T) {
	h := newTestHive(t)
	result, err := h.ImportJSONL(context.Background(), ImportInput{
		DryRun: true,
		Rows: []*jsonl.Row{{
			ID: "acme-widgets-bbbbbb-def456", Title: "dry run cell",
			Status: string(types.CellOpen), IssueType: string(types.CellTask),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	_, err = h.GetCell(context.Background(), "acme-widgets-bbbbbb-def456")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrNotFound))
}
