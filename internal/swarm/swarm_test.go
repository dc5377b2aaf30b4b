package swarm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/mailbox"
	"github.com/swarmhive/swarmhive/internal/projector"
	"github.com/swarmhive/swarmhive/internal/reservation"
	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

const testProject = "acme-widgets"

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	log := eventlog.New(s, projector.New())
	hv := hive.New(s, log, testProject)
	rm := reservation.New(s, log)
	mb := mailbox.New(s, log)
	return New(s, log, hv, rm, mb, testProject)
}

func mustCreateCell(t *testing.T, hv *hive.Hive, title string) types.Cell {
	t.Helper()
	c, err := hv.CreateCell(context.Background(), hive.CreateCellInput{
		Title: title, Type: types.CellTask, CreatedBy: "coordinator",
	})
	require.NoError(t, err)
	return c
}

func TestValidateDecomposition_AcceptsValidPlan(t *testing.T) {
	c := newTestCoordinator(t)
	result := c.ValidateDecomposition(`{"subtasks": [
		{"title": "write handler", "files": ["a.go"], "dependencies": []},
		{"title": "write tests", "files": ["a_test.go"], "dependencies": [0]}
	]}`)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Subtasks, 2)
}

func TestValidateDecomposition_RejectsDuplicateFile(t *testing.T) {
	c := newTestCoordinator(t)
	result := c.ValidateDecomposition(`{"subtasks": [
		{"title": "a", "files": ["shared.go"], "dependencies": []},
		{"title": "b", "files": ["shared.go"], "dependencies": []}
	]}`)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateDecomposition_RejectsForwardDependency(t *testing.T) {
	c := newTestCoordinator(t)
	result := c.ValidateDecomposition(`{"subtasks": [
		{"title": "a", "files": ["a.go"], "dependencies": [1]},
		{"title": "b", "files": ["b.go"], "dependencies": []}
	]}`)
	assert.False(t, result.Valid)
}

func TestValidateDecomposition_RejectsSingleSubtask(t *testing.T) {
	c := newTestCoordinator(t)
	result := c.ValidateDecomposition(`{"subtasks": [{"title": "only one", "files": []}]}`)
	assert.False(t, result.Valid)
}

func TestSelectStrategy_KeywordMatch(t *testing.T) {
	strategy, confidence, alternatives := SelectStrategy("rename the file and move the module directory")
	assert.Equal(t, StrategyFileBased, strategy)
	assert.Greater(t, confidence, 0.0)
	assert.Len(t, alternatives, 2)
}

func TestSelectStrategy_NoKeywordsFallsBackToPriorityOrder(t *testing.T) {
	strategy, confidence, _ := SelectStrategy("")
	assert.Equal(t, StrategyFileBased, strategy)
	assert.Equal(t, 0.0, confidence)
}

func TestSpawnSubtask_ReservesFilesAndBuildsPrompt(t *testing.T) {
	c := newTestCoordinator(t)
	cell := mustCreateCell(t, c.hv, "write handler")

	contract, err := c.SpawnSubtask(context.Background(), SpawnSubtaskInput{
		BeadID: cell.ID, EpicID: "epic-1", Title: "write handler",
		Files: []string{"handler.go"}, Agent: "worker-1",
	})
	require.NoError(t, err)
	assert.Contains(t, contract.Prompt, "worker-1")
	assert.Contains(t, contract.Prompt, cell.ID)
}

func TestSpawnSubtask_ConflictPreventsSpawn(t *testing.T) {
	c := newTestCoordinator(t)
	cellA := mustCreateCell(t, c.hv, "task a")
	cellB := mustCreateCell(t, c.hv, "task b")

	_, err := c.SpawnSubtask(context.Background(), SpawnSubtaskInput{
		BeadID: cellA.ID, EpicID: "epic-1", Title: "task a",
		Files: []string{"shared.go"}, Agent: "worker-1",
	})
	require.NoError(t, err)

	_, err = c.SpawnSubtask(context.Background(), SpawnSubtaskInput{
		BeadID: cellB.ID, EpicID: "epic-1", Title: "task b",
		Files: []string{"shared.go"}, Agent: "worker-2",
	})
	require.Error(t, err)
}

func TestReviewFeedback_ApprovedLeavesCellForComplete(t *testing.T) {
	c := newTestCoordinator(t)
	cell := mustCreateCell(t, c.hv, "work")

	_, err := c.ReviewBegin(context.Background(), cell.ID, "worker-1")
	require.NoError(t, err)

	outcome, err := c.ReviewFeedback(context.Background(), ReviewFeedbackInput{
		BeadID: cell.ID, WorkerID: "worker-1", Status: ReviewApproved, Summary: "looks good",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Blocked)
}

func TestReviewFeedback_ThirdStrikeBlocks(t *testing.T) {
	c := newTestCoordinator(t)
	cell := mustCreateCell(t, c.hv, "flaky work")

	for i := 0; i < 3; i++ {
		attempt, err := c.ReviewBegin(context.Background(), cell.ID, "worker-1")
		require.NoError(t, err)
		assert.Equal(t, i+1, attempt)

		outcome, err := c.ReviewFeedback(context.Background(), ReviewFeedbackInput{
			BeadID: cell.ID, WorkerID: "worker-1", Status: ReviewNeedsChanges,
			Summary: "not quite", Issues: []string{"missing test"},
		})
		require.NoError(t, err)
		if i < 2 {
			assert.False(t, outcome.Blocked)
			assert.Equal(t, types.CellOpen, outcome.Status)
		} else {
			assert.True(t, outcome.Blocked)
			assert.Equal(t, types.CellBlocked, outcome.Status)
		}
	}

	got, err := c.hv.GetCell(context.Background(), cell.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CellBlocked, got.Status)
}

func TestComplete_ClosesCellAndReleasesReservations(t *testing.T) {
	c := newTestCoordinator(t)
	cell := mustCreateCell(t, c.hv, "finish me")

	_, err := c.SpawnSubtask(context.Background(), SpawnSubtaskInput{
		BeadID: cell.ID, EpicID: "epic-1", Title: "finish me",
		Files: []string{"done.go"}, Agent: "worker-1",
	})
	require.NoError(t, err)

	result, err := c.Complete(context.Background(), CompleteInput{
		BeadID: cell.ID, Agent: "worker-1", Summary: "shipped", FilesTouched: []string{"done.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Outcome)
	assert.Equal(t, types.CellClosed, result.Cell.Status)
}

func TestComplete_ScopeViolationStillCloses(t *testing.T) {
	c := newTestCoordinator(t)
	cell := mustCreateCell(t, c.hv, "finish me")

	_, err := c.SpawnSubtask(context.Background(), SpawnSubtaskInput{
		BeadID: cell.ID, EpicID: "epic-1", Title: "finish me",
		Files: []string{"done.go"}, Agent: "worker-1",
	})
	require.NoError(t, err)

	result, err := c.Complete(context.Background(), CompleteInput{
		BeadID: cell.ID, Agent: "worker-1", Summary: "shipped",
		FilesTouched: []string{"other.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "scope_violation", result.Outcome)
	assert.Equal(t, types.CellClosed, result.Cell.Status)
}

func TestCheckpointThenRecover(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Checkpoint(context.Background(), CheckpointInput{
		EpicID: "epic-1", BeadID: "bead-1", Strategy: "file-based",
		Files: []string{"a.go"}, Recovery: map[string]interface{}{"step": "writing tests"},
	})
	require.NoError(t, err)

	ctx, err := c.Recover(context.Background(), "epic-1", "bead-1")
	require.NoError(t, err)
	assert.Equal(t, "file-based", ctx.Strategy)
	assert.Equal(t, "writing tests", ctx.Recovery["step"])
}
