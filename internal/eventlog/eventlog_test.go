package eventlog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

type recordingProjector struct {
	applied []*types.Event
	fail    bool
}

func (p *recordingProjector) Apply(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	if p.fail {
		return assertErr{}
	}
	p.applied = append(p.applied, event)
	return nil
}

type assertErr struct{}

func (assertErr) Error() string { return "projector failure" }

func openTestDB(t *testing.T) *sqlitestore.SQLiteStore {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppend_ProjectsWithinSameTransaction(t *testing.T) {
	db := openTestDB(t)
	proj := &recordingProjector{}
	log := New(db, proj)

	appended, err := log.Append(context.Background(), "proj-a", types.EventAgentRegistered,
		types.AgentRegisteredData{AgentName: "worker-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, appended.ID, appended.Sequence)
	require.Len(t, proj.applied, 1)
	assert.Equal(t, types.EventAgentRegistered, proj.applied[0].Type)
}

func TestAppend_ProjectorFailureAbortsTransaction(t *testing.T) {
	db := openTestDB(t)
	proj := &recordingProjector{fail: true}
	log := New(db, proj)

	_, err := log.Append(context.Background(), "proj-a", types.EventAgentRegistered,
		types.AgentRegisteredData{AgentName: "worker-1"}, "")
	require.Error(t, err)

	events, err := log.Read(context.Background(), ReadFilter{ProjectKey: "proj-a"})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppend_DedupesOnIdempotencyID(t *testing.T) {
	db := openTestDB(t)
	proj := &recordingProjector{}
	log := New(db, proj)

	first, err := log.Append(context.Background(), "proj-a", types.EventAgentActive,
		types.AgentActiveData{AgentName: "worker-1"}, "fixed-key")
	require.NoError(t, err)

	second, err := log.Append(context.Background(), "proj-a", types.EventAgentActive,
		types.AgentActiveData{AgentName: "worker-1"}, "fixed-key")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, proj.applied, 1)
}

func TestRead_OrdersByIDAscending(t *testing.T) {
	db := openTestDB(t)
	log := New(db, &recordingProjector{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := log.Append(ctx, "proj-a", types.EventAgentActive, types.AgentActiveData{AgentName: "a"}, "")
		require.NoError(t, err)
	}

	events, err := log.Read(ctx, ReadFilter{ProjectKey: "proj-a"})
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].ID, events[i].ID)
	}
}

func TestReplay_VisitsEveryEvent(t *testing.T) {
	db := openTestDB(t)
	log := New(db, &recordingProjector{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := log.Append(ctx, "proj-a", types.EventAgentActive, types.AgentActiveData{AgentName: "a"}, "")
		require.NoError(t, err)
	}

	var visited int
	err := log.Replay(ctx, "proj-a", func(event *types.Event) error {
		visited++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, visited)
}
