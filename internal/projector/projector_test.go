package projector

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

func openTestStore(t *testing.T) *sqlitestore.SQLiteStore {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func apply(t *testing.T, s *sqlitestore.SQLiteStore, p *Projector, event *types.Event) {
	t.Helper()
	err := s.Transaction(context.Background(), func(tx *sql.Tx) error {
		return p.Apply(context.Background(), tx, event)
	})
	require.NoError(t, err)
}

func mustEvent(t *testing.T, eventType types.EventType, data interface{}) *types.Event {
	t.Helper()
	e, err := newTestEvent(eventType, data)
	require.NoError(t, err)
	return e
}

func TestApply_UnknownEventTypeIsSkipped(t *testing.T) {
	s := openTestStore(t)
	p := New()
	event := mustEvent(t, types.EventType("future_event"), map[string]string{"x": "y"})
	apply(t, s, p, event)
}

func TestApply_AgentRegisteredThenActive(t *testing.T) {
	s := openTestStore(t)
	p := New()

	apply(t, s, p, withProject(mustEvent(t, types.EventAgentRegistered, types.AgentRegisteredData{
		AgentName: "worker-1", Program: "claude", Model: "opus",
	}), "proj-a"))

	var name, program string
	err := s.QueryRow(context.Background(), `SELECT name, program FROM agents WHERE project_key = ? AND name = ?`,
		"proj-a", "worker-1").Scan(&name, &program)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", name)
	assert.Equal(t, "claude", program)

	apply(t, s, p, withProject(mustEvent(t, types.EventAgentActive, types.AgentActiveData{
		AgentName: "worker-1",
	}), "proj-a"))
}

func TestApply_CellLifecycle(t *testing.T) {
	s := openTestStore(t)
	p := New()

	apply(t, s, p, withProject(mustEvent(t, types.EventCellCreated, types.CellCreatedData{
		CellID: "proj-a-abc123-def456", Title: "fix bug", IssueType: "bug", Priority: 1,
	}), "proj-a"))

	var status string
	require.NoError(t, s.QueryRow(context.Background(), `SELECT status FROM cells WHERE id = ?`,
		"proj-a-abc123-def456").Scan(&status))
	assert.Equal(t, "open", status)

	apply(t, s, p, withProject(mustEvent(t, types.EventCellStatusChanged, types.CellStatusChangedData{
		CellID: "proj-a-abc123-def456", FromStatus: "open", ToStatus: "in_progress",
	}), "proj-a"))

	require.NoError(t, s.QueryRow(context.Background(), `SELECT status FROM cells WHERE id = ?`,
		"proj-a-abc123-def456").Scan(&status))
	assert.Equal(t, "in_progress", status)

	var dirty int
	err := s.QueryRow(context.Background(), `SELECT COUNT(cell_id) FROM dirty_cells WHERE cell_id = ?`,
		"proj-a-abc123-def456").Scan(&dirty)
	require.NoError(t, err)
	assert.Equal(t, 1, dirty)
}

func TestApply_DependencyAddedRebuildsBlockedCache(t *testing.T) {
	s := openTestStore(t)
	p := New()
	ctx := context.Background()

	apply(t, s, p, withProject(mustEvent(t, types.EventCellCreated, types.CellCreatedData{
		CellID: "c-blocker", Title: "blocker", IssueType: "task", Priority: 2,
	}), "proj-a"))
	apply(t, s, p, withProject(mustEvent(t, types.EventCellCreated, types.CellCreatedData{
		CellID: "c-blocked", Title: "blocked", IssueType: "task", Priority: 2,
	}), "proj-a"))

	apply(t, s, p, withProject(mustEvent(t, types.EventDependencyAdded, types.DependencyAddedData{
		CellID: "c-blocked", DependsOnID: "c-blocker", Relationship: "blocks",
	}), "proj-a"))

	var blockerIDs string
	err := s.QueryRow(ctx, `SELECT blocker_ids FROM blocked_cache WHERE cell_id = ?`, "c-blocked").Scan(&blockerIDs)
	require.NoError(t, err)
	assert.Contains(t, blockerIDs, "c-blocker")

	apply(t, s, p, withProject(mustEvent(t, types.EventCellClosed, types.CellClosedData{
		CellID: "c-blocker",
	}), "proj-a"))

	var count int
	err = s.QueryRow(ctx, `SELECT COUNT(cell_id) FROM blocked_cache WHERE cell_id = ?`, "c-blocked").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApply_MessageSentReadAcked(t *testing.T) {
	s := openTestStore(t)
	p := New()
	ctx := context.Background()

	apply(t, s, p, withProject(mustEvent(t, types.EventMessageSent, types.MessageSentData{
		MessageID: "m-1", FromAgent: "worker-1", ToAgents: []string{"worker-2"},
		Subject: "status", Body: "done", AckRequired: true,
	}), "proj-a"))

	var recipients int
	require.NoError(t, s.QueryRow(ctx, `SELECT COUNT(agent_name) FROM message_recipients WHERE message_id = ?`,
		"m-1").Scan(&recipients))
	assert.Equal(t, 1, recipients)

	apply(t, s, p, withProject(mustEvent(t, types.EventMessageRead, types.MessageReadData{
		MessageID: "m-1", AgentName: "worker-2",
	}), "proj-a"))
	apply(t, s, p, withProject(mustEvent(t, types.EventMessageAcked, types.MessageAckedData{
		MessageID: "m-1", AgentName: "worker-2",
	}), "proj-a"))

	var readAt, ackedAt sql.NullString
	require.NoError(t, s.QueryRow(ctx, `SELECT read_at, acked_at FROM message_recipients WHERE message_id = ? AND agent_name = ?`,
		"m-1", "worker-2").Scan(&readAt, &ackedAt))
	assert.True(t, readAt.Valid)
	assert.True(t, ackedAt.Valid)
}

func TestApply_MemoryStoredThenValidated(t *testing.T) {
	s := openTestStore(t)
	p := New()
	ctx := context.Background()

	apply(t, s, p, withProject(mustEvent(t, types.EventMemoryStored, types.MemoryStoredData{
		MemoryID: "mem-1", Content: "use exponential backoff for retries",
	}), "proj-a"))

	var content string
	require.NoError(t, s.QueryRow(ctx, `SELECT content FROM memories WHERE id = ?`, "mem-1").Scan(&content))
	assert.Equal(t, "use exponential backoff for retries", content)

	apply(t, s, p, withProject(mustEvent(t, types.EventMemoryValidated, types.MemoryValidatedData{
		MemoryID: "mem-1",
	}), "proj-a"))

	var validations int
	require.NoError(t, s.QueryRow(ctx, `SELECT COUNT(memory_id) FROM memory_validations WHERE memory_id = ?`,
		"mem-1").Scan(&validations))
	assert.Equal(t, 1, validations)
}
