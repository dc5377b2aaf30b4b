package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/lock"
	"github.com/swarmhive/swarmhive/internal/memory"
	"github.com/swarmhive/swarmhive/internal/swarm"
	"github.com/swarmhive/swarmhive/internal/types"
)

func TestOpen_WiresAllComponentsOverOneStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "project.db")
	s, err := Open(context.Background(), dbPath, "acme-widgets", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NotNil(t, s.Store)
	require.NotNil(t, s.Log)
	require.NotNil(t, s.Mailbox)
	require.NotNil(t, s.Reservations)
	require.NotNil(t, s.Hive)
	require.NotNil(t, s.Swarm)
	require.NotNil(t, s.Memory)
	require.NotNil(t, s.Lock)
}

func TestOpen_CellAndMemoryShareOneStoreFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "project.db")
	s, err := Open(context.Background(), dbPath, "acme-widgets", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	cell, err := s.Hive.CreateCell(ctx, hive.CreateCellInput{
		Title: "wire up session composition", Type: types.CellTask, CreatedBy: "coordinator",
	})
	require.NoError(t, err)

	contract, err := s.Swarm.SpawnSubtask(ctx, swarm.SpawnSubtaskInput{
		BeadID: cell.ID, EpicID: "epic-1", Title: cell.Title,
		Files: []string{"session.go"}, Agent: "worker-1",
	})
	require.NoError(t, err)
	assert.Contains(t, contract.Prompt, "worker-1")

	memResult, err := s.Memory.Store(ctx, memory.StoreInput{
		Content: "Decided to wire every component through one Session composition root, because it matches the teacher's single-bootstrap convention.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, memResult.ID)

	lockResult, err := s.Lock.Acquire(ctx, lock.AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(1), lockResult.Seq)
}
