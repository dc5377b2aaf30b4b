package swarm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// CheckpointInput is the payload for Checkpoint.
type CheckpointInput struct {
	EpicID       string
	BeadID       string
	Strategy     string
	Files        []string
	Dependencies []int
	Directives   string
	Recovery     map[string]interface{}
}

// Checkpoint writes a swarm_checkpointed event carrying the worker's
// recovery blob (spec §4.7). Used by worker agents before a planned
// interruption, and periodically during long-running subtasks.
func (c *Coordinator) Checkpoint(ctx context.Context, in CheckpointInput) error {
	if in.EpicID == "" || in.BeadID == "" {
		return errs.New("SwarmCoordinator.Checkpoint", errs.ErrValidation, "epic_id and bead_id are required")
	}
	_, err := c.log.Append(ctx, c.projectKey, types.EventSwarmCheckpointed, types.SwarmCheckpointedData{
		EpicID: in.EpicID, BeadID: in.BeadID, Strategy: in.Strategy, Files: in.Files,
		Dependencies: in.Dependencies, Directives: in.Directives, Recovery: in.Recovery,
	}, "")
	if err != nil {
		return errs.Wrap("SwarmCoordinator.Checkpoint", errs.ErrIO, err)
	}
	return nil
}

// Recover returns the most recent checkpoint for (epicID, beadID), used by a
// worker agent resuming after a host process restart (spec §4.7).
func (c *Coordinator) Recover(ctx context.Context, epicID, beadID string) (types.SwarmContext, error) {
	row := c.db.QueryRow(ctx, `
		SELECT project_key, epic_id, bead_id, strategy, files, dependencies, directives, recovery, created_at, updated_at
		FROM swarm_contexts WHERE project_key = ? AND epic_id = ? AND bead_id = ?
	`, c.projectKey, epicID, beadID)

	var sc types.SwarmContext
	var strategy, directives *string
	var files, deps, recovery string
	var createdAt, updatedAt string
	if err := row.Scan(&sc.ProjectKey, &sc.EpicID, &sc.BeadID, &strategy, &files, &deps, &directives,
		&recovery, &createdAt, &updatedAt); err != nil {
		return types.SwarmContext{}, errs.NotFound("SwarmCoordinator.Recover", "swarm_context", epicID+"/"+beadID)
	}
	if strategy != nil {
		sc.Strategy = *strategy
	}
	if directives != nil {
		sc.Directives = *directives
	}
	_ = json.Unmarshal([]byte(files), &sc.Files)
	_ = json.Unmarshal([]byte(deps), &sc.Dependencies)
	_ = json.Unmarshal([]byte(recovery), &sc.Recovery)
	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return sc, nil
}
