package swarm

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// recordDecision appends a decision_recorded event and returns its id. Used
// for every durable coordinator choice: strategy selection, review begin/
// feedback, completion, and 3-strike termination (spec §4.7: "attempt is
// durable... part of the decision trace").
func (c *Coordinator) recordDecision(ctx context.Context, decisionType, epicID, beadID, agent string, decision map[string]interface{}, rationale string, links []types.EntityLinkData) (string, error) {
	id := uuid.NewString()
	_, err := c.log.Append(ctx, c.projectKey, types.EventDecisionRecorded, types.DecisionRecordedData{
		DecisionID: id, DecisionType: decisionType, AgentName: agent, ProjectKey: c.projectKey,
		EpicID: epicID, BeadID: beadID, Decision: decision, Rationale: rationale, Links: links,
	}, "")
	if err != nil {
		return "", errs.Wrap("SwarmCoordinator.recordDecision", errs.ErrIO, err)
	}
	return id, nil
}

// decisionRow is a minimal projection of a stored decision trace, used to
// replay review history for a bead.
type decisionRow struct {
	ID           string
	DecisionType string
	Decision     map[string]interface{}
}

// decisionsFor returns every decision trace recorded against beadID, oldest
// first, so review state can be rebuilt without process-local counters.
func (c *Coordinator) decisionsFor(ctx context.Context, beadID string) ([]decisionRow, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, decision_type, decision FROM decision_traces
		WHERE project_key = ? AND bead_id = ? ORDER BY timestamp ASC, rowid ASC
	`, c.projectKey, beadID)
	if err != nil {
		return nil, errs.Wrap("SwarmCoordinator.decisionsFor", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var out []decisionRow
	for rows.Next() {
		var r decisionRow
		var raw string
		if err := rows.Scan(&r.ID, &r.DecisionType, &raw); err != nil {
			return nil, errs.Wrap("SwarmCoordinator.decisionsFor", errs.ErrIO, err)
		}
		_ = json.Unmarshal([]byte(raw), &r.Decision)
		out = append(out, r)
	}
	return out, rows.Err()
}
