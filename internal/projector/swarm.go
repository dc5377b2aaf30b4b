package projector

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func applySwarmCheckpointed(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.SwarmCheckpointedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)

	files, err := json.Marshal(data.Files)
	if err != nil {
		return wrapProj(event, err)
	}
	deps, err := json.Marshal(data.Dependencies)
	if err != nil {
		return wrapProj(event, err)
	}
	recovery, err := json.Marshal(data.Recovery)
	if err != nil {
		return wrapProj(event, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO swarm_contexts (project_key, epic_id, bead_id, strategy, files, dependencies, directives, recovery, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_key, epic_id, bead_id) DO UPDATE SET
			strategy = excluded.strategy,
			files = excluded.files,
			dependencies = excluded.dependencies,
			directives = excluded.directives,
			recovery = excluded.recovery,
			updated_at = excluded.updated_at
	`, event.ProjectKey, data.EpicID, data.BeadID, data.Strategy, string(files), string(deps),
		nullableString(data.Directives), string(recovery), ts, ts)
	return wrapProj(event, err)
}

func applyDecisionRecorded(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.DecisionRecordedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)

	decision, err := json.Marshal(data.Decision)
	if err != nil {
		return wrapProj(event, err)
	}
	inputs, err := json.Marshal(data.Inputs)
	if err != nil {
		return wrapProj(event, err)
	}
	policy, err := json.Marshal(data.Policy)
	if err != nil {
		return wrapProj(event, err)
	}
	alternatives, err := json.Marshal(data.Alternatives)
	if err != nil {
		return wrapProj(event, err)
	}
	precedent, err := json.Marshal(data.Precedent)
	if err != nil {
		return wrapProj(event, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decision_traces (id, project_key, decision_type, epic_id, bead_id, agent_name,
			decision, rationale, inputs_gathered, policy_evaluated, alternatives, precedent_cited,
			outcome_event_id, quality_score, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, data.DecisionID, event.ProjectKey, data.DecisionType, nullableString(data.EpicID),
		nullableString(data.BeadID), data.AgentName, string(decision), nullableString(data.Rationale),
		string(inputs), string(policy), string(alternatives), string(precedent), event.ID,
		data.QualityScore, ts)
	if err != nil {
		return wrapProj(event, err)
	}

	for i, link := range data.Links {
		linkID := data.DecisionID + "-link-" + strconv.Itoa(i)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_links (id, project_key, from_decision, to_entity_type, to_entity_id, link_type, strength, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, linkID, event.ProjectKey, data.DecisionID, link.ToEntityType, link.ToEntityID,
			link.LinkType, link.Strength, ts); err != nil {
			return wrapProj(event, err)
		}
	}
	return nil
}
