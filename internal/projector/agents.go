package projector

import (
	"context"
	"database/sql"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func applyAgentRegistered(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.AgentRegisteredData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO agents (project_key, name, program, model, task_description, registered_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_key, name) DO UPDATE SET
			program = excluded.program,
			model = excluded.model,
			task_description = excluded.task_description,
			last_active_at = excluded.last_active_at
	`, event.ProjectKey, data.AgentName, data.Program, data.Model, data.TaskDescription, ts, ts)
	return wrapProj(event, err)
}

func applyAgentActive(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.AgentActiveData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		UPDATE agents SET last_active_at = ? WHERE project_key = ? AND name = ?
	`, ts, event.ProjectKey, data.AgentName)
	return wrapProj(event, err)
}
