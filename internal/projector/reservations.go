package projector

import (
	"context"
	"database/sql"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func applyFileReserved(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.FileReservedData
	if err := decode(event, &data); err != nil {
		return err
	}
	createdAt := event.Time().Format(time.RFC3339)
	expiresAt := time.UnixMilli(data.ExpiresAtMs).UTC().Format(time.RFC3339)

	for i, path := range data.Paths {
		id := data.ReservationIDs[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (id, project_key, agent_name, path_pattern, exclusive, reason, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, id, event.ProjectKey, data.AgentName, path, boolToInt(data.Exclusive), nullableString(data.Reason), createdAt, expiresAt)
		if err != nil {
			return wrapProj(event, err)
		}
	}
	return nil
}

func applyFileReleased(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.FileReleasedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)

	if len(data.ReservationIDs) > 0 {
		for _, id := range data.ReservationIDs {
			if _, err := tx.ExecContext(ctx, `
				UPDATE reservations SET released_at = ? WHERE id = ? AND released_at IS NULL
			`, ts, id); err != nil {
				return wrapProj(event, err)
			}
		}
		return nil
	}

	agent := data.AgentName
	if data.TargetAgent != "" {
		agent = data.TargetAgent
	}

	if data.ReleaseAll {
		_, err := tx.ExecContext(ctx, `
			UPDATE reservations SET released_at = ?
			WHERE project_key = ? AND agent_name = ? AND released_at IS NULL
		`, ts, event.ProjectKey, agent)
		return wrapProj(event, err)
	}

	for _, path := range data.Paths {
		if _, err := tx.ExecContext(ctx, `
			UPDATE reservations SET released_at = ?
			WHERE project_key = ? AND agent_name = ? AND path_pattern = ? AND released_at IS NULL
		`, ts, event.ProjectKey, agent, path); err != nil {
			return wrapProj(event, err)
		}
	}
	return nil
}
