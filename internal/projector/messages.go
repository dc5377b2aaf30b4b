package projector

import (
	"context"
	"database/sql"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func applyMessageSent(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MessageSentData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := time.UnixMilli(data.CreatedAtMs).UTC().Format(time.RFC3339)
	importance := data.Importance
	if importance == "" {
		importance = string(types.ImportanceNormal)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, project_key, from_agent, subject, body, thread_id, importance, ack_required, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, data.MessageID, event.ProjectKey, data.FromAgent, data.Subject, data.Body,
		nullableString(data.ThreadID), importance, boolToInt(data.AckRequired), ts)
	if err != nil {
		return wrapProj(event, err)
	}

	for _, recipient := range data.ToAgents {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_recipients (message_id, agent_name) VALUES (?, ?)
			ON CONFLICT(message_id, agent_name) DO NOTHING
		`, data.MessageID, recipient); err != nil {
			return wrapProj(event, err)
		}
	}
	return nil
}

func applyMessageRead(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MessageReadData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		UPDATE message_recipients SET read_at = ? WHERE message_id = ? AND agent_name = ? AND read_at IS NULL
	`, ts, data.MessageID, data.AgentName)
	return wrapProj(event, err)
}

func applyMessageAcked(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MessageAckedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		UPDATE message_recipients SET acked_at = ? WHERE message_id = ? AND agent_name = ? AND acked_at IS NULL
	`, ts, data.MessageID, data.AgentName)
	return wrapProj(event, err)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
