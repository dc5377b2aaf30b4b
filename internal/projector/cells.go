package projector

import (
	"context"
	"database/sql"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func applyCellCreated(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.CellCreatedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cells (id, project_key, title, description, type, status, priority, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'open', ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, data.CellID, event.ProjectKey, data.Title, nullableString(data.Description), data.IssueType,
		data.Priority, nullableString(data.ParentID), ts, ts)
	if err != nil {
		return wrapProj(event, err)
	}
	return markDirty(ctx, tx, data.CellID, ts)
}

func applyCellUpdated(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.CellUpdatedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)

	for field, value := range data.Patch {
		column, ok := cellPatchColumns[field]
		if !ok {
			continue // unknown patch field, ignore for forward compatibility
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE cells SET `+column+` = ?, updated_at = ? WHERE id = ?`,
			value, ts, data.CellID); err != nil {
			return wrapProj(event, err)
		}
	}
	return markDirty(ctx, tx, data.CellID, ts)
}

var cellPatchColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"priority":    "priority",
	"type":        "type",
	"parent_id":   "parent_id",
}

func applyCellStatusChanged(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.CellStatusChangedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE cells SET status = ?, updated_at = ? WHERE id = ?
	`, data.ToStatus, ts, data.CellID); err != nil {
		return wrapProj(event, err)
	}
	if err := markDirty(ctx, tx, data.CellID, ts); err != nil {
		return err
	}
	return wrapProj(event, RebuildBlockedCache(ctx, tx))
}

func applyCellClosed(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.CellClosedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE cells SET status = 'closed', updated_at = ? WHERE id = ?
	`, ts, data.CellID); err != nil {
		return wrapProj(event, err)
	}
	if err := markDirty(ctx, tx, data.CellID, ts); err != nil {
		return err
	}
	return wrapProj(event, RebuildBlockedCache(ctx, tx))
}

func applyEpicCreated(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.EpicCreatedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cells (id, project_key, title, description, type, status, priority, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, '', 'epic', 'open', 2, NULL, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, data.EpicID, event.ProjectKey, data.Title, ts, ts)
	if err != nil {
		return wrapProj(event, err)
	}
	for _, subtaskID := range data.SubtaskIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE cells SET parent_id = ?, updated_at = ? WHERE id = ?
		`, data.EpicID, ts, subtaskID); err != nil {
			return wrapProj(event, err)
		}
		if err := markDirty(ctx, tx, subtaskID, ts); err != nil {
			return err
		}
	}
	return markDirty(ctx, tx, data.EpicID, ts)
}

func applyDependencyAdded(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.DependencyAddedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dependencies (project_key, cell_id, depends_on_id, relationship, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cell_id, depends_on_id, relationship) DO NOTHING
	`, event.ProjectKey, data.CellID, data.DependsOnID, data.Relationship, ts)
	if err != nil {
		return wrapProj(event, err)
	}
	if data.Relationship != string(types.RelBlocks) {
		return nil
	}
	return wrapProj(event, RebuildBlockedCache(ctx, tx))
}

func applyDependencyRemoved(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.DependencyRemovedData
	if err := decode(event, &data); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM dependencies WHERE cell_id = ? AND depends_on_id = ? AND relationship = ?
	`, data.CellID, data.DependsOnID, data.Relationship)
	if err != nil {
		return wrapProj(event, err)
	}
	if data.Relationship != string(types.RelBlocks) {
		return nil
	}
	return wrapProj(event, RebuildBlockedCache(ctx, tx))
}

// markDirty records that a cell's materialized row changed since the last
// JSONL export, for incremental export (SPEC_FULL supplemented feature,
// grounded on the teacher's dirty.go).
func markDirty(ctx context.Context, tx *sql.Tx, cellID, ts string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dirty_cells (cell_id, content_hash, marked_at) VALUES (?, NULL, ?)
		ON CONFLICT(cell_id) DO UPDATE SET content_hash = NULL, marked_at = excluded.marked_at
	`, cellID, ts)
	return err
}
