package hive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// ReadyWork returns open, unblocked cells ordered by the configured sort
// policy (spec §4.6 ready-state, grounded on the teacher's buildOrderByClause).
func (h *Hive) ReadyWork(ctx context.Context, limit int) ([]types.Cell, error) {
	query := `
		SELECT id, title, description, type, status, priority, parent_id, created_at, updated_at, deleted_at
		FROM cells
		WHERE project_key = ? AND status = 'open'
			AND id NOT IN (SELECT cell_id FROM blocked_cache)
	` + orderByClause(config.GetReadySortPolicy())
	args := []interface{}{h.projectKey}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap("Hive.ReadyWork", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var cells []types.Cell
	for rows.Next() {
		var c types.Cell
		var cellType, status, createdAt, updatedAt string
		var description, parentID, deletedAt *string
		if err := rows.Scan(&c.ID, &c.Title, &description, &cellType, &status, &c.Priority, &parentID,
			&createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, errs.Wrap("Hive.ReadyWork", errs.ErrIO, err)
		}
		c.ProjectKey = h.projectKey
		c.Type = types.CellType(cellType)
		c.Status = types.CellStatus(status)
		if description != nil {
			c.Description = *description
		}
		if parentID != nil {
			c.ParentID = *parentID
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// orderByClause builds the ORDER BY fragment for policy (spec §9 redesign
// guidance: sort policy is configurable, hybrid by default).
func orderByClause(policy string) string {
	switch policy {
	case config.SortPolicyOldest:
		return ` ORDER BY created_at ASC`
	case config.SortPolicyPriority:
		return ` ORDER BY priority ASC, created_at ASC`
	default: // hybrid: urgent priority first, then age, tie-broken by priority
		return ` ORDER BY CASE WHEN priority = 0 THEN 0 ELSE 1 END ASC, created_at ASC, priority ASC`
	}
}

func decodeBlockerIDs(encoded string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil
	}
	return ids
}
