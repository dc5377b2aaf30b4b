package hive

import (
	"context"
	"time"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/jsonl"
	"github.com/swarmhive/swarmhive/internal/types"
)

// ExportOptions narrows ExportJSONL.
type ExportOptions struct {
	IncludeDeleted bool
	CellIDs        []string
}

// ExportJSONL renders cells as jsonl.Row values, one per cell (spec §4.6).
func (h *Hive) ExportJSONL(ctx context.Context, opts ExportOptions) ([]*jsonl.Row, error) {
	query := `SELECT id, title, description, status, priority, type, created_at, updated_at
		FROM cells WHERE project_key = ?`
	args := []interface{}{h.projectKey}
	if !opts.IncludeDeleted {
		query += ` AND status != 'tombstone'`
	}
	if len(opts.CellIDs) > 0 {
		placeholders := ""
		for i, id := range opts.CellIDs {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, id)
		}
		query += ` AND id IN (` + placeholders + `)`
	}

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap("Hive.ExportJSONL", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*jsonl.Row
	var ids []string
	byID := map[string]*jsonl.Row{}
	for rows.Next() {
		var r jsonl.Row
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Status, &r.Priority, &r.IssueType,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errs.Wrap("Hive.ExportJSONL", errs.ErrIO, err)
		}
		out = append(out, &r)
		byID[r.ID] = &r
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("Hive.ExportJSONL", errs.ErrIO, err)
	}

	for _, id := range ids {
		deps, err := h.GetDependencies(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			byID[id].Dependencies = append(byID[id].Dependencies, jsonl.DependencyRef{
				DependsOnID: d.DependsOnID, Type: string(d.Relationship),
			})
		}
	}
	return out, nil
}

// ImportResult tallies the outcome of ImportJSONL (spec §4.6).
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// ImportInput is the payload for ImportJSONL.
type ImportInput struct {
	Rows        []*jsonl.Row
	DryRun      bool
	SkipExisting bool
}

// ImportJSONL creates, updates, or skips cells by content hash (spec §4.6):
// skip when the hash matches an existing row, update when the id matches
// but the hash differs, create otherwise.
func (h *Hive) ImportJSONL(ctx context.Context, in ImportInput) (ImportResult, error) {
	var result ImportResult
	for _, row := range in.Rows {
		existing, err := h.GetCell(ctx, row.ID)
		notFound := errs.Is(err, errs.ErrNotFound)
		if err != nil && !notFound {
			return ImportResult{}, err
		}

		if !notFound {
			existingRow := cellToRow(existing)
			if jsonl.ContentHash(existingRow) == jsonl.ContentHash(row) {
				result.Skipped++
				continue
			}
			if in.SkipExisting {
				result.Skipped++
				continue
			}
			result.Updated++
			if in.DryRun {
				continue
			}
			if _, err := h.UpdateCell(ctx, row.ID, map[string]interface{}{
				"title": row.Title, "description": row.Description, "priority": row.Priority,
			}); err != nil {
				return ImportResult{}, err
			}
			continue
		}

		result.Created++
		if in.DryRun {
			continue
		}
		if _, err := h.importCreate(ctx, row); err != nil {
			return ImportResult{}, err
		}
	}
	return result, nil
}

func (h *Hive) importCreate(ctx context.Context, row *jsonl.Row) (types.Cell, error) {
	cellType := types.CellType(row.IssueType)
	if cellType == "" {
		cellType = types.CellTask
	}
	_, err := h.log.Append(ctx, h.projectKey, types.EventCellCreated, types.CellCreatedData{
		CellID: row.ID, Title: row.Title, IssueType: string(cellType), Priority: row.Priority,
		Description: row.Description,
	}, "")
	if err != nil {
		return types.Cell{}, errs.Wrap("Hive.ImportJSONL", errs.ErrIO, err)
	}
	if row.Status != "" && row.Status != string(types.CellOpen) {
		if _, err := h.ChangeStatus(ctx, row.ID, types.CellStatus(row.Status), "import"); err != nil {
			return types.Cell{}, err
		}
	}
	return h.GetCell(ctx, row.ID)
}

func cellToRow(c types.Cell) *jsonl.Row {
	return &jsonl.Row{
		ID: c.ID, Title: c.Title, Description: c.Description, Status: string(c.Status),
		Priority: c.Priority, IssueType: string(c.Type),
		CreatedAt: c.CreatedAt.Format(time.RFC3339), UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
