// Package hive implements Hive: cell CRUD, epic decomposition, dependency
// management with cycle prevention, ready-state computation, and JSONL
// export/import (spec §4.6). Grounded on the teacher's issue-tracker CRUD
// (cmd/bd, internal/storage/sqlite) generalized from "issue" to "cell".
package hive

import (
	"context"
	"time"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/idgen"
	"github.com/swarmhive/swarmhive/internal/store"
	"github.com/swarmhive/swarmhive/internal/types"
)

// Hive manages cells, dependencies, and the ready/blocked working set for
// one project.
type Hive struct {
	db         store.Store
	log        *eventlog.EventLog
	projectKey string
	slug       string
}

// New builds a Hive for projectKey, deriving the id slug from it.
func New(db store.Store, log *eventlog.EventLog, projectKey string) *Hive {
	return &Hive{db: db, log: log, projectKey: projectKey, slug: idgen.Slugify(projectKey)}
}

// CreateCellInput is the payload for CreateCell.
type CreateCellInput struct {
	Title       string
	Type        types.CellType
	Priority    int
	ParentID    string
	Description string
	CreatedBy   string
}

// CreateCell validates and appends a cell_created event, returning the
// materialized cell (spec §4.6).
func (h *Hive) CreateCell(ctx context.Context, in CreateCellInput) (types.Cell, error) {
	cellType := in.Type
	if cellType == "" {
		cellType = types.CellTask
	}
	priority := in.Priority
	if priority == 0 && in.Priority == 0 {
		priority = 2
	}

	cell := types.Cell{
		Title: in.Title, Type: cellType, Status: types.CellOpen, Priority: priority,
		ParentID: in.ParentID, Description: in.Description,
	}
	if err := cell.Validate(); err != nil {
		return types.Cell{}, errs.New("Hive.CreateCell", errs.ErrValidation, err.Error())
	}

	if in.ParentID != "" {
		if _, err := h.GetCell(ctx, in.ParentID); err != nil {
			return types.Cell{}, err
		}
	}

	now := time.Now()
	cellID := idgen.GenerateCellID(h.slug, in.Title, in.CreatedBy, now, 0)

	_, err := h.log.Append(ctx, h.projectKey, types.EventCellCreated, types.CellCreatedData{
		CellID: cellID, Title: in.Title, IssueType: string(cellType), Priority: priority,
		Description: in.Description, ParentID: in.ParentID, CreatedBy: in.CreatedBy,
	}, "")
	if err != nil {
		return types.Cell{}, errs.Wrap("Hive.CreateCell", errs.ErrIO, err)
	}

	return h.GetCell(ctx, cellID)
}

// GetCell fetches one cell by exact id.
func (h *Hive) GetCell(ctx context.Context, id string) (types.Cell, error) {
	var c types.Cell
	var cellType, status, createdAt, updatedAt string
	var description, parentID, deletedAt *string
	err := h.db.QueryRow(ctx, `
		SELECT id, title, description, type, status, priority, parent_id, created_at, updated_at, deleted_at
		FROM cells WHERE id = ?
	`, id).Scan(&c.ID, &c.Title, &description, &cellType, &status, &c.Priority, &parentID,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return types.Cell{}, errs.NotFound("Hive.GetCell", "cell", id)
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
	if deletedAt != nil {
		t, _ := time.Parse(time.RFC3339, *deletedAt)
		c.DeletedAt = &t
	}
	return c, nil
}

// Resolve finds one cell id by the full id, a hash suffix, or any
// unambiguous substring (spec §4.6 ID shape / resolution rule).
func (h *Hive) Resolve(ctx context.Context, query string) (string, error) {
	ids, err := h.allCellIDs(ctx)
	if err != nil {
		return "", err
	}
	match, rivals := idgen.Resolve(query, ids)
	if match != "" {
		return match, nil
	}
	if len(rivals) == 0 {
		return "", errs.NotFound("Hive.Resolve", "cell", query)
	}
	return "", errs.Conflict("Hive.Resolve", "ambiguous cell reference", []string{query}, rivals)
}

func (h *Hive) allCellIDs(ctx context.Context) ([]string, error) {
	rows, err := h.db.Query(ctx, `SELECT id FROM cells WHERE project_key = ?`, h.projectKey)
	if err != nil {
		return nil, errs.Wrap("Hive.Resolve", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap("Hive.Resolve", errs.ErrIO, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateCell applies a partial patch and appends cell_updated.
func (h *Hive) UpdateCell(ctx context.Context, id string, patch map[string]interface{}) (types.Cell, error) {
	if _, err := h.GetCell(ctx, id); err != nil {
		return types.Cell{}, err
	}
	_, err := h.log.Append(ctx, h.projectKey, types.EventCellUpdated, types.CellUpdatedData{
		CellID: id, Patch: patch,
	}, "")
	if err != nil {
		return types.Cell{}, errs.Wrap("Hive.UpdateCell", errs.ErrIO, err)
	}
	return h.GetCell(ctx, id)
}

// ChangeStatus appends cell_status_changed after checking the transition is
// onto a known status.
func (h *Hive) ChangeStatus(ctx context.Context, id string, to types.CellStatus, reason string) (types.Cell, error) {
	if !to.Valid() {
		return types.Cell{}, errs.New("Hive.ChangeStatus", errs.ErrValidation, "unknown status "+string(to))
	}
	cell, err := h.GetCell(ctx, id)
	if err != nil {
		return types.Cell{}, err
	}
	_, err = h.log.Append(ctx, h.projectKey, types.EventCellStatusChanged, types.CellStatusChangedData{
		CellID: id, FromStatus: string(cell.Status), ToStatus: string(to), Reason: reason,
	}, "")
	if err != nil {
		return types.Cell{}, errs.Wrap("Hive.ChangeStatus", errs.ErrIO, err)
	}
	return h.GetCell(ctx, id)
}

// CloseCell marks a cell closed (spec §4.6).
func (h *Hive) CloseCell(ctx context.Context, id, reason string) (types.Cell, error) {
	if _, err := h.GetCell(ctx, id); err != nil {
		return types.Cell{}, err
	}
	_, err := h.log.Append(ctx, h.projectKey, types.EventCellClosed, types.CellClosedData{
		CellID: id, Reason: reason,
	}, "")
	if err != nil {
		return types.Cell{}, errs.Wrap("Hive.CloseCell", errs.ErrIO, err)
	}
	return h.GetCell(ctx, id)
}

// DeleteCell tombstones a cell — sets status to tombstone, never a hard
// delete (spec §4.6).
func (h *Hive) DeleteCell(ctx context.Context, id, deletedBy, reason string) (types.Cell, error) {
	return h.ChangeStatus(ctx, id, types.CellTombstone, reason)
}

// CreateEpicInput is the payload for CreateEpic.
type CreateEpicInput struct {
	Title      string
	Subtasks   []CreateCellInput
	CreatedBy  string
}

// CreateEpicResult bundles the new epic and its materialized subtasks.
type CreateEpicResult struct {
	Epic     types.Cell
	Subtasks []types.Cell
}

// CreateEpic validates every subtask before writing anything, then appends
// cell_created for each subtask and epic_created linking them. Each append
// commits in its own transaction: if a later append fails, the subtasks
// already created stay in place and are not rolled back.
func (h *Hive) CreateEpic(ctx context.Context, in CreateEpicInput) (CreateEpicResult, error) {
	if in.Title == "" {
		return CreateEpicResult{}, errs.New("Hive.CreateEpic", errs.ErrValidation, "epic title is required")
	}
	if len(in.Subtasks) == 0 {
		return CreateEpicResult{}, errs.New("Hive.CreateEpic", errs.ErrValidation, "at least one subtask is required")
	}
	for i, st := range in.Subtasks {
		probe := types.Cell{Title: st.Title, Type: st.Type, Status: types.CellOpen, Priority: st.Priority}
		if probe.Type == "" {
			probe.Type = types.CellTask
		}
		if err := probe.Validate(); err != nil {
			return CreateEpicResult{}, errs.New("Hive.CreateEpic", errs.ErrValidation,
				"subtask "+string(rune('0'+i))+": "+err.Error())
		}
	}

	now := time.Now()
	epicID := idgen.GenerateCellID(h.slug, in.Title, in.CreatedBy, now, 0)

	var subtaskIDs []string
	for i, st := range in.Subtasks {
		cellType := st.Type
		if cellType == "" {
			cellType = types.CellTask
		}
		priority := st.Priority
		if priority == 0 {
			priority = 2
		}
		subtaskID := idgen.GenerateCellID(h.slug, st.Title, in.CreatedBy, now, i+1)
		if _, err := h.log.Append(ctx, h.projectKey, types.EventCellCreated, types.CellCreatedData{
			CellID: subtaskID, Title: st.Title, IssueType: string(cellType), Priority: priority,
			Description: st.Description, CreatedBy: in.CreatedBy,
		}, ""); err != nil {
			return CreateEpicResult{}, errs.Wrap("Hive.CreateEpic", errs.ErrProjection, err)
		}
		subtaskIDs = append(subtaskIDs, subtaskID)
	}

	if _, err := h.log.Append(ctx, h.projectKey, types.EventEpicCreated, types.EpicCreatedData{
		EpicID: epicID, Title: in.Title, SubtaskCount: len(subtaskIDs), SubtaskIDs: subtaskIDs,
	}, ""); err != nil {
		return CreateEpicResult{}, errs.Wrap("Hive.CreateEpic", errs.ErrProjection, err)
	}

	epic, err := h.GetCell(ctx, epicID)
	if err != nil {
		return CreateEpicResult{}, err
	}
	var subtasks []types.Cell
	for _, id := range subtaskIDs {
		cell, err := h.GetCell(ctx, id)
		if err != nil {
			return CreateEpicResult{}, err
		}
		subtasks = append(subtasks, cell)
	}
	return CreateEpicResult{Epic: epic, Subtasks: subtasks}, nil
}

// QueryOptions narrows QueryCells.
type QueryOptions struct {
	Status   types.CellStatus
	Type     types.CellType
	ParentID string
	Ready    bool
	ID       string
	Limit    int
	Labels   []string
}

// QueryCells lists cells matching opts (spec §4.6). Ready filters to the
// ready-state definition in §4.6. opts.Labels is not applied: results are
// not filtered by label.
func (h *Hive) QueryCells(ctx context.Context, opts QueryOptions) ([]types.Cell, error) {
	query := `SELECT id, title, description, type, status, priority, parent_id, created_at, updated_at, deleted_at
		FROM cells WHERE project_key = ?`
	args := []interface{}{h.projectKey}

	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	if opts.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(opts.Type))
	}
	if opts.ParentID != "" {
		query += ` AND parent_id = ?`
		args = append(args, opts.ParentID)
	}
	if opts.ID != "" {
		query += ` AND id = ?`
		args = append(args, opts.ID)
	}
	if opts.Ready {
		query += ` AND status = 'open' AND id NOT IN (SELECT cell_id FROM blocked_cache)`
	}
	query += ` ORDER BY priority ASC, created_at ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap("Hive.QueryCells", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var cells []types.Cell
	for rows.Next() {
		var c types.Cell
		var cellType, status, createdAt, updatedAt string
		var description, parentID, deletedAt *string
		if err := rows.Scan(&c.ID, &c.Title, &description, &cellType, &status, &c.Priority, &parentID,
			&createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, errs.Wrap("Hive.QueryCells", errs.ErrIO, err)
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
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("Hive.QueryCells", errs.ErrIO, err)
	}
	return cells, nil
}

// IsBlocked reports whether id currently has a blocked_cache entry.
func (h *Hive) IsBlocked(ctx context.Context, id string) (bool, error) {
	var count int
	err := h.db.QueryRow(ctx, `SELECT COUNT(cell_id) FROM blocked_cache WHERE cell_id = ?`, id).Scan(&count)
	if err != nil {
		return false, errs.Wrap("Hive.IsBlocked", errs.ErrIO, err)
	}
	return count > 0, nil
}

// GetBlockers returns the direct blocker ids recorded for id.
func (h *Hive) GetBlockers(ctx context.Context, id string) ([]string, error) {
	var encoded string
	err := h.db.QueryRow(ctx, `SELECT blocker_ids FROM blocked_cache WHERE cell_id = ?`, id).Scan(&encoded)
	if err != nil {
		return nil, nil
	}
	return decodeBlockerIDs(encoded), nil
}

