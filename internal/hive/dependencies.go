package hive

import (
	"context"
	"database/sql"
	"time"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/projector"
	"github.com/swarmhive/swarmhive/internal/types"
)

const maxCycleDepth = 200

// AddDependency records a directed edge after checking it would not create
// a cycle across any relationship type (spec §4.6).
func (h *Hive) AddDependency(ctx context.Context, cellID, dependsOnID string, rel types.Relationship) error {
	if !rel.Valid() {
		return errs.New("Hive.AddDependency", errs.ErrValidation, "unknown relationship "+string(rel))
	}
	if cellID == dependsOnID {
		return errs.New("Hive.AddDependency", errs.ErrValidation, "a cell cannot depend on itself")
	}
	if _, err := h.GetCell(ctx, cellID); err != nil {
		return err
	}
	if _, err := h.GetCell(ctx, dependsOnID); err != nil {
		return err
	}

	reachable, err := h.reachable(ctx, dependsOnID, cellID, maxCycleDepth)
	if err != nil {
		return err
	}
	if reachable {
		return errs.New("Hive.AddDependency", errs.ErrConflict,
			"adding this edge would create a cycle", cellID, dependsOnID)
	}

	_, err = h.log.Append(ctx, h.projectKey, types.EventDependencyAdded, types.DependencyAddedData{
		CellID: cellID, DependsOnID: dependsOnID, Relationship: string(rel),
	}, "")
	if err != nil {
		return errs.Wrap("Hive.AddDependency", errs.ErrIO, err)
	}
	return nil
}

// reachable reports whether target is reachable from start by following
// depends_on edges of any relationship type, bounded by maxDepth (spec
// §4.6: "depth-bounded reachability from B looking for A... over all
// relationship types").
func (h *Hive) reachable(ctx context.Context, start, target string, maxDepth int) (bool, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if id == target {
				return true, nil
			}
			neighbors, err := h.dependsOnIDs(ctx, id)
			if err != nil {
				return false, err
			}
			for _, n := range neighbors {
				if n == target {
					return true, nil
				}
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

func (h *Hive) dependsOnIDs(ctx context.Context, cellID string) ([]string, error) {
	rows, err := h.db.Query(ctx, `SELECT depends_on_id FROM dependencies WHERE cell_id = ?`, cellID)
	if err != nil {
		return nil, errs.Wrap("Hive.dependsOnIDs", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap("Hive.dependsOnIDs", errs.ErrIO, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveDependency deletes an edge and appends dependency_removed.
func (h *Hive) RemoveDependency(ctx context.Context, cellID, dependsOnID string, rel types.Relationship) error {
	_, err := h.log.Append(ctx, h.projectKey, types.EventDependencyRemoved, types.DependencyRemovedData{
		CellID: cellID, DependsOnID: dependsOnID, Relationship: string(rel),
	}, "")
	if err != nil {
		return errs.Wrap("Hive.RemoveDependency", errs.ErrIO, err)
	}
	return nil
}

// GetDependencies returns the edges cellID depends on.
func (h *Hive) GetDependencies(ctx context.Context, cellID string) ([]types.Dependency, error) {
	return h.queryDependencies(ctx, `cell_id = ?`, cellID)
}

// GetDependents returns the edges that depend on cellID.
func (h *Hive) GetDependents(ctx context.Context, cellID string) ([]types.Dependency, error) {
	return h.queryDependencies(ctx, `depends_on_id = ?`, cellID)
}

func (h *Hive) queryDependencies(ctx context.Context, where, id string) ([]types.Dependency, error) {
	rows, err := h.db.Query(ctx, `
		SELECT cell_id, depends_on_id, relationship, created_at FROM dependencies WHERE `+where,
		id)
	if err != nil {
		return nil, errs.Wrap("Hive.GetDependencies", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var deps []types.Dependency
	for rows.Next() {
		var d types.Dependency
		var rel, createdAt string
		if err := rows.Scan(&d.CellID, &d.DependsOnID, &rel, &createdAt); err != nil {
			return nil, errs.Wrap("Hive.GetDependencies", errs.ErrIO, err)
		}
		d.ProjectKey = h.projectKey
		d.Relationship = types.Relationship(rel)
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// RebuildBlockedCache forces a full recompute, exposed for operator repair
// or post-import maintenance (spec §4.6).
func (h *Hive) RebuildBlockedCache(ctx context.Context) error {
	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		return projector.RebuildBlockedCache(ctx, tx)
	})
	if err != nil {
		return errs.Wrap("Hive.RebuildBlockedCache", errs.ErrIO, err)
	}
	return nil
}
