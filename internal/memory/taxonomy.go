package memory

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// ListEntities returns every extracted entity in the project's taxonomy.
func (m *Memory) ListEntities(ctx context.Context) ([]types.MemoryEntity, error) {
	rows, err := m.db.Query(ctx, `
		SELECT id, project_key, pref_label, alt_labels FROM memory_entities WHERE project_key = ?
		ORDER BY pref_label ASC
	`, m.projectKey)
	if err != nil {
		return nil, errs.Wrap("SemanticMemory.ListEntities", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var entities []types.MemoryEntity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	return entities, rows.Err()
}

// GetEntity returns the entity matching prefLabel exactly.
func (m *Memory) GetEntity(ctx context.Context, prefLabel string) (types.MemoryEntity, error) {
	row := m.db.QueryRow(ctx, `
		SELECT id, project_key, pref_label, alt_labels FROM memory_entities
		WHERE project_key = ? AND pref_label = ?
	`, m.projectKey, prefLabel)
	return scanEntity(row)
}

// TaxonomyNode is one level of a taxonomyTree expansion.
type TaxonomyNode struct {
	Entity   types.MemoryEntity
	Children []TaxonomyNode
}

// TaxonomyTree walks memory_links broader/narrower edges rooted at the
// memory whose content mentions rootLabel's entity, returning a bounded-depth
// tree of related entities (spec §4.8 "taxonomyTree"). Depth is capped to
// guard against link cycles.
func (m *Memory) TaxonomyTree(ctx context.Context, rootLabel string) (TaxonomyNode, error) {
	root, err := m.GetEntity(ctx, rootLabel)
	if err != nil {
		return TaxonomyNode{}, err
	}
	visited := map[string]bool{root.PrefLabel: true}
	children, err := m.narrowerEntities(ctx, root.PrefLabel, visited, 5)
	if err != nil {
		return TaxonomyNode{}, err
	}
	return TaxonomyNode{Entity: root, Children: children}, nil
}

// narrowerEntities finds entities one SKOS "narrower" hop below label. An
// entity has no direct hierarchy pointer in the schema, so the hop is taken
// via whichever memories mention the label and are linked narrower to
// another memory mentioning a different known entity.
func (m *Memory) narrowerEntities(ctx context.Context, label string, visited map[string]bool, depthLeft int) ([]TaxonomyNode, error) {
	if depthLeft <= 0 {
		return nil, nil
	}
	rows, err := m.db.Query(ctx, `
		SELECT DISTINCT dst.content
		FROM memory_links ml
		JOIN memories src ON src.id = ml.from_memory_id
		JOIN memories dst ON dst.id = ml.to_memory_id
		WHERE ml.link_type = 'narrower' AND ml.from_memory_id IN (
			SELECT id FROM memories_fts WHERE memories_fts MATCH ?
		)
	`, `"`+label+`"`)
	if err != nil {
		return nil, errs.Wrap("SemanticMemory.TaxonomyTree", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var childContents []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, errs.Wrap("SemanticMemory.TaxonomyTree", errs.ErrIO, err)
		}
		childContents = append(childContents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("SemanticMemory.TaxonomyTree", errs.ErrIO, err)
	}

	entities, err := m.ListEntities(ctx)
	if err != nil {
		return nil, err
	}

	var nodes []TaxonomyNode
	for _, ent := range entities {
		if visited[ent.PrefLabel] {
			continue
		}
		matched := false
		for _, content := range childContents {
			if strings.Contains(content, ent.PrefLabel) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		visited[ent.PrefLabel] = true
		children, err := m.narrowerEntities(ctx, ent.PrefLabel, visited, depthLeft-1)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, TaxonomyNode{Entity: ent, Children: children})
	}
	return nodes, nil
}

func scanEntity(scanner interface{ Scan(...interface{}) error }) (types.MemoryEntity, error) {
	var ent types.MemoryEntity
	var projectKey *string
	var altLabelsJSON *string
	if err := scanner.Scan(&ent.ID, &projectKey, &ent.PrefLabel, &altLabelsJSON); err != nil {
		return types.MemoryEntity{}, errs.NotFound("SemanticMemory.GetEntity", "memory_entity", ent.PrefLabel)
	}
	if projectKey != nil {
		ent.ProjectKey = *projectKey
	}
	if altLabelsJSON != nil {
		_ = json.Unmarshal([]byte(*altLabelsJSON), &ent.AltLabels)
	}
	return ent, nil
}
