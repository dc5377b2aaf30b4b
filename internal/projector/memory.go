package projector

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

func applyMemoryStored(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MemoryStoredData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)

	tags, err := json.Marshal(data.Tags)
	if err != nil {
		return wrapProj(event, err)
	}
	collection := data.Collection
	if collection == "" {
		collection = "default"
	}
	decayTier := data.DecayTier
	if decayTier == "" {
		decayTier = string(types.DecayHot)
	}
	confidence := data.Confidence
	if confidence == 0 {
		confidence = 1
	}

	var embedding []byte
	if len(data.Embedding) > 0 {
		embedding = sqlite.EncodeVector(data.Embedding)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memories (id, project_key, content, tags, collection, confidence, decay_tier, created_at, validated_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, data.MemoryID, event.ProjectKey, data.Content, string(tags), collection, confidence,
		decayTier, ts, ts, embedding); err != nil {
		return wrapProj(event, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories_fts (id, content) VALUES (?, ?)
	`, data.MemoryID, data.Content)
	if err != nil && !strings.Contains(err.Error(), "UNIQUE") {
		return wrapProj(event, err)
	}
	return nil
}

func applyMemoryUpdated(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MemoryUpdatedData
	if err := decode(event, &data); err != nil {
		return err
	}

	for field, value := range data.Patch {
		column, ok := memoryPatchColumns[field]
		if !ok {
			continue
		}
		if field == "tags" {
			if items, ok := value.([]interface{}); ok {
				encoded, err := json.Marshal(items)
				if err != nil {
					return wrapProj(event, err)
				}
				value = string(encoded)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE memories SET `+column+` = ? WHERE id = ?`,
			value, data.MemoryID); err != nil {
			return wrapProj(event, err)
		}
	}
	if content, ok := data.Patch["content"]; ok {
		if text, ok := content.(string); ok {
			if _, err := tx.ExecContext(ctx, `
				UPDATE memories_fts SET content = ? WHERE id = ?
			`, text, data.MemoryID); err != nil {
				return wrapProj(event, err)
			}
		}
	}
	return nil
}

var memoryPatchColumns = map[string]string{
	"content":    "content",
	"tags":       "tags",
	"collection": "collection",
	"confidence": "confidence",
	"decay_tier": "decay_tier",
}

func applyMemoryDeleted(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MemoryDeletedData
	if err := decode(event, &data); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, data.MemoryID); err != nil {
		return wrapProj(event, err)
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM memories_fts WHERE id = ?`, data.MemoryID)
	return wrapProj(event, err)
}

func applyMemoryValidated(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MemoryValidatedData
	if err := decode(event, &data); err != nil {
		return err
	}
	ts := event.Time().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE memories SET validated_at = ?, decay_tier = ? WHERE id = ?
	`, ts, string(types.DecayHot), data.MemoryID); err != nil {
		return wrapProj(event, err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO memory_validations (memory_id, validated_at) VALUES (?, ?)
	`, data.MemoryID, ts)
	return wrapProj(event, err)
}

// applyMemoryEntitiesLinked materializes an Extractor's output (spec §4.8):
// each entity is upserted into the project's taxonomy, and each relation is
// resolved to an existing memory via the FTS index and recorded as a
// memory-to-memory SKOS edge.
func applyMemoryEntitiesLinked(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	var data types.MemoryEntitiesLinkedData
	if err := decode(event, &data); err != nil {
		return err
	}

	for _, ent := range data.Entities {
		if strings.TrimSpace(ent.PrefLabel) == "" {
			continue
		}
		altLabels, err := json.Marshal(ent.AltLabels)
		if err != nil {
			return wrapProj(event, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memory_entities (id, project_key, pref_label, alt_labels)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(project_key, pref_label) DO UPDATE SET alt_labels = excluded.alt_labels
		`, uuid.NewString(), event.ProjectKey, ent.PrefLabel, string(altLabels)); err != nil {
			return wrapProj(event, err)
		}
	}

	for _, rel := range data.Relations {
		label, linkType := rel.Broader, "broader"
		switch {
		case rel.Broader != "":
			label, linkType = rel.Broader, "broader"
		case rel.Narrower != "":
			label, linkType = rel.Narrower, "narrower"
		case rel.Related != "":
			label, linkType = rel.Related, "related"
		default:
			continue
		}

		targetID, err := findMemoryByLabel(ctx, tx, label, data.MemoryID)
		if err != nil {
			return wrapProj(event, err)
		}
		if targetID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memory_links (from_memory_id, to_memory_id, link_type)
			VALUES (?, ?, ?)
			ON CONFLICT(from_memory_id, to_memory_id, link_type) DO NOTHING
		`, data.MemoryID, targetID, linkType); err != nil {
			return wrapProj(event, err)
		}
	}
	return nil
}

func findMemoryByLabel(ctx context.Context, tx *sql.Tx, label, excludeID string) (string, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id FROM memories_fts WHERE memories_fts MATCH ? AND id != ? LIMIT 1
	`, `"`+strings.ReplaceAll(label, `"`, `""`)+`"`, excludeID)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return id, nil
}
