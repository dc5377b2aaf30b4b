package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

// FindInput is the payload for Find.
type FindInput struct {
	Query      string
	Limit      int
	FTS        bool
	Expand     bool
	Collection string
	DecayTier  types.DecayTier
}

// FindResult pairs a memory with its similarity score.
type FindResult struct {
	Memory  types.Memory
	Score   float64
	Related []types.Memory
}

// Find retrieves memories by semantic similarity, or by full-text match
// when FTS is requested or no embedding function is configured (spec
// §4.8). Results are ordered by descending score.
func (m *Memory) Find(ctx context.Context, in FindInput) ([]FindResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 5
	}

	var results []FindResult
	var err error
	if !in.FTS && m.embed != nil {
		results, err = m.findSemantic(ctx, in, limit)
	} else {
		results, err = m.findFTS(ctx, in, limit)
	}
	if err != nil {
		return nil, err
	}

	if in.Expand {
		for i := range results {
			related, relErr := m.relatedMemories(ctx, results[i].Memory.ID)
			if relErr != nil {
				return nil, relErr
			}
			results[i].Related = related
		}
	}
	return results, nil
}

func (m *Memory) findSemantic(ctx context.Context, in FindInput, limit int) ([]FindResult, error) {
	query := in.Query
	if len(query) > maxEmbedChars {
		query = query[:maxEmbedChars]
	}
	queryVec, err := m.embed(ctx, query)
	if err != nil || len(queryVec) == 0 {
		return m.findFTS(ctx, in, limit)
	}

	sqlQuery := `SELECT id, project_key, content, tags, collection, confidence, decay_tier, created_at, validated_at, embedding
		FROM memories WHERE project_key = ? AND embedding IS NOT NULL`
	args := []interface{}{m.projectKey}
	if in.Collection != "" {
		sqlQuery += ` AND collection = ?`
		args = append(args, in.Collection)
	}
	if in.DecayTier != "" {
		sqlQuery += ` AND decay_tier = ?`
		args = append(args, string(in.DecayTier))
	}

	rows, err := m.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []FindResult
	for rows.Next() {
		mem, embedding, scanErr := scanMemoryRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		score := sqlite.CosineSimilarity(queryVec, embedding)
		candidates = append(candidates, FindResult{Memory: mem, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// findFTS falls back to engine-native full-text match when no embedding
// function is configured or the caller asked for FTS explicitly (spec
// §4.8). bm25 is lower-is-better; we invert it into a [0,1]-ish score so
// callers see the same "higher is more relevant" convention as semantic
// search.
func (m *Memory) findFTS(ctx context.Context, in FindInput, limit int) ([]FindResult, error) {
	sqlQuery := `
		SELECT mem.id, mem.project_key, mem.content, mem.tags, mem.collection, mem.confidence,
			mem.decay_tier, mem.created_at, mem.validated_at, mem.embedding, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories mem ON mem.id = memories_fts.id
		WHERE memories_fts MATCH ? AND mem.project_key = ?`
	args := []interface{}{ftsQuery(in.Query), m.projectKey}
	if in.Collection != "" {
		sqlQuery += ` AND mem.collection = ?`
		args = append(args, in.Collection)
	}
	if in.DecayTier != "" {
		sqlQuery += ` AND mem.decay_tier = ?`
		args = append(args, string(in.DecayTier))
	}
	sqlQuery += ` ORDER BY rank ASC LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var results []FindResult
	for rows.Next() {
		var mem types.Memory
		var projectKey *string
		var tagsJSON *string
		var createdAt, validatedAt string
		var embedding []byte
		var rank float64
		if err := rows.Scan(&mem.ID, &projectKey, &mem.Content, &tagsJSON, &mem.Collection, &mem.Confidence,
			&mem.DecayTier, &createdAt, &validatedAt, &embedding, &rank); err != nil {
			return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
		}
		if projectKey != nil {
			mem.ProjectKey = *projectKey
		}
		if tagsJSON != nil {
			mem.Tags = decodeTags(*tagsJSON)
		}
		mem.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		mem.ValidatedAt, _ = time.Parse(time.RFC3339, validatedAt)
		results = append(results, FindResult{Memory: mem, Score: absFloat(rank) / (1 + absFloat(rank))})
	}
	return results, rows.Err()
}

// ftsQuery quotes the raw query as an FTS5 phrase so punctuation in stored
// content (paths, code) doesn't break MATCH syntax.
func ftsQuery(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func scanMemoryRow(rows interface{ Scan(...interface{}) error }) (types.Memory, []float32, error) {
	var mem types.Memory
	var projectKey *string
	var tagsJSON *string
	var createdAt, validatedAt string
	var embedding []byte
	if err := rows.Scan(&mem.ID, &projectKey, &mem.Content, &tagsJSON, &mem.Collection, &mem.Confidence,
		&mem.DecayTier, &createdAt, &validatedAt, &embedding); err != nil {
		return types.Memory{}, nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}
	if projectKey != nil {
		mem.ProjectKey = *projectKey
	}
	if tagsJSON != nil {
		mem.Tags = decodeTags(*tagsJSON)
	}
	mem.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	mem.ValidatedAt, _ = time.Parse(time.RFC3339, validatedAt)
	mem.Embedding = sqlite.DecodeVector(embedding)
	return mem, mem.Embedding, nil
}

func (m *Memory) relatedMemories(ctx context.Context, memoryID string) ([]types.Memory, error) {
	rows, err := m.db.Query(ctx, `
		SELECT to_memory_id FROM memory_links WHERE from_memory_id = ?
		UNION
		SELECT from_memory_id FROM memory_links WHERE to_memory_id = ?
	`, memoryID, memoryID)
	if err != nil {
		return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("SemanticMemory.Find", errs.ErrIO, err)
	}

	var related []types.Memory
	for _, id := range ids {
		mem, err := m.getRow(ctx, id)
		if err != nil {
			continue
		}
		related = append(related, mem)
	}
	return related, nil
}

func decodeTags(raw string) []string {
	var tags []string
	_ = json.Unmarshal([]byte(raw), &tags)
	return tags
}

func decodeEmbedding(raw []byte) []float32 {
	return sqlite.DecodeVector(raw)
}
