// Package memory implements SemanticMemory: store/find/get/update/delete/
// validate/stats, pluggable embedding and entity extraction, decay-tier
// bookkeeping, and duplicate suppression (spec §4.8). Grounded on the
// teacher's semantic-memory tables (storage/sqlite memories.go) and its
// pluggable-hook convention (internal/compact).
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/store"
	"github.com/swarmhive/swarmhive/internal/types"
)

// EmbedFunc produces a vector embedding for text, or returns a nil vector
// and no error when no embedding provider is configured (spec §4.8: find
// silently falls back to FTS when embed is nil).
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// maxEmbedChars truncates text before embedding, per spec §4.8's
// "implementations must document their limit".
const maxEmbedChars = 1000

const dedupCacheSize = 100

// Memory manages semantic memory for one project.
type Memory struct {
	db         store.Store
	log        *eventlog.EventLog
	projectKey string
	embed      EmbedFunc
	extractor  Extractor

	mu        sync.Mutex
	dedupKeys []string // insertion order, oldest first, for bounded eviction
	dedupByHash map[string]string
}

// New builds a Memory for projectKey. embed and extractor may be nil.
func New(db store.Store, log *eventlog.EventLog, projectKey string, embed EmbedFunc, extractor Extractor) *Memory {
	return &Memory{
		db: db, log: log, projectKey: projectKey, embed: embed, extractor: extractor,
		dedupByHash: make(map[string]string, dedupCacheSize),
	}
}

// StoreInput is the payload for Store.
type StoreInput struct {
	Content         string
	Tags            []string
	Collection      string
	Confidence      float64
	ExtractEntities bool
}

// StoreResult is the outcome of Store.
type StoreResult struct {
	ID        string
	Duplicate bool
}

// Store inserts a memory, suppressing near-duplicates via a session-local
// hash cache backed by a semantic lookup (spec §4.8 "Duplicate suppression").
func (m *Memory) Store(ctx context.Context, in StoreInput) (StoreResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return StoreResult{}, errs.New("SemanticMemory.Store", errs.ErrValidation, "content is required")
	}

	hash := contentHash(in.Content)
	if existingID, seen := m.checkDedupCache(hash); seen {
		return StoreResult{ID: existingID, Duplicate: true}, nil
	}

	if existingID, isDup, err := m.semanticDedup(ctx, in.Content); err != nil {
		return StoreResult{}, err
	} else if isDup {
		m.rememberHash(hash, existingID)
		return StoreResult{ID: existingID, Duplicate: true}, nil
	}

	embedding, err := m.embedTruncated(ctx, in.Content)
	if err != nil {
		return StoreResult{}, err
	}

	id := uuid.NewString()
	confidence := in.Confidence
	if confidence == 0 {
		confidence = 1
	}
	preview := in.Content
	if len(preview) > 200 {
		preview = preview[:200]
	}

	_, err = m.log.Append(ctx, m.projectKey, types.EventMemoryStored, types.MemoryStoredData{
		MemoryID: id, Content: in.Content, ContentPreview: preview, Tags: in.Tags,
		Collection: in.Collection, Confidence: confidence, DecayTier: string(types.DecayHot),
		Embedding: embedding,
	}, "")
	if err != nil {
		return StoreResult{}, errs.Wrap("SemanticMemory.Store", errs.ErrIO, err)
	}

	if in.ExtractEntities && m.extractor != nil {
		if err := m.extractAndLink(ctx, id, in.Content); err != nil {
			// Extractor failure stores the memory anyway, skips linkage
			// (spec §4.8 failure semantics).
			_ = err
		}
	}

	m.rememberHash(hash, id)
	return StoreResult{ID: id}, nil
}

func (m *Memory) embedTruncated(ctx context.Context, content string) ([]float32, error) {
	if m.embed == nil {
		return nil, nil
	}
	text := content
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}
	vec, err := m.embed(ctx, text)
	if err != nil {
		return nil, nil // log-once-and-downgrade handled by the caller owning the EmbedFunc
	}
	return vec, nil
}

// contentHash is the short dedup key: normalized first-100-chars + length
// (spec §4.8).
func contentHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	prefix := normalized
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", prefix, len(normalized))))
	return hex.EncodeToString(sum[:])
}

func (m *Memory) checkDedupCache(hash string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.dedupByHash[hash]
	return id, ok
}

func (m *Memory) rememberHash(hash, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dedupByHash[hash]; ok {
		return
	}
	if len(m.dedupKeys) >= dedupCacheSize {
		oldest := m.dedupKeys[0]
		m.dedupKeys = m.dedupKeys[1:]
		delete(m.dedupByHash, oldest)
	}
	m.dedupKeys = append(m.dedupKeys, hash)
	m.dedupByHash[hash] = id
}

// semanticDedup looks up the 3 nearest memories and reports a duplicate if
// any scores at or above the configured threshold (spec §4.8).
func (m *Memory) semanticDedup(ctx context.Context, content string) (string, bool, error) {
	results, err := m.Find(ctx, FindInput{Query: content, Limit: 3})
	if err != nil {
		return "", false, err
	}
	threshold := config.GetMemoryDedupScore()
	for _, r := range results {
		if r.Score >= threshold {
			return r.Memory.ID, true, nil
		}
	}
	return "", false, nil
}

// Get returns a single memory row by id.
func (m *Memory) Get(ctx context.Context, id string) (types.Memory, error) {
	return m.getRow(ctx, id)
}

// Delete removes a memory permanently (spec §4.8): unlike cells, memories
// have no tombstone — this is a hard delete mirrored in the FTS index.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if _, err := m.getRow(ctx, id); err != nil {
		return err
	}
	_, err := m.log.Append(ctx, m.projectKey, types.EventMemoryDeleted, types.MemoryDeletedData{MemoryID: id}, "")
	if err != nil {
		return errs.Wrap("SemanticMemory.Delete", errs.ErrIO, err)
	}
	return nil
}

// Update applies a partial patch to a memory row.
func (m *Memory) Update(ctx context.Context, id string, patch map[string]interface{}) (types.Memory, error) {
	if _, err := m.getRow(ctx, id); err != nil {
		return types.Memory{}, err
	}
	_, err := m.log.Append(ctx, m.projectKey, types.EventMemoryUpdated, types.MemoryUpdatedData{
		MemoryID: id, Patch: patch,
	}, "")
	if err != nil {
		return types.Memory{}, errs.Wrap("SemanticMemory.Update", errs.ErrIO, err)
	}
	return m.getRow(ctx, id)
}

// Validate resets the decay timer, pulling the memory back to the hot tier
// (spec §4.8).
func (m *Memory) Validate(ctx context.Context, id string) (types.Memory, error) {
	if _, err := m.getRow(ctx, id); err != nil {
		return types.Memory{}, err
	}
	_, err := m.log.Append(ctx, m.projectKey, types.EventMemoryValidated, types.MemoryValidatedData{MemoryID: id}, "")
	if err != nil {
		return types.Memory{}, errs.Wrap("SemanticMemory.Validate", errs.ErrIO, err)
	}
	return m.getRow(ctx, id)
}

func (m *Memory) getRow(ctx context.Context, id string) (types.Memory, error) {
	row := m.db.QueryRow(ctx, `
		SELECT id, project_key, content, tags, collection, confidence, decay_tier, created_at, validated_at, embedding
		FROM memories WHERE id = ?
	`, id)

	var mem types.Memory
	var projectKey *string
	var tagsJSON *string
	var createdAt, validatedAt string
	var embedding []byte
	if err := row.Scan(&mem.ID, &projectKey, &mem.Content, &tagsJSON, &mem.Collection, &mem.Confidence,
		&mem.DecayTier, &createdAt, &validatedAt, &embedding); err != nil {
		return types.Memory{}, errs.NotFound("SemanticMemory.Get", "memory", id)
	}
	if projectKey != nil {
		mem.ProjectKey = *projectKey
	}
	if tagsJSON != nil {
		mem.Tags = decodeTags(*tagsJSON)
	}
	mem.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	mem.ValidatedAt, _ = time.Parse(time.RFC3339, validatedAt)
	if len(embedding) > 0 {
		mem.Embedding = decodeEmbedding(embedding)
	}
	return mem, nil
}

// Stats summarizes the memory store (spec §4.8).
type Stats struct {
	Total       int
	ByCollection map[string]int
	ByDecayTier  map[string]int
}

// Stats returns counts by collection and decay tier.
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByCollection: map[string]int{}, ByDecayTier: map[string]int{}}
	rows, err := m.db.Query(ctx, `SELECT collection, decay_tier FROM memories WHERE project_key = ?`, m.projectKey)
	if err != nil {
		return Stats{}, errs.Wrap("SemanticMemory.Stats", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var collection, tier string
		if err := rows.Scan(&collection, &tier); err != nil {
			return Stats{}, errs.Wrap("SemanticMemory.Stats", errs.ErrIO, err)
		}
		stats.Total++
		stats.ByCollection[collection]++
		stats.ByDecayTier[tier]++
	}
	return stats, rows.Err()
}
