package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/projector"
	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/types"
)

const testProject = "acme-widgets"

func newTestMemory(t *testing.T, embed EmbedFunc) *Memory {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	log := eventlog.New(s, projector.New())
	return New(s, log, testProject, embed, nil)
}

func TestStore_ThenGet(t *testing.T) {
	m := newTestMemory(t, nil)
	result, err := m.Store(context.Background(), StoreInput{
		Content: "Always prefer explicit error returns over panics in this codebase.",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	got, err := m.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DecayHot, got.DecayTier)
	assert.Contains(t, got.Content, "explicit error returns")
}

func TestStore_RejectsEmptyContent(t *testing.T) {
	m := newTestMemory(t, nil)
	_, err := m.Store(context.Background(), StoreInput{Content: "   "})
	assert.Error(t, err)
}

func TestStore_ExactDuplicateSuppressedByCache(t *testing.T) {
	m := newTestMemory(t, nil)
	content := "Decided to use SQLite in WAL mode because it avoids reader/writer contention."
	first, err := m.Store(context.Background(), StoreInput{Content: content})
	require.NoError(t, err)

	second, err := m.Store(context.Background(), StoreInput{Content: content})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ID, second.ID)
}

func TestStore_SemanticDuplicateDetectedViaEmbedding(t *testing.T) {
	embed := func(_ context.Context, text string) ([]float32, error) {
		if len(text) > 20 {
			return []float32{1, 0, 0}, nil
		}
		return []float32{0, 1, 0}, nil
	}
	m := newTestMemory(t, embed)

	first, err := m.Store(context.Background(), StoreInput{Content: "The reservation manager retries on SQLITE_BUSY with backoff."})
	require.NoError(t, err)

	second, err := m.Store(context.Background(), StoreInput{Content: "The reservation layer retries with backoff when SQLITE_BUSY occurs here."})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ID, second.ID)
}

func TestFind_FTSFallbackWhenNoEmbedder(t *testing.T) {
	m := newTestMemory(t, nil)
	_, err := m.Store(context.Background(), StoreInput{
		Content: "Gotcha: the blocked_cache table must be rebuilt inside the same transaction as the status change.",
	})
	require.NoError(t, err)

	results, err := m.Find(context.Background(), FindInput{Query: "blocked_cache", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Memory.Content, "blocked_cache")
}

func TestFind_SemanticRanksByCosineSimilarity(t *testing.T) {
	embed := func(_ context.Context, text string) ([]float32, error) {
		if len(text)%2 == 0 {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	}
	m := newTestMemory(t, embed)

	_, err := m.Store(context.Background(), StoreInput{Content: "a gotcha even length content block"})
	require.NoError(t, err)
	_, err = m.Store(context.Background(), StoreInput{Content: "aa gotcha odd length content blocks"})
	require.NoError(t, err)

	results, err := m.Find(context.Background(), FindInput{Query: "query even", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Memory.Content, "even length")
}

func TestDelete_RemovesRow(t *testing.T) {
	m := newTestMemory(t, nil)
	result, err := m.Store(context.Background(), StoreInput{Content: "Warning: never commit the locks table holder field without a fence token."})
	require.NoError(t, err)

	require.NoError(t, m.Delete(context.Background(), result.ID))

	_, err = m.Get(context.Background(), result.ID)
	assert.Error(t, err)
}

func TestValidate_ResetsDecayToHot(t *testing.T) {
	m := newTestMemory(t, nil)
	result, err := m.Store(context.Background(), StoreInput{Content: "Architecture decision: event log and projector stay decoupled via an interface."})
	require.NoError(t, err)

	got, err := m.Validate(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DecayHot, got.DecayTier)
}

func TestRecomputeDecayTiers_MovesStaleRows(t *testing.T) {
	m := newTestMemory(t, nil)
	result, err := m.Store(context.Background(), StoreInput{Content: "Configuration rule: memory.dedup-score must stay below 1.0."})
	require.NoError(t, err)

	_, err = m.Update(context.Background(), result.ID, map[string]interface{}{
		"decay_tier": string(types.DecayHot),
	})
	require.NoError(t, err)

	future := time.Now().Add(400 * 24 * time.Hour)
	changed, err := m.RecomputeDecayTiers(context.Background(), future)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := m.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DecayStale, got.DecayTier)
}

func TestStats_CountsByCollectionAndTier(t *testing.T) {
	m := newTestMemory(t, nil)
	_, err := m.Store(context.Background(), StoreInput{Content: "Learning: always close sql.Rows in a defer.", Collection: "eng"})
	require.NoError(t, err)
	_, err = m.Store(context.Background(), StoreInput{Content: "Learning: always check rows.Err after a scan loop.", Collection: "eng"})
	require.NoError(t, err)

	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByCollection["eng"])
	assert.Equal(t, 2, stats.ByDecayTier[string(types.DecayHot)])
}

type stubExtractor struct {
	result ExtractionResult
}

func (s stubExtractor) Extract(_ context.Context, _ string) (ExtractionResult, error) {
	return s.result, nil
}

func TestStore_ExtractEntitiesWritesTaxonomy(t *testing.T) {
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	log := eventlog.New(s, projector.New())

	extractor := stubExtractor{result: ExtractionResult{
		Entities: []types.ExtractedEntity{{PrefLabel: "sqlite", AltLabels: []string{"SQLite"}}},
	}}
	m := New(s, log, testProject, nil, extractor)

	_, err = m.Store(context.Background(), StoreInput{
		Content:         "The store layer embeds modernc.org/sqlite for a CGO-free build.",
		ExtractEntities: true,
	})
	require.NoError(t, err)

	entities, err := m.ListEntities(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "sqlite", entities[0].PrefLabel)
}

func TestIsStoredWorthy_FiltersSystemMessagesAndShortContent(t *testing.T) {
	assert.False(t, IsStoredWorthy("too short"))
	assert.False(t, IsStoredWorthy("watchdog heartbeat check: all agents nominal, nothing to report here today"))
	assert.True(t, IsStoredWorthy("Gotcha: closing the store before draining in-flight queries panics under WAL mode."))
}

