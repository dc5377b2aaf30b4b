package config

// Memory config keys (spec §6 options table).
const (
	KeyEmbeddingModel            = "embedding.model"
	KeyEmbeddingDim              = "embedding.dim"
	KeyMemoryDecayTierHotDays    = "memory.decay-tiers.hot-days"
	KeyMemoryDecayTierWarmDays   = "memory.decay-tiers.warm-days"
	KeyMemoryDecayTierColdDays   = "memory.decay-tiers.cold-days"
	KeyMemoryDedupScore          = "memory.dedup-score"
	KeyMemoryRecallCooldownMs    = "memory.recall-cooldown-ms"
	KeyMemoryMinRecallScore      = "memory.min-recall-score"
)

// RegisterMemoryDefaults registers default values for memory configuration.
func RegisterMemoryDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyEmbeddingModel, "")
	v.SetDefault(KeyEmbeddingDim, 1536)
	v.SetDefault(KeyMemoryDecayTierHotDays, 7)
	v.SetDefault(KeyMemoryDecayTierWarmDays, 30)
	v.SetDefault(KeyMemoryDecayTierColdDays, 180)
	v.SetDefault(KeyMemoryDedupScore, 0.85)
	v.SetDefault(KeyMemoryRecallCooldownMs, 30000)
	v.SetDefault(KeyMemoryMinRecallScore, 0.55)
}

// DecayTierDays holds the configured tier boundaries, in days since
// last validation (spec §4.8).
type DecayTierDays struct {
	Hot  int
	Warm int
	Cold int
}

// GetDecayTierDays returns the configured decay tier boundaries.
func GetDecayTierDays() DecayTierDays {
	return DecayTierDays{
		Hot:  GetInt(KeyMemoryDecayTierHotDays),
		Warm: GetInt(KeyMemoryDecayTierWarmDays),
		Cold: GetInt(KeyMemoryDecayTierColdDays),
	}
}

// GetEmbeddingDim returns the configured embedding vector dimensionality.
func GetEmbeddingDim() int { return GetInt(KeyEmbeddingDim) }

// GetMemoryDedupScore returns the semantic dedup threshold.
func GetMemoryDedupScore() float64 { return GetFloat64(KeyMemoryDedupScore) }

// GetMemoryRecallCooldownMs returns the minimum ms between auto-recall queries.
func GetMemoryRecallCooldownMs() int { return GetInt(KeyMemoryRecallCooldownMs) }

// GetMemoryMinRecallScore returns the minimum score for recall inclusion.
func GetMemoryMinRecallScore() float64 { return GetFloat64(KeyMemoryMinRecallScore) }
