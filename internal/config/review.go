package config

// Review config keys (spec §6 options table).
const (
	KeyReviewMaxRejections = "review.max-rejections"
)

// RegisterReviewDefaults registers default values for review configuration.
func RegisterReviewDefaults() {
	if v == nil {
		return
	}
	// Changing this is a breaking policy change (spec §6).
	v.SetDefault(KeyReviewMaxRejections, 3)
}

// GetReviewMaxRejections returns the 3-strike review threshold.
func GetReviewMaxRejections() int { return GetInt(KeyReviewMaxRejections) }
