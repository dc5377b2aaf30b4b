package config

// Ready-work sort policy config (SPEC_FULL §2 supplemented feature).
const (
	KeyReadySortPolicy = "ready.sort-policy"

	SortPolicyHybrid   = "hybrid"
	SortPolicyPriority = "priority"
	SortPolicyOldest   = "oldest"
)

// RegisterReadyDefaults registers default values for ready-work queries.
func RegisterReadyDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyReadySortPolicy, SortPolicyHybrid)
}

// GetReadySortPolicy returns the configured sort policy for ready cells.
func GetReadySortPolicy() string {
	switch p := GetString(KeyReadySortPolicy); p {
	case SortPolicyPriority, SortPolicyOldest, SortPolicyHybrid:
		return p
	default:
		return SortPolicyHybrid
	}
}
