package config

// Inbox config keys (spec §6 options table).
const (
	KeyInboxMaxLimit = "inbox.max-limit"
)

// InboxHardCap is the absolute ceiling on inbox fetch size; no config value,
// however high, may raise it above this (spec §5 back-pressure).
const InboxHardCap = 5

// RegisterInboxDefaults registers default values for inbox configuration.
func RegisterInboxDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyInboxMaxLimit, InboxHardCap)
}

// GetInboxMaxLimit returns the configured inbox cap, clamped to InboxHardCap.
func GetInboxMaxLimit() int {
	limit := GetInt(KeyInboxMaxLimit)
	if limit <= 0 || limit > InboxHardCap {
		return InboxHardCap
	}
	return limit
}
