package config

// Store config keys.
const (
	KeyStoreDBPath        = "store.db-path"
	KeyStoreRuntimeName   = "store.runtime-name"
	KeyStoreConfigHome    = "store.config-home"
	KeyStoreBackoffMaxTry = "store.backoff.max-attempts"
)

// RegisterStoreDefaults registers default values for Store configuration.
func RegisterStoreDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyStoreRuntimeName, "swarmhive")
	v.SetDefault(KeyStoreBackoffMaxTry, 5)
}

// GetStoreBackoffMaxAttempts returns the max retry attempts on lock contention.
func GetStoreBackoffMaxAttempts() int { return GetInt(KeyStoreBackoffMaxTry) }
