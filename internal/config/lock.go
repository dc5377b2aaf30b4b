package config

// Lock config keys (spec §3 "Lock").
const (
	KeyLockDefaultTTLSeconds = "lock.default-ttl-seconds"
	KeyLockMaxAcquireAttempts = "lock.max-acquire-attempts"
)

// RegisterLockDefaults registers default values for Lock configuration.
func RegisterLockDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyLockDefaultTTLSeconds, 60)
	v.SetDefault(KeyLockMaxAcquireAttempts, 5)
}

// GetLockDefaultTTLSeconds returns the default Lock TTL.
func GetLockDefaultTTLSeconds() int { return GetInt(KeyLockDefaultTTLSeconds) }

// GetLockMaxAcquireAttempts returns the max contention-retry attempts for Acquire.
func GetLockMaxAcquireAttempts() int { return GetInt(KeyLockMaxAcquireAttempts) }
