package config

// Reservation config keys (spec §6 options table).
const (
	KeyReservationDefaultTTLSeconds = "reservation.default-ttl-seconds"
)

// RegisterReservationDefaults registers default values for reservation configuration.
func RegisterReservationDefaults() {
	if v == nil {
		return
	}
	v.SetDefault(KeyReservationDefaultTTLSeconds, 3600)
}

// GetReservationDefaultTTLSeconds returns the default reservation TTL in seconds.
func GetReservationDefaultTTLSeconds() int { return GetInt(KeyReservationDefaultTTLSeconds) }
