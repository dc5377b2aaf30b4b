// Package config provides swarmhive's layered configuration: defaults,
// optional TOML/YAML config file, and environment variable overrides, via
// spf13/viper. Call Initialize once per process before reading any setting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Env var prefix for overrides, e.g. SWARMHIVE_MEMORY_DEDUP_SCORE.
const envPrefix = "SWARMHIVE"

var v *viper.Viper

// Initialize creates the package-level viper instance, registers defaults
// for every component, and loads an optional config file. configPath may be
// empty, in which case only defaults and environment overrides apply.
func Initialize(configPath string) error {
	v = newViperWithDefaults()

	if configPath == "" {
		return nil
	}
	v.SetConfigFile(configPath)
	v.SetConfigType(configTypeFor(configPath))
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", configPath, err)
	}
	return nil
}

func configTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

func ensure() *viper.Viper {
	if v == nil {
		v = newViperWithDefaults()
	}
	return v
}

// newViperWithDefaults builds a viper instance with every component's
// defaults registered and environment overrides enabled, so callers that
// never invoke Initialize (e.g. package tests exercising a single component)
// still see the documented defaults rather than zero values.
func newViperWithDefaults() *viper.Viper {
	nv := viper.New()
	nv.SetEnvPrefix(envPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()

	prior := v
	v = nv
	RegisterStoreDefaults()
	RegisterReservationDefaults()
	RegisterReviewDefaults()
	RegisterInboxDefaults()
	RegisterMemoryDefaults()
	RegisterReadyDefaults()
	RegisterLockDefaults()
	v = prior

	return nv
}

// GetString returns the string value for key.
func GetString(key string) string { return ensure().GetString(key) }

// GetInt returns the int value for key.
func GetInt(key string) int { return ensure().GetInt(key) }

// GetFloat64 returns the float64 value for key.
func GetFloat64(key string) float64 { return ensure().GetFloat64(key) }

// GetBool returns the bool value for key.
func GetBool(key string) bool { return ensure().GetBool(key) }

// GetDuration returns the time.Duration value for key.
func GetDuration(key string) time.Duration { return ensure().GetDuration(key) }

// GetStringSlice returns the []string value for key.
func GetStringSlice(key string) []string { return ensure().GetStringSlice(key) }
