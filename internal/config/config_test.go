package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envSnapshot saves and clears SWARMHIVE_ environment variables.
func envSnapshot(t *testing.T) func() {
	t.Helper()
	saved := make(map[string]string)
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix+"_") {
			parts := strings.SplitN(env, "=", 2)
			saved[parts[0]] = os.Getenv(parts[0])
			os.Unsetenv(parts[0])
		}
	}
	return func() {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, envPrefix+"_") {
				os.Unsetenv(strings.SplitN(env, "=", 2)[0])
			}
		}
		for key, val := range saved {
			os.Setenv(key, val)
		}
	}
}

func TestInitialize_NoConfigFile(t *testing.T) {
	require.NoError(t, Initialize(""))
	assert.NotNil(t, v)
}

func TestDefaults(t *testing.T) {
	restore := envSnapshot(t)
	defer restore()
	require.NoError(t, Initialize(""))

	assert.Equal(t, 3600, GetReservationDefaultTTLSeconds())
	assert.Equal(t, 3, GetReviewMaxRejections())
	assert.Equal(t, 5, GetInboxMaxLimit())
	assert.Equal(t, 0.85, GetMemoryDedupScore())
	assert.Equal(t, SortPolicyHybrid, GetReadySortPolicy())
}

func TestEnvOverride(t *testing.T) {
	restore := envSnapshot(t)
	defer restore()

	os.Setenv("SWARMHIVE_REVIEW_MAX_REJECTIONS", "5")
	require.NoError(t, Initialize(""))

	assert.Equal(t, 5, GetReviewMaxRejections())
}

func TestInboxMaxLimit_NeverExceedsHardCap(t *testing.T) {
	restore := envSnapshot(t)
	defer restore()

	os.Setenv("SWARMHIVE_INBOX_MAX_LIMIT", "100")
	require.NoError(t, Initialize(""))

	assert.Equal(t, InboxHardCap, GetInboxMaxLimit())
}
