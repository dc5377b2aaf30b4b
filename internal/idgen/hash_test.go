package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBase36_PadsAndTruncates(t *testing.T) {
	got := EncodeBase36([]byte{0x00}, 4)
	assert.Equal(t, "0000", got)

	got = EncodeBase36([]byte{0xff, 0xff, 0xff, 0xff}, 3)
	assert.Len(t, got, 3)
}

func TestGenerateCellID_MatchesShape(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := GenerateCellID("swarmhive", "fix flaky test", "coordinator", now, 0)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "swarmhive", parts[0])
	assert.Len(t, parts[1], 6)
	assert.Len(t, parts[2], 6)
}

func TestGenerateCellID_NonceAvoidsCollision(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := GenerateCellID("swarmhive", "same title", "agent", now, 0)
	b := GenerateCellID("swarmhive", "same title", "agent", now, 1)
	assert.NotEqual(t, a, b)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-cool-project", Slugify("My Cool Project!!"))
	assert.Equal(t, "project", Slugify("???"))
}

func TestResolve(t *testing.T) {
	ids := []string{"hive-abc123-f00bar", "hive-abc123-baz999", "hive-xyz987-qux111"}

	match, rivals := Resolve("hive-abc123-f00bar", ids)
	assert.Equal(t, "hive-abc123-f00bar", match)
	assert.Empty(t, rivals)

	match, rivals = Resolve("qux111", ids)
	assert.Equal(t, "hive-xyz987-qux111", match)
	assert.Empty(t, rivals)

	match, rivals = Resolve("abc123", ids)
	assert.Empty(t, match)
	assert.Len(t, rivals, 2)

	match, rivals = Resolve("nope", ids)
	assert.Empty(t, match)
	assert.Empty(t, rivals)
}
