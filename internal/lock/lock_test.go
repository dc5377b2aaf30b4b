package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlitestore "github.com/swarmhive/swarmhive/internal/store/sqlite"
)

func newTestLock(t *testing.T) (*Lock, func()) {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return New(s), func() { _ = s.Close() }
}

func TestAcquire_GrantsFirstClaimant(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	result, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Seq)
}

func TestAcquire_SameHolderRenewsWithoutBumpingSeq(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	first, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)

	second, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, first.Seq, second.Seq)
}

func TestAcquire_DifferentHolderConflicts(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	_, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-2", TTLSeconds: 1})
	assert.Error(t, err)
}

func TestAcquire_ExpiredLockIsHarvestableAndBumpsFenceToken(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	first, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 1})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	second, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-2", TTLSeconds: 30})
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestRelease_OnlyByCurrentHolder(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	_, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 30})
	require.NoError(t, err)

	err = l.Release(context.Background(), "migration", "worker-2")
	assert.Error(t, err)

	err = l.Release(context.Background(), "migration", "worker-1")
	assert.NoError(t, err)

	_, err = l.Get(context.Background(), "migration")
	assert.Error(t, err)
}

func TestRenew_ExtendsExpiry(t *testing.T) {
	l, cleanup := newTestLock(t)
	defer cleanup()

	_, err := l.Acquire(context.Background(), AcquireInput{Resource: "migration", Holder: "worker-1", TTLSeconds: 1})
	require.NoError(t, err)

	before, err := l.Get(context.Background(), "migration")
	require.NoError(t, err)

	require.NoError(t, l.Renew(context.Background(), "migration", "worker-1", 120))

	after, err := l.Get(context.Background(), "migration")
	require.NoError(t, err)
	assert.True(t, after.ExpiresAt.After(before.ExpiresAt))
}
