package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmhive/swarmhive/internal/errs"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.New("x", errs.ErrValidation, "bad"), exitValidation},
		{"conflict", errs.New("x", errs.ErrConflict, "held"), exitConflict},
		{"not found", errs.NotFound("x", "cell", "abc"), exitNotFound},
		{"io", errs.New("x", errs.ErrIO, "disk"), exitIO},
		{"projection", errs.New("x", errs.ErrProjection, "stale"), exitIO},
		{"state", errs.New("x", errs.ErrState, "wrong phase"), exitGeneric},
		{"bare error", assert.AnError, exitGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeFor(tc.err))
		})
	}
}

func TestParseTTLSeconds(t *testing.T) {
	t.Run("empty is zero", func(t *testing.T) {
		secs, err := parseTTLSeconds("")
		require.NoError(t, err)
		assert.Equal(t, 0, secs)
	})

	t.Run("go duration", func(t *testing.T) {
		secs, err := parseTTLSeconds("90s")
		require.NoError(t, err)
		assert.Equal(t, 90, secs)
	})

	t.Run("natural language", func(t *testing.T) {
		secs, err := parseTTLSeconds("in 30 minutes")
		require.NoError(t, err)
		assert.InDelta(t, 30*60, secs, 5)
	})

	t.Run("nonsense is an error", func(t *testing.T) {
		_, err := parseTTLSeconds("the day after never")
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})
}

func TestSnapshotPath(t *testing.T) {
	old := projectKey
	projectKey = "acme-widgets"
	defer func() { projectKey = old }()

	assert.Equal(t, filepath.Join(".hive", "acme-widgets.jsonl"), snapshotPath(""))
	assert.Equal(t, "/tmp/custom.jsonl", snapshotPath("/tmp/custom.jsonl"))
}

// runCLI executes rootCmd against a throwaway store in dir and returns what
// cobra wrote to its output writer; commands that print with fmt.Printf go to
// the process stdout and are not captured.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	oldDB, oldProject, oldJSON := dbPath, projectKey, jsonOutput
	defer func() { dbPath, projectKey, jsonOutput = oldDB, oldProject, oldJSON }()

	dbPath = filepath.Join(dir, "hive.db")
	projectKey = "acme-widgets"
	jsonOutput = false

	rootCmd.SetArgs(args)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetContext(context.Background())
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCellCreate(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "cell", "create", "add retry backoff", "--type", "task")
	require.NoError(t, err)
}

func TestReserveConflict(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "reserve", "add", "src/**/util.go", "--agent", "worker-1", "--ttl", "5m")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "reserve", "add", "src/pkg/foo/util.go", "--agent", "worker-2", "--ttl", "5m")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConflict))
}
