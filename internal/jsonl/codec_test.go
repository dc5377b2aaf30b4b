package jsonl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() *Row {
	return &Row{
		ID:        "hive-abc123-f00bar",
		Title:     "Fix flaky retry test",
		Status:    "open",
		Priority:  1,
		IssueType: "bug",
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-01T00:00:00Z",
		Labels:    []string{"b", "a"},
	}
}

func TestContentHash_StableUnderLabelOrder(t *testing.T) {
	a := sampleRow()
	b := sampleRow()
	b.Labels = []string{"a", "b"}
	assert.Equal(t, ContentHash(a), ContentHash(b))
}

func TestContentHash_ChangesWithContent(t *testing.T) {
	a := sampleRow()
	b := sampleRow()
	b.Status = "closed"
	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}

func TestWriteAtomicThenReadFromFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cells.jsonl")
	rows := []*Row{sampleRow()}

	require.NoError(t, WriteAtomic(path, rows))

	got, err := ReadFromFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rows[0].ID, got[0].ID)
	assert.Equal(t, ContentHash(rows[0]), ContentHash(got[0]))
}

func TestReadFromData_SkipsBlankLines(t *testing.T) {
	data := []byte(`{"id":"a-1-aaaaaa","title":"x","status":"open","priority":0,"issue_type":"task","created_at":"t","updated_at":"t"}` + "\n\n")
	rows, err := ReadFromData(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a-1-aaaaaa", rows[0].ID)
}
