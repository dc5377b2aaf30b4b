// Package jsonl reads and writes the Hive cell snapshot format: one JSON
// object per line, UTF-8, newline-terminated (spec §6).
package jsonl

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DependencyRef is one entry in a Row's dependencies list.
type DependencyRef struct {
	DependsOnID string `json:"depends_on_id"`
	Type        string `json:"type"`
}

// CommentRef is one entry in a Row's comments list.
type CommentRef struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Row is one line of a Hive JSONL snapshot (spec §6).
type Row struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	IssueType    string          `json:"issue_type"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	Dependencies []DependencyRef `json:"dependencies,omitempty"`
	Labels       []string        `json:"labels,omitempty"`
	Comments     []CommentRef    `json:"comments,omitempty"`
}

// ContentHash returns the SHA-256 hex digest of a canonical serialization of
// the row, including timestamps, used to detect unchanged rows on import
// (spec §4.6).
func ContentHash(r *Row) string {
	canon := struct {
		ID           string          `json:"id"`
		Title        string          `json:"title"`
		Description  string          `json:"description"`
		Status       string          `json:"status"`
		Priority     int             `json:"priority"`
		IssueType    string          `json:"issue_type"`
		CreatedAt    string          `json:"created_at"`
		UpdatedAt    string          `json:"updated_at"`
		Dependencies []DependencyRef `json:"dependencies"`
		Labels       []string        `json:"labels"`
		Comments     []CommentRef    `json:"comments"`
	}{
		ID: r.ID, Title: r.Title, Description: r.Description, Status: r.Status,
		Priority: r.Priority, IssueType: r.IssueType, CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt, Dependencies: r.Dependencies, Labels: r.Labels,
		Comments: r.Comments,
	}
	sort.Strings(canon.Labels)
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReadFromFile reads rows from a JSONL file on disk.
func ReadFromFile(path string) ([]*Row, error) {
	// #nosec G304 - path is caller-controlled (Hive export directory)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSONL file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return readScanner(bufio.NewScanner(file))
}

// ReadFromData reads rows from JSONL data already in memory.
func ReadFromData(data []byte) ([]*Row, error) {
	return readScanner(bufio.NewScanner(bytes.NewReader(data)))
}

func readScanner(scanner *bufio.Scanner) ([]*Row, error) {
	// Allow up to 64MB per line for large descriptions/comments.
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var rows []*Row
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("parse cell at line %d: %w", lineNum, err)
		}
		rows = append(rows, &row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan JSONL: %w", err)
	}
	return rows, nil
}

// WriteAtomic writes rows to path by first writing a temp file in the same
// directory, then renaming it into place, so readers never observe a partial
// snapshot (grounded on the teacher's export/manifest writer pattern).
func WriteAtomic(path string, rows []*Row) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp JSONL file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := bufio.NewWriter(tmp)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			_ = tmp.Close()
			return fmt.Errorf("marshal cell %s: %w", row.ID, err)
		}
		if _, err := w.Write(data); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write cell %s: %w", row.ID, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush JSONL file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp JSONL file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename JSONL file into place: %w", err)
	}
	return nil
}
