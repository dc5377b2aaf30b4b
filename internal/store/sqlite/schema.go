package sqlite

import (
	"context"
	"fmt"
)

// createSchema creates every table, index, and shadow table idempotently
// (CREATE TABLE IF NOT EXISTS throughout), matching the data model in
// spec §3.
func (s *SQLiteStore) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_key TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		data TEXT NOT NULL,
		idempotency_id TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_idempotency
		ON events(project_key, idempotency_id) WHERE idempotency_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_events_project_id ON events(project_key, id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_project_type ON events(project_key, type)`,

	`CREATE TABLE IF NOT EXISTS agents (
		project_key TEXT NOT NULL,
		name TEXT NOT NULL,
		program TEXT,
		model TEXT,
		task_description TEXT,
		registered_at TEXT NOT NULL,
		last_active_at TEXT NOT NULL,
		PRIMARY KEY (project_key, name)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		from_agent TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		thread_id TEXT,
		importance TEXT NOT NULL DEFAULT 'normal',
		ack_required INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(project_key, thread_id)`,

	`CREATE TABLE IF NOT EXISTS message_recipients (
		message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		agent_name TEXT NOT NULL,
		read_at TEXT,
		acked_at TEXT,
		PRIMARY KEY (message_id, agent_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipients_agent ON message_recipients(agent_name, message_id)`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		path_pattern TEXT NOT NULL,
		exclusive INTEGER NOT NULL DEFAULT 1,
		reason TEXT,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		released_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_active
		ON reservations(project_key, released_at, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_agent ON reservations(project_key, agent_name)`,

	`CREATE TABLE IF NOT EXISTS cells (
		id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 2,
		parent_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cells_project_status ON cells(project_key, status)`,
	`CREATE INDEX IF NOT EXISTS idx_cells_parent ON cells(parent_id)`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		project_key TEXT NOT NULL,
		cell_id TEXT NOT NULL REFERENCES cells(id) ON DELETE CASCADE,
		depends_on_id TEXT NOT NULL,
		relationship TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (cell_id, depends_on_id, relationship)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_reverse ON dependencies(depends_on_id, relationship)`,

	`CREATE TABLE IF NOT EXISTS blocked_cache (
		cell_id TEXT PRIMARY KEY REFERENCES cells(id) ON DELETE CASCADE,
		blocker_ids TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS decision_traces (
		id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		decision_type TEXT NOT NULL,
		epic_id TEXT,
		bead_id TEXT,
		agent_name TEXT NOT NULL,
		decision TEXT NOT NULL,
		rationale TEXT,
		inputs_gathered TEXT,
		policy_evaluated TEXT,
		alternatives TEXT,
		precedent_cited TEXT,
		outcome_event_id INTEGER,
		quality_score REAL NOT NULL DEFAULT 0,
		timestamp TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decision_traces_bead ON decision_traces(project_key, bead_id)`,

	`CREATE TABLE IF NOT EXISTS entity_links (
		id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		from_decision TEXT NOT NULL REFERENCES decision_traces(id) ON DELETE CASCADE,
		to_entity_type TEXT NOT NULL,
		to_entity_id TEXT NOT NULL,
		link_type TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS decision_points (
		cell_id TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		prompt TEXT NOT NULL,
		options TEXT NOT NULL,
		default_option TEXT,
		selected_option TEXT,
		rationale TEXT,
		iteration INTEGER NOT NULL DEFAULT 0,
		max_iterations INTEGER NOT NULL DEFAULT 3,
		requested_by TEXT,
		created_at TEXT NOT NULL,
		responded_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS swarm_contexts (
		project_key TEXT NOT NULL,
		epic_id TEXT NOT NULL,
		bead_id TEXT NOT NULL,
		strategy TEXT,
		files TEXT,
		dependencies TEXT,
		directives TEXT,
		recovery TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project_key, epic_id, bead_id)
	)`,

	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		project_key TEXT,
		content TEXT NOT NULL,
		tags TEXT,
		collection TEXT NOT NULL DEFAULT 'default',
		confidence REAL NOT NULL DEFAULT 1,
		decay_tier TEXT NOT NULL DEFAULT 'hot',
		created_at TEXT NOT NULL,
		validated_at TEXT NOT NULL,
		embedding BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_collection ON memories(collection, decay_tier)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		id UNINDEXED, content
	)`,

	`CREATE TABLE IF NOT EXISTS memory_entities (
		id TEXT PRIMARY KEY,
		project_key TEXT,
		pref_label TEXT NOT NULL,
		alt_labels TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_memory_entities_label
		ON memory_entities(project_key, pref_label)`,

	`CREATE TABLE IF NOT EXISTS memory_links (
		from_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		to_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		link_type TEXT NOT NULL,
		PRIMARY KEY (from_memory_id, to_memory_id, link_type)
	)`,

	`CREATE TABLE IF NOT EXISTS memory_validations (
		memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		validated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS locks (
		resource TEXT PRIMARY KEY,
		holder TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		acquired_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS cursors (
		stream TEXT NOT NULL,
		checkpoint TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (stream, checkpoint)
	)`,

	`CREATE TABLE IF NOT EXISTS dirty_cells (
		cell_id TEXT PRIMARY KEY,
		content_hash TEXT,
		marked_at TEXT NOT NULL
	)`,
}
