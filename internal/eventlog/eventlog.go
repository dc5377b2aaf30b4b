// Package eventlog implements the append-only Event log (spec §4.2): every
// write is a single transaction covering both the append and the Projector's
// derived-table update, so projections never lag the log.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// Projector applies one committed event to derived tables, within the same
// transaction as its append. Defined here (rather than importing package
// projector) so eventlog and projector do not import each other.
type Projector interface {
	Apply(ctx context.Context, tx *sql.Tx, event *types.Event) error
}

// DB is the subset of store.Store EventLog needs.
type DB interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// EventLog is the append-only log for one store.
type EventLog struct {
	db        DB
	projector Projector
}

// New builds an EventLog backed by db, dispatching every append through projector.
func New(db DB, projector Projector) *EventLog {
	return &EventLog{db: db, projector: projector}
}

// Appended identifies a committed event.
type Appended struct {
	ID       int64
	Sequence int64
}

// Append writes one event and projects it within a single transaction
// (spec §4.2 algorithm). If idempotencyID is supplied and already present
// for this project, Append is a no-op and returns the existing event's id.
func (l *EventLog) Append(ctx context.Context, projectKey string, eventType types.EventType, data interface{}, idempotencyID string) (Appended, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Appended{}, errs.New("EventLog.Append", errs.ErrValidation, fmt.Sprintf("encode %s payload: %v", eventType, err))
	}

	if idempotencyID == "" {
		idempotencyID = uuid.NewString()
	}

	var result Appended
	err = l.db.Transaction(ctx, func(tx *sql.Tx) error {
		if existing, found, lookupErr := l.lookupIdempotent(ctx, tx, projectKey, idempotencyID); lookupErr != nil {
			return lookupErr
		} else if found {
			result = existing
			return nil
		}

		now := nowMillis()
		res, execErr := tx.ExecContext(ctx, `
			INSERT INTO events (project_key, type, timestamp_ms, data, idempotency_id)
			VALUES (?, ?, ?, ?, ?)
		`, projectKey, string(eventType), now, string(payload), idempotencyID)
		if execErr != nil {
			return errs.Wrap("EventLog.Append", errs.ErrIO, execErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return errs.Wrap("EventLog.Append", errs.ErrIO, idErr)
		}

		event := &types.Event{
			ID: id, ProjectKey: projectKey, Type: eventType,
			TimestampMs: now, Data: json.RawMessage(payload), IdempotencyID: idempotencyID,
		}

		if l.projector != nil {
			if projErr := l.projector.Apply(ctx, tx, event); projErr != nil {
				return errs.Wrap("EventLog.Append", errs.ErrProjection, projErr)
			}
		}

		result = Appended{ID: id, Sequence: id}
		return nil
	})
	if err != nil {
		return Appended{}, err
	}
	return result, nil
}

func (l *EventLog) lookupIdempotent(ctx context.Context, tx *sql.Tx, projectKey, idempotencyID string) (Appended, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM events WHERE project_key = ? AND idempotency_id = ?
	`, projectKey, idempotencyID).Scan(&id)
	if err == sql.ErrNoRows {
		return Appended{}, false, nil
	}
	if err != nil {
		return Appended{}, false, errs.Wrap("EventLog.Append", errs.ErrIO, err)
	}
	return Appended{ID: id, Sequence: id}, true, nil
}

// ReadFilter narrows Read's result set (spec §4.2).
type ReadFilter struct {
	ProjectKey string
	AfterID    int64
	Types      []types.EventType
	Limit      int
	SinceMs    int64
	UntilMs    int64
}

// Read returns events ordered by id ascending, matching filter.
func (l *EventLog) Read(ctx context.Context, filter ReadFilter) ([]*types.Event, error) {
	query := `SELECT id, project_key, type, timestamp_ms, data, idempotency_id FROM events WHERE project_key = ?`
	args := []interface{}{filter.ProjectKey}

	if filter.AfterID > 0 {
		query += ` AND id > ?`
		args = append(args, filter.AfterID)
	}
	if filter.SinceMs > 0 {
		query += ` AND timestamp_ms >= ?`
		args = append(args, filter.SinceMs)
	}
	if filter.UntilMs > 0 {
		query += ` AND timestamp_ms <= ?`
		args = append(args, filter.UntilMs)
	}
	if len(filter.Types) > 0 {
		placeholders := ""
		for i, t := range filter.Types {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(` AND type IN (%s)`, placeholders)
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap("EventLog.Read", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// Visitor receives each event during Replay.
type Visitor func(event *types.Event) error

// Replay streams every event for projectKey, ordered by id, through visit.
// Used to rebuild projections from scratch (spec §4.2, §9 testable property:
// replay reproduces projections byte-for-byte).
func (l *EventLog) Replay(ctx context.Context, projectKey string, visit Visitor) error {
	const batchSize = 200
	afterID := int64(0)
	for {
		events, err := l.Read(ctx, ReadFilter{ProjectKey: projectKey, AfterID: afterID, Limit: batchSize})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, event := range events {
			if err := visit(event); err != nil {
				return err
			}
			afterID = event.ID
		}
		if len(events) < batchSize {
			return nil
		}
	}
}

func scanEvents(rows *sql.Rows) ([]*types.Event, error) {
	var events []*types.Event
	for rows.Next() {
		var (
			e             types.Event
			data          string
			idempotencyID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ProjectKey, &e.Type, &e.TimestampMs, &data, &idempotencyID); err != nil {
			return nil, errs.Wrap("EventLog.Read", errs.ErrIO, err)
		}
		e.Data = json.RawMessage(data)
		if idempotencyID.Valid {
			e.IdempotencyID = idempotencyID.String
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap("EventLog.Read", errs.ErrIO, err)
	}
	return events, nil
}
