// Package projector applies committed events to derived tables (spec §4.3).
// Every handler runs inside the same transaction as the event's append and
// must be idempotent against replay of the same event id.
package projector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// Projector dispatches events to per-type handlers.
type Projector struct{}

// New builds a Projector.
func New() *Projector { return &Projector{} }

// Apply implements eventlog.Projector. Unknown event types are stored in
// the log (by EventLog.Append, before Apply is even called) but skipped
// here, for forward compatibility (spec §4.3).
func (p *Projector) Apply(ctx context.Context, tx *sql.Tx, event *types.Event) error {
	if !event.Type.Known() {
		return nil
	}

	switch event.Type {
	case types.EventAgentRegistered:
		return applyAgentRegistered(ctx, tx, event)
	case types.EventAgentActive:
		return applyAgentActive(ctx, tx, event)
	case types.EventMessageSent:
		return applyMessageSent(ctx, tx, event)
	case types.EventMessageRead:
		return applyMessageRead(ctx, tx, event)
	case types.EventMessageAcked:
		return applyMessageAcked(ctx, tx, event)
	case types.EventFileReserved:
		return applyFileReserved(ctx, tx, event)
	case types.EventFileReleased:
		return applyFileReleased(ctx, tx, event)
	case types.EventCellCreated:
		return applyCellCreated(ctx, tx, event)
	case types.EventCellUpdated:
		return applyCellUpdated(ctx, tx, event)
	case types.EventCellStatusChanged:
		return applyCellStatusChanged(ctx, tx, event)
	case types.EventCellClosed:
		return applyCellClosed(ctx, tx, event)
	case types.EventEpicCreated:
		return applyEpicCreated(ctx, tx, event)
	case types.EventDependencyAdded:
		return applyDependencyAdded(ctx, tx, event)
	case types.EventDependencyRemoved:
		return applyDependencyRemoved(ctx, tx, event)
	case types.EventSwarmCheckpointed:
		return applySwarmCheckpointed(ctx, tx, event)
	case types.EventDecisionRecorded:
		return applyDecisionRecorded(ctx, tx, event)
	case types.EventMemoryStored:
		return applyMemoryStored(ctx, tx, event)
	case types.EventMemoryUpdated:
		return applyMemoryUpdated(ctx, tx, event)
	case types.EventMemoryDeleted:
		return applyMemoryDeleted(ctx, tx, event)
	case types.EventMemoryValidated:
		return applyMemoryValidated(ctx, tx, event)
	case types.EventMemoryFound:
		return nil // read-side telemetry only; no derived row
	case types.EventMemoryEntitiesLinked:
		return applyMemoryEntitiesLinked(ctx, tx, event)
	default:
		return nil
	}
}

func decode(event *types.Event, v interface{}) error {
	if err := json.Unmarshal(event.Data, v); err != nil {
		return errs.Wrap(fmt.Sprintf("Projector.Apply[%s]", event.Type), errs.ErrProjection, err)
	}
	return nil
}

func wrapProj(event *types.Event, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(fmt.Sprintf("Projector.Apply[%s]", event.Type), errs.ErrProjection, err)
}
