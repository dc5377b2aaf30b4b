// Package errs defines the error taxonomy shared across swarmhive's components.
//
// Every public operation fails with one of these wrapped kinds so callers can
// branch with errors.Is/errors.As instead of parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Components wrap these with op-specific context via Wrap.
var (
	// ErrValidation indicates malformed input or a schema/rule violation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a missing id (agent, cell, message, reservation, memory).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a reservation conflict, a cycle, an ambiguous id,
	// or a duplicate unique key.
	ErrConflict = errors.New("conflict")

	// ErrState indicates an operation invalid in the entity's current state.
	ErrState = errors.New("invalid state transition")

	// ErrProjection indicates a projector failure; the triggering append is
	// rolled back and never became visible.
	ErrProjection = errors.New("projection error")

	// ErrIO indicates a database, embedding-provider, or filesystem failure.
	ErrIO = errors.New("io error")
)

// Op describes the failing operation for a user-visible error, matching the
// required failure shape in spec §7: operation name, kind, explanation,
// relevant ids, and (for conflicts/ambiguity) the competing candidates.
type Op struct {
	Name    string   // operation name, e.g. "ReservationMgr.Reserve"
	Kind    error    // one of the sentinel kinds above
	Detail  string   // single-sentence explanation
	IDs     []string // relevant ids
	Rivals  []string // competing candidates, for conflict/ambiguity errors
	Wrapped error    // underlying cause, if any
}

func (e *Op) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Name, kindLabel(e.Kind), e.Detail)
	if len(e.IDs) > 0 {
		msg += fmt.Sprintf(" (ids: %v)", e.IDs)
	}
	if len(e.Rivals) > 0 {
		msg += fmt.Sprintf(" (candidates: %v)", e.Rivals)
	}
	return msg
}

func (e *Op) Unwrap() error {
	if e.Wrapped != nil {
		return e.Wrapped
	}
	return e.Kind
}

// Is lets errors.Is match an *Op against its Kind even when Wrapped is set.
func (e *Op) Is(target error) bool { return e.Kind != nil && errors.Is(e.Kind, target) }

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrValidation):
		return "validation"
	case errors.Is(kind, ErrNotFound):
		return "not_found"
	case errors.Is(kind, ErrConflict):
		return "conflict"
	case errors.Is(kind, ErrState):
		return "state"
	case errors.Is(kind, ErrProjection):
		return "projection"
	case errors.Is(kind, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

// New builds an *Op for the given operation and kind.
func New(name string, kind error, detail string, ids ...string) *Op {
	return &Op{Name: name, Kind: kind, Detail: detail, IDs: ids}
}

// NotFound is a convenience constructor for the common "entity by id" case.
func NotFound(name, entity, id string) *Op {
	return New(name, ErrNotFound, fmt.Sprintf("%s %q does not exist", entity, id), id)
}

// Conflict is a convenience constructor that attaches rival candidates.
func Conflict(name, detail string, ids []string, rivals []string) *Op {
	op := New(name, ErrConflict, detail, ids...)
	op.Rivals = rivals
	return op
}

// Wrap annotates a lower-level error (typically from Store) with an
// operation name and the given kind, keeping err as the wrapped cause.
func Wrap(name string, kind error, err error) error {
	if err == nil {
		return nil
	}
	return &Op{Name: name, Kind: kind, Detail: err.Error(), Wrapped: err}
}

// Is reports whether err ultimately wraps kind. Thin alias kept for
// readability at call sites (errs.Is(err, errs.ErrConflict)).
func Is(err, kind error) bool { return errors.Is(err, kind) }
