package swarm

import (
	"context"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/reservation"
	"github.com/swarmhive/swarmhive/internal/types"
)

// CompleteInput is the payload for Complete.
type CompleteInput struct {
	BeadID          string
	Agent           string
	Summary         string
	FilesTouched    []string
	SkipVerification bool
}

// CompleteResult reports the outcome recorded against the cell.
type CompleteResult struct {
	Outcome string // "completed" or "scope_violation"
	Cell    types.Cell
}

// Complete closes the cell, releases the agent's reservations, and records
// the outcome decision trace (spec §4.7). Unless SkipVerification is set,
// FilesTouched must be a subset of the agent's reserved files; a violation
// still closes the cell but the outcome is recorded as scope_violation so
// the evidence survives for later analysis.
func (c *Coordinator) Complete(ctx context.Context, in CompleteInput) (CompleteResult, error) {
	if in.BeadID == "" || in.Agent == "" {
		return CompleteResult{}, errs.New("SwarmCoordinator.Complete", errs.ErrValidation,
			"bead_id and agent are required")
	}

	outcome := "completed"
	if !in.SkipVerification {
		reserved, err := c.reservedPathsFor(ctx, in.Agent)
		if err != nil {
			return CompleteResult{}, err
		}
		if !subsetOf(in.FilesTouched, reserved) {
			outcome = "scope_violation"
		}
	}

	if _, err := c.recordDecision(ctx, "completion", "", in.BeadID, in.Agent, map[string]interface{}{
		"outcome": outcome, "summary": in.Summary, "files_touched": in.FilesTouched,
	}, "", nil); err != nil {
		return CompleteResult{}, err
	}

	cell, err := c.hv.ChangeStatus(ctx, in.BeadID, types.CellClosed, in.Summary)
	if err != nil {
		return CompleteResult{}, err
	}

	if err := c.reservations.ReleaseAgent(ctx, c.projectKey, "swarm-coordinator", in.Agent); err != nil {
		return CompleteResult{}, err
	}

	return CompleteResult{Outcome: outcome, Cell: cell}, nil
}

func (c *Coordinator) reservedPathsFor(ctx context.Context, agent string) ([]string, error) {
	active, err := c.reservations.ActiveFor(ctx, c.projectKey)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, r := range active {
		if r.AgentName == agent {
			paths = append(paths, r.PathPattern)
		}
	}
	return paths, nil
}

// subsetOf reports whether every path in touched matches at least one
// pattern in reserved, using the same glob-vs-literal semantics as
// ReservationMgr (spec §4.7 "files_touched ⊆ reserved_files_for_agent").
func subsetOf(touched, reserved []string) bool {
	for _, t := range touched {
		if !reservation.PathMatchesAny(t, reserved) {
			return false
		}
	}
	return true
}
