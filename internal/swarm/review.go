package swarm

import (
	"context"
	"fmt"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/mailbox"
	"github.com/swarmhive/swarmhive/internal/types"
)

// ReviewStatus is the reviewer's verdict on a ReviewFeedback call.
type ReviewStatus string

const (
	ReviewApproved     ReviewStatus = "approved"
	ReviewNeedsChanges ReviewStatus = "needs_changes"
)

// ReviewOutcome reports the state the cell landed in after feedback.
type ReviewOutcome struct {
	Status  types.CellStatus
	Attempt int
	Blocked bool
}

// ReviewBegin starts a review cycle: increments the durable attempt counter
// and moves the cell to in_progress (spec §4.7: not_reviewed → reviewing).
func (c *Coordinator) ReviewBegin(ctx context.Context, beadID, agent string) (int, error) {
	history, err := c.decisionsFor(ctx, beadID)
	if err != nil {
		return 0, err
	}
	attempt := countReviewBegins(history) + 1

	if _, err := c.recordDecision(ctx, "review_begin", "", beadID, agent,
		map[string]interface{}{"attempt": attempt}, "", nil); err != nil {
		return 0, err
	}
	if _, err := c.hv.ChangeStatus(ctx, beadID, types.CellInProgress, "review begin"); err != nil {
		return 0, err
	}
	return attempt, nil
}

// ReviewFeedbackInput is the payload for ReviewFeedback.
type ReviewFeedbackInput struct {
	BeadID   string
	WorkerID string
	Status   ReviewStatus
	Summary  string
	Issues   []string
}

// ReviewFeedback drives the remaining review transitions (spec §4.7):
// approved leaves the cell ready for Complete to close; needs_changes
// reopens the cell and notifies the worker, unless this is the third
// consecutive rejection, in which case the cell is permanently blocked.
func (c *Coordinator) ReviewFeedback(ctx context.Context, in ReviewFeedbackInput) (ReviewOutcome, error) {
	if in.Status != ReviewApproved && in.Status != ReviewNeedsChanges {
		return ReviewOutcome{}, errs.New("SwarmCoordinator.ReviewFeedback", errs.ErrValidation,
			"status must be approved or needs_changes")
	}

	history, err := c.decisionsFor(ctx, in.BeadID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	attempt := countReviewBegins(history)
	if attempt == 0 {
		return ReviewOutcome{}, errs.New("SwarmCoordinator.ReviewFeedback", errs.ErrState,
			"reviewBegin was never called for this bead", in.BeadID)
	}

	if in.Status == ReviewApproved {
		if _, err := c.recordDecision(ctx, "review_feedback", "", in.BeadID, in.WorkerID,
			map[string]interface{}{"status": string(ReviewApproved), "summary": in.Summary}, "", nil); err != nil {
			return ReviewOutcome{}, err
		}
		return ReviewOutcome{Status: types.CellInProgress, Attempt: attempt}, nil
	}

	strikes := countConsecutiveNeedsChanges(history) + 1
	maxStrikes := config.GetReviewMaxRejections()

	decisionID, err := c.recordDecision(ctx, "review_feedback", "", in.BeadID, in.WorkerID,
		map[string]interface{}{"status": string(ReviewNeedsChanges), "summary": in.Summary, "issues": in.Issues},
		"", nil)
	if err != nil {
		return ReviewOutcome{}, err
	}

	if strikes < maxStrikes {
		cell, err := c.hv.ChangeStatus(ctx, in.BeadID, types.CellOpen, "needs changes")
		if err != nil {
			return ReviewOutcome{}, err
		}
		if c.mail != nil {
			_, sendErr := c.mail.Send(ctx, mailbox.SendInput{
				ProjectKey: c.projectKey, From: "swarm-coordinator", To: []string{in.WorkerID},
				Subject: fmt.Sprintf("review: %s needs changes", in.BeadID),
				Body:    fmt.Sprintf("%s\n\nIssues:\n- %s", in.Summary, joinIssues(in.Issues)),
			})
			if sendErr != nil {
				return ReviewOutcome{}, sendErr
			}
		}
		return ReviewOutcome{Status: cell.Status, Attempt: attempt}, nil
	}

	// Third strike: block permanently and record precedent links to the
	// prior two rejections (spec §4.7).
	precedent := priorRejectionIDs(history)
	links := make([]types.EntityLinkData, 0, len(precedent))
	for _, id := range precedent {
		links = append(links, types.EntityLinkData{
			ToEntityType: "decision_trace", ToEntityID: id, LinkType: "precedent", Strength: 1,
		})
	}
	if _, err := c.recordDecision(ctx, "review_blocked", "", in.BeadID, in.WorkerID,
		map[string]interface{}{"reason": "3-strike termination", "terminating_decision": decisionID},
		"third consecutive needs_changes", links); err != nil {
		return ReviewOutcome{}, err
	}
	cell, err := c.hv.ChangeStatus(ctx, in.BeadID, types.CellBlocked, "3-strike review termination")
	if err != nil {
		return ReviewOutcome{}, err
	}
	return ReviewOutcome{Status: cell.Status, Attempt: attempt, Blocked: true}, nil
}

func countReviewBegins(history []decisionRow) int {
	n := 0
	for _, d := range history {
		if d.DecisionType == "review_begin" {
			n++
		}
	}
	return n
}

// countConsecutiveNeedsChanges counts needs_changes feedback entries from the
// end of history back to the first review_feedback entry with any other
// status (an approval). review_begin, review_blocked and other decision
// types are skipped and do not end the run.
func countConsecutiveNeedsChanges(history []decisionRow) int {
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		d := history[i]
		if d.DecisionType != "review_feedback" {
			continue
		}
		status, _ := d.Decision["status"].(string)
		if status == string(ReviewNeedsChanges) {
			n++
			continue
		}
		break
	}
	return n
}

// priorRejectionIDs returns the decision trace ids of the prior two
// needs_changes feedback entries, oldest first.
func priorRejectionIDs(history []decisionRow) []string {
	var ids []string
	for i := len(history) - 1; i >= 0 && len(ids) < 2; i-- {
		d := history[i]
		if d.DecisionType != "review_feedback" {
			continue
		}
		if status, _ := d.Decision["status"].(string); status == string(ReviewNeedsChanges) {
			ids = append([]string{d.ID}, ids...)
		}
	}
	return ids
}

func joinIssues(issues []string) string {
	if len(issues) == 0 {
		return "(none provided)"
	}
	out := issues[0]
	for _, s := range issues[1:] {
		out += "\n- " + s
	}
	return out
}
