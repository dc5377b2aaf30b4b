package swarm

import (
	"context"
	"fmt"
	"strings"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/reservation"
)

// SpawnSubtaskInput is the payload for SpawnSubtask.
type SpawnSubtaskInput struct {
	BeadID        string
	EpicID        string
	Title         string
	Files         []string
	Agent         string
	SharedContext string
}

// WorkerPromptContract is the worker-facing payload produced by SpawnSubtask
// (spec §6): it embeds the bead/epic identity, the files reserved for this
// worker, and the shared-context blob synthesized upstream.
type WorkerPromptContract struct {
	BeadID        string
	EpicID        string
	Files         []string
	SharedContext string
	Prompt        string
}

// SpawnSubtask reserves the subtask's files before anything else; on any
// conflict the call fails and the worker is never started (spec §4.7).
func (c *Coordinator) SpawnSubtask(ctx context.Context, in SpawnSubtaskInput) (WorkerPromptContract, error) {
	if in.Agent == "" || in.BeadID == "" || len(in.Files) == 0 {
		return WorkerPromptContract{}, errs.New("SwarmCoordinator.SpawnSubtask", errs.ErrValidation,
			"agent, bead_id, and at least one file are required")
	}

	result, err := c.reservations.Reserve(ctx, reservation.ReserveInput{
		ProjectKey: c.projectKey, Agent: in.Agent, Paths: in.Files, Exclusive: true,
		Reason: fmt.Sprintf("swarm spawn: %s", in.BeadID),
	})
	if err != nil {
		return WorkerPromptContract{}, err
	}
	if len(result.Conflicts) > 0 {
		holders := make([]string, len(result.Conflicts))
		for i, conf := range result.Conflicts {
			holders[i] = fmt.Sprintf("%s held by %s", conf.Path, conf.Holder)
		}
		return WorkerPromptContract{}, errs.New("SwarmCoordinator.SpawnSubtask", errs.ErrConflict,
			"reservation conflict: "+strings.Join(holders, "; "), in.BeadID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are agent %s working on bead %s (epic %s): %s\n\n", in.Agent, in.BeadID, in.EpicID, in.Title)
	fmt.Fprintf(&b, "Reserved files:\n")
	for _, f := range in.Files {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	if in.SharedContext != "" {
		fmt.Fprintf(&b, "\nShared context:\n%s\n", in.SharedContext)
	}
	b.WriteString("\nDo not touch any file outside this list. Call complete() when finished.\n")

	return WorkerPromptContract{
		BeadID: in.BeadID, EpicID: in.EpicID, Files: in.Files,
		SharedContext: in.SharedContext, Prompt: b.String(),
	}, nil
}
