// Package swarm implements SwarmCoordinator: decomposition validation,
// worker spawn contracts, the per-cell review state machine, completion
// verification, and checkpoint/recovery (spec §4.7). Grounded on the
// teacher's internal/storage/sqlite decision-trace and swarm-context
// tables, generalized from "bead" review bookkeeping to this domain.
package swarm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/mailbox"
	"github.com/swarmhive/swarmhive/internal/reservation"
	"github.com/swarmhive/swarmhive/internal/store"
)

// Coordinator drives decomposition, spawn, review, and completion for one
// project's swarm of worker agents.
type Coordinator struct {
	db           store.Store
	log          *eventlog.EventLog
	hv           *hive.Hive
	reservations *reservation.Manager
	mail         *mailbox.Mailbox
	projectKey   string
}

// New builds a Coordinator wiring the other components for projectKey.
func New(db store.Store, log *eventlog.EventLog, hv *hive.Hive, reservations *reservation.Manager, mail *mailbox.Mailbox, projectKey string) *Coordinator {
	return &Coordinator{db: db, log: log, hv: hv, reservations: reservations, mail: mail, projectKey: projectKey}
}

// PlanPromptInput is the payload for PlanPrompt.
type PlanPromptInput struct {
	Task      string
	Strategy  Strategy
	Context   string
	UseMemory bool
}

// PlanPrompt builds a planning prompt template for the coordinator's LLM.
// Pure: no I/O, no event emission (spec §4.7).
func (c *Coordinator) PlanPrompt(in PlanPromptInput) string {
	strategy := in.Strategy
	if strategy == "" {
		strategy, _, _ = SelectStrategy(in.Task)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decompose the following task into 2 or more independent subtasks using a %s strategy.\n\n", strategy)
	fmt.Fprintf(&b, "Task:\n%s\n\n", in.Task)
	if in.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", in.Context)
	}
	if in.UseMemory {
		b.WriteString("Consult prior semantic memory before proposing a decomposition.\n\n")
	}
	b.WriteString("Respond with a JSON object: {\"subtasks\": [{\"title\": string, \"files\": [string], \"dependencies\": [int]}]}.\n")
	b.WriteString("Each subtask's dependencies must be indices strictly less than its own index. ")
	b.WriteString("No file path may appear in more than one subtask. No title may be empty.\n")
	return b.String()
}

// DecompositionSubtask is one entry of a proposed plan.
type DecompositionSubtask struct {
	Title        string   `json:"title"`
	Files        []string `json:"files"`
	Dependencies []int    `json:"dependencies"`
}

type decompositionDoc struct {
	Subtasks []DecompositionSubtask `json:"subtasks"`
}

// ValidationResult is the outcome of ValidateDecomposition.
type ValidationResult struct {
	Valid    bool
	Subtasks []DecompositionSubtask
	Errors   []string
}

// ValidateDecomposition parses and validates a coordinator's proposed plan
// against the four enforced rules (spec §4.7):
//  1. at least two subtasks
//  2. every file path appears in at most one subtask
//  3. dependency indices for subtask i are integers in [0, i)
//  4. no subtask has an empty title
func (c *Coordinator) ValidateDecomposition(raw string) ValidationResult {
	var doc decompositionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ValidationResult{Valid: false, Errors: []string{"invalid JSON: " + err.Error()}}
	}

	var issues []string
	if len(doc.Subtasks) < 2 {
		issues = append(issues, "decomposition must contain at least 2 subtasks")
	}

	seenFiles := make(map[string]int)
	for i, st := range doc.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			issues = append(issues, fmt.Sprintf("subtask %d has an empty title", i))
		}
		for _, f := range st.Files {
			if owner, ok := seenFiles[f]; ok {
				issues = append(issues, fmt.Sprintf("file %q appears in both subtask %d and subtask %d", f, owner, i))
				continue
			}
			seenFiles[f] = i
		}
		for _, dep := range st.Dependencies {
			if dep < 0 || dep >= i {
				issues = append(issues, fmt.Sprintf("subtask %d has out-of-range dependency index %d", i, dep))
			}
		}
	}

	if len(issues) > 0 {
		return ValidationResult{Valid: false, Errors: issues}
	}
	return ValidationResult{Valid: true, Subtasks: doc.Subtasks}
}
