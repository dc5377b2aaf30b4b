package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/swarm"
)

func init() {
	rootCmd.AddCommand(swarmCmd)
	swarmCmd.AddCommand(swarmValidateCmd, swarmSpawnCmd, swarmCompleteCmd,
		swarmReviewBeginCmd, swarmReviewFeedbackCmd, swarmCheckpointCmd, swarmRecoverCmd)

	swarmValidateCmd.Flags().String("plan", "-", "Path to the decomposition JSON; '-' reads stdin")

	swarmSpawnCmd.Flags().String("epic", "", "Epic id")
	swarmSpawnCmd.Flags().StringSlice("files", nil, "Files to reserve for this worker")
	swarmSpawnCmd.Flags().String("agent", "", "Worker agent name (default: --actor)")
	swarmSpawnCmd.Flags().String("context", "", "Shared-context blob to embed in the worker prompt")

	swarmCompleteCmd.Flags().String("agent", "", "Completing agent (default: --actor)")
	swarmCompleteCmd.Flags().String("summary", "", "Completion summary")
	swarmCompleteCmd.Flags().StringSlice("touched", nil, "Files actually touched, verified against the reservation")
	swarmCompleteCmd.Flags().Bool("skip-verification", false, "Skip the files_touched-subset-of-reserved check")

	swarmReviewBeginCmd.Flags().String("agent", "", "Reviewing agent (default: --actor)")

	swarmReviewFeedbackCmd.Flags().String("worker", "", "Worker agent being reviewed (default: --actor)")
	swarmReviewFeedbackCmd.Flags().String("status", "", "approved|needs_changes")
	swarmReviewFeedbackCmd.Flags().String("summary", "", "Reviewer summary")
	swarmReviewFeedbackCmd.Flags().StringSlice("issues", nil, "Issues found, for needs_changes")

	swarmCheckpointCmd.Flags().String("epic", "", "Epic id")
	swarmCheckpointCmd.Flags().String("strategy", "", "Decomposition strategy in effect")
	swarmCheckpointCmd.Flags().StringSlice("files", nil, "Files in scope")
	swarmCheckpointCmd.Flags().String("directives", "", "Free-form directives for recovery")

	swarmRecoverCmd.Flags().String("epic", "", "Epic id")
}

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Decompose, spawn, review, and checkpoint swarm work",
}

var swarmValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a proposed decomposition against the four decomposition rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath, _ := cmd.Flags().GetString("plan")
		raw, err := readPlan(planPath)
		if err != nil {
			return errs.Wrap("hivectl.swarm.validate", errs.ErrValidation, err)
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result := s.Swarm.ValidateDecomposition(string(raw))
		printResult(result, func() {
			if result.Valid {
				fmt.Println(renderStatus("open"), "valid:", len(result.Subtasks), "subtasks")
				return
			}
			fmt.Println(renderStatus("blocked"), "invalid:")
			for _, issue := range result.Errors {
				fmt.Println("  -", issue)
			}
		})
		if !result.Valid {
			return errs.New("hivectl.swarm.validate", errs.ErrValidation, "decomposition failed validation")
		}
		return nil
	},
}

var swarmSpawnCmd = &cobra.Command{
	Use:   "spawn <bead-id> <title>...",
	Short: "Reserve a worker's files and produce its prompt contract",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("swarm spawn")
		epic, _ := cmd.Flags().GetString("epic")
		files, _ := cmd.Flags().GetStringSlice("files")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		sharedContext, _ := cmd.Flags().GetString("context")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		title := strings.Join(args[1:], " ")
		contract, err := s.Swarm.SpawnSubtask(ctx, swarm.SpawnSubtaskInput{
			BeadID: beadID, EpicID: epic, Title: title, Files: files, Agent: agent, SharedContext: sharedContext,
		})
		if err != nil {
			return err
		}
		printResult(contract, func() { fmt.Println(contract.Prompt) })
		return nil
	},
}

var swarmCompleteCmd = &cobra.Command{
	Use:   "complete <bead-id>",
	Short: "Close a cell out from worker-completion, verifying scope unless --skip-verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("swarm complete")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		summary, _ := cmd.Flags().GetString("summary")
		touched, _ := cmd.Flags().GetStringSlice("touched")
		skip, _ := cmd.Flags().GetBool("skip-verification")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := s.Swarm.Complete(ctx, swarm.CompleteInput{
			BeadID: beadID, Agent: agent, Summary: summary, FilesTouched: touched, SkipVerification: skip,
		})
		if err != nil {
			return err
		}
		printResult(result, func() { fmt.Println(renderStatus(result.Outcome), result.Cell.ID) })
		return nil
	},
}

var swarmReviewBeginCmd = &cobra.Command{
	Use:   "review-begin <bead-id>",
	Short: "Start a review cycle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("swarm review-begin")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		attempt, err := s.Swarm.ReviewBegin(ctx, beadID, agent)
		if err != nil {
			return err
		}
		printResult(map[string]int{"attempt": attempt}, func() { fmt.Println("attempt", attempt) })
		return nil
	},
}

var swarmReviewFeedbackCmd = &cobra.Command{
	Use:   "review-feedback <bead-id>",
	Short: "Record a reviewer's verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("swarm review-feedback")
		worker, _ := cmd.Flags().GetString("worker")
		if worker == "" {
			worker = actor
		}
		status, _ := cmd.Flags().GetString("status")
		summary, _ := cmd.Flags().GetString("summary")
		issues, _ := cmd.Flags().GetStringSlice("issues")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		outcome, err := s.Swarm.ReviewFeedback(ctx, swarm.ReviewFeedbackInput{
			BeadID: beadID, WorkerID: worker, Status: swarm.ReviewStatus(status), Summary: summary, Issues: issues,
		})
		if err != nil {
			return err
		}
		printResult(outcome, func() {
			fmt.Println(renderStatus(string(outcome.Status)), "attempt", outcome.Attempt)
			if outcome.Blocked {
				fmt.Println(renderStatus("blocked"), "max rejections reached")
			}
		})
		return nil
	},
}

var swarmCheckpointCmd = &cobra.Command{
	Use:   "checkpoint <bead-id>",
	Short: "Persist a worker's recovery state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("swarm checkpoint")
		epic, _ := cmd.Flags().GetString("epic")
		strategy, _ := cmd.Flags().GetString("strategy")
		files, _ := cmd.Flags().GetStringSlice("files")
		directives, _ := cmd.Flags().GetString("directives")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		if err := s.Swarm.Checkpoint(ctx, swarm.CheckpointInput{
			EpicID: epic, BeadID: beadID, Strategy: strategy, Files: files, Directives: directives,
		}); err != nil {
			return err
		}
		fmt.Println("checkpointed", beadID)
		return nil
	},
}

var swarmRecoverCmd = &cobra.Command{
	Use:   "recover <bead-id>",
	Short: "Fetch the most recent checkpoint for a bead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		epic, _ := cmd.Flags().GetString("epic")
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		beadID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		sc, err := s.Swarm.Recover(ctx, epic, beadID)
		if err != nil {
			return err
		}
		printResult(sc, func() { fmt.Printf("%s  strategy=%s  files=%v\n", sc.BeadID, sc.Strategy, sc.Files) })
		return nil
	},
}

