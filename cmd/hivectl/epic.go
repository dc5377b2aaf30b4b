package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/hive"
)

func init() {
	rootCmd.AddCommand(epicCreateCmd)
	epicCreateCmd.Flags().String("plan", "", "Path to a JSON decomposition file ({title, subtasks:[{title,type,priority,description}]}); '-' reads stdin")
}

type epicPlanDoc struct {
	Title    string             `json:"title"`
	Subtasks []epicPlanSubtask `json:"subtasks"`
}

type epicPlanSubtask struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Priority    int    `json:"priority"`
	Description string `json:"description"`
}

var epicCreateCmd = &cobra.Command{
	Use:   "epic-create",
	Short: "Create an epic and its subtasks atomically from a decomposition plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("epic-create")
		planPath, _ := cmd.Flags().GetString("plan")
		if planPath == "" {
			return errs.New("hivectl.epic-create", errs.ErrValidation, "--plan is required")
		}

		raw, err := readPlan(planPath)
		if err != nil {
			return errs.Wrap("hivectl.epic-create", errs.ErrValidation, err)
		}
		var doc epicPlanDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return errs.New("hivectl.epic-create", errs.ErrValidation, "invalid plan JSON: "+err.Error())
		}

		subtasks := make([]hive.CreateCellInput, len(doc.Subtasks))
		for i, st := range doc.Subtasks {
			subtasks[i] = hive.CreateCellInput{
				Title: st.Title, Priority: st.Priority, Description: st.Description,
			}
			if st.Type != "" {
				subtasks[i].Type = cellTypeOf(st.Type)
			}
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result, err := s.Hive.CreateEpic(ctx, hive.CreateEpicInput{
			Title: doc.Title, Subtasks: subtasks, CreatedBy: actor,
		})
		if err != nil {
			return err
		}
		printResult(result, func() {
			fmt.Printf("%s  %s (epic)\n", result.Epic.ID, result.Epic.Title)
			for _, st := range result.Subtasks {
				fmt.Printf("  %s  %s\n", st.ID, st.Title)
			}
		})
		return nil
	},
}

func readPlan(path string) ([]byte, error) {
	if path == "-" {
		return readAll(os.Stdin)
	}
	return os.ReadFile(path)
}
