package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/types"
)

func init() {
	rootCmd.AddCommand(cellCmd)
	cellCmd.AddCommand(cellCreateCmd, cellShowCmd, cellListCmd, cellCloseCmd, cellUpdateCmd, cellReadyCmd)

	cellCreateCmd.Flags().String("type", string(types.CellTask), "task|bug|feature|epic|chore")
	cellCreateCmd.Flags().Int("priority", 2, "0 (critical) through 4 (backlog)")
	cellCreateCmd.Flags().String("parent", "", "Parent cell id")
	cellCreateCmd.Flags().String("description", "", "Longer description")

	cellListCmd.Flags().String("status", "", "Filter by status")
	cellListCmd.Flags().String("type", "", "Filter by type")
	cellListCmd.Flags().Bool("ready", false, "Only unblocked, open cells")
	cellListCmd.Flags().Int("limit", 0, "Max rows (0 = unbounded)")

	cellCloseCmd.Flags().String("reason", "", "Reason recorded on the closing event")

	cellUpdateCmd.Flags().String("title", "", "New title")
	cellUpdateCmd.Flags().String("description", "", "New description")
	cellUpdateCmd.Flags().String("status", "", "New status")

	cellReadyCmd.Flags().Int("limit", 20, "Max rows")
}

var cellCmd = &cobra.Command{
	Use:   "cell",
	Short: "Create, inspect, and transition cells (tasks/bugs/features/epics/chores)",
}

var cellCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new cell",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("cell create")
		typeStr, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt("priority")
		parent, _ := cmd.Flags().GetString("parent")
		description, _ := cmd.Flags().GetString("description")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cell, err := s.Hive.CreateCell(ctx, hive.CreateCellInput{
			Title: strings.Join(args, " "), Type: types.CellType(typeStr), Priority: priority,
			ParentID: parent, Description: description, CreatedBy: actor,
		})
		if err != nil {
			return err
		}
		printResult(cell, func() { fmt.Printf("%s  %s\n", cell.ID, cell.Title) })
		return nil
	},
}

var cellShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one cell, resolving a partial id if it is unambiguous",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		id, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		cell, err := s.Hive.GetCell(ctx, id)
		if err != nil {
			return err
		}
		printResult(cell, func() { printCell(cell) })
		return nil
	},
}

func printCell(c types.Cell) {
	fmt.Printf("%s  %s\n", c.ID, c.Title)
	fmt.Printf("  type: %s  priority: P%d  status: %s\n", c.Type, c.Priority, renderStatus(string(c.Status)))
	if c.ParentID != "" {
		fmt.Printf("  parent: %s\n", c.ParentID)
	}
	if c.Description != "" {
		fmt.Printf("  %s\n", c.Description)
	}
}

var cellListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cells matching filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		cellType, _ := cmd.Flags().GetString("type")
		ready, _ := cmd.Flags().GetBool("ready")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cells, err := s.Hive.QueryCells(ctx, hive.QueryOptions{
			Status: types.CellStatus(status), Type: types.CellType(cellType), Ready: ready, Limit: limit,
		})
		if err != nil {
			return err
		}
		printResult(cells, func() {
			for _, c := range cells {
				fmt.Printf("%s  [%s] P%d  %s  %s\n", c.ID, renderStatus(string(c.Status)), c.Priority, c.Type, c.Title)
			}
		})
		return nil
	},
}

var cellReadyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List the ready-to-work queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cells, err := s.Hive.ReadyWork(ctx, limit)
		if err != nil {
			return err
		}
		printResult(cells, func() {
			for _, c := range cells {
				fmt.Printf("%s  P%d  %s\n", c.ID, c.Priority, c.Title)
			}
		})
		return nil
	},
}

var cellCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("cell close")
		reason, _ := cmd.Flags().GetString("reason")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		id, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		cell, err := s.Hive.CloseCell(ctx, id, reason)
		if err != nil {
			return err
		}
		printResult(cell, func() { fmt.Printf("%s closed\n", cell.ID) })
		return nil
	},
}

var cellUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Patch a cell's title, description, or status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("cell update")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		id, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		patch := map[string]interface{}{}
		if title != "" {
			patch["title"] = title
		}
		if description != "" {
			patch["description"] = description
		}
		if status != "" {
			patch["status"] = status
		}
		if len(patch) == 0 {
			return errs.New("hivectl.cell.update", errs.ErrValidation, "at least one of --title, --description, --status is required")
		}
		cell, err := s.Hive.UpdateCell(ctx, id, patch)
		if err != nil {
			return err
		}
		printResult(cell, func() { printCell(cell) })
		return nil
	},
}
