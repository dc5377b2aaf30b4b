package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/types"
)

func init() {
	rootCmd.AddCommand(cellCreateFormCmd)
}

var cellCreateFormCmd = &cobra.Command{
	Use:   "cell-create-form",
	Short: "Create a cell through an interactive terminal form",
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("cell-create-form")

		var (
			title       string
			description string
			cellType    = string(types.CellTask)
			priorityStr = "2"
			parentID    string
		)

		typeOptions := []huh.Option[string]{
			huh.NewOption("Task", string(types.CellTask)),
			huh.NewOption("Bug", string(types.CellBug)),
			huh.NewOption("Feature", string(types.CellFeature)),
			huh.NewOption("Epic", string(types.CellEpic)),
			huh.NewOption("Chore", string(types.CellChore)),
		}
		priorityOptions := []huh.Option[string]{
			huh.NewOption("P0 - Critical", "0"),
			huh.NewOption("P1 - High", "1"),
			huh.NewOption("P2 - Medium (default)", "2"),
			huh.NewOption("P3 - Low", "3"),
			huh.NewOption("P4 - Backlog", "4"),
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Title").
					Description("Brief summary of the cell (required)").
					Value(&title).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("title is required")
						}
						return nil
					}),
				huh.NewText().
					Title("Description").
					Description("Context for whoever picks this up (optional)").
					Value(&description),
				huh.NewSelect[string]().
					Title("Type").
					Options(typeOptions...).
					Value(&cellType),
				huh.NewSelect[string]().
					Title("Priority").
					Options(priorityOptions...).
					Value(&priorityStr),
				huh.NewInput().
					Title("Parent cell id").
					Description("Leave blank for a top-level cell").
					Value(&parentID),
			),
		).WithTheme(huh.ThemeDracula())

		if err := form.Run(); err != nil {
			if err == huh.ErrUserAborted {
				fmt.Fprintln(os.Stderr, "cell creation cancelled")
				return nil
			}
			return err
		}

		priority, err := strconv.Atoi(priorityStr)
		if err != nil {
			priority = 2
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if parentID != "" {
			resolved, err := s.Hive.Resolve(ctx, parentID)
			if err != nil {
				return err
			}
			parentID = resolved
		}

		cell, err := s.Hive.CreateCell(ctx, hive.CreateCellInput{
			Title: title, Type: types.CellType(cellType), Priority: priority,
			ParentID: parentID, Description: description, CreatedBy: actor,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", cell.ID, cell.Title)
		return nil
	},
}
