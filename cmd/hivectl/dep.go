package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/types"
)

func init() {
	rootCmd.AddCommand(depCmd)
	depCmd.AddCommand(depAddCmd, depRemoveCmd, depListCmd)

	depAddCmd.Flags().String("rel", string(types.RelBlocks), "blocks|related|discovered-from")
	depRemoveCmd.Flags().String("rel", string(types.RelBlocks), "blocks|related|discovered-from")
}

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between cells",
}

var depAddCmd = &cobra.Command{
	Use:   "add <cell> <depends-on>",
	Short: "Add a dependency edge, rejected if it would introduce a cycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("dep add")
		rel, _ := cmd.Flags().GetString("rel")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cellID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		dependsOnID, err := s.Hive.Resolve(ctx, args[1])
		if err != nil {
			return err
		}
		if err := s.Hive.AddDependency(ctx, cellID, dependsOnID, types.Relationship(rel)); err != nil {
			return err
		}
		printResult(map[string]string{"cell": cellID, "depends_on": dependsOnID, "relationship": rel},
			func() { fmt.Printf("%s %s %s\n", cellID, rel, dependsOnID) })
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <cell> <depends-on>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("dep remove")
		rel, _ := cmd.Flags().GetString("rel")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cellID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		dependsOnID, err := s.Hive.Resolve(ctx, args[1])
		if err != nil {
			return err
		}
		if err := s.Hive.RemoveDependency(ctx, cellID, dependsOnID, types.Relationship(rel)); err != nil {
			return err
		}
		fmt.Printf("removed %s %s %s\n", cellID, rel, dependsOnID)
		return nil
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <cell>",
	Short: "List a cell's dependencies and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		cellID, err := s.Hive.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		deps, err := s.Hive.GetDependencies(ctx, cellID)
		if err != nil {
			return err
		}
		dependents, err := s.Hive.GetDependents(ctx, cellID)
		if err != nil {
			return err
		}
		printResult(map[string]interface{}{"depends_on": deps, "depended_on_by": dependents}, func() {
			for _, d := range deps {
				fmt.Printf("depends on   %s  (%s)\n", d.DependsOnID, d.Relationship)
			}
			for _, d := range dependents {
				fmt.Printf("depended on by %s  (%s)\n", d.CellID, d.Relationship)
			}
		})
		return nil
	},
}
