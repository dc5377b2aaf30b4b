package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/memory"
	"github.com/swarmhive/swarmhive/internal/types"
)

func init() {
	rootCmd.AddCommand(memCmd)
	memCmd.AddCommand(memStoreCmd, memFindCmd, memGetCmd, memUpdateCmd, memDeleteCmd,
		memValidateCmd, memStatsCmd, memEntitiesCmd, memTaxonomyCmd)

	memStoreCmd.Flags().String("collection", "", "Collection name")
	memStoreCmd.Flags().StringSlice("tags", nil, "Tags")
	memStoreCmd.Flags().Float64("confidence", 1.0, "Confidence in [0,1]")

	memFindCmd.Flags().Int("limit", 10, "Max results")
	memFindCmd.Flags().Bool("fts", false, "Force full-text search even when semantic search is available")
	memFindCmd.Flags().Bool("expand", false, "Attach related memories via taxonomy links")
	memFindCmd.Flags().String("collection", "", "Restrict to one collection")

	memUpdateCmd.Flags().String("content", "", "New content")
	memUpdateCmd.Flags().StringSlice("tags", nil, "New tags")
	memUpdateCmd.Flags().String("collection", "", "New collection")

	memTaxonomyCmd.Flags().String("root", "", "Root entity label")
}

var memCmd = &cobra.Command{
	Use:   "memory",
	Short: "Store, find, and curate semantic memories",
}

var memStoreCmd = &cobra.Command{
	Use:   "store <content>...",
	Short: "Store a memory (deduplicated against recent and semantically similar entries)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("memory store")
		collection, _ := cmd.Flags().GetString("collection")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		confidence, _ := cmd.Flags().GetFloat64("confidence")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result, err := s.Memory.Store(ctx, memory.StoreInput{
			Content: strings.Join(args, " "), Collection: collection, Tags: tags, Confidence: confidence,
		})
		if err != nil {
			return err
		}
		printResult(result, func() {
			if result.Duplicate {
				fmt.Println(renderStatus("conflict"), "duplicate of", result.ID)
				return
			}
			fmt.Println(result.ID)
		})
		return nil
	},
}

var memFindCmd = &cobra.Command{
	Use:   "find <query>...",
	Short: "Search memories, semantically when an embedder is configured",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		forceFTS, _ := cmd.Flags().GetBool("fts")
		expand, _ := cmd.Flags().GetBool("expand")
		collection, _ := cmd.Flags().GetString("collection")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		results, err := s.Memory.Find(ctx, memory.FindInput{
			Query: strings.Join(args, " "), Limit: limit, FTS: forceFTS, Expand: expand, Collection: collection,
		})
		if err != nil {
			return err
		}
		printResult(results, func() {
			for _, r := range results {
				fmt.Printf("%.3f  %s  %s\n", r.Score, r.Memory.ID, truncate(r.Memory.Content, 80))
				for _, rel := range r.Related {
					fmt.Printf("    related: %s  %s\n", rel.ID, truncate(rel.Content, 60))
				}
			}
		})
		return nil
	},
}

var memGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		mem, err := s.Memory.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printResult(mem, func() { printMemory(mem) })
		return nil
	},
}

func printMemory(m types.Memory) {
	fmt.Printf("%s  [%s] %s\n", m.ID, m.DecayTier, m.Collection)
	fmt.Println(m.Content)
	if len(m.Tags) > 0 {
		fmt.Println("tags:", strings.Join(m.Tags, ", "))
	}
}

var memUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Patch a memory's content, tags, or collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("memory update")
		content, _ := cmd.Flags().GetString("content")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		collection, _ := cmd.Flags().GetString("collection")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		patch := map[string]interface{}{}
		if content != "" {
			patch["content"] = content
		}
		if len(tags) > 0 {
			items := make([]interface{}, len(tags))
			for i, t := range tags {
				items[i] = t
			}
			patch["tags"] = items
		}
		if collection != "" {
			patch["collection"] = collection
		}
		mem, err := s.Memory.Update(ctx, args[0], patch)
		if err != nil {
			return err
		}
		printResult(mem, func() { printMemory(mem) })
		return nil
	},
}

var memDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Hard-delete a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("memory delete")
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Memory.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var memValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Reset a memory's decay tier to hot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("memory validate")
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		mem, err := s.Memory.Validate(ctx, args[0])
		if err != nil {
			return err
		}
		printResult(mem, func() { printMemory(mem) })
		return nil
	},
}

var memStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Counts by collection and decay tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		stats, err := s.Memory.Stats(ctx)
		if err != nil {
			return err
		}
		printResult(stats, func() { fmt.Printf("%+v\n", stats) })
		return nil
	},
}

var memEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the extracted entity taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		entities, err := s.Memory.ListEntities(ctx)
		if err != nil {
			return err
		}
		printResult(entities, func() {
			for _, e := range entities {
				fmt.Printf("%s  %v\n", e.PrefLabel, e.AltLabels)
			}
		})
		return nil
	},
}

var memTaxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Walk the narrower-entity tree beneath --root",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		if root == "" {
			return errs.New("hivectl.memory.taxonomy", errs.ErrValidation, "--root is required")
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		tree, err := s.Memory.TaxonomyTree(ctx, root)
		if err != nil {
			return err
		}
		printResult(tree, func() { printTaxonomy(tree, 0) })
		return nil
	},
}

func printTaxonomy(node memory.TaxonomyNode, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), node.Entity.PrefLabel)
	for _, child := range node.Children {
		printTaxonomy(child, depth+1)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
