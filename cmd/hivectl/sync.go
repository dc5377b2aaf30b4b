package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/jsonl"
)

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncExportCmd, syncImportCmd, syncWatchCmd)

	syncExportCmd.Flags().String("out", "", "Path to write the JSONL snapshot (default: .hive/<project>.jsonl)")
	syncExportCmd.Flags().Bool("include-deleted", false, "Include tombstoned cells")

	syncImportCmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	syncImportCmd.Flags().Bool("skip-existing", false, "Never update cells that already exist, only create new ones")

	syncWatchCmd.Flags().String("file", "", "JSONL snapshot to watch (default: .hive/<project>.jsonl)")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Export and import the flat-file JSONL mirror of the cell store",
}

func snapshotPath(raw string) string {
	if raw != "" {
		return raw
	}
	return filepath.Join(".hive", projectKey+".jsonl")
}

var syncExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render all cells to a JSONL snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		path := snapshotPath(out)

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		rows, err := s.Hive.ExportJSONL(ctx, hive.ExportOptions{IncludeDeleted: includeDeleted})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errs.Wrap("hivectl.sync.export", errs.ErrIO, err)
		}
		if err := jsonl.WriteAtomic(path, rows); err != nil {
			return errs.Wrap("hivectl.sync.export", errs.ErrIO, err)
		}
		printResult(map[string]interface{}{"path": path, "cells": len(rows)}, func() {
			fmt.Printf("wrote %d cells to %s\n", len(rows), path)
		})
		return nil
	},
}

var syncImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Create, update, or skip cells from a JSONL snapshot by content hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		skipExisting, _ := cmd.Flags().GetBool("skip-existing")
		if !dryRun {
			requireWrite("sync import")
		}
		path := snapshotPath("")
		if len(args) == 1 {
			path = args[0]
		}

		rows, err := jsonl.ReadFromFile(path)
		if err != nil {
			return errs.Wrap("hivectl.sync.import", errs.ErrIO, err)
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result, err := s.Hive.ImportJSONL(ctx, hive.ImportInput{Rows: rows, DryRun: dryRun, SkipExisting: skipExisting})
		if err != nil {
			return err
		}
		printResult(result, func() {
			fmt.Printf("created=%d updated=%d skipped=%d\n", result.Created, result.Updated, result.Skipped)
		})
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-import a JSONL snapshot whenever it changes on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		path := snapshotPath(file)
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return errs.New("hivectl.sync.watch", errs.ErrNotFound, "directory does not exist: "+dir)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errs.Wrap("hivectl.sync.watch", errs.ErrIO, err)
		}
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(dir); err != nil {
			return errs.Wrap("hivectl.sync.watch", errs.ErrIO, err)
		}

		ctx := cmd.Context()
		importOnce := func() {
			if err := reimport(ctx, path); err != nil {
				fmt.Fprintln(os.Stderr, renderStatus("blocked"), err)
				return
			}
		}
		importOnce()
		fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", path)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		var debounce *time.Timer
		debounced := make(chan struct{}, 1)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					select {
					case debounced <- struct{}{}:
					default:
					}
				})
			case <-debounced:
				importOnce()
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintln(os.Stderr, renderStatus("blocked"), err)
			case <-sigCh:
				return nil
			}
		}
	},
}

func reimport(ctx context.Context, path string) error {
	rows, err := jsonl.ReadFromFile(path)
	if err != nil {
		return errs.Wrap("hivectl.sync.watch", errs.ErrIO, err)
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	result, err := s.Hive.ImportJSONL(ctx, hive.ImportInput{Rows: rows})
	if err != nil {
		return err
	}
	fmt.Printf("%s  created=%d updated=%d skipped=%d\n",
		time.Now().Format("15:04:05"), result.Created, result.Updated, result.Skipped)
	return nil
}
