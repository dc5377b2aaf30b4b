package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/session"
)

var (
	dbPath      string
	projectKey  string
	actor       string
	jsonOutput  bool
	readonlyMode bool
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:           "hivectl",
	Short:         "Coordination runtime for multi-agent LLM swarms",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "Path to the project's SQLite store")
	rootCmd.PersistentFlags().StringVar(&projectKey, "project", defaultProjectKey(), "Project key to operate on")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "Actor name recorded on writes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&readonlyMode, "readonly", false, "Block write operations (for worker sandboxes)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML/YAML config file")
}

func defaultDBPath() string {
	if v := os.Getenv("HIVECTL_DB"); v != "" {
		return v
	}
	return filepath.Join(".hive", "project.db")
}

func defaultProjectKey() string {
	if v := os.Getenv("HIVECTL_PROJECT"); v != "" {
		return v
	}
	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return filepath.Base(wd)
}

func defaultActor() string {
	if v := os.Getenv("HIVECTL_ACTOR"); v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "hivectl"
}

// openSession opens the Session for the current command, honoring the
// --readonly guard via requireWrite at each write command's call site
// rather than here, since read commands must still be able to open it.
func openSession(ctx context.Context) (*session.Session, error) {
	if err := config.Initialize(configPath); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}
	return session.Open(ctx, dbPath, projectKey, session.Options{})
}

func requireWrite(operation string) {
	if readonlyMode {
		fatal(operationReadonly(operation))
	}
}

// Execute runs the root command and returns the process exit code per
// spec §6 (0 success, 1 generic, 2 validation, 3 conflict, 4 not-found,
// 5 projection/IO).
func Execute() int {
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		return reportAndExitCode(err)
	}
	return 0
}
