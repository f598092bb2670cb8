package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codegraph/internal/config"
	"codegraph/internal/logging"
	"codegraph/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize codegraph in the current repository",
	Long: `Creates the .codegraph directory with a default config.json and an
empty database. Safe to run in an already initialized repository.`,
	Run: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	stateDir := filepath.Join(repoRoot, ".codegraph")
	fresh := true
	if _, err := os.Stat(filepath.Join(stateDir, "config.json")); err == nil {
		fresh = false
	}

	if fresh {
		cfg := config.DefaultConfig()
		if err := cfg.Save(repoRoot); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Opening creates the database and schema.
	db, err := storage.Open(repoRoot, logging.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	db.Close() //nolint:errcheck // Best effort cleanup

	if fresh {
		fmt.Printf("Initialized codegraph in %s\n", stateDir)
	} else {
		fmt.Printf("codegraph already initialized in %s\n", stateDir)
	}
}
