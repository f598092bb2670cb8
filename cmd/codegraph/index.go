package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codegraph/internal/incremental"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge graph for the repository",
	Long: `Walks the repository, extracts declarations and imports from every
source file, and builds the graph baseline.

Examples:
  codegraph index            # Build the baseline
  codegraph index --force    # Rebuild even if state exists`,
	Run: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Rebuild even if state exists")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	a := mustBuildApp(repoRoot)
	defer a.close()

	ctx := context.Background()

	var res *incremental.UpdateResult
	var err error
	if indexForce {
		res, err = a.engine.FullRebuild(ctx, "forced reindex")
	} else {
		res, err = a.engine.Initialize(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: indexing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d files in %s\n", res.FilesProcessed, res.Duration.Round(time.Millisecond))
	fmt.Printf("  nodes: %d  edges: %d  failed files: %d\n", res.NodesAdded, res.EdgesAdded, res.FilesFailed)
	if len(res.CachesCleared) > 0 {
		fmt.Printf("  caches cleared: %v\n", res.CachesCleared)
	}
}
