package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codegraph/internal/logging"
	"codegraph/internal/metrics"
	"codegraph/internal/storage"
	"codegraph/internal/version"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and update-engine statistics",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	db, err := storage.Open(repoRoot, logging.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup

	fmt.Printf("codegraph %s\n", version.Info())
	fmt.Printf("database: %s\n\n", db.Path())

	stats, err := storage.NewCache(db).Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("caches:")
	for _, s := range stats {
		fmt.Printf("  %-8s %d entries\n", s.Tier, s.Entries)
	}

	snap, err := metrics.LoadLatest(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if snap == nil {
		fmt.Println("\nno metrics recorded yet")
		return
	}

	fmt.Printf("\nlast snapshot (%s):\n", snap.TakenAt.Format(time.RFC3339))
	fmt.Printf("  updates: %d total, %d incremental, %d full rebuilds\n",
		snap.UpdatesTotal, snap.IncrementalUpdates, snap.FullRebuilds)
	fmt.Printf("  files: %d processed, %d failed\n", snap.FilesProcessed, snap.FilesFailed)
	fmt.Printf("  nodes: +%d -%d  edges: +%d -%d\n",
		snap.NodesAdded, snap.NodesRemoved, snap.EdgesAdded, snap.EdgesRemoved)
	fmt.Printf("  cache invalidations: %d\n", snap.CacheInvalidations)
	fmt.Printf("  total update time: %s\n", snap.TotalUpdateTime.Round(time.Millisecond))
	if snap.LastRebuildReason != "" {
		fmt.Printf("  last rebuild reason: %s\n", snap.LastRebuildReason)
	}
}
