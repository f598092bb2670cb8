package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codegraph/internal/cache"
	"codegraph/internal/logging"
	"codegraph/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts per cache tier",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustOpenCache()
		stats, err := c.Stats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, s := range stats {
			fmt.Printf("%-8s %d entries\n", s.Tier, s.Entries)
		}
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear every cache tier",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustOpenCache()
		inv := cache.NewInvalidator(c, logging.NewNop())
		cleared := inv.InvalidateAll("manual clear")
		fmt.Printf("cleared tiers: %v\n", cleared)
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustOpenCache()
		n, err := c.CleanupExpired()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("removed %d expired entries\n", n)
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}

func mustOpenCache() *storage.Cache {
	repoRoot := mustGetRepoRoot()
	db, err := storage.Open(repoRoot, logging.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Process exits with the command; the connection goes with it.
	return storage.NewCache(db)
}
