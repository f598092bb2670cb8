package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codegraph/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and keep the graph current",
	Long: `Builds the baseline, then watches the file system and applies
incremental updates as files change. Runs until interrupted.`,
	Run: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	a := mustBuildApp(repoRoot)
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := a.engine.Initialize(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: baseline build failed: %v\n", err)
		os.Exit(1)
	}
	a.logger.Info("Baseline ready", map[string]interface{}{
		"files": res.FilesProcessed,
		"nodes": res.NodesAdded,
		"edges": res.EdgesAdded,
	})

	if a.cfg.Incremental.EnableFileWatching {
		w, err := watcher.New(repoRoot, a.cfg.Watcher, a.logger.Named("watcher"), a.engine.NotifyChange)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create watcher: %v\n", err)
			os.Exit(1)
		}
		if err := w.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start watcher: %v\n", err)
			os.Exit(1)
		}
		defer w.Stop()
	} else {
		a.logger.Info("File watching disabled; only metrics and cache maintenance will run", nil)
	}

	if a.cfg.Incremental.EnableBackgroundUpdates {
		go a.recorder.Run(ctx, time.Duration(a.cfg.Metrics.SnapshotIntervalSeconds)*time.Second)
		go a.invalidator.RunCleanup(ctx, time.Duration(a.cfg.Cache.CleanupIntervalSeconds)*time.Second)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	a.logger.Info("Shutting down", nil)
	a.engine.FlushPending()
}
