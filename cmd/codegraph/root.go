package main

import (
	"github.com/spf13/cobra"

	"codegraph/internal/version"
)

var (
	repoFlag      string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "codegraph - incremental code knowledge graph",
	Long: `codegraph maintains a knowledge graph of a codebase and keeps it current
through incremental updates: file changes are detected by content hash,
applied as per-file deltas, and escalated to a full rebuild only when the
change set is too large or a structural file was touched.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("codegraph version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human or json")
}
