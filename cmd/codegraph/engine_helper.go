package main

import (
	"fmt"
	"os"

	"codegraph/internal/cache"
	"codegraph/internal/config"
	"codegraph/internal/extract"
	"codegraph/internal/graph"
	"codegraph/internal/incremental"
	"codegraph/internal/logging"
	"codegraph/internal/metrics"
	"codegraph/internal/storage"
)

// app bundles the wired components behind one command invocation.
type app struct {
	cfg         *config.Config
	logger      *logging.Logger
	db          *storage.DB
	cache       *storage.Cache
	invalidator *cache.Invalidator
	recorder    *metrics.Recorder
	graph       *graph.Graph
	engine      *incremental.Engine
}

// buildApp loads config and wires the full engine stack for repoRoot.
func buildApp(repoRoot string) (*app, error) {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	db, err := storage.Open(repoRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	resultCache := storage.NewCache(db)
	invalidator := cache.NewInvalidator(resultCache, logger.Named("cache"))
	recorder := metrics.NewRecorder(db, logger.Named("metrics"))
	g := graph.New()
	extractor := extract.New(logger)

	engine := incremental.NewEngine(repoRoot, &cfg.Incremental, g, extractor, invalidator, recorder, logger.Named("incremental"))

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		cache:       resultCache,
		invalidator: invalidator,
		recorder:    recorder,
		graph:       g,
		engine:      engine,
	}, nil
}

func (a *app) close() {
	a.engine.Close()
	if err := a.recorder.Save(); err != nil {
		a.logger.Warn("failed to save metrics snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
	a.db.Close() //nolint:errcheck // Best effort cleanup
}

// mustBuildApp wires the stack or exits.
func mustBuildApp(repoRoot string) *app {
	a, err := buildApp(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

// newLogger builds the logger from flags, falling back to config values.
func newLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}

	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.ParseLevel(level),
	})
}

// getRepoRoot returns the repository root from the --repo flag or cwd.
func getRepoRoot() (string, error) {
	if repoFlag != "" {
		return repoFlag, nil
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}
