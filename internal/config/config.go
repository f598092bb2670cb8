package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"codegraph/internal/incremental"
	"codegraph/internal/watcher"
)

// Config represents the complete codegraph configuration (v1 schema).
// It is loaded from .codegraph/config.json, then overridden by a
// codegraph.toml at the repo root when one exists. The JSON file is
// machine-managed; the TOML file is the user-facing override.
type Config struct {
	Version  int    `json:"version" mapstructure:"version" toml:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot" toml:"repoRoot"`

	Incremental incremental.Config `json:"incremental" mapstructure:"incremental" toml:"incremental"`
	Watcher     watcher.Config     `json:"watcher" mapstructure:"watcher" toml:"watcher"`
	Cache       CacheConfig        `json:"cache" mapstructure:"cache" toml:"cache"`
	Metrics     MetricsConfig      `json:"metrics" mapstructure:"metrics" toml:"metrics"`
	Logging     LoggingConfig      `json:"logging" mapstructure:"logging" toml:"logging"`
}

// CacheConfig contains cache TTLs and maintenance settings.
type CacheConfig struct {
	QueryTtlSeconds        int `json:"queryTtlSeconds" mapstructure:"queryTtlSeconds" toml:"queryTtlSeconds"`
	RelatedTtlSeconds      int `json:"relatedTtlSeconds" mapstructure:"relatedTtlSeconds" toml:"relatedTtlSeconds"`
	PatternTtlSeconds      int `json:"patternTtlSeconds" mapstructure:"patternTtlSeconds" toml:"patternTtlSeconds"`
	CleanupIntervalSeconds int `json:"cleanupIntervalSeconds" mapstructure:"cleanupIntervalSeconds" toml:"cleanupIntervalSeconds"`
}

// MetricsConfig contains metrics snapshot settings.
type MetricsConfig struct {
	SnapshotIntervalSeconds int `json:"snapshotIntervalSeconds" mapstructure:"snapshotIntervalSeconds" toml:"snapshotIntervalSeconds"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		RepoRoot:    ".",
		Incremental: *incremental.DefaultConfig(),
		Watcher:     watcher.DefaultConfig(),
		Cache: CacheConfig{
			QueryTtlSeconds:        300,
			RelatedTtlSeconds:      600,
			PatternTtlSeconds:      600,
			CleanupIntervalSeconds: 300,
		},
		Metrics: MetricsConfig{
			SnapshotIntervalSeconds: 60,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads the configuration for repoRoot. Missing files are not
// errors; defaults fill the gaps.
func LoadConfig(repoRoot string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".codegraph"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config.json: %w", err)
		}
	} else {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config.json: %w", err)
		}
	}

	tomlPath := filepath.Join(repoRoot, "codegraph.toml")
	if data, err := os.ReadFile(tomlPath); err == nil { // #nosec G304 //nolint:gosec // Well-known file under the repo root
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse codegraph.toml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read codegraph.toml: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to .codegraph/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".codegraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create .codegraph directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644) // #nosec G306 //nolint:gosec // Config is not sensitive
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Incremental.MaxChangesBeforeFullRebuild < 0 {
		return &ConfigError{Field: "incremental.maxChangesBeforeFullRebuild", Message: "must not be negative"}
	}
	if c.Incremental.UpdateBatchSize <= 0 {
		return &ConfigError{Field: "incremental.updateBatchSize", Message: "must be positive"}
	}
	if c.Incremental.DebounceMs < 0 {
		return &ConfigError{Field: "incremental.debounceMs", Message: "must not be negative"}
	}
	if s := c.Incremental.ConflictResolutionStrategy; s != "" && s != "use_newer" {
		return &ConfigError{Field: "incremental.conflictResolutionStrategy", Message: "unknown strategy"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
