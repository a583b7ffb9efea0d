// Package config loads and validates the xapers configuration.
//
// Configuration lives at <root>/.xapers/config.yaml. Environment variables
// override the file: XAPERS_ROOT, XAPERS_BACKEND, XAPERS_LOG_LEVEL.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	xerrors "github.com/xapers/xapers/internal/errors"
)

// XapersDir is the hidden directory under the root holding the index,
// config, and lock files.
const XapersDir = ".xapers"

// Config represents the complete xapers configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig configures the index backend.
type DatabaseConfig struct {
	// Backend selects the index backend: "bleve" (default) or "sqlite".
	Backend string `yaml:"backend"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Backend: "bleve",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// configPath returns the config file path for a root.
func configPath(root string) string {
	return filepath.Join(root, XapersDir, "config.yaml")
}

// Load reads the configuration for root, applying defaults for a missing
// file and environment overrides on top.
func Load(root string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(configPath(root))
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration under root, creating the .xapers directory
// if needed.
func Save(root string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Join(root, XapersDir), 0o755); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
	}
	if err := os.WriteFile(configPath(root), data, 0o644); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
	}
	return nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("XAPERS_BACKEND"); v != "" {
		cfg.Database.Backend = v
	}
	if v := os.Getenv("XAPERS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "bleve", "sqlite":
	default:
		return xerrors.New(xerrors.ErrCodeConfigInvalid,
			"database.backend must be \"bleve\" or \"sqlite\"", nil).
			WithDetail("backend", c.Database.Backend)
	}
	return nil
}

// FindRoot resolves the database root: an explicit value wins, then
// XAPERS_ROOT, then ~/papers.
func FindRoot(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	if v := os.Getenv("XAPERS_ROOT"); v != "" {
		return filepath.Abs(v)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrCodeConfigInvalid, err)
	}
	return filepath.Join(home, "papers"), nil
}
