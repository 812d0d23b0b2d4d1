// Package config loads process configuration for the nudge CLI.
//
// Configuration comes from an optional YAML file with environment-variable
// overrides on top. A missing file is not an error — everything has a
// default — but a malformed file or an invalid time string fails fast,
// before anything is persisted.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/spendnote/nudge/pkg/model"
)

// Environment variables recognized on top of the file.
const (
	EnvConfig   = "NUDGE_CONFIG"
	EnvDB       = "NUDGE_DB"
	EnvLogLevel = "NUDGE_LOG_LEVEL"
)

// Defaults.
const (
	DefaultDir      = ".nudge"
	DefaultDBFile   = "nudge.db"
	DefaultLogLevel = "warn"
)

// Config is the process-level configuration.
type Config struct {
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	// Policy seeds applied by `nudge init`; after init the settings store
	// is the source of truth and these are ignored.
	PreferredTime       string `yaml:"preferred_time"`
	QuietHoursStart     string `yaml:"quiet_hours_start"`
	QuietHoursEnd       string `yaml:"quiet_hours_end"`
	MinimumSpacingHours int    `yaml:"minimum_spacing_hours"`
}

// Load reads the YAML file at path (or the NUDGE_CONFIG / default
// location when path is empty), applies environment overrides, validates,
// and returns the result.
func Load(path string) (Config, error) {
	cfg := Config{
		DBPath:              filepath.Join(DefaultDir, DefaultDBFile),
		LogLevel:            DefaultLogLevel,
		PreferredTime:       "09:00",
		MinimumSpacingHours: model.DefaultMinimumSpacingHours,
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = filepath.Join(DefaultDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No file, all defaults.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validate fails fast on malformed time strings so they never reach the
// settings store.
func (c Config) validate() error {
	if _, err := model.ParseLocalTime(c.PreferredTime); err != nil {
		return fmt.Errorf("preferred_time: %w", err)
	}
	for name, v := range map[string]string{
		"quiet_hours_start": c.QuietHoursStart,
		"quiet_hours_end":   c.QuietHoursEnd,
	} {
		if v == "" {
			continue
		}
		if _, err := model.ParseLocalTime(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.MinimumSpacingHours < 0 {
		return fmt.Errorf("minimum_spacing_hours must be non-negative, got %d", c.MinimumSpacingHours)
	}
	return nil
}
