// Package config loads and validates runtime configuration for the
// canvas editor core. Values come from built-in defaults, overlaid by an
// optional YAML workspace config, overlaid by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Environment selects logging defaults and hot reload behavior
	Environment string `yaml:"environment" validate:"required,oneof=development production test"`

	// WorkspacePath is the SQLite workspace file
	WorkspacePath string `yaml:"workspace_path" validate:"required"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"required,oneof=debug info warn error"`

	Persistence PersistenceConfig `yaml:"persistence"`
	Router      RouterConfig      `yaml:"router"`
	History     HistoryConfig     `yaml:"history"`
}

// PersistenceConfig tunes the debounced write path
type PersistenceConfig struct {
	// DebounceMillis is the quiet period before a batched flush
	DebounceMillis int `yaml:"debounce_ms" validate:"min=10,max=10000"`
}

// RouterConfig tunes the gesture-hold window. The gap durations have no
// principled derivation; they are tunable and hot reloadable so they can
// be validated against real input event rates.
type RouterConfig struct {
	// HoldGapMillis: events closer together than this extend the gesture
	HoldGapMillis int `yaml:"hold_gap_ms" validate:"min=10,max=2000"`

	// ReleaseGapMillis: after this much inactivity the routing lock
	// releases and the next event re-resolves from scratch
	ReleaseGapMillis int `yaml:"release_gap_ms" validate:"min=20,max=5000,gtefield=HoldGapMillis"`
}

// HistoryConfig tunes the undo/redo stack
type HistoryConfig struct {
	Capacity             int `yaml:"capacity" validate:"min=1,max=10000"`
	CoalesceWindowMillis int `yaml:"coalesce_window_ms" validate:"min=0,max=5000"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Environment:   "development",
		WorkspacePath: "canvas.db",
		LogLevel:      "info",
		Persistence: PersistenceConfig{
			DebounceMillis: 300,
		},
		Router: RouterConfig{
			HoldGapMillis:    200,
			ReleaseGapMillis: 500,
		},
		History: HistoryConfig{
			Capacity:             200,
			CoalesceWindowMillis: 500,
		},
	}
}

// LoadConfig loads configuration from the optional YAML file named by
// CANVAS_CONFIG (or ./canvas.yaml), then applies environment overrides
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := getEnv("CANVAS_CONFIG", "canvas.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromFile loads defaults overlaid by exactly the given file,
// used by the hot reload watcher
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.WorkspacePath = getEnv("CANVAS_WORKSPACE", c.WorkspacePath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Persistence.DebounceMillis = getEnvInt("CANVAS_DEBOUNCE_MS", c.Persistence.DebounceMillis)
	c.Router.HoldGapMillis = getEnvInt("CANVAS_HOLD_GAP_MS", c.Router.HoldGapMillis)
	c.Router.ReleaseGapMillis = getEnvInt("CANVAS_RELEASE_GAP_MS", c.Router.ReleaseGapMillis)
	c.History.Capacity = getEnvInt("CANVAS_HISTORY_CAPACITY", c.History.Capacity)
	c.History.CoalesceWindowMillis = getEnvInt("CANVAS_COALESCE_WINDOW_MS", c.History.CoalesceWindowMillis)
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DebounceInterval returns the persistence debounce as a duration
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Persistence.DebounceMillis) * time.Millisecond
}

// HoldGap returns the gesture hold gap as a duration
func (c *Config) HoldGap() time.Duration {
	return time.Duration(c.Router.HoldGapMillis) * time.Millisecond
}

// ReleaseGap returns the gesture release gap as a duration
func (c *Config) ReleaseGap() time.Duration {
	return time.Duration(c.Router.ReleaseGapMillis) * time.Millisecond
}

// CoalesceWindow returns the history coalescing window as a duration
func (c *Config) CoalesceWindow() time.Duration {
	return time.Duration(c.History.CoalesceWindowMillis) * time.Millisecond
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
