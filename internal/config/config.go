// Package config loads the daemon configuration from
// ~/.config/persistwin/config.yaml, filling defaults for anything unset.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// DebounceMs is how long to wait after the last display-change
	// notification before committing, in milliseconds.
	DebounceMs int `yaml:"debounce_ms"`

	// AutosnapSeconds is the interval of the periodic layout snapshot.
	// 0 disables autosnap.
	AutosnapSeconds int `yaml:"autosnap_seconds"`

	// DatabasePath overrides the layout database location.
	// Default: ~/.config/persistwin/persistwin.db
	DatabasePath string `yaml:"database_path,omitempty"`

	// ExcludeClasses lists WM_CLASS class names that are never tracked.
	ExcludeClasses []string `yaml:"exclude_classes"`

	// ExcludeTitleSubstrings lists title fragments that exclude a window
	// from tracking.
	ExcludeTitleSubstrings []string `yaml:"exclude_title_substrings"`

	// Display and XAuthority override the X connection environment.
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DebounceMs:             750,
		AutosnapSeconds:        120,
		ExcludeClasses:         []string{},
		ExcludeTitleSubstrings: []string{},
		LogLevel:               "info",
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "persistwin", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file is
// not an error; defaults apply.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, merging over defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMs)
	}
	if c.AutosnapSeconds < 0 {
		return fmt.Errorf("autosnap_seconds must not be negative, got %d", c.AutosnapSeconds)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", c.LogLevel)
	}
	return nil
}

// Save writes the configuration to the standard location, creating the
// directory if needed.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Debounce returns the debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// AutosnapInterval returns the autosnap period; 0 means disabled.
func (c *Config) AutosnapInterval() time.Duration {
	return time.Duration(c.AutosnapSeconds) * time.Second
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
