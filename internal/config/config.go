// Package config loads daemon configuration from a YAML file with defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon settings. Zero values fall back to defaults.
type Config struct {
	// Listen is the HTTP API address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db_path"`
	// MaxLogs caps the retained run-log count.
	MaxLogs int `yaml:"max_logs"`
	// Headless controls whether Chrome runs without a window.
	Headless bool `yaml:"headless"`
	// BrowserPath pins the browser binary instead of auto-detecting one.
	BrowserPath string `yaml:"browser_path"`
	// StepTimeoutMs bounds selector resolution per step.
	StepTimeoutMs int `yaml:"step_timeout_ms"`
	// StepDelayMs is the inter-step pacing delay.
	StepDelayMs int `yaml:"step_delay_ms"`
	// PageLoadTimeoutMs bounds the wait for the start page to finish loading.
	PageLoadTimeoutMs int `yaml:"page_load_timeout_ms"`
	// Debug switches the logger to development output.
	Debug bool `yaml:"debug"`
	// DesktopNotifications selects desktop delivery over log-only.
	DesktopNotifications bool `yaml:"desktop_notifications"`
}

// Default returns the stock configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Listen:               "127.0.0.1:7473",
		DBPath:               filepath.Join(homeDir, ".rewind", "rewind.db"),
		MaxLogs:              200,
		Headless:             true,
		StepTimeoutMs:        5000,
		StepDelayMs:          500,
		PageLoadTimeoutMs:    30000,
		DesktopNotifications: true,
	}
}

// Load reads a YAML config file, layering it over defaults. A missing file
// yields defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
