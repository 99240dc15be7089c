// Package config loads tool configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the runtime settings for contract ingestion and resolution.
type Config struct {
	// MinOCRConfidence is the threshold below which chunk ingestion raises
	// an OCR_CONFIDENCE_LOW warning.
	MinOCRConfidence float64 `toml:"min_ocr_confidence"`

	// StorePath is the SQLite database file; ":memory:" keeps everything
	// in process.
	StorePath string `toml:"store_path"`

	// HighlightKeywords are wrapped by the highlight rewrite.
	HighlightKeywords []string `toml:"highlight_keywords"`

	// WatchDir is the directory the watch command scans for OCR exports.
	WatchDir string `toml:"watch_dir"`

	// MetricsEnabled switches the Prometheus collector on.
	MetricsEnabled bool `toml:"metrics_enabled"`

	// MetricsAddr is the listen address for the metrics endpoint.
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MinOCRConfidence: 0.60,
		StorePath:        "contracts.db",
		MetricsAddr:      ":9290",
	}
}

// Load reads a TOML config file, applying defaults for absent keys. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MinOCRConfidence < 0 || c.MinOCRConfidence > 1 {
		return fmt.Errorf("min_ocr_confidence must be in [0, 1], got %v", c.MinOCRConfidence)
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	return nil
}
