// Package config loads and saves half2's YAML configuration, adapted from
// the ancestry codebase's own config package: same yaml.v3 load/save shape
// and 0600 file permissions, trimmed to the fields this domain needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is half2's on-disk configuration, stored at <dataDir>/config.yaml.
type Config struct {
	DataDir     string   `yaml:"dataDir"`
	Order       int      `yaml:"order"`
	Ignore      []string `yaml:"ignore"`
	LogLevel    string   `yaml:"logLevel"`
	MetricsAddr string   `yaml:"metricsAddr"`
}

// DefaultConfig returns half2's default configuration: the ignore set and
// order named in spec.md 6, metrics disabled.
func DefaultConfig() *Config {
	return &Config{
		DataDir:     ".h2",
		Order:       6,
		Ignore:      []string{".h2", ".git", "target", "perf.data", "src"},
		LogLevel:    "info",
		MetricsAddr: "",
	}
}

// LoadConfig reads and parses the configuration at configPath.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveConfig writes config to configPath with 0600 permissions.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigExists reports whether a configuration file exists at configPath.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
