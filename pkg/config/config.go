// Package config provides configuration loading and management for
// brainprep. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Pipeline parameters controlling which pre-processing steps run
	Pipeline struct {
		// Normalize enables min-max intensity normalization to [0, 1]
		Normalize bool `yaml:"normalize"`

		// SkullStrip enables brain-mask application
		SkullStrip bool `yaml:"skullStrip"`

		// Register enables transform application and atlas resampling
		Register bool `yaml:"register"`

		// SmoothingSigma is the Gaussian smoothing sigma in voxels for
		// the filtering stage; 0 disables smoothing
		SmoothingSigma float64 `yaml:"smoothingSigma"`

		// MatchHistogram enables histogram matching against the atlas
		// in the filtering stage
		MatchHistogram bool `yaml:"matchHistogram"`

		// MatchPoints is the number of quantile points for histogram
		// matching
		MatchPoints int `yaml:"matchPoints"`
	} `yaml:"pipeline"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save each
		// step's output alongside the final volume
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// TrackChanges enables per-step change metrics in the logs
		TrackChanges bool `yaml:"trackChanges"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default pipeline parameters: the full pre-processing sequence
	cfg.Pipeline.Normalize = true
	cfg.Pipeline.SkullStrip = true
	cfg.Pipeline.Register = true
	cfg.Pipeline.SmoothingSigma = 0
	cfg.Pipeline.MatchHistogram = false
	cfg.Pipeline.MatchPoints = 7

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.Verbose = true
	cfg.Output.TrackChanges = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
