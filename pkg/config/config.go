// Package config provides configuration loading and management for radbiocalc.
// It handles loading configuration from YAML files and provides the default
// literature parameter tables for the TCP and NTCP engines.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"radbiocalc/pkg/ntcp"
	"radbiocalc/pkg/tcp"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Calculation parameters
	Calculation struct {
		// DoseResolution is the dose step in Gy for dose-response curves
		DoseResolution float64 `yaml:"doseResolution"`

		// MaxDoseRange is the upper dose bound in Gy for dose-response curves
		MaxDoseRange float64 `yaml:"maxDoseRange"`

		// ConvergenceTolerance is the target tolerance for parameter fitting
		ConvergenceTolerance float64 `yaml:"convergenceTolerance"`
	} `yaml:"calculation"`

	// TumorTypes seeds the TCP parameter registry, keyed by tumor type name
	TumorTypes map[string]tcp.Params `yaml:"tumorTypes"`

	// Organs seeds the NTCP parameter registry, keyed by organ name
	Organs map[string]ntcp.Params `yaml:"organs"`

	// Output parameters
	Output struct {
		// DecimalPlaces controls probability formatting in printed reports
		DecimalPlaces int `yaml:"decimalPlaces"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default calculation parameters
	cfg.Calculation.DoseResolution = 0.1
	cfg.Calculation.MaxDoseRange = 100.0
	cfg.Calculation.ConvergenceTolerance = 1e-6

	// Seed the parameter registries with the built-in literature tables
	cfg.TumorTypes = tcp.DefaultParameters()
	cfg.Organs = ntcp.DefaultParameters()

	// Set default output parameters
	cfg.Output.DecimalPlaces = 4
	cfg.Output.Verbose = true

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

	// Parse YAML; entries in the file override or extend the defaults
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
