package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigLoader handles loading and parsing backup system configuration
type ConfigLoader struct {
	configPath string
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(configPath string) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
	}
}

// LoadConfig loads the backup configuration from file and environment variables
func (cl *ConfigLoader) LoadConfig() (*SystemConfig, error) {
	config := &SystemConfig{}

	// Set defaults first
	config.SetDefaults()

	// Load from file if it exists
	if cl.configPath != "" {
		if err := cl.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	config.LoadFromEnvironment()

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func (cl *ConfigLoader) loadFromFile(config *SystemConfig) error {
	if _, err := os.Stat(cl.configPath); os.IsNotExist(err) {
		// File doesn't exist, use defaults
		return nil
	}

	data, err := os.ReadFile(cl.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cl.configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// SaveConfig saves the backup configuration to a YAML file
func (cl *ConfigLoader) SaveConfig(config *SystemConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	dir := filepath.Dir(cl.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(cl.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", cl.configPath, err)
	}

	return nil
}
