package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/memeshare/achievement-engine/pkg/errors"
)

// ConfigLoader loads and validates achievement configuration from a JSON or YAML file.
// The format is chosen by file extension: .yaml and .yml are YAML, everything else is JSON.
type ConfigLoader struct {
	configPath string
	validator  *Validator
	logger     *zap.Logger
}

// NewConfigLoader creates a new ConfigLoader instance.
//
// Parameters:
//   - configPath: Path to the achievements file
//   - logger: Structured logger for operational logging
func NewConfigLoader(configPath string, logger *zap.Logger) *ConfigLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigLoader{
		configPath: configPath,
		validator:  NewValidator(),
		logger:     logger,
	}
}

// LoadConfig loads the configuration file and returns a validated Config.
// This method performs three steps:
// 1. Read the config file from disk
// 2. Parse JSON or YAML into Config struct
// 3. Validate all rules
//
// This is a "fail fast" operation - invalid config prevents startup.
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	// Step 1: Read file
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Step 2: Parse
	config, err := Parse(data, formatFromPath(l.configPath))
	if err != nil {
		return nil, errors.ErrConfigInvalid(l.configPath, err)
	}

	// Step 3: Validate
	if err := l.validator.Validate(config); err != nil {
		return nil, errors.ErrConfigInvalid(l.configPath, fmt.Errorf("config validation failed: %w", err))
	}

	l.logger.Info("Config loaded successfully",
		zap.Int("achievements", len(config.Achievements)),
		zap.Int("triggers", l.countTriggers(config)),
		zap.String("config_path", l.configPath),
	)

	return config, nil
}

// Format identifies the encoding of a config document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Parse decodes a config document without validating it.
func Parse(data []byte, format Format) (*Config, error) {
	var config Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &config, nil
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// countTriggers counts distinct trigger kinds across all achievements.
func (l *ConfigLoader) countTriggers(config *Config) int {
	kinds := make(map[string]struct{})
	for _, rule := range config.Achievements {
		for _, kind := range rule.Triggers {
			kinds[kind] = struct{}{}
		}
	}
	return len(kinds)
}
