// Package config loads editor settings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Editor holds all tunable editor settings.
type Editor struct {
	// Corner suggestion
	CornerCutoffMultiplier float64 `yaml:"corner_cutoff_multiplier"`
	CornerAutoAccept       bool    `yaml:"corner_auto_accept"`

	// Scripting
	ScriptTimeoutSeconds int `yaml:"script_timeout_seconds"`

	// Plane colors, assigned round-robin on import. Empty keeps the
	// built-in palette.
	Palette []string `yaml:"palette"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Default returns the editor settings used when no config file exists.
func Default() Editor {
	return Editor{
		CornerCutoffMultiplier: 1.1,
		CornerAutoAccept:       true,
		ScriptTimeoutSeconds:   30,
		LogLevel:               "info",
	}
}

// Load reads editor config from a YAML file. If the file doesn't exist,
// returns defaults.
func Load(path string) (Editor, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, cfg.validate()
}

func (c Editor) validate() error {
	if c.CornerCutoffMultiplier <= 0 {
		return fmt.Errorf("config: corner_cutoff_multiplier must be positive, got %g", c.CornerCutoffMultiplier)
	}
	if c.ScriptTimeoutSeconds <= 0 {
		return fmt.Errorf("config: script_timeout_seconds must be positive, got %d", c.ScriptTimeoutSeconds)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
