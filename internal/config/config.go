// Package config loads the specmark CLI configuration from global, local,
// and environment sources. Priority: environment variables > local config >
// global config > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Configuration represents the specmark CLI tool configuration.
type Configuration struct {
	RegistryPath    string `koanf:"registry" validate:"required"`
	ConstraintsPath string `koanf:"constraints"`
	ArtifactsDir    string `koanf:"artifacts_dir" validate:"required"`
	Scheme          string `koanf:"scheme" validate:"required,alphanum"`
	Strict          bool   `koanf:"strict"`          // Fail on warnings too
	NoColor         bool   `koanf:"no_color"`        // Disable ANSI color in report output
	ShowProgress    bool   `koanf:"show_progress"`   // Show a spinner while validating file sets
}

// Load loads configuration from global, local, and environment sources.
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	// Global config if it exists
	homeDir, err := os.UserHomeDir()
	if err == nil {
		globalPath := filepath.Join(homeDir, ".specmark", "config.json")
		if _, err := os.Stat(globalPath); err == nil {
			if err := k.Load(file.Provider(globalPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load global config: %w", err)
			}
		}
	}

	// Local config if it exists
	if localConfigPath != "" {
		if _, err := os.Stat(localConfigPath); err == nil {
			if err := k.Load(file.Provider(localConfigPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load local config: %w", err)
			}
		}
	}

	// Environment variables win
	k.Load(env.Provider("SPECMARK_", ".", envTransform), nil)

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.RegistryPath = expandHomePath(cfg.RegistryPath)
	cfg.ConstraintsPath = expandHomePath(cfg.ConstraintsPath)
	cfg.ArtifactsDir = expandHomePath(cfg.ArtifactsDir)

	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	return &cfg, nil
}

// envTransform converts environment variable names to config keys.
// Example: SPECMARK_ARTIFACTS_DIR -> artifacts_dir
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "SPECMARK_"))
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
