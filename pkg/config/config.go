/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/

// Package config loads projpatch configuration from config files and the
// environment, replacing the hard-coded paths and identifiers the tool's
// predecessor scripts carried.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for projpatch
type Config struct {
	Patch PatchConfig `mapstructure:"patch"`
}

// PatchConfig holds patch-session settings
type PatchConfig struct {
	// Backup writes <manifest>.orig before the atomic replace.
	Backup bool `mapstructure:"backup"`
	// CreateMissingPhase lets add-source create a sources phase for
	// targets that have none.
	CreateMissingPhase bool `mapstructure:"create_missing_phase"`
}

var defaultConfig = Config{
	Patch: PatchConfig{
		Backup:             false,
		CreateMissingPhase: true,
	},
}

// Default returns a copy of the built-in defaults, for callers that must
// proceed when configuration loading fails.
func Default() *Config {
	c := defaultConfig
	return &c
}

// LoadConfig loads configuration from config files and environment
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("patch.backup", defaultConfig.Patch.Backup)
	v.SetDefault("patch.create_missing_phase", defaultConfig.Patch.CreateMissingPhase)

	v.SetConfigName("projpatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if home, err := GetProjpatchHome(); err == nil {
		v.AddConfigPath(filepath.Join(home, "config"))
	}

	v.SetEnvPrefix("PROJPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; defaults apply when absent.
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}
	return &config, nil
}

// LoadProjectConfig loads global configuration overlaid with any
// project-local config file found in the working directory.
func LoadProjectConfig() (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	projectConfigs := []string{
		".projpatch.yaml",
		".projpatch.yml",
		".projpatch.json",
	}
	for _, configFile := range projectConfigs {
		if _, err := os.Stat(configFile); err != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			continue
		}
		if err := v.Unmarshal(config); err != nil {
			continue
		}
		break
	}
	return config, nil
}

// GetProjpatchHome returns the projpatch home directory
func GetProjpatchHome() (string, error) {
	if home := os.Getenv("PROJPATCH_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".projpatch"), nil
}
