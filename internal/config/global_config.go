// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package config loads the persisted global configuration and workflow
// files consumed by the synchronization kernel.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig is the persisted, user-level configuration read once at
// startup (§6 "Environment").
type GlobalConfig struct {
	Logging    GlobalLoggingConfig  `yaml:"logging" json:"logging"`
	OpenRouter OpenRouterFileConfig `yaml:"openRouter" json:"openRouter"`
	GitHub     GitHubFileConfig     `yaml:"github" json:"github"`
}

// GlobalLoggingConfig mirrors the teacher's GlobalLoggingConfig shape
// (internal/config/global_config.go).
type GlobalLoggingConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	FilePath  string `yaml:"filePath" json:"filePath"`
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"maxSizeMB" json:"maxSizeMB"`
	MaxFiles  int    `yaml:"maxFiles" json:"maxFiles"`
}

// OpenRouterFileConfig is the lowest-precedence source of OpenRouter
// credentials (§6 "reverse precedence: task config > env var > file").
type OpenRouterFileConfig struct {
	APIKey string `yaml:"apiKey" json:"apiKey"`
	Model  string `yaml:"model" json:"model"`
}

// GitHubFileConfig is the lowest-precedence source of the forge
// authentication token the engine checks for up front (§7 "missing forge
// CLI, unauthenticated forge").
type GitHubFileConfig struct {
	Token string `yaml:"token" json:"token"`
}

// DefaultGlobalConfig returns the default configuration used when no
// config file is present.
func DefaultGlobalConfig() *GlobalConfig {
	homeDir, _ := os.UserHomeDir()
	defaultLogPath := filepath.Join(homeDir, ".config", "gitsync", "logs", "gitsync.log")

	return &GlobalConfig{
		Logging: GlobalLoggingConfig{
			Enabled:   false,
			FilePath:  defaultLogPath,
			Level:     "info",
			MaxSizeMB: 100,
			MaxFiles:  5,
		},
	}
}

// ConfigDir returns the directory holding the persisted config file,
// creating no directories as a side effect.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "gitsync"), nil
}

// LoadGlobalConfig loads global configuration from the standard location,
// falling back to defaults on any error (§4.2-style "tolerant read", same
// posture as the tracker store).
func LoadGlobalConfig() (*GlobalConfig, error) {
	dir, err := ConfigDir()
	if err != nil {
		return DefaultGlobalConfig(), nil
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultGlobalConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultGlobalConfig(), nil
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultGlobalConfig(), nil
	}

	defaults := DefaultGlobalConfig()
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = defaults.Logging.FilePath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxFiles == 0 {
		cfg.Logging.MaxFiles = defaults.Logging.MaxFiles
	}

	return &cfg, nil
}
