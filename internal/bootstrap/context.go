// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package bootstrap builds the application-wide dependencies (logger,
// global config) handed to every cobra command. It is kept separate from
// internal/app so internal/app can import the cmd package (to run the
// root command) without creating an import cycle.
package bootstrap

import (
	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// Context holds application-wide dependencies handed to every cobra
// command, replacing the teacher's dependency-injection container with a
// single explicit value (§9 "Global singleton state").
type Context struct {
	Log    logger.Logger
	Global *config.GlobalConfig
}

// NewContext loads the global configuration and builds the root logger.
func NewContext() (*Context, error) {
	global, err := config.LoadGlobalConfig()
	if err != nil {
		global = config.DefaultGlobalConfig()
	}

	log := logger.NewZap("gitsync", logger.FileConfig{
		Enabled:   global.Logging.Enabled,
		FilePath:  global.Logging.FilePath,
		MaxSizeMB: global.Logging.MaxSizeMB,
		MaxFiles:  global.Logging.MaxFiles,
	})

	return &Context{
		Log:    log,
		Global: global,
	}, nil
}
