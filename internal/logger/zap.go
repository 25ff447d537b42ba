// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Zap adapts a *zap.SugaredLogger to the Logger interface.
type Zap struct {
	sugar *zap.SugaredLogger
}

var _ Logger = Zap{}

// NewZap builds a Zap logger that writes console-formatted entries to
// stderr and, when cfg.Enabled is set and cfg.FilePath is non-empty,
// structured JSON to a rotating log file, mirroring the teacher's
// CLILoggingConfig (FilePath/MaxSizeMB/MaxFiles) defaults.
func NewZap(component string, cfg FileConfig) Zap {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		consoleLevel,
	)

	cores := []zapcore.Core{consoleCore}
	if cfg.Enabled && cfg.FilePath != "" {
		if dir := filepath.Dir(cfg.FilePath); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxFiles,
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(rotator),
			zapcore.DebugLevel,
		)
		cores = append(cores, fileCore)
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core).Sugar().Named(component)

	return Zap{sugar: base}
}

// FileConfig mirrors the teacher's GlobalLoggingConfig shape for the
// subset this module needs.
type FileConfig struct {
	Enabled   bool
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// consoleLevel is shared by every Zap logger's console core so a single
// set of CLI flags controls verbosity across the whole process, mirroring
// the teacher's package-level SetGlobalLoggingFlags convention
// (internal/logger/simple_logger.go in the teacher repo).
var consoleLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// SetGlobalLoggingFlags maps the root command's --verbose/--debug/--quiet
// flags onto the shared console level. quiet takes precedence over debug,
// which takes precedence over verbose.
func SetGlobalLoggingFlags(verbose, debug, quiet bool) {
	switch {
	case quiet:
		consoleLevel.SetLevel(zapcore.ErrorLevel)
	case debug:
		consoleLevel.SetLevel(zapcore.DebugLevel)
	case verbose:
		consoleLevel.SetLevel(zapcore.DebugLevel)
	default:
		consoleLevel.SetLevel(zapcore.InfoLevel)
	}
}

func (z Zap) Debug(msg string, kv ...interface{}) { z.sugar.Debugw(msg, kv...) }
func (z Zap) Info(msg string, kv ...interface{})  { z.sugar.Infow(msg, kv...) }
func (z Zap) Warn(msg string, kv ...interface{})  { z.sugar.Warnw(msg, kv...) }
func (z Zap) Error(msg string, kv ...interface{}) { z.sugar.Errorw(msg, kv...) }

func (z Zap) With(kv ...interface{}) Logger {
	return Zap{sugar: z.sugar.With(kv...)}
}

// Sync flushes any buffered log entries; call on process exit.
func (z Zap) Sync() error {
	return z.sugar.Sync()
}
