// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gizzahub/gitsync-kernel/cmd"
)

// Runner handles process lifecycle and signal management, mirroring the
// teacher's internal/app.Runner (internal/app/runner.go) minus the
// dependency-injection container this module has no use for.
type Runner struct {
	version string
}

// NewRunner creates a new application runner with the specified version.
func NewRunner(version string) *Runner {
	return &Runner{version: version}
}

// Run starts the application with proper signal handling and graceful
// shutdown.
func (r *Runner) Run() error {
	ctx, cancel := r.setupGracefulShutdown()
	defer cancel()

	if err := cmd.Execute(ctx, r.version); err != nil {
		return fmt.Errorf("application execution failed: %w", err)
	}
	return nil
}

func (r *Runner) setupGracefulShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...\n")
		cancel()
	}()

	return ctx, cancel
}
