// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cmd assembles the gitsync command tree, mirroring the teacher's
// cmd/root.go convention of a thin newRootCmd plus one file per
// subcommand.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gizzahub/gitsync-kernel/internal/bootstrap"
	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

var (
	verbose bool
	debug   bool
	quiet   bool
)

func newRootCmd(ctx context.Context, appCtx *bootstrap.Context, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitsync",
		Short: "Synchronize source files between a GitHub repo and a local workspace",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetGlobalLoggingFlags(verbose, debug, quiet)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shows all log levels)")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs except critical errors")

	viper.SetEnvPrefix("GITSYNC")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", root.PersistentFlags().Lookup("quiet"))

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newIngestCmd(ctx, appCtx))
	root.AddCommand(newContributeCmd(ctx, appCtx))
	root.AddCommand(newChooseWorkflowCmd(ctx, appCtx))

	return root
}

// Execute builds and runs the gitsync command tree.
func Execute(ctx context.Context, version string) error {
	appCtx, err := bootstrap.NewContext()
	if err != nil {
		return fmt.Errorf("initialize application context: %w", err)
	}

	root := newRootCmd(ctx, appCtx, version)
	if err := root.Execute(); err != nil {
		return fmt.Errorf("error executing root command: %w", err)
	}
	return nil
}
