// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gizzahub/gitsync-kernel/internal/bootstrap"
	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
	"github.com/gizzahub/gitsync-kernel/internal/workflow"
	"github.com/gizzahub/gitsync-kernel/pkg/gitforge"
)

// newIngestCmd builds the `ingest <workflow-file>` command (§6 "CLI
// surface"): it decodes every sync task in the workflow file and drives C8
// over their repo groups.
func newIngestCmd(ctx context.Context, appCtx *bootstrap.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:          "ingest <workflow-file>",
		Short:        "Pull upstream changes into the local workspace per a workflow file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.LoadWorkflowFile(args[0])
			if err != nil {
				return err
			}

			workspaceRoot, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine workspace root: %w", err)
			}

			tasks := workflow.BuildSyncTasks(wf, appCtx.Log)
			if len(tasks) == 0 {
				return fmt.Errorf("workflow file %s declares no sync tasks", args[0])
			}
			if force {
				for _, t := range tasks {
					for i := range t.Repos {
						t.Repos[i].Force = true
					}
				}
			}

			token := config.ResolveGitHubToken(appCtx.Global)
			gh := gitforge.New(token)
			fetcher := synckernel.NewGitFetcher(gh, appCtx.Log)

			creds := config.ResolveOpenRouterCredentials("", "", appCtx.Global)
			oracle := synckernel.NewOpenRouterOracle(creds)

			ingest := synckernel.NewIngestExecutor(workspaceRoot, fetcher, oracle, appCtx.Log)
			ingest.Interactive = synckernel.Prompted

			summary := synckernel.NewRunSummary()
			rc := &workflow.RunContext{
				WorkspaceRoot: workspaceRoot,
				Interactive:   synckernel.Prompted,
				Log:           appCtx.Log,
				Global:        appCtx.Global,
				Summary:       summary,
				Ingest:        ingest,
			}

			runErr := workflow.Run(ctx, toTasks(tasks), rc)

			summary.Print(cmd.OutOrStdout())
			if summary.HasFailures() {
				return fmt.Errorf("ingest completed with failures")
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Force re-ingest even if the tip commit is unchanged")
	_ = viper.BindPFlag("ingest.force", cmd.Flags().Lookup("force"))

	return cmd
}

func toTasks(syncTasks []*workflow.SyncTask) []workflow.Task {
	tasks := make([]workflow.Task, len(syncTasks))
	for i, t := range syncTasks {
		tasks[i] = t
	}
	return tasks
}
