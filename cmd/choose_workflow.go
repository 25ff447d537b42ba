// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gitsync-kernel/internal/bootstrap"
	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
	"github.com/gizzahub/gitsync-kernel/internal/workflow"
	"github.com/gizzahub/gitsync-kernel/pkg/gitforge"
)

// newChooseWorkflowCmd builds the `choose-workflow <file>` command: an
// interactive variant of ingest that lets the operator pick a subset of
// the workflow file's sync tasks before running them (§6, listed as
// "peripheral" but implemented here with a real picker rather than
// stubbed — see SUPPLEMENTED FEATURES).
func newChooseWorkflowCmd(ctx context.Context, appCtx *bootstrap.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "choose-workflow <file>",
		Short:        "Interactively pick which sync tasks in a workflow file to run",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.LoadWorkflowFile(args[0])
			if err != nil {
				return err
			}

			syncTasks := workflow.BuildSyncTasks(wf, appCtx.Log)
			if len(syncTasks) == 0 {
				return fmt.Errorf("workflow file %s declares no sync tasks", args[0])
			}

			chosen, err := workflow.ChooseTasks(toTasks(syncTasks))
			if err != nil {
				return err
			}
			if len(chosen) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tasks selected, nothing to do")
				return nil
			}

			workspaceRoot, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine workspace root: %w", err)
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

			runErr := workflow.Run(ctx, chosen, rc)

			summary.Print(cmd.OutOrStdout())
			if summary.HasFailures() {
				return fmt.Errorf("choose-workflow completed with failures")
			}
			return runErr
		},
	}

	return cmd
}
