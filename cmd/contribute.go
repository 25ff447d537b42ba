// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ghttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gizzahub/gitsync-kernel/internal/bootstrap"
	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
	"github.com/gizzahub/gitsync-kernel/pkg/gitforge"
)

// newContributeCmd builds the `contribute [--dry-run]` command (§6): it
// requires a tracker in the current directory and, unless --dry-run is
// set, a forge token, both checked up front as configuration errors (§7
// kind 1).
func newContributeCmd(ctx context.Context, appCtx *bootstrap.Context) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:          "contribute",
		Short:        "Push local changes upstream as a pull request via a fork",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceRoot, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine workspace root: %w", err)
			}

			store := synckernel.NewStore(appCtx.Log)
			if !store.Exists(workspaceRoot) {
				return fmt.Errorf("no tracker file found in %s; run ingest first", workspaceRoot)
			}

			token := config.ResolveGitHubToken(appCtx.Global)
			if token == "" && !dryRun {
				return fmt.Errorf("no GitHub token configured (set GITSYNC_GITHUB_TOKEN or the config file's github.token)")
			}

			gh := gitforge.New(token)
			auth := &ghttp.BasicAuth{Username: "gitsync-kernel", Password: token}
			lifecycle := synckernel.NewGitHubPRLifecycle(gh, auth, dryRun, appCtx.Log)

			contribute := synckernel.NewContributeExecutor(workspaceRoot, lifecycle, appCtx.Log)
			contribute.DryRun = dryRun

			root := store.Read(workspaceRoot)
			if len(root.Repos) == 0 {
				return fmt.Errorf("tracker in %s has no repos recorded", workspaceRoot)
			}

			summary := synckernel.NewRunSummary()
			var firstErr error
			for repoName, rec := range root.Repos {
				if rec.ForkRepo == "" {
					appCtx.Log.Info("skipping repo with no fork configured", "repo", repoName)
					continue
				}
				group := synckernel.RepoGroup{
					Repo:     repoName,
					Branch:   rec.Branch,
					ForkRepo: rec.ForkRepo,
					Files:    rec.FilePaths,
				}
				if err := contribute.ContributeRepo(ctx, group, summary); err != nil {
					appCtx.Log.Warn("repo contribute failed, continuing with remaining repos", "repo", repoName, "error", err)
					if firstErr == nil {
						firstErr = err
					}
				}
			}

			summary.Print(cmd.OutOrStdout())
			if summary.HasFailures() {
				return fmt.Errorf("contribute completed with failures")
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the would-be operations without mutating the fork or opening a PR")

	return cmd
}
