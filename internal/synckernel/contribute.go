// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// ContributeExecutor is C11: it drives the contribute walker (C9) and the
// PR lifecycle manager (C10) to push local changes back upstream as a pull
// request (§4.11).
type ContributeExecutor struct {
	WorkspaceRoot string
	Lifecycle     PRLifecycle
	Store         *Store
	Log           logger.Logger
	// WorkingBranchPrefix names the working branch created in the fork,
	// suffixed with the repo's default branch.
	WorkingBranchPrefix string
	// DryRun mirrors the forge-side DryRun already gating GitHubPRLifecycle:
	// every op is logged but the fork checkout, commit, push, PR, and
	// tracker are left untouched (spec.md:182 "no-op in dry-run mode").
	DryRun bool
}

// NewContributeExecutor constructs a ContributeExecutor with defaults
// filled in.
func NewContributeExecutor(workspaceRoot string, lifecycle PRLifecycle, log logger.Logger) *ContributeExecutor {
	if log == nil {
		log = logger.Nop{}
	}
	return &ContributeExecutor{
		WorkspaceRoot:       workspaceRoot,
		Lifecycle:           lifecycle,
		Store:               NewStore(log),
		Log:                 log,
		WorkingBranchPrefix: "gitsync-contribute",
	}
}

// ContributeRepo runs the full per-repo contribute algorithm of §4.11 for
// one repo group and folds its outcome into summary.
func (e *ContributeExecutor) ContributeRepo(ctx context.Context, group RepoGroup, summary *RunSummary) error {
	branch := group.BranchOrDefault()
	log := e.Log.With("repo", group.Repo, "fork", group.ForkRepo, "branch", branch)

	if group.ForkRepo == "" {
		log.Info("no fork configured, skipping contribute")
		return nil
	}

	root := e.Store.Read(e.WorkspaceRoot)
	existing, hadRecord := root.Repos[group.Repo]
	if !hadRecord {
		existing = RepoRecord{Branch: branch, Files: make(map[string]FileRecord)}
	}
	if existing.Files == nil {
		existing.Files = make(map[string]FileRecord)
	}

	checkoutDir, cleanup, err := e.Lifecycle.CloneFork(ctx, group.ForkRepo)
	if err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("clone fork failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}
	defer cleanup()

	if err := e.Lifecycle.SyncForkWithSource(ctx, checkoutDir, group.Repo, branch); err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("sync fork with source failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}

	// The previously recorded branch name is authoritative while its PR is
	// still open, so a second contribute run lands more commits on the
	// same review thread instead of orphaning it. Once that PR is closed
	// or merged upstream, reusing its branch would force-push onto a dead
	// ref, so a fresh, datestamped branch is cut instead (§9 branch
	// naming, P7). The recorded status is refreshed from the forge first,
	// since the tracker only ever records a PR as open.
	if existing.PullRequest != nil && existing.PullRequest.Status == PRStatusOpen && !e.DryRun {
		current, err := e.Lifecycle.PRStatus(ctx, group.Repo, group.ForkRepo, existing.PullRequest.BranchName)
		switch {
		case err != nil:
			log.Warn("failed to refresh recorded PR status, assuming it is still open", "error", err)
		case current == nil:
			existing.PullRequest.Status = PRStatusClosed
		default:
			existing.PullRequest.Status = current.Status
		}
	}
	workingBranch := fmt.Sprintf("%s-%s", e.WorkingBranchPrefix, branch)
	switch {
	case existing.PullRequest != nil && existing.PullRequest.Status == PRStatusOpen && existing.PullRequest.BranchName != "":
		workingBranch = existing.PullRequest.BranchName
	case existing.PullRequest != nil:
		workingBranch = fmt.Sprintf("%s-%s-%d", e.WorkingBranchPrefix, branch, time.Now().Unix())
	}
	log = log.With("working_branch", workingBranch)

	if err := e.Lifecycle.EnsureBranch(ctx, checkoutDir, workingBranch); err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("ensure branch failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}

	realOps, err := WalkContribute(group, checkoutDir, e.WorkspaceRoot, existing.Files)
	if err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("contribute walk failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}

	var changed int
	var changeLines []string
	for _, op := range realOps {
		switch op.Type {
		case OpCopy:
			if e.DryRun {
				log.Info("would copy", "local", op.RelativeLocalPath, "fork", op.RelativeForkPath)
				changed++
				changeLines = append(changeLines, fmt.Sprintf("- copy `%s` -> `%s`", op.RelativeLocalPath, op.RelativeForkPath))
				continue
			}
			log.Info("copy", "local", op.RelativeLocalPath, "fork", op.RelativeForkPath)
			if err := copyIntoFork(op); err != nil {
				summary.RecordFailure(group.Repo, fmt.Sprintf("%s: %v", op.RelativeLocalPath, err))
				continue
			}
			changed++
			changeLines = append(changeLines, fmt.Sprintf("- copy `%s` -> `%s`", op.RelativeLocalPath, op.RelativeForkPath))
		case OpDelete:
			if e.DryRun {
				log.Info("would delete", "fork", op.RelativeForkPath)
				changed++
				changeLines = append(changeLines, fmt.Sprintf("- delete `%s`", op.RelativeForkPath))
				continue
			}
			log.Info("delete", "fork", op.RelativeForkPath)
			if err := os.Remove(op.AbsoluteForkPath); err != nil && !os.IsNotExist(err) {
				summary.RecordFailure(group.Repo, fmt.Sprintf("%s: %v", op.RelativeLocalPath, err))
				continue
			}
			summary.RecordDeletion(group.Repo)
			changed++
			changeLines = append(changeLines, fmt.Sprintf("- delete `%s`", op.RelativeForkPath))
		}
	}

	if e.DryRun {
		log.Info("dry-run: no commit, push, or PR performed", "would_change", changed)
		return nil
	}

	if changed == 0 {
		log.Info("no local changes to contribute")
		return nil
	}

	commitMsg := fmt.Sprintf("sync: update %d file(s) from local workspace", changed)
	committed, err := e.Lifecycle.CommitAll(ctx, checkoutDir, commitMsg)
	if err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("commit failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}
	if !committed {
		log.Info("no staged changes after walk, nothing to push")
		return nil
	}

	// §9(b): force-push only when reusing an existing open PR's branch, so
	// the PR status must be known before push.
	existingPR, err := e.Lifecycle.PRStatus(ctx, group.Repo, group.ForkRepo, workingBranch)
	if err != nil {
		log.Warn("failed to query existing PR, will attempt to open a new one", "error", err)
	}
	reusingPR := existingPR != nil && existingPR.Status == PRStatusOpen

	if err := e.Lifecycle.Push(ctx, checkoutDir, workingBranch, reusingPR); err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("push failed: %v", err))
		return fmt.Errorf("contribute %s: %w", group.Repo, err)
	}

	var prURL string
	var pr PullRequestRecord
	if reusingPR {
		pr = *existingPR
		prURL = fmt.Sprintf("existing PR #%d", pr.PRNumber)
		log.Info("reusing existing open pull request", "pr_number", pr.PRNumber)
	} else {
		title := fmt.Sprintf("Sync changes from %s", e.WorkspaceRoot)
		body := fmt.Sprintf("Automated contribution generated on %s.\n\n%s",
			time.Now().Format(time.RFC3339), strings.Join(changeLines, "\n"))
		pr, prURL, err = e.Lifecycle.OpenPR(ctx, group.Repo, group.ForkRepo, workingBranch, title, body)
		if err != nil {
			summary.RecordFailure(group.Repo, fmt.Sprintf("open PR failed: %v", err))
			return fmt.Errorf("contribute %s: %w", group.Repo, err)
		}
	}

	summary.RecordPullRequest(group.Repo, prURL)

	existing.PullRequest = &pr
	existing.Branch = branch
	existing.ForkRepo = group.ForkRepo
	existing.FilePaths = group.Files
	existing.SyncedAt = time.Now()
	root.Repos[group.Repo] = existing

	if err := e.Store.Write(e.WorkspaceRoot, root); err != nil {
		return fmt.Errorf("contribute %s: persist tracker: %w", group.Repo, err)
	}

	return nil
}

// copyIntoFork writes the local file's current content into the fork
// checkout at the computed destination path.
func copyIntoFork(op ContributeOp) error {
	src, err := os.Open(op.AbsoluteLocalPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(op.AbsoluteForkPath), 0o755); err != nil {
		return fmt.Errorf("create fork destination directory: %w", err)
	}

	dst, err := os.Create(op.AbsoluteForkPath)
	if err != nil {
		return fmt.Errorf("create fork destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy content into fork: %w", err)
	}
	return nil
}
