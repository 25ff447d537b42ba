// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// PRLifecycle is C10: owns the fork checkout, branch/commit/push sequence,
// and pull-request open/lookup against the forge. Every mutating method is
// a no-op under dry-run, matching §4.10 "dry-run produces the same
// decisions with no network or filesystem side effects beyond staging".
type PRLifecycle interface {
	// CloneFork materializes forkRepo's default branch into a disposable
	// checkout directory.
	CloneFork(ctx context.Context, forkRepo string) (checkoutDir string, cleanup func(), err error)
	// SyncForkWithSource fast-forwards the fork checkout's default branch
	// to match sourceRepo's tip, so the working branch is cut from a clean
	// base (§4.10 "fork kept current").
	SyncForkWithSource(ctx context.Context, checkoutDir, sourceRepo, sourceBranch string) error
	// EnsureBranch creates or resets a working branch named branchName in
	// the checkout.
	EnsureBranch(ctx context.Context, checkoutDir, branchName string) error
	// CommitAll stages every change in the checkout and commits with
	// message. It returns ok=false if there was nothing to commit.
	CommitAll(ctx context.Context, checkoutDir, message string) (ok bool, err error)
	// Push pushes branchName to the fork remote. force must be true only
	// when reusing an existing open PR's branch (§9(b) binding); a fresh
	// branch is pushed without force.
	Push(ctx context.Context, checkoutDir, branchName string, force bool) error
	// PRStatus looks up the existing PR (if any) opened from
	// forkRepo:branchName against sourceRepo.
	PRStatus(ctx context.Context, sourceRepo, forkRepo, branchName string) (*PullRequestRecord, error)
	// OpenPR opens a new PR from forkRepo:branchName against sourceRepo's
	// default branch, and returns its tracker record plus HTML URL.
	OpenPR(ctx context.Context, sourceRepo, forkRepo, branchName, title, body string) (rec PullRequestRecord, url string, err error)
}

// GitHubPRLifecycle is the production PRLifecycle, backed by go-git for
// local checkout/commit/push plumbing and a GitHubClient seam for
// fork/PR/API operations (kept narrow so this package never imports
// go-github directly, mirroring RemoteResolver in fetcher.go).
type GitHubPRLifecycle struct {
	GitHub      GitHubClient
	Auth        *http.BasicAuth
	DryRun      bool
	Log         logger.Logger
	AuthorName  string
	AuthorEmail string
}

var _ PRLifecycle = (*GitHubPRLifecycle)(nil)

// GitHubClient is the seam for forge operations C10 needs beyond plain git
// plumbing: resolving clone URLs and managing the PR itself.
type GitHubClient interface {
	CloneURL(repoFullName string) string
	DefaultBranch(ctx context.Context, repoFullName string) (string, error)
	FindOpenPR(ctx context.Context, sourceRepo, forkOwner, branchName string) (*PullRequestRecord, string, error)
	CreatePR(ctx context.Context, sourceRepo, forkOwner, branchName, title, body string) (PullRequestRecord, string, error)
}

// NewGitHubPRLifecycle constructs a GitHubPRLifecycle. log may be nil.
func NewGitHubPRLifecycle(gh GitHubClient, auth *http.BasicAuth, dryRun bool, log logger.Logger) *GitHubPRLifecycle {
	if log == nil {
		log = logger.Nop{}
	}
	return &GitHubPRLifecycle{
		GitHub:      gh,
		Auth:        auth,
		DryRun:      dryRun,
		Log:         log,
		AuthorName:  "gitsync-kernel",
		AuthorEmail: "gitsync-kernel@users.noreply.github.com",
	}
}

func (p *GitHubPRLifecycle) CloneFork(ctx context.Context, forkRepo string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "gitsync-fork-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create fork checkout dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.Log.Warn("failed to remove fork checkout directory", "dir", dir, "error", err)
		}
	}

	if p.DryRun {
		p.Log.Info("dry-run: skipping fork clone", "fork", forkRepo)
		return dir, cleanup, nil
	}

	url := p.GitHub.CloneURL(forkRepo)
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  url,
		Auth: p.Auth,
	})
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("clone fork %s: %w", forkRepo, err)
	}

	return dir, cleanup, nil
}

func (p *GitHubPRLifecycle) SyncForkWithSource(ctx context.Context, checkoutDir, sourceRepo, sourceBranch string) error {
	if p.DryRun {
		p.Log.Info("dry-run: skipping fork/source sync", "source", sourceRepo, "branch", sourceBranch)
		return nil
	}

	repo, err := git.PlainOpen(checkoutDir)
	if err != nil {
		return fmt.Errorf("open fork checkout: %w", err)
	}

	remoteName := "gitsync-upstream"
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{p.GitHub.CloneURL(sourceRepo)},
	})
	if err != nil && err != git.ErrRemoteExists {
		return fmt.Errorf("add upstream remote for %s: %w", sourceRepo, err)
	}

	ref := plumbing.NewBranchReferenceName(sourceBranch)
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
		Depth:      1,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("fetch upstream %s@%s: %w", sourceRepo, sourceBranch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open fork worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Force: true}); err != nil {
		return fmt.Errorf("checkout upstream branch %s: %w", sourceBranch, err)
	}

	// Push the fast-forwarded default branch back to the fork's own
	// remote, so the fork on the forge actually advances rather than only
	// the disposable local checkout (§4.10 "push the updated default
	// branch to the fork").
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
		Auth:       p.Auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("push fast-forwarded %s to fork origin: %w", sourceBranch, err)
	}

	return nil
}

func (p *GitHubPRLifecycle) EnsureBranch(ctx context.Context, checkoutDir, branchName string) error {
	if p.DryRun {
		p.Log.Info("dry-run: skipping branch creation", "branch", branchName)
		return nil
	}

	repo, err := git.PlainOpen(checkoutDir)
	if err != nil {
		return fmt.Errorf("open fork checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open fork worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branchName)
	err = wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true, Force: true})
	if err != nil {
		return fmt.Errorf("create working branch %s: %w", branchName, err)
	}
	return nil
}

func (p *GitHubPRLifecycle) CommitAll(ctx context.Context, checkoutDir, message string) (bool, error) {
	if p.DryRun {
		p.Log.Info("dry-run: skipping commit", "message", message)
		return true, nil
	}

	repo, err := git.PlainOpen(checkoutDir)
	if err != nil {
		return false, fmt.Errorf("open fork checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open fork worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("check worktree status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("stage changes: %w", err)
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.AuthorName,
			Email: p.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("commit staged changes: %w", err)
	}

	return true, nil
}

func (p *GitHubPRLifecycle) Push(ctx context.Context, checkoutDir, branchName string, force bool) error {
	if p.DryRun {
		p.Log.Info("dry-run: skipping push", "branch", branchName, "force", force)
		return nil
	}

	repo, err := git.PlainOpen(checkoutDir)
	if err != nil {
		return fmt.Errorf("open fork checkout: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branchName)
	refSpec := fmt.Sprintf("%s:%s", ref, ref)
	if force {
		refSpec = "+" + refSpec
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       p.Auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("push branch %s: %w", branchName, err)
	}
	return nil
}

func (p *GitHubPRLifecycle) PRStatus(ctx context.Context, sourceRepo, forkRepo, branchName string) (*PullRequestRecord, error) {
	if p.DryRun {
		return nil, nil
	}
	forkOwner := ownerOf(forkRepo)
	rec, _, err := p.GitHub.FindOpenPR(ctx, sourceRepo, forkOwner, branchName)
	if err != nil {
		return nil, fmt.Errorf("query existing PR for %s:%s: %w", forkOwner, branchName, err)
	}
	return rec, nil
}

func (p *GitHubPRLifecycle) OpenPR(ctx context.Context, sourceRepo, forkRepo, branchName, title, body string) (PullRequestRecord, string, error) {
	if p.DryRun {
		p.Log.Info("dry-run: skipping PR creation", "source", sourceRepo, "branch", branchName)
		return PullRequestRecord{
			BranchName:  branchName,
			Status:      PRStatusOpen,
			LastUpdated: time.Now(),
		}, "(dry-run: no PR opened)", nil
	}

	forkOwner := ownerOf(forkRepo)
	rec, url, err := p.GitHub.CreatePR(ctx, sourceRepo, forkOwner, branchName, title, body)
	if err != nil {
		return PullRequestRecord{}, "", fmt.Errorf("open PR for %s:%s: %w", forkOwner, branchName, err)
	}
	rec.LastUpdated = time.Now()
	return rec, url, nil
}

func ownerOf(repoFullName string) string {
	for i, c := range repoFullName {
		if c == '/' {
			return repoFullName[:i]
		}
	}
	return repoFullName
}
