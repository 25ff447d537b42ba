// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// Fetcher is C3: resolves the tip commit of a remote repo/branch and
// materializes a shallow snapshot into a disposable staging directory.
type Fetcher interface {
	// TipCommit queries the remote without cloning. It fails if the ref is
	// missing.
	TipCommit(ctx context.Context, repoFullName, branch string) (string, error)
	// Stage materializes the current tip of branch into a staging
	// directory such that join(stagingDir, sourcePath) is the content of
	// sourcePath at that commit. The returned cleanup is idempotent and
	// safe to call from any exit path.
	Stage(ctx context.Context, repoFullName, branch string) (stagingDir string, cleanup func(), err error)
}

// RemoteResolver resolves a repo full name ("owner/repo") to a clone URL
// and looks up branch tip commits via the forge API. It is the seam C3
// uses to talk to GitHub without importing go-github directly into this
// package (kept narrow, like the teacher's APIClient/CloneService split in
// pkg/github/provider_impl.go).
type RemoteResolver interface {
	CloneURL(repoFullName string) string
	BranchTipSHA(ctx context.Context, repoFullName, branch string) (string, error)
}

// GitFetcher is the production Fetcher, backed by go-git for the shallow
// clone and a RemoteResolver for tip-commit lookups.
type GitFetcher struct {
	Resolver RemoteResolver
	Log      logger.Logger
}

var _ Fetcher = (*GitFetcher)(nil)

// NewGitFetcher constructs a GitFetcher. log may be nil.
func NewGitFetcher(resolver RemoteResolver, log logger.Logger) *GitFetcher {
	if log == nil {
		log = logger.Nop{}
	}
	return &GitFetcher{Resolver: resolver, Log: log}
}

// TipCommit queries the remote branch's head SHA via the forge API,
// without cloning anything.
func (f *GitFetcher) TipCommit(ctx context.Context, repoFullName, branch string) (string, error) {
	sha, err := f.Resolver.BranchTipSHA(ctx, repoFullName, branch)
	if err != nil {
		return "", fmt.Errorf("resolve tip commit for %s@%s: %w", repoFullName, branch, err)
	}
	return sha, nil
}

// Stage performs a depth-1 clone of branch into a fresh temp directory and
// strips version-control metadata so it cannot leak into hash comparisons
// (§4.3, §4.6).
func (f *GitFetcher) Stage(ctx context.Context, repoFullName, branch string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "gitsync-stage-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create staging directory: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			f.Log.Warn("failed to remove staging directory", "dir", dir, "error", err)
		}
	}

	url := f.Resolver.CloneURL(repoFullName)
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	})
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("stage %s@%s: %w", repoFullName, branch, err)
	}

	if err := os.RemoveAll(dir + "/.git"); err != nil {
		f.Log.Warn("failed to strip .git metadata from staging directory", "dir", dir, "error", err)
	}

	return dir, cleanup, nil
}
