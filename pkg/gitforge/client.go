// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gitforge is the narrow seam between the synchronization kernel
// and GitHub's REST API: clone URL resolution, branch tip lookups, and pull
// request open/query. It deliberately does not expose the teacher's
// multi-provider GitProvider surface (webhooks, events, health, org/team
// management) because this spec only ever talks to one forge.
package gitforge

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
)

// Client implements both synckernel.RemoteResolver (consumed by C3) and
// synckernel.GitHubClient (consumed by C10), backed by go-github.
type Client struct {
	gh    *github.Client
	token string
}

var (
	_ synckernel.RemoteResolver = (*Client)(nil)
	_ synckernel.GitHubClient   = (*Client)(nil)
)

// New constructs a Client authenticated with token. An empty token yields
// an unauthenticated client, usable only against public repos and subject
// to GitHub's anonymous rate limit.
func New(token string) *Client {
	c := &Client{token: token}
	if token == "" {
		c.gh = github.NewClient(nil)
		return c
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c.gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	return c
}

// CloneURL returns the HTTPS clone URL for a "owner/repo" full name.
func (c *Client) CloneURL(repoFullName string) string {
	return fmt.Sprintf("https://github.com/%s.git", repoFullName)
}

// BranchTipSHA looks up the current head commit SHA of branch in
// repoFullName without cloning (§4.3 "tip-commit query").
func (c *Client) BranchTipSHA(ctx context.Context, repoFullName, branch string) (string, error) {
	owner, name, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}

	ref, _, err := c.gh.Git.GetRef(ctx, owner, name, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("get ref %s/%s@%s: %w", owner, name, branch, err)
	}
	if ref.Object == nil {
		return "", fmt.Errorf("ref %s/%s@%s has no object", owner, name, branch)
	}
	return ref.Object.GetSHA(), nil
}

// DefaultBranch returns repoFullName's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, repoFullName string) (string, error) {
	owner, name, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("get repository %s: %w", repoFullName, err)
	}
	return repo.GetDefaultBranch(), nil
}

// EnsureFork creates (or returns the existing) fork of repoFullName under
// the authenticated user's account, polling is left to the caller since
// GitHub's fork API is asynchronous.
func (c *Client) EnsureFork(ctx context.Context, repoFullName string) (string, error) {
	owner, name, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}
	fork, _, err := c.gh.Repositories.CreateFork(ctx, owner, name, nil)
	if err != nil {
		if _, ok := err.(*github.AcceptedError); ok {
			// Fork creation queued; the eventual repo name is predictable.
			return fork.GetFullName(), nil
		}
		return "", fmt.Errorf("fork %s: %w", repoFullName, err)
	}
	return fork.GetFullName(), nil
}

// FindOpenPR looks for an open pull request against sourceRepo whose head
// is forkOwner:branchName.
func (c *Client) FindOpenPR(ctx context.Context, sourceRepo, forkOwner, branchName string) (*synckernel.PullRequestRecord, string, error) {
	owner, name, err := splitFullName(sourceRepo)
	if err != nil {
		return nil, "", err
	}

	prs, _, err := c.gh.PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", forkOwner, branchName),
	})
	if err != nil {
		return nil, "", fmt.Errorf("list pull requests for %s: %w", sourceRepo, err)
	}
	if len(prs) == 0 {
		return nil, "", nil
	}

	pr := prs[0]
	rec := &synckernel.PullRequestRecord{
		PRNumber:   pr.GetNumber(),
		BranchName: branchName,
		Status:     synckernel.PRStatusOpen,
	}
	return rec, pr.GetHTMLURL(), nil
}

// CreatePR opens a new pull request against sourceRepo's default branch,
// with forkOwner:branchName as the head (§4.10, §4.11).
func (c *Client) CreatePR(ctx context.Context, sourceRepo, forkOwner, branchName, title, body string) (synckernel.PullRequestRecord, string, error) {
	owner, name, err := splitFullName(sourceRepo)
	if err != nil {
		return synckernel.PullRequestRecord{}, "", err
	}

	base, err := c.DefaultBranch(ctx, sourceRepo)
	if err != nil {
		return synckernel.PullRequestRecord{}, "", err
	}

	head := fmt.Sprintf("%s:%s", forkOwner, branchName)
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, name, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return synckernel.PullRequestRecord{}, "", fmt.Errorf("create pull request on %s: %w", sourceRepo, err)
	}

	rec := synckernel.PullRequestRecord{
		PRNumber:   pr.GetNumber(),
		BranchName: branchName,
		Status:     synckernel.PRStatusOpen,
	}
	return rec, pr.GetHTMLURL(), nil
}

func splitFullName(repoFullName string) (owner, name string, err error) {
	for i, c := range repoFullName {
		if c == '/' {
			return repoFullName[:i], repoFullName[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid repo full name %q: expected owner/repo", repoFullName)
}
