// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePRLifecycle is an in-memory PRLifecycle double. It remembers the PR
// it last opened so PRStatus can reflect what the "forge" would report on
// a subsequent run, without touching git or the network.
type fakePRLifecycle struct {
	checkoutDir string

	ensureBranchCalls int
	commitOK          bool
	commitErr         error
	pushForceCalls    []bool

	pr *PullRequestRecord

	openPRCalls  int
	nextPRNumber int
}

func (f *fakePRLifecycle) CloneFork(ctx context.Context, forkRepo string) (string, func(), error) {
	return f.checkoutDir, func() {}, nil
}

func (f *fakePRLifecycle) SyncForkWithSource(ctx context.Context, checkoutDir, sourceRepo, sourceBranch string) error {
	return nil
}

func (f *fakePRLifecycle) EnsureBranch(ctx context.Context, checkoutDir, branchName string) error {
	f.ensureBranchCalls++
	return nil
}

func (f *fakePRLifecycle) CommitAll(ctx context.Context, checkoutDir, message string) (bool, error) {
	if f.commitErr != nil {
		return false, f.commitErr
	}
	return f.commitOK, nil
}

func (f *fakePRLifecycle) Push(ctx context.Context, checkoutDir, branchName string, force bool) error {
	f.pushForceCalls = append(f.pushForceCalls, force)
	return nil
}

func (f *fakePRLifecycle) PRStatus(ctx context.Context, sourceRepo, forkRepo, branchName string) (*PullRequestRecord, error) {
	return f.pr, nil
}

func (f *fakePRLifecycle) OpenPR(ctx context.Context, sourceRepo, forkRepo, branchName, title, body string) (PullRequestRecord, string, error) {
	f.openPRCalls++
	f.nextPRNumber++
	rec := PullRequestRecord{
		PRNumber:   f.nextPRNumber,
		BranchName: branchName,
		Status:     PRStatusOpen,
	}
	f.pr = &rec
	return rec, "https://github.com/org/repo1/pull/" + branchName, nil
}

var _ PRLifecycle = (*fakePRLifecycle)(nil)

// TestContributeRepo_Scenario9And10_PRLifecycle matches spec scenarios 9
// and 10: a first contribute opens a PR, and a second contribute after a
// further local edit force-pushes the same branch without opening a
// second PR (P7).
func TestContributeRepo_Scenario9And10_PRLifecycle(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v2"), 0o644))

	fork1 := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(fork1, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fork1, "docs/readme.md"), []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fork1, "docs/extra.md"), []byte("stale"), 0o644))

	lifecycle := &fakePRLifecycle{checkoutDir: fork1, commitOK: true}
	exec := NewContributeExecutor(workspace, lifecycle, nil)

	// Seed the tracker with a pre-existing record for out/extra.md so the
	// walker treats its local absence as a deletion, matching scenario 9.
	store := NewStore(nil)
	root := NewTrackerRoot()
	root.Repos["repo1"] = RepoRecord{
		Branch:   "main",
		ForkRepo: "user/repo1-fork",
		Files: map[string]FileRecord{
			"out/extra.md": {RelativeSourcePath: "docs/extra.md"},
		},
	}
	require.NoError(t, store.Write(workspace, root))

	group := RepoGroup{
		Repo:     "repo1",
		ForkRepo: "user/repo1-fork",
		Files:    []Mapping{{Source: "docs", Local: "out"}},
	}

	// Scenario 9 / first half of 10: contribute opens a fresh PR.
	summary := NewRunSummary()
	require.NoError(t, exec.ContributeRepo(context.Background(), group, summary))

	assert.Equal(t, 1, lifecycle.openPRCalls)
	require.Len(t, lifecycle.pushForceCalls, 1)
	assert.False(t, lifecycle.pushForceCalls[0], "a fresh branch must not be force-pushed")

	assert.NoFileExists(t, filepath.Join(fork1, "docs/extra.md"))
	copied, err := os.ReadFile(filepath.Join(fork1, "docs/readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(copied))

	persisted := store.Read(workspace)
	require.NotNil(t, persisted.Repos["repo1"].PullRequest)
	assert.Equal(t, PRStatusOpen, persisted.Repos["repo1"].PullRequest.Status)
	firstPRNumber := persisted.Repos["repo1"].PullRequest.PRNumber

	// Scenario 10: edit local further and contribute again against the
	// same (now-open) PR branch.
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v3"), 0o644))
	fork2 := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(fork2, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fork2, "docs/readme.md"), []byte("v2"), 0o644))
	lifecycle.checkoutDir = fork2

	summary2 := NewRunSummary()
	require.NoError(t, exec.ContributeRepo(context.Background(), group, summary2))

	assert.Equal(t, 1, lifecycle.openPRCalls, "reusing an open PR must not open a second one")
	require.Len(t, lifecycle.pushForceCalls, 2)
	assert.True(t, lifecycle.pushForceCalls[1], "pushing onto an existing open PR's branch must force-push")

	persisted2 := store.Read(workspace)
	assert.Equal(t, firstPRNumber, persisted2.Repos["repo1"].PullRequest.PRNumber)
}

func TestContributeRepo_NoForkConfiguredSkips(t *testing.T) {
	workspace := t.TempDir()
	lifecycle := &fakePRLifecycle{commitOK: true}
	exec := NewContributeExecutor(workspace, lifecycle, nil)

	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.ContributeRepo(context.Background(), group, NewRunSummary()))

	assert.Equal(t, 0, lifecycle.openPRCalls)
	assert.Equal(t, 0, lifecycle.ensureBranchCalls)
}

func TestContributeRepo_NoLocalChangesSkipsCommit(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v1"), 0o644))

	fork := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(fork, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fork, "docs/readme.md"), []byte("v1"), 0o644))

	lifecycle := &fakePRLifecycle{checkoutDir: fork, commitOK: false}
	exec := NewContributeExecutor(workspace, lifecycle, nil)

	group := RepoGroup{
		Repo:     "repo1",
		ForkRepo: "user/repo1-fork",
		Files:    []Mapping{{Source: "docs", Local: "out"}},
	}

	require.NoError(t, exec.ContributeRepo(context.Background(), group, NewRunSummary()))
	assert.Equal(t, 0, lifecycle.openPRCalls)
	assert.Empty(t, lifecycle.pushForceCalls)
}
