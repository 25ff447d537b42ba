// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk_EmitsOnePerRegularFileAndSkipsVCSMetadata(t *testing.T) {
	staging := t.TempDir()
	workspace := t.TempDir()

	sourceRoot := filepath.Join(staging, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "readme.md"), []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "sub", "nested.md"), []byte("v2"), 0o644))

	gitDir := filepath.Join(sourceRoot, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main"), 0o644))

	localRoot := filepath.Join(workspace, "out")

	ops, err := Walk("org/repo1", sourceRoot, localRoot, staging, workspace)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	rel := make([]string, len(ops))
	for i, op := range ops {
		rel[i] = op.RelativeSourcePath
		assert.Equal(t, "org/repo1", op.RepoFullName)
		assert.Equal(t, OpCopy, op.Type)
	}
	sort.Strings(rel)
	assert.Equal(t, []string{"docs/readme.md", "docs/sub/nested.md"}, rel)

	// Local directories are created lazily even before any copy happens.
	assert.DirExists(t, localRoot)
	assert.DirExists(t, filepath.Join(localRoot, "sub"))
}

func TestWalk_MissingSourceRootYieldsNoOps(t *testing.T) {
	staging := t.TempDir()
	workspace := t.TempDir()

	ops, err := Walk("org/repo1", filepath.Join(staging, "absent"), filepath.Join(workspace, "out"), staging, workspace)
	require.NoError(t, err)
	assert.Nil(t, ops)
}

func TestDetectDeletions_FindsLocalOnlyTrackedFiles(t *testing.T) {
	workspace := t.TempDir()
	sourceRoot := filepath.Join(workspace, "staging", "docs")
	localRoot := filepath.Join(workspace, "out")

	require.NoError(t, os.MkdirAll(sourceRoot, 0o755))
	require.NoError(t, os.MkdirAll(localRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "readme.md"), []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(localRoot, "readme.md"), []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(localRoot, "extra.md"), []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(localRoot, "untracked.md"), []byte("untracked"), 0o644))

	tracked := map[string]FileRecord{
		"out/readme.md": {Hash: HashBytes([]byte("v1"))},
		"out/extra.md":  {Hash: HashBytes([]byte("stale"))},
		// "out/untracked.md" deliberately absent from the tracker.
	}

	candidates, err := DetectDeletions(localRoot, sourceRoot, workspace, tracked)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "out/extra.md", candidates[0].RelativeLocalPath)
}

// TestConfirmDeletions_NonInteractiveKeepsEverything covers P5: non-
// interactive runs must never delete a file without explicit confirmation.
func TestConfirmDeletions_NonInteractiveKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.md")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	candidates := []DeletionCandidate{{RelativeLocalPath: "out/extra.md", AbsoluteLocalPath: path}}

	deleted, err := ConfirmDeletions(candidates, NonInteractive, nil)
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.FileExists(t, path)
}

func TestConfirmDeletions_EmptyCandidatesIsNoop(t *testing.T) {
	deleted, err := ConfirmDeletions(nil, Prompted, nil)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
