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

// fakeFetcher is an in-memory Fetcher double: TipCommit returns a fixed
// SHA and Stage hands back a directory the test has already populated, so
// no network or git plumbing is exercised.
type fakeFetcher struct {
	tip      string
	tipErr   error
	stageDir string
	stageErr error
	staged   int
}

func (f *fakeFetcher) TipCommit(ctx context.Context, repoFullName, branch string) (string, error) {
	return f.tip, f.tipErr
}

func (f *fakeFetcher) Stage(ctx context.Context, repoFullName, branch string) (string, func(), error) {
	f.staged++
	if f.stageErr != nil {
		return "", func() {}, f.stageErr
	}
	return f.stageDir, func() {}, nil
}

// fakeOracle is an in-memory Oracle double recording every call it
// receives so tests can assert the merge engine was (or wasn't) invoked.
type fakeOracle struct {
	calls  int
	result []byte
	err    error
}

func (o *fakeOracle) Merge(ctx context.Context, targetContent, sourceContent []byte) ([]byte, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	if o.result != nil {
		return o.result, nil
	}
	return sourceContent, nil
}

func newTestIngest(t *testing.T, workspace string, fetcher Fetcher, oracle Oracle) *IngestExecutor {
	t.Helper()
	exec := NewIngestExecutor(workspace, fetcher, oracle, nil)
	return exec
}

func writeStagedFile(t *testing.T, stageDir, relSourcePath, content string) {
	t.Helper()
	full := filepath.Join(stageDir, relSourcePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func readLocal(t *testing.T, workspace, relLocalPath string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(workspace, relLocalPath))
	require.NoError(t, err)
	return string(b)
}

// TestIngestRepo_Scenario1_FirstTimeIngest matches spec scenario 1.
func TestIngestRepo_Scenario1_FirstTimeIngest(t *testing.T) {
	workspace := t.TempDir()
	stage := t.TempDir()
	writeStagedFile(t, stage, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage}
	exec := newTestIngest(t, workspace, fetcher, &fakeOracle{})

	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	summary := NewRunSummary()

	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, "v1", readLocal(t, workspace, "out/readme.md"))

	root := exec.Store.Read(workspace)
	rec := root.Repos["repo1"]
	assert.Equal(t, "abc123", rec.LastCommitHash)
	file := rec.Files["out/readme.md"]
	assert.Equal(t, HashBytes([]byte("v1")), file.Hash)
	assert.Equal(t, ActionCopy, file.Action)
	assert.Equal(t, "docs/readme.md", file.RelativeSourcePath)
}

// TestIngestRepo_Scenario2_NoopSecondRun matches spec scenario 2.
func TestIngestRepo_Scenario2_NoopSecondRun(t *testing.T) {
	workspace := t.TempDir()
	stage := t.TempDir()
	writeStagedFile(t, stage, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage}
	exec := newTestIngest(t, workspace, fetcher, &fakeOracle{})
	group := RepoGroup{Repo: "repo1", Sync: true, Files: []Mapping{{Source: "docs", Local: "out"}}}

	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))
	info, err := os.Stat(filepath.Join(workspace, "out/readme.md"))
	require.NoError(t, err)
	firstModTime := info.ModTime()

	summary := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, 1, fetcher.staged, "second run with sync=true and unchanged tip must not re-stage")

	info2, err := os.Stat(filepath.Join(workspace, "out/readme.md"))
	require.NoError(t, err)
	assert.Equal(t, firstModTime, info2.ModTime(), "file must not be rewritten")

	root := exec.Store.Read(workspace)
	assert.Equal(t, "abc123", root.Repos["repo1"].LastCommitHash)
}

// TestIngestRepo_Scenario3_UpstreamOnlyChange matches spec scenario 3.
func TestIngestRepo_Scenario3_UpstreamOnlyChange(t *testing.T) {
	workspace := t.TempDir()
	stage1 := t.TempDir()
	writeStagedFile(t, stage1, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage1}
	exec := newTestIngest(t, workspace, fetcher, &fakeOracle{})
	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))

	stage2 := t.TempDir()
	writeStagedFile(t, stage2, "docs/readme.md", "v2")
	fetcher.tip = "def456"
	fetcher.stageDir = stage2

	summary := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, "v2", readLocal(t, workspace, "out/readme.md"))
	root := exec.Store.Read(workspace)
	rec := root.Repos["repo1"]
	assert.Equal(t, "def456", rec.LastCommitHash)
	file := rec.Files["out/readme.md"]
	assert.Equal(t, HashBytes([]byte("v2")), file.Hash)
	assert.Equal(t, ActionCopy, file.Action)
}

// TestIngestRepo_Scenario4_LocalOnlyChange matches spec scenario 4.
func TestIngestRepo_Scenario4_LocalOnlyChange(t *testing.T) {
	workspace := t.TempDir()
	stage := t.TempDir()
	writeStagedFile(t, stage, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage}
	oracle := &fakeOracle{}
	exec := newTestIngest(t, workspace, fetcher, oracle)
	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))

	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v1-local"), 0o644))

	// Source commit unchanged, so a force-refresh of the tip must still see
	// the same staged content to exercise the decision engine.
	fetcher.tip = "abc123"

	summary := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, "v1-local", readLocal(t, workspace, "out/readme.md"))
	root := exec.Store.Read(workspace)
	file := root.Repos["repo1"].Files["out/readme.md"]
	assert.Equal(t, HashBytes([]byte("v1")), file.Hash, "tracker hash must stay at the last-synced value")
	assert.Equal(t, 0, oracle.calls)
}

// TestIngestRepo_Scenario5And6And7_DivergentMergeLifecycle matches spec
// scenarios 5, 6, and 7 end to end against a single tracker.
func TestIngestRepo_Scenario5And6And7_DivergentMergeLifecycle(t *testing.T) {
	workspace := t.TempDir()
	stage1 := t.TempDir()
	writeStagedFile(t, stage1, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage1}
	oracle := &fakeOracle{}
	exec := newTestIngest(t, workspace, fetcher, oracle)
	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))

	// Scenario 5: local diverges, source advances with different content.
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v1-local"), 0o644))
	stage2 := t.TempDir()
	writeStagedFile(t, stage2, "docs/readme.md", "v1-upstream")
	fetcher.tip = "def456"
	fetcher.stageDir = stage2
	oracle.result = []byte("M")

	summary5 := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary5))

	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "M", readLocal(t, workspace, "out/readme.md"))
	root := exec.Store.Read(workspace)
	rec := root.Repos["repo1"]
	assert.Equal(t, "def456", rec.LastCommitHash)
	file := rec.Files["out/readme.md"]
	assert.Equal(t, HashBytes([]byte("M")), file.Hash)
	assert.Equal(t, ActionMerge, file.Action)

	// Scenario 6: re-run with source still at def456; must be a pure no-op.
	summary6 := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary6))
	assert.Equal(t, 1, oracle.calls, "oracle must not be called again while the commit is unchanged")
	assert.Equal(t, "M", readLocal(t, workspace, "out/readme.md"))

	// Scenario 7: source advances again; must merge once more.
	stage3 := t.TempDir()
	writeStagedFile(t, stage3, "docs/readme.md", "v2-upstream")
	fetcher.tip = "ghi789"
	fetcher.stageDir = stage3
	oracle.result = []byte("M2")

	summary7 := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary7))
	assert.Equal(t, 2, oracle.calls)
	assert.Equal(t, "M2", readLocal(t, workspace, "out/readme.md"))
	root2 := exec.Store.Read(workspace)
	assert.Equal(t, "ghi789", root2.Repos["repo1"].LastCommitHash)
}

// TestIngestRepo_Scenario8_TrackerStaleLocalMatchesUpstream matches spec
// scenario 8.
func TestIngestRepo_Scenario8_TrackerStaleLocalMatchesUpstream(t *testing.T) {
	workspace := t.TempDir()
	stage := t.TempDir()
	writeStagedFile(t, stage, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage}
	oracle := &fakeOracle{}
	exec := newTestIngest(t, workspace, fetcher, oracle)
	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))

	// Both source and local now read "v2", but the tracker hash is stale
	// (still hash("v1")) because the local edit happened to match the next
	// upstream revision exactly.
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "out/readme.md"), []byte("v2"), 0o644))
	stage2 := t.TempDir()
	writeStagedFile(t, stage2, "docs/readme.md", "v2")
	fetcher.tip = "def456"
	fetcher.stageDir = stage2

	summary := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, 0, oracle.calls)
	assert.Equal(t, "v2", readLocal(t, workspace, "out/readme.md"))
	root := exec.Store.Read(workspace)
	file := root.Repos["repo1"].Files["out/readme.md"]
	assert.Equal(t, HashBytes([]byte("v2")), file.Hash)
	assert.Equal(t, ActionUpdateTracker, file.Action)
}

func TestIngestRepo_ForceOverridesUnchangedTip(t *testing.T) {
	workspace := t.TempDir()
	stage := t.TempDir()
	writeStagedFile(t, stage, "docs/readme.md", "v1")

	fetcher := &fakeFetcher{tip: "abc123", stageDir: stage}
	exec := newTestIngest(t, workspace, fetcher, &fakeOracle{})
	group := RepoGroup{Repo: "repo1", Files: []Mapping{{Source: "docs", Local: "out"}}}
	require.NoError(t, exec.IngestRepo(context.Background(), group, NewRunSummary()))

	group.Force = true
	summary := NewRunSummary()
	require.NoError(t, exec.IngestRepo(context.Background(), group, summary))

	assert.Equal(t, 2, fetcher.staged, "force must re-stage even with an unchanged tip")
}
