// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// TrackerFileName is the fixed filename of the tracker ledger inside the
// workspace root (§6 "Tracker file").
const TrackerFileName = ".gitsync-tracker.json"

// PRStatus is the lifecycle status of a pull request the engine opened.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// PullRequestRecord is the tracker's memory of a pull request opened on
// behalf of a repo. Exactly one exists per (repo, fork) pair at a time.
type PullRequestRecord struct {
	PRNumber    int       `json:"prNumber"`
	BranchName  string    `json:"branchName"`
	Status      PRStatus  `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FileRecord is the tracker's memory of one tracked file, scoped to a repo.
// Invariant: Hash matches the bytes of the local file as of the last
// successful sync action.
type FileRecord struct {
	Hash               string        `json:"hash"`
	SyncedAt           time.Time     `json:"syncedAt"`
	Action             TrackerAction `json:"action"`
	RelativeSourcePath string        `json:"relativeSourcePath"`
}

// RepoRecord is the tracker's memory of one repo across every mapping
// declared for it.
type RepoRecord struct {
	Branch         string                `json:"branch"`
	LastCommitHash string                `json:"lastCommitHash"`
	SyncedAt       time.Time             `json:"syncedAt"`
	ForkRepo       string                `json:"forkRepo,omitempty"`
	FilePaths      []Mapping             `json:"filePaths"`
	Files          map[string]FileRecord `json:"files"`
	PullRequest    *PullRequestRecord    `json:"pullRequest,omitempty"`
}

// TrackerRoot is the sole durable state of the system: one JSON document
// persisted at TrackerFileName in the workspace root.
type TrackerRoot struct {
	Repos map[string]RepoRecord `json:"repos"`
}

// NewTrackerRoot returns an empty, ready-to-use root.
func NewTrackerRoot() *TrackerRoot {
	return &TrackerRoot{Repos: make(map[string]RepoRecord)}
}

// Store is C2: the persistence contract for the tracker ledger. A single
// executor reads then writes a Store at a time (§4.2 invariant); the
// tracker has no internal locking.
type Store struct {
	log logger.Logger
}

// NewStore creates a tracker Store. log may be nil, in which case a no-op
// logger is used.
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop{}
	}
	return &Store{log: log}
}

func trackerPath(dir string) string {
	return filepath.Join(dir, TrackerFileName)
}

// Exists reports whether a tracker file is present in dir.
func (s *Store) Exists(dir string) bool {
	_, err := os.Stat(trackerPath(dir))
	return err == nil
}

// Read loads the tracker root from dir. A missing or malformed file yields
// an empty root rather than an error; a parse failure is logged as a
// warning (§4.2).
func (s *Store) Read(dir string) *TrackerRoot {
	data, err := os.ReadFile(trackerPath(dir))
	if err != nil {
		return NewTrackerRoot()
	}

	var root TrackerRoot
	if err := json.Unmarshal(data, &root); err != nil {
		s.log.Warn("tracker file is malformed, starting from an empty root",
			"path", trackerPath(dir), "error", err)
		return NewTrackerRoot()
	}

	if root.Repos == nil {
		root.Repos = make(map[string]RepoRecord)
	}
	for name, repo := range root.Repos {
		if repo.Files == nil {
			repo.Files = make(map[string]FileRecord)
			root.Repos[name] = repo
		}
	}

	return &root
}

// Write atomically overwrites the tracker JSON in dir. Failure is fatal to
// the calling command (§4.2, §7 "tracker write errors").
func (s *Store) Write(dir string, root *TrackerRoot) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracker: %w", err)
	}

	final := trackerPath(dir)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tracker temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("finalize tracker file: %w", err)
	}

	return nil
}

// LastCommit returns the commit recorded for repo/branch, or nil if the
// repo is absent or the recorded branch differs.
func (s *Store) LastCommit(dir, repo, branch string) *string {
	root := s.Read(dir)
	rec, ok := root.Repos[repo]
	if !ok || rec.Branch != branch {
		return nil
	}
	c := rec.LastCommitHash
	return &c
}

// LastFileHash returns the tracked hash for relativeLocalPath in repo, or
// nil if it has never been synced. An already-loaded root may be supplied
// via opt to avoid re-reading the file.
func (s *Store) LastFileHash(dir, repo, relativeLocalPath string, opt ...*TrackerRoot) *string {
	var root *TrackerRoot
	if len(opt) > 0 && opt[0] != nil {
		root = opt[0]
	} else {
		root = s.Read(dir)
	}

	rec, ok := root.Repos[repo]
	if !ok {
		return nil
	}
	file, ok := rec.Files[relativeLocalPath]
	if !ok {
		return nil
	}
	h := file.Hash
	return &h
}
