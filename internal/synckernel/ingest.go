// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// IngestExecutor is C8: it drives Fetcher → Walker → Decision engine →
// (copy/merge/noop) for each repo group, then the deletion detector, then
// writes updated tracker state.
type IngestExecutor struct {
	WorkspaceRoot string
	Fetcher       Fetcher
	Oracle        Oracle
	Store         *Store
	Log           logger.Logger
	Interactive   Interactive
	// MaxParallelFiles bounds how many files within one repo may be
	// processed concurrently (§5 "files within a repo may be processed in
	// parallel; tracker updates must be serialized"). 0 or 1 means
	// sequential.
	MaxParallelFiles int
}

// NewIngestExecutor constructs an IngestExecutor with defaults filled in.
func NewIngestExecutor(workspaceRoot string, fetcher Fetcher, oracle Oracle, log logger.Logger) *IngestExecutor {
	if log == nil {
		log = logger.Nop{}
	}
	return &IngestExecutor{
		WorkspaceRoot: workspaceRoot,
		Fetcher:       fetcher,
		Oracle:        oracle,
		Store:         NewStore(log),
		Log:           log,
		Interactive:   NonInteractive,
	}
}

// IngestRepo runs the full per-repo ingest algorithm of §4.8 for one repo
// group and folds its outcomes into summary.
func (e *IngestExecutor) IngestRepo(ctx context.Context, group RepoGroup, summary *RunSummary) error {
	branch := group.BranchOrDefault()
	log := e.Log.With("repo", group.Repo, "branch", branch)

	// 1. Read the tracker root once.
	root := e.Store.Read(e.WorkspaceRoot)
	existing, hadRecord := root.Repos[group.Repo]
	if !hadRecord {
		existing = RepoRecord{Branch: branch, Files: make(map[string]FileRecord)}
	}
	if existing.Files == nil {
		existing.Files = make(map[string]FileRecord)
	}

	// 2. Obtain the tip commit of the target branch.
	tip, err := e.Fetcher.TipCommit(ctx, group.Repo, branch)
	if err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("tip lookup failed: %v", err))
		return fmt.Errorf("ingest %s: %w", group.Repo, err)
	}

	// 3. Determine shouldFetch.
	shouldFetch := group.Force || !group.Sync || existing.LastCommitHash != tip
	if !shouldFetch {
		log.Info("no changes since last ingest, skipping", "commit", tip)
		return nil
	}

	// 4. Stage the repo.
	stagingDir, cleanup, err := e.Fetcher.Stage(ctx, group.Repo, branch)
	if err != nil {
		summary.RecordFailure(group.Repo, fmt.Sprintf("staging failed: %v", err))
		return fmt.Errorf("ingest %s: %w", group.Repo, err)
	}
	defer cleanup()

	fatal := false

	// 5-6. Walk each mapping, decide, and dispatch per file.
	for _, mapping := range group.Files {
		sourcePath := resolveMappingPath(stagingDir, mapping.Source)
		localPath := resolveMappingPath(e.WorkspaceRoot, mapping.Local)

		info, statErr := os.Stat(sourcePath)
		switch {
		case statErr != nil && !os.IsNotExist(statErr):
			summary.RecordFailure(group.Repo, fmt.Sprintf("stat %s: %v", sourcePath, statErr))
			fatal = true
			continue
		case statErr != nil:
			// Source file/dir absent this run; nothing to sync for this
			// mapping.
			continue
		}

		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			summary.RecordFailure(group.Repo, fmt.Sprintf("mkdir %s: %v", localPath, err))
			fatal = true
			continue
		}

		var ops []SyncOp
		if info.IsDir() {
			ops, err = Walk(group.Repo, sourcePath, localPath, stagingDir, e.WorkspaceRoot)
			if err != nil {
				summary.RecordFailure(group.Repo, fmt.Sprintf("walk %s: %v", sourcePath, err))
				fatal = true
				continue
			}
		} else {
			relSource, _ := filepath.Rel(stagingDir, sourcePath)
			relLocal, _ := filepath.Rel(e.WorkspaceRoot, localPath)
			ops = []SyncOp{{
				AbsoluteLocalPath:  localPath,
				AbsoluteSourcePath: sourcePath,
				RelativeLocalPath:  filepath.ToSlash(relLocal),
				RelativeSourcePath: filepath.ToSlash(relSource),
				RepoFullName:       group.Repo,
				Type:               OpCopy,
			}}
		}

		if err := e.processOps(ctx, group, existing, ops, tip, summary); err != nil {
			fatal = true
		}
	}

	// 7. Run deletion detection over each directory mapping.
	for _, mapping := range group.Files {
		sourcePath := resolveMappingPath(stagingDir, mapping.Source)
		localPath := resolveMappingPath(e.WorkspaceRoot, mapping.Local)

		info, statErr := os.Stat(sourcePath)
		if statErr != nil || !info.IsDir() {
			continue
		}

		candidates, err := DetectDeletions(localPath, sourcePath, e.WorkspaceRoot, existing.Files)
		if err != nil {
			log.Warn("deletion detection failed", "mapping", mapping, "error", err)
			continue
		}

		deleted, err := ConfirmDeletions(candidates, e.Interactive, log)
		if err != nil {
			log.Warn("deletion confirmation failed", "mapping", mapping, "error", err)
			continue
		}

		for _, d := range deleted {
			delete(existing.Files, d.RelativeLocalPath)
			summary.RecordDeletion(group.Repo)
		}
	}

	// 8. Persist outcome. On fatal failure, keep any file records already
	// updated but do not advance the commit hash, so the next run retries.
	existing.FilePaths = group.Files
	existing.ForkRepo = group.ForkRepo
	existing.Branch = branch
	if !fatal {
		existing.LastCommitHash = tip
		existing.SyncedAt = time.Now()
	}

	root.Repos[group.Repo] = existing
	if err := e.Store.Write(e.WorkspaceRoot, root); err != nil {
		return fmt.Errorf("ingest %s: persist tracker: %w", group.Repo, err)
	}

	if fatal {
		return fmt.Errorf("ingest %s: completed with failures, commit not advanced", group.Repo)
	}
	return nil
}

// processOps applies the decision engine to each op and dispatches the
// resulting action. When MaxParallelFiles > 1, ops are processed
// concurrently via errgroup with a bounded number of goroutines; the
// repo's file-record map is protected by mu so concurrent writers never
// race (§5 "tracker updates must be serialized").
func (e *IngestExecutor) processOps(ctx context.Context, group RepoGroup, repo RepoRecord, ops []SyncOp, tip string, summary *RunSummary) error {
	var mu sync.Mutex
	var firstErr error

	limit := e.MaxParallelFiles
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, op := range ops {
		op := op
		g.Go(func() error {
			mu.Lock()
			tracked, hasTracked := repo.Files[op.RelativeLocalPath]
			mu.Unlock()

			var trackerHash *string
			var trackerAction *TrackerAction
			if hasTracked {
				h := tracked.Hash
				a := tracked.Action
				trackerHash, trackerAction = &h, &a
			}

			sourceHash := HashFile(op.AbsoluteSourcePath)
			localHash := HashFile(op.AbsoluteLocalPath)

			decision := Decide(DecisionInput{
				SourceHash:    sourceHash,
				LocalHash:     localHash,
				TrackerHash:   trackerHash,
				TrackerAction: trackerAction,
				LastCommit:    repo.LastCommitHash,
				CurrentCommit: tip,
				Force:         group.Force,
			})

			rec, applyErr := e.applyDecision(gctx, decision, op, tracked)

			mu.Lock()
			defer mu.Unlock()
			summary.RecordDecision(group.Repo, decision)
			if applyErr != nil {
				summary.RecordFailure(group.Repo, fmt.Sprintf("%s: %v", op.RelativeLocalPath, applyErr))
				if firstErr == nil {
					firstErr = applyErr
				}
				return nil // file-scoped failure never aborts sibling files
			}
			if rec != nil {
				repo.Files[op.RelativeLocalPath] = *rec
			}
			return nil
		})
	}

	_ = g.Wait()
	return firstErr
}

// applyDecision performs the file I/O (if any) implied by decision and
// returns the updated file record, or nil if the record is unchanged.
func (e *IngestExecutor) applyDecision(ctx context.Context, decision Decision, op SyncOp, existing FileRecord) (*FileRecord, error) {
	switch decision {
	case None:
		return nil, nil

	case Copy:
		content, err := os.ReadFile(op.AbsoluteSourcePath)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		if err := os.WriteFile(op.AbsoluteLocalPath, content, 0o644); err != nil {
			return nil, fmt.Errorf("write local: %w", err)
		}
		return &FileRecord{
			Hash:               HashBytes(content),
			SyncedAt:           time.Now(),
			Action:             ActionCopy,
			RelativeSourcePath: op.RelativeSourcePath,
		}, nil

	case UpdateTracker:
		localHash := HashFile(op.AbsoluteLocalPath)
		return &FileRecord{
			Hash:               localHash,
			SyncedAt:           time.Now(),
			Action:             ActionUpdateTracker,
			RelativeSourcePath: op.RelativeSourcePath,
		}, nil

	case Merge:
		return e.applyMerge(ctx, op)

	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
}

// applyMerge backs up the local file, invokes the oracle, and on success
// writes the merged content and records action=merge. On failure the file
// and record are left untouched and the backup is retained (§4.5).
func (e *IngestExecutor) applyMerge(ctx context.Context, op SyncOp) (*FileRecord, error) {
	localContent, err := os.ReadFile(op.AbsoluteLocalPath)
	if err != nil {
		return nil, fmt.Errorf("read local for merge: %w", err)
	}
	sourceContent, err := os.ReadFile(op.AbsoluteSourcePath)
	if err != nil {
		return nil, fmt.Errorf("read source for merge: %w", err)
	}

	backupPath := op.AbsoluteLocalPath + ".gitsync-bak"
	if err := os.WriteFile(backupPath, localContent, 0o644); err != nil {
		return nil, fmt.Errorf("create merge backup: %w", err)
	}

	merged, err := e.Oracle.Merge(ctx, localContent, sourceContent)
	if err != nil {
		// Backup retained on failure; tracker and local file untouched.
		return nil, fmt.Errorf("merge oracle failed: %w", err)
	}

	if err := os.WriteFile(op.AbsoluteLocalPath, merged, 0o644); err != nil {
		return nil, fmt.Errorf("write merged content: %w", err)
	}
	_ = os.Remove(backupPath)

	return &FileRecord{
		Hash:               HashBytes(merged),
		SyncedAt:           time.Now(),
		Action:             ActionMerge,
		RelativeSourcePath: op.RelativeSourcePath,
	}, nil
}

// resolveMappingPath joins root with a mapping side, treating "" and "/"
// as "the root itself" (§3 "Repo-mapping").
func resolveMappingPath(root, side string) string {
	if side == "" || side == "/" {
		return root
	}
	return filepath.Join(root, side)
}
