// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package workflow implements the task-plugin shell that wraps the
// synchronization kernel: a Task interface keyed by TaskKind, a
// {{var}} substitution helper, and a sequential runner used by both the
// ingest command and choose-workflow's interactive picker.
package workflow

import (
	"context"
	"fmt"

	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/logger"
	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
)

// TaskKind identifies which Task implementation a workflow file's task
// entry should be decoded into. Only TaskKindSync is implemented; the
// registry shape leaves room for future kinds without a rewrite (§9).
type TaskKind string

const TaskKindSync TaskKind = "sync"

// Task is the plugin contract every workflow task type implements.
type Task interface {
	Name() string
	Kind() TaskKind
	Validate(ctx context.Context) error
	Execute(ctx context.Context, rc *RunContext) error
}

// RunContext threads shared, request-scoped state through task execution
// in place of global/package-level state (§9 "Global singleton state").
type RunContext struct {
	WorkspaceRoot string
	DryRun        bool
	Interactive   synckernel.Interactive
	Log           logger.Logger
	Global        *config.GlobalConfig
	Summary       *synckernel.RunSummary

	Ingest     *synckernel.IngestExecutor
	Contribute *synckernel.ContributeExecutor
}

// SyncTask drives the ingest executor over a flat list of repo groups.
// Contribute is a distinct CLI command (§6) rather than a task kind,
// since it operates on whatever the tracker already records rather than a
// workflow file's declared repos.
type SyncTask struct {
	TaskName string
	Repos    []synckernel.RepoGroup
}

var _ Task = (*SyncTask)(nil)

func (t *SyncTask) Name() string   { return t.TaskName }
func (t *SyncTask) Kind() TaskKind { return TaskKindSync }

// Validate checks that every declared repo group is well-formed enough to
// attempt (§7 "malformed workflow file" is a configuration error, fatal
// before any network I/O).
func (t *SyncTask) Validate(ctx context.Context) error {
	if len(t.Repos) == 0 {
		return fmt.Errorf("sync task %q declares no repos", t.TaskName)
	}
	for i, g := range t.Repos {
		if g.Repo == "" {
			return fmt.Errorf("sync task %q: repo group %d has no repo name", t.TaskName, i)
		}
		if len(g.Files) == 0 {
			return fmt.Errorf("sync task %q: repo group %d (%s) declares no file mappings", t.TaskName, i, g.Repo)
		}
	}
	return nil
}

// Execute runs C8 (ingest) over every declared repo group, continuing past
// repo-scoped failures per §7's propagation policy.
func (t *SyncTask) Execute(ctx context.Context, rc *RunContext) error {
	var firstErr error
	for _, group := range t.Repos {
		if err := rc.Ingest.IngestRepo(ctx, group, rc.Summary); err != nil {
			rc.Log.Warn("repo ingest failed, continuing with remaining repos", "repo", group.Repo, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
