// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
)

// WorkflowFile is the on-disk JSON document declaring one or more tasks
// (§6 "Workflow file"). Only the sync task type is understood, by the
// ingest and choose-workflow commands; tasks of other types are decoded
// but ignored. Vars holds the
// key→value bindings available to every task's string fields via
// internal/workflow.Substitute's {{var}} replacement (§9 "Global
// singleton state" / "Cyclic variable references").
type WorkflowFile struct {
	Tasks []TaskConfig      `json:"tasks"`
	Vars  map[string]string `json:"vars,omitempty"`
}

// TaskConfig is one entry of a workflow file. Name is used by
// choose-workflow's interactive picker; Sync is populated when Type is
// "sync".
type TaskConfig struct {
	Name string          `json:"name"`
	Type string          `json:"type"`
	Sync *SyncTaskConfig `json:"sync,omitempty"`
}

// SyncTaskConfig is the sync task's body: a flat list of repo groups.
type SyncTaskConfig struct {
	Repos []synckernel.RepoGroup `json:"repos"`
}

// repoGroupSyncPresence is decoded alongside each repo group purely to
// tell "sync omitted" apart from "sync explicitly false" — RepoGroup.Sync
// itself stays a plain bool so every other consumer keeps treating it as
// one.
type repoGroupSyncPresence struct {
	Sync *bool `json:"sync"`
}

// UnmarshalJSON defaults an omitted "sync" field to true: a repo group
// that never mentions sync should still get the commit-gated short-
// circuit, not ingest()'s "always re-fetch" fallback that Go's bool zero
// value would otherwise silently select.
func (c *SyncTaskConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Repos []json.RawMessage `json:"repos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	repos := make([]synckernel.RepoGroup, len(raw.Repos))
	for i, rm := range raw.Repos {
		var g synckernel.RepoGroup
		if err := json.Unmarshal(rm, &g); err != nil {
			return fmt.Errorf("repo %d: %w", i, err)
		}

		var presence repoGroupSyncPresence
		if err := json.Unmarshal(rm, &presence); err != nil {
			return fmt.Errorf("repo %d: %w", i, err)
		}
		if presence.Sync == nil {
			g.Sync = true
		}

		repos[i] = g
	}

	c.Repos = repos
	return nil
}

// LoadWorkflowFile parses a workflow JSON document from path.
func LoadWorkflowFile(path string) (*WorkflowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file %s: %w", path, err)
	}

	var wf WorkflowFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, err)
	}

	for i, t := range wf.Tasks {
		if t.Type == "sync" && t.Sync == nil {
			return nil, fmt.Errorf("workflow file %s: task %d is type sync but has no sync body", path, i)
		}
	}

	return &wf, nil
}

// SyncRepoGroups flattens every sync task's repo groups into one slice, in
// file order. Most workflow files declare exactly one sync task; this
// tolerates more without requiring callers to know that.
func (w *WorkflowFile) SyncRepoGroups() []synckernel.RepoGroup {
	var groups []synckernel.RepoGroup
	for _, t := range w.Tasks {
		if t.Type == "sync" && t.Sync != nil {
			groups = append(groups, t.Sync.Repos...)
		}
	}
	return groups
}

// SyncTasks returns the subset of tasks that are sync tasks, preserving
// their names for choose-workflow's picker.
func (w *WorkflowFile) SyncTasks() []TaskConfig {
	var tasks []TaskConfig
	for _, t := range w.Tasks {
		if t.Type == "sync" && t.Sync != nil {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
