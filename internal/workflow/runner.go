// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/gizzahub/gitsync-kernel/internal/config"
	"github.com/gizzahub/gitsync-kernel/internal/logger"
	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
)

// BuildSyncTasks decodes every sync task in a parsed workflow file into
// runnable SyncTask values, interpolating wf.Vars into every repo group's
// string fields first (§9 "Cyclic variable references"). log may be nil.
func BuildSyncTasks(wf *config.WorkflowFile, log logger.Logger) []*SyncTask {
	var tasks []*SyncTask
	for i, t := range wf.SyncTasks() {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("sync-%d", i)
		}
		tasks = append(tasks, &SyncTask{TaskName: name, Repos: substituteRepoGroups(t.Sync.Repos, wf.Vars, log)})
	}
	return tasks
}

// substituteRepoGroups applies {{var}} replacement to every field of every
// repo group a workflow file can declare, so a workflow can parameterize
// repo names, branches, forks, and file mappings with the same bindings.
func substituteRepoGroups(groups []synckernel.RepoGroup, vars map[string]string, log logger.Logger) []synckernel.RepoGroup {
	out := make([]synckernel.RepoGroup, len(groups))
	for i, g := range groups {
		g.Repo = Substitute(g.Repo, vars, log)
		g.Branch = Substitute(g.Branch, vars, log)
		g.ForkRepo = Substitute(g.ForkRepo, vars, log)

		files := make([]synckernel.Mapping, len(g.Files))
		for j, m := range g.Files {
			files[j].Source, files[j].Local = SubstituteMapping(m.Source, m.Local, vars, log)
		}
		g.Files = files

		out[i] = g
	}
	return out
}

// Run validates then executes tasks in declaration order, matching the
// teacher's straightforward sequential-pipeline CLI commands rather than
// introducing unneeded concurrency across unrelated tasks.
func Run(ctx context.Context, tasks []Task, rc *RunContext) error {
	for _, t := range tasks {
		if err := t.Validate(ctx); err != nil {
			return fmt.Errorf("task %q failed validation: %w", t.Name(), err)
		}
	}

	var firstErr error
	for _, t := range tasks {
		rc.Log.Info("running task", "task", t.Name(), "kind", t.Kind())
		if err := t.Execute(ctx, rc); err != nil {
			rc.Log.Warn("task failed", "task", t.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ChoosePrompt is the shape of a task-selection prompt: it receives the
// task names and returns the indexes chosen. choose-workflow's command
// calls ChooseTasks directly and does not take a ChoosePrompt.
type ChoosePrompt func(taskNames []string) ([]int, error)

// ChooseTasks offers the operator a multi-select-style prompt built from
// promptui.Select run repeatedly (promptui has no native multi-select),
// the same "repeat single-select until done" idiom as C7's deletion
// subset picker.
func ChooseTasks(tasks []Task) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	remaining := append([]Task(nil), tasks...)
	var chosen []Task

	for len(remaining) > 0 {
		items := make([]string, 0, len(remaining)+1)
		items = append(items, "(done selecting)")
		for _, t := range remaining {
			items = append(items, fmt.Sprintf("%s [%s]", t.Name(), t.Kind()))
		}

		prompt := promptui.Select{
			Label: "Select a task to run (or finish)",
			Items: items,
		}
		idx, _, err := prompt.Run()
		if err != nil {
			return chosen, fmt.Errorf("choose-workflow prompt: %w", err)
		}
		if idx == 0 {
			break
		}

		chosen = append(chosen, remaining[idx-1])
		remaining = append(remaining[:idx-1], remaining[idx:]...)
	}

	return chosen, nil
}
