// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

// DeletionCandidate is one locally-present, tracker-known file that has
// vanished from the source subtree.
type DeletionCandidate struct {
	RelativeLocalPath string
	AbsoluteLocalPath string
}

// DetectDeletions is C7's first half: for a directory mapping, it
// enumerates local files beneath localRoot, intersects the set with the
// files actually present in the staged source snapshot, and returns the
// set difference (local ∖ source), narrowed to files the tracker actually
// knows about for this repo (§4.7).
func DetectDeletions(localRoot, sourceRoot, workspaceRoot string, tracked map[string]FileRecord) ([]DeletionCandidate, error) {
	present := make(map[string]bool)
	_ = filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(sourceRoot, path)
		if relErr != nil {
			return nil
		}
		present[filepath.ToSlash(rel)] = true
		return nil
	})

	var candidates []DeletionCandidate

	err := filepath.WalkDir(localRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if vcsMetadataDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relToSource, err := filepath.Rel(localRoot, path)
		if err != nil {
			return fmt.Errorf("compute source-relative path for %s: %w", path, err)
		}
		relToSource = filepath.ToSlash(relToSource)

		if present[relToSource] {
			return nil
		}

		relToWorkspace, err := filepath.Rel(workspaceRoot, path)
		if err != nil {
			return fmt.Errorf("compute workspace-relative path for %s: %w", path, err)
		}
		relToWorkspace = filepath.ToSlash(relToWorkspace)

		if _, isTracked := tracked[relToWorkspace]; !isTracked {
			return nil
		}

		candidates = append(candidates, DeletionCandidate{
			RelativeLocalPath: relToWorkspace,
			AbsoluteLocalPath: path,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("enumerate local tree %s: %w", localRoot, err)
	}

	return candidates, nil
}

// DeletionChoice is the operator's answer to the interactive deletion
// prompt.
type DeletionChoice int

const (
	DeleteAll DeletionChoice = iota
	DeleteSubset
	KeepAll
)

// ConfirmDeletions is C7's second half: it offers the operator three
// choices (delete all / pick a subset / keep all), deletes the chosen
// files, prunes the directories left empty, and returns exactly the set
// that was removed so the caller can drop their file records. Non-interactive
// runs default to keep-all (§4.7).
func ConfirmDeletions(candidates []DeletionCandidate, mode Interactive, log logger.Logger) ([]DeletionCandidate, error) {
	if log == nil {
		log = logger.Nop{}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if mode == NonInteractive {
		log.Info("non-interactive run: keeping files absent from source",
			"candidate_count", len(candidates))
		return nil, nil
	}

	choice, err := promptDeletionChoice(len(candidates))
	if err != nil {
		return nil, fmt.Errorf("prompt for deletion choice: %w", err)
	}

	var toDelete []DeletionCandidate
	switch choice {
	case KeepAll:
		return nil, nil
	case DeleteAll:
		toDelete = candidates
	case DeleteSubset:
		toDelete, err = promptDeletionSubset(candidates)
		if err != nil {
			return nil, fmt.Errorf("prompt for deletion subset: %w", err)
		}
	}

	var deleted []DeletionCandidate
	for _, c := range toDelete {
		if err := os.Remove(c.AbsoluteLocalPath); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to delete file", "path", c.AbsoluteLocalPath, "error", err)
			continue
		}
		deleted = append(deleted, c)
	}

	for _, c := range deleted {
		pruneEmptyDirs(filepath.Dir(c.AbsoluteLocalPath))
	}

	return deleted, nil
}

func promptDeletionChoice(count int) (DeletionChoice, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("%d file(s) vanished from source; how should locals be handled?", count),
		Items: []string{"Delete all", "Pick a subset", "Keep all"},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return KeepAll, err
	}
	return DeletionChoice(idx), nil
}

func promptDeletionSubset(candidates []DeletionCandidate) ([]DeletionCandidate, error) {
	var chosen []DeletionCandidate
	remaining := append([]DeletionCandidate(nil), candidates...)

	for len(remaining) > 0 {
		items := make([]string, 0, len(remaining)+1)
		items = append(items, "(done selecting)")
		for _, c := range remaining {
			items = append(items, c.RelativeLocalPath)
		}

		prompt := promptui.Select{
			Label: "Select a file to delete (or finish)",
			Items: items,
		}
		idx, _, err := prompt.Run()
		if err != nil {
			return chosen, err
		}
		if idx == 0 {
			break
		}

		chosen = append(chosen, remaining[idx-1])
		remaining = append(remaining[:idx-1], remaining[idx:]...)
	}

	return chosen, nil
}

// pruneEmptyDirs removes dir and any now-empty ancestors, stopping at the
// first non-empty directory or any error.
func pruneEmptyDirs(dir string) {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
