// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ContributeOp is one file the contribute pass must write into a fork
// checkout, or remove from one.
type ContributeOp struct {
	AbsoluteLocalPath string
	AbsoluteForkPath  string
	RelativeForkPath  string
	RelativeLocalPath string
	RepoFullName      string
	Type              OpType
}

// WalkContribute is C9: for one repo group with a ForkRepo set, it
// enumerates local files beneath each mapping's local root, pairs each with
// its destination inside the fork checkout, and folds in deletions for
// tracked files that vanished locally (§4.9).
func WalkContribute(group RepoGroup, forkCheckoutDir, workspaceRoot string, tracked map[string]FileRecord) ([]ContributeOp, error) {
	if group.ForkRepo == "" {
		return nil, fmt.Errorf("contribute walk: repo %s has no fork configured", group.Repo)
	}

	var ops []ContributeOp
	seenLocal := make(map[string]bool)

	for _, mapping := range group.Files {
		localRoot := resolveMappingPath(workspaceRoot, mapping.Local)
		forkRoot := resolveMappingPath(forkCheckoutDir, mapping.Source)

		info, err := os.Stat(localRoot)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat local mapping root %s: %w", localRoot, err)
		}

		if !info.IsDir() {
			relLocal, _ := filepath.Rel(workspaceRoot, localRoot)
			relLocal = filepath.ToSlash(relLocal)
			seenLocal[relLocal] = true
			relFork, _ := filepath.Rel(forkCheckoutDir, forkRoot)
			ops = append(ops, ContributeOp{
				AbsoluteLocalPath: localRoot,
				AbsoluteForkPath:  forkRoot,
				RelativeForkPath:  filepath.ToSlash(relFork),
				RelativeLocalPath: relLocal,
				RepoFullName:      group.Repo,
				Type:              OpCopy,
			})
			continue
		}

		err = filepath.WalkDir(localRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
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

			relToLocalRoot, err := filepath.Rel(localRoot, path)
			if err != nil {
				return fmt.Errorf("compute fork-relative path for %s: %w", path, err)
			}
			forkPath := filepath.Join(forkRoot, relToLocalRoot)

			relLocal, err := filepath.Rel(workspaceRoot, path)
			if err != nil {
				return fmt.Errorf("compute workspace-relative path for %s: %w", path, err)
			}
			relLocal = filepath.ToSlash(relLocal)
			seenLocal[relLocal] = true

			relFork, err := filepath.Rel(forkCheckoutDir, forkPath)
			if err != nil {
				return fmt.Errorf("compute fork-checkout-relative path for %s: %w", forkPath, err)
			}

			ops = append(ops, ContributeOp{
				AbsoluteLocalPath: path,
				AbsoluteForkPath:  forkPath,
				RelativeForkPath:  filepath.ToSlash(relFork),
				RelativeLocalPath: relLocal,
				RepoFullName:      group.Repo,
				Type:              OpCopy,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk local mapping root %s: %w", localRoot, err)
		}
	}

	// Any tracked file no longer present locally is a deletion candidate on
	// the fork side too (§4.9 "deletions propagate symmetrically").
	for relLocal, rec := range tracked {
		if seenLocal[relLocal] {
			continue
		}
		localPath := filepath.Join(workspaceRoot, filepath.FromSlash(relLocal))
		if _, err := os.Stat(localPath); err == nil {
			continue // exists but wasn't under any mapping root; leave alone
		}

		forkPath, ok := translateToFork(group, workspaceRoot, forkCheckoutDir, relLocal, rec)
		if !ok {
			continue
		}
		relFork, _ := filepath.Rel(forkCheckoutDir, forkPath)

		ops = append(ops, ContributeOp{
			AbsoluteLocalPath: localPath,
			AbsoluteForkPath:  forkPath,
			RelativeForkPath:  filepath.ToSlash(relFork),
			RelativeLocalPath: relLocal,
			RepoFullName:      group.Repo,
			Type:              OpDelete,
		})
	}

	return ops, nil
}

// translateToFork maps a workspace-relative local path back to its
// counterpart inside the fork checkout, using whichever mapping's local
// root is a prefix of relLocal.
func translateToFork(group RepoGroup, workspaceRoot, forkCheckoutDir, relLocal string, rec FileRecord) (string, bool) {
	for _, mapping := range group.Files {
		localRoot := resolveMappingPath(workspaceRoot, mapping.Local)
		relLocalRootToWorkspace, err := filepath.Rel(workspaceRoot, localRoot)
		if err != nil {
			continue
		}
		relLocalRootToWorkspace = filepath.ToSlash(relLocalRootToWorkspace)

		if relLocalRootToWorkspace == "." || relLocal == relLocalRootToWorkspace ||
			hasPathPrefix(relLocal, relLocalRootToWorkspace) {
			forkRoot := resolveMappingPath(forkCheckoutDir, mapping.Source)
			if rec.RelativeSourcePath != "" {
				return filepath.Join(forkCheckoutDir, filepath.FromSlash(rec.RelativeSourcePath)), true
			}
			rest := relLocal
			if relLocalRootToWorkspace != "." {
				rest = relLocal[len(relLocalRootToWorkspace)+1:]
			}
			return filepath.Join(forkRoot, filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
