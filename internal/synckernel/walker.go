// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// vcsMetadataDirs are never traversed or copied, so version-control
// metadata cannot leak into a sync snapshot (§4.6).
var vcsMetadataDirs = map[string]bool{
	".git":       true,
	".hg":        true,
	".svn":       true,
	".jj":        true,
	".gitignore": false, // a file, not a directory; listed for clarity, never skipped
}

// Walk is C6: given a source subtree rooted at sourceRoot (inside a staged
// snapshot) and the corresponding local subtree rooted at localRoot, it
// recursively emits one SyncOp per regular file found under sourceRoot.
// Missing local directories are created lazily. relativeSourcePath is
// computed relative to stagingAnchor (the root of the whole staged
// snapshot, not sourceRoot), and relativeLocalPath is computed relative to
// workspaceRoot.
func Walk(repoFullName, sourceRoot, localRoot, stagingAnchor, workspaceRoot string) ([]SyncOp, error) {
	info, err := os.Stat(sourceRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat source root %s: %w", sourceRoot, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("walk: %s is not a directory", sourceRoot)
	}

	var ops []SyncOp

	err = filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
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
			// Symlinks, devices, sockets, etc. are ignored (§4.6).
			return nil
		}

		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return fmt.Errorf("compute relative path for %s: %w", path, err)
		}

		localPath := filepath.Join(localRoot, rel)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("create local directory for %s: %w", localPath, err)
		}

		relSource, err := filepath.Rel(stagingAnchor, path)
		if err != nil {
			return fmt.Errorf("compute staging-relative path for %s: %w", path, err)
		}
		relLocal, err := filepath.Rel(workspaceRoot, localPath)
		if err != nil {
			return fmt.Errorf("compute workspace-relative path for %s: %w", localPath, err)
		}

		ops = append(ops, SyncOp{
			AbsoluteLocalPath:  localPath,
			AbsoluteSourcePath: path,
			RelativeLocalPath:  filepath.ToSlash(relLocal),
			RelativeSourcePath: filepath.ToSlash(relSource),
			RepoFullName:       repoFullName,
			Type:               OpCopy,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree %s: %w", sourceRoot, err)
	}

	return ops, nil
}

// isVCSMetadataPath reports whether any path segment names a version-
// control metadata directory. The walkers in this package do not call it;
// their filepath.WalkDir callbacks check vcsMetadataDirs directly.
func isVCSMetadataPath(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if vcsMetadataDirs[seg] {
			return true
		}
	}
	return false
}
