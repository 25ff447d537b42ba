// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

// Decision is the outcome of the decision engine for a single file.
type Decision string

const (
	// Copy writes source bytes onto local and updates the file record.
	Copy Decision = "copy"
	// None performs no file I/O and no tracker update for this file.
	None Decision = "none"
	// Merge invokes the merge oracle and, on success, writes the merged
	// bytes locally and records action=merge.
	Merge Decision = "merge"
	// UpdateTracker rewrites only the file record's hash; no file I/O.
	UpdateTracker Decision = "update_tracker"
)

// TrackerAction is the action recorded against a file the last time it was
// synced. It reuses the Decision vocabulary restricted to the three
// actions a file record can remember (§3 "File record").
type TrackerAction string

const (
	ActionCopy          TrackerAction = "copy"
	ActionMerge         TrackerAction = "merge"
	ActionUpdateTracker TrackerAction = "update_tracker"
)

// DecisionInput bundles the seven inputs to the decision engine. Tracker*
// fields use pointer-to-string / pointer-to-TrackerAction so "null" (never
// synced) is distinguishable from "empty string" (a real but empty file).
type DecisionInput struct {
	// SourceHash is the content hash of the file in the current source
	// snapshot. The caller is expected to have already filtered out files
	// absent from source entirely (§4.4 preamble).
	SourceHash string
	// LocalHash is "" when the local file is absent.
	LocalHash string
	// TrackerHash is nil when this file has never been synced before.
	TrackerHash *string
	// TrackerAction is nil when this file has never been synced before.
	TrackerAction *TrackerAction
	// LastCommit is the commit recorded in the tracker for this repo, or
	// "" on first sync.
	LastCommit string
	// CurrentCommit is the source tip observed this run.
	CurrentCommit string
	// Force is the operator's explicit override flag.
	Force bool
}

// Decide is the pure function at the heart of the system: it maps a
// DecisionInput to one of {Copy, None, Merge, UpdateTracker} by walking the
// ordered rule table in spec order, first match wins. It performs no I/O
// and is deterministic in its inputs (P2).
func Decide(in DecisionInput) Decision {
	// Bootstrap: local file missing.
	if in.LocalHash == "" {
		return Copy
	}

	// Explicit operator override.
	if in.Force {
		return Copy
	}

	// Commit-gated re-merge (P4): a file last merged is left alone until
	// the source commit advances again, regardless of hash drift.
	if in.TrackerAction != nil && *in.TrackerAction == ActionMerge {
		if in.LastCommit == in.CurrentCommit {
			return None
		}
		return Merge
	}

	// First sync of this file.
	if in.TrackerHash == nil {
		return Copy
	}
	T := *in.TrackerHash

	switch {
	case in.LocalHash == T && in.LocalHash != in.SourceHash:
		// Only upstream changed; safe to overwrite.
		return Copy
	case in.LocalHash != T && T == in.SourceHash:
		// Only local changed; preserve local edits.
		return None
	case in.LocalHash != T && in.LocalHash == in.SourceHash:
		// Local edits already equal upstream; refresh bookkeeping only.
		return UpdateTracker
	case in.LocalHash != T && in.LocalHash != in.SourceHash && in.SourceHash != T:
		// Both sides diverged from the tracked baseline independently.
		return Merge
	default:
		return None
	}
}
