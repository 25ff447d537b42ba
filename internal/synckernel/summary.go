// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// RepoSummary accumulates per-decision counts and failures for one repo's
// ingest or contribute pass (§7 "user-visible behavior").
type RepoSummary struct {
	RepoFullName   string
	Copied         int
	Unchanged      int
	Merged         int
	TrackerOnly    int
	Deleted        int
	Failed         int
	FailureNotes   []string
	PullRequestURL string
}

// RunSummary is the top-level, multi-repo accumulator that callers pass
// into both IngestExecutor and ContributeExecutor. RunID identifies one invocation
// of the ingest/contribute command for correlation across log lines,
// mirroring the teacher's pervasive use of google/uuid for tracker/run
// identifiers.
type RunSummary struct {
	RunID string
	Repos []RepoSummary
}

// NewRunSummary returns a RunSummary stamped with a fresh run ID.
func NewRunSummary() *RunSummary {
	return &RunSummary{RunID: uuid.NewString()}
}

// repo returns the named repo's summary, creating it if this is the first
// outcome recorded for that repo.
func (s *RunSummary) repo(name string) *RepoSummary {
	for i := range s.Repos {
		if s.Repos[i].RepoFullName == name {
			return &s.Repos[i]
		}
	}
	s.Repos = append(s.Repos, RepoSummary{RepoFullName: name})
	return &s.Repos[len(s.Repos)-1]
}

// RecordDecision tallies one file-level decision outcome.
func (s *RunSummary) RecordDecision(repo string, d Decision) {
	r := s.repo(repo)
	switch d {
	case Copy:
		r.Copied++
	case Merge:
		r.Merged++
	case UpdateTracker:
		r.TrackerOnly++
	case None:
		r.Unchanged++
	}
}

// RecordFailure tallies a file- or repo-scoped failure with a short note.
func (s *RunSummary) RecordFailure(repo, note string) {
	r := s.repo(repo)
	r.Failed++
	r.FailureNotes = append(r.FailureNotes, note)
}

// RecordDeletion tallies a file removed by C7/C9.
func (s *RunSummary) RecordDeletion(repo string) {
	s.repo(repo).Deleted++
}

// RecordPullRequest stamps the PR URL opened or reused for repo.
func (s *RunSummary) RecordPullRequest(repo, url string) {
	s.repo(repo).PullRequestURL = url
}

// HasFailures reports whether any repo in the run recorded a failure.
func (s *RunSummary) HasFailures() bool {
	for _, r := range s.Repos {
		if r.Failed > 0 {
			return true
		}
	}
	return false
}

// Print renders the run summary as a table, matching the teacher's
// PrintSyncSummary convention (internal/git/sync/tracker.go).
func (s *RunSummary) Print(w io.Writer) {
	if s.RunID != "" {
		fmt.Fprintf(w, "run %s\n", s.RunID)
	}
	if len(s.Repos) == 0 {
		fmt.Fprintln(w, "No repositories processed")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Repo", "Copied", "Unchanged", "Merged", "Tracker-only", "Deleted", "Failed", "PR")

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, r := range s.Repos {
		failedCell := fmt.Sprintf("%d", r.Failed)
		if r.Failed > 0 {
			failedCell = red(failedCell)
		} else {
			failedCell = green(failedCell)
		}

		if err := table.Append(
			r.RepoFullName,
			fmt.Sprintf("%d", r.Copied),
			fmt.Sprintf("%d", r.Unchanged),
			fmt.Sprintf("%d", r.Merged),
			fmt.Sprintf("%d", r.TrackerOnly),
			fmt.Sprintf("%d", r.Deleted),
			failedCell,
			r.PullRequestURL,
		); err != nil {
			fmt.Fprintf(w, "warning: failed to add row for %s: %v\n", r.RepoFullName, err)
		}
	}

	_ = table.Render()

	for _, r := range s.Repos {
		for _, note := range r.FailureNotes {
			fmt.Fprintf(w, "  %s: %s\n", red(r.RepoFullName), note)
		}
	}
}
