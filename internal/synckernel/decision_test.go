// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func actionp(a TrackerAction) *TrackerAction { return &a }

func TestDecide_Scenarios(t *testing.T) {
	v1 := HashBytes([]byte("v1"))
	v2 := HashBytes([]byte("v2"))
	v1Local := HashBytes([]byte("v1-local"))

	tests := []struct {
		name string
		in   DecisionInput
		want Decision
	}{
		{
			name: "scenario 1: first-time ingest, local absent",
			in: DecisionInput{
				SourceHash: v1,
				LocalHash:  "",
			},
			want: Copy,
		},
		{
			name: "scenario 2: no-op second run, all hashes equal",
			in: DecisionInput{
				SourceHash:    v1,
				LocalHash:     v1,
				TrackerHash:   strp(v1),
				LastCommit:    "abc123",
				CurrentCommit: "abc123",
			},
			want: None,
		},
		{
			name: "scenario 3: upstream-only change",
			in: DecisionInput{
				SourceHash:  v2,
				LocalHash:   v1,
				TrackerHash: strp(v1),
			},
			want: Copy,
		},
		{
			name: "scenario 4: local-only change",
			in: DecisionInput{
				SourceHash:  v1,
				LocalHash:   v1Local,
				TrackerHash: strp(v1),
			},
			want: None,
		},
		{
			name: "scenario 5: divergent change, merge",
			in: DecisionInput{
				SourceHash:  v2,
				LocalHash:   v1Local,
				TrackerHash: strp(v1),
			},
			want: Merge,
		},
		{
			name: "scenario 6: merged file, commit unchanged stays none",
			in: DecisionInput{
				SourceHash:    v2,
				LocalHash:     v1Local,
				TrackerHash:   strp(HashBytes([]byte("M"))),
				TrackerAction: actionp(ActionMerge),
				LastCommit:    "def456",
				CurrentCommit: "def456",
			},
			want: None,
		},
		{
			name: "scenario 7: merged file, upstream advances, merges again",
			in: DecisionInput{
				SourceHash:    HashBytes([]byte("v2-upstream")),
				LocalHash:     HashBytes([]byte("M")),
				TrackerHash:   strp(HashBytes([]byte("M"))),
				TrackerAction: actionp(ActionMerge),
				LastCommit:    "def456",
				CurrentCommit: "ghi789",
			},
			want: Merge,
		},
		{
			name: "scenario 8: local matches upstream, tracker stale",
			in: DecisionInput{
				SourceHash:  v2,
				LocalHash:   v2,
				TrackerHash: strp(v1),
			},
			want: UpdateTracker,
		},
		{
			name: "first sync of an already-present local file",
			in: DecisionInput{
				SourceHash: v1,
				LocalHash:  v1Local,
			},
			want: Copy,
		},
		{
			name: "force override always copies",
			in: DecisionInput{
				SourceHash:  v1,
				LocalHash:   v1Local,
				TrackerHash: strp(v1),
				Force:       true,
			},
			want: Copy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.in))
		})
	}
}

// TestDecide_Purity covers P2: identical inputs must yield identical
// outputs across repeated calls, with no hidden state.
func TestDecide_Purity(t *testing.T) {
	in := DecisionInput{
		SourceHash:    "a",
		LocalHash:     "b",
		TrackerHash:   strp("c"),
		LastCommit:    "abc",
		CurrentCommit: "def",
	}

	first := Decide(in)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Decide(in))
	}
}

// TestDecide_CommitGatedMerge covers P4: once a file's last action was
// MERGE, its decision stays NONE until the source commit advances, no
// matter how the hashes drift in the meantime.
func TestDecide_CommitGatedMerge(t *testing.T) {
	base := DecisionInput{
		TrackerAction: actionp(ActionMerge),
		TrackerHash:   strp(HashBytes([]byte("merged"))),
		LastCommit:    "c1",
		CurrentCommit: "c1",
	}

	// Hash drift on both sides must not matter while the commit is
	// unchanged.
	driftedA := base
	driftedA.SourceHash = HashBytes([]byte("upstream-moved-on"))
	driftedA.LocalHash = HashBytes([]byte("local-moved-on"))
	assert.Equal(t, None, Decide(driftedA))

	driftedB := driftedA
	driftedB.CurrentCommit = "c2"
	assert.Equal(t, Merge, Decide(driftedB))
}
