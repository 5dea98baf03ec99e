// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

import (
	"testing"
)

func TestAlign_IdenticalSequences(t *testing.T) {
	aligner := NewDPAligner(DefaultConfig())
	res := aligner.Align(
		[]string{"seiz", "bckg", "seiz"},
		[]string{"seiz", "bckg", "seiz"},
	)

	if res.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3", res.TotalHits)
	}
	if res.TotalInsertions != 0 || res.TotalDeletions != 0 || res.TotalSubstitutions != 0 {
		t.Errorf("ins/del/sub = %d/%d/%d, want 0/0/0",
			res.TotalInsertions, res.TotalDeletions, res.TotalSubstitutions)
	}
	if res.TruePositives != 2 {
		t.Errorf("TruePositives = %d, want 2", res.TruePositives)
	}
	if res.FalsePositives != 0 || res.FalseNegatives != 0 {
		t.Errorf("FP/FN = %d/%d, want 0/0", res.FalsePositives, res.FalseNegatives)
	}
	if res.AlignedRef[0] != NullClass || res.AlignedRef[len(res.AlignedRef)-1] != NullClass {
		t.Errorf("aligned ref not sentinel-padded: %v", res.AlignedRef)
	}
	if res.AlignedHyp[0] != NullClass || res.AlignedHyp[len(res.AlignedHyp)-1] != NullClass {
		t.Errorf("aligned hyp not sentinel-padded: %v", res.AlignedHyp)
	}
}

func TestAlign_DeletionOfPositiveClass(t *testing.T) {
	aligner := NewDPAligner(DefaultConfig())
	res := aligner.Align(
		[]string{"seiz", "seiz", "bckg"},
		[]string{"bckg", "seiz"},
	)

	if res.TotalDeletions < 1 {
		t.Errorf("TotalDeletions = %d, want >= 1", res.TotalDeletions)
	}
	if res.FalseNegatives < 1 {
		t.Errorf("FalseNegatives = %d, want >= 1", res.FalseNegatives)
	}
	if len(res.AlignedRef) != len(res.AlignedHyp) {
		t.Fatalf("aligned lengths differ: %d vs %d", len(res.AlignedRef), len(res.AlignedHyp))
	}
	// The alignment has to cover the dropped reference label with a
	// sentinel in the hypothesis stream.
	sawGap := false
	for i := range res.AlignedHyp {
		if res.AlignedHyp[i] == NullClass && res.AlignedRef[i] != NullClass {
			sawGap = true
		}
	}
	if !sawGap {
		t.Errorf("expected a NULL gap in the hypothesis stream: ref=%v hyp=%v",
			res.AlignedRef, res.AlignedHyp)
	}
}

func TestAlign_TieBreakOrder(t *testing.T) {
	// With ins=del=0.5 and sub=1.0, substituting a->b costs exactly the
	// same as deleting a and inserting b. The pinned branch order keeps
	// the substitution: insertion and deletion only replace it on a
	// strictly smaller cost.
	cfg := DefaultConfig()
	cfg.PenaltyIns = 0.5
	cfg.PenaltyDel = 0.5
	cfg.PenaltySub = 1.0

	res := NewDPAligner(cfg).Align([]string{"a"}, []string{"b"})

	if got := res.Substitutions["a"]["b"]; got != 1 {
		t.Errorf("Substitutions[a][b] = %d, want 1", got)
	}
	if res.TotalInsertions != 0 || res.TotalDeletions != 0 {
		t.Errorf("ins/del = %d/%d, want 0/0 (tie must resolve to substitution)",
			res.TotalInsertions, res.TotalDeletions)
	}
}

func TestAlign_EmptyReference(t *testing.T) {
	aligner := NewDPAligner(DefaultConfig())
	res := aligner.Align(nil, []string{"seiz", "seiz"})

	if res.TotalInsertions != 2 {
		t.Errorf("TotalInsertions = %d, want 2", res.TotalInsertions)
	}
	if res.TotalDeletions != 0 || res.TotalHits != 0 {
		t.Errorf("del/hits = %d/%d, want 0/0", res.TotalDeletions, res.TotalHits)
	}
	if res.FalsePositives != 2 {
		t.Errorf("FalsePositives = %d, want 2", res.FalsePositives)
	}
}

func TestAlign_EmptyBoth(t *testing.T) {
	res := NewDPAligner(DefaultConfig()).Align(nil, nil)
	if res.TotalHits != 0 || res.TotalInsertions != 0 || res.TotalDeletions != 0 {
		t.Errorf("expected all-zero counts, got hits=%d ins=%d del=%d",
			res.TotalHits, res.TotalInsertions, res.TotalDeletions)
	}
}

func TestAlign_SwapInvertsRoles(t *testing.T) {
	aligner := NewDPAligner(DefaultConfig())
	fwd := aligner.Align([]string{"seiz", "bckg"}, []string{"seiz"})
	rev := aligner.Align([]string{"seiz"}, []string{"seiz", "bckg"})

	if fwd.TotalDeletions != rev.TotalInsertions {
		t.Errorf("forward deletions %d != reverse insertions %d",
			fwd.TotalDeletions, rev.TotalInsertions)
	}
	if fwd.TotalInsertions != rev.TotalDeletions {
		t.Errorf("forward insertions %d != reverse deletions %d",
			fwd.TotalInsertions, rev.TotalDeletions)
	}
	if fwd.TotalHits != rev.TotalHits {
		t.Errorf("hits differ under swap: %d vs %d", fwd.TotalHits, rev.TotalHits)
	}
}

func TestDPResult_Sums(t *testing.T) {
	aligner := NewDPAligner(DefaultConfig())
	res := aligner.Align(
		[]string{"seiz", "bckg", "spsw"},
		[]string{"seiz", "spsw", "spsw"},
	)

	if res.SumTruePositives() != res.TotalHits {
		t.Errorf("SumTruePositives = %d, want %d", res.SumTruePositives(), res.TotalHits)
	}
	if res.SumFalsePositives() != res.TotalInsertions {
		t.Errorf("SumFalsePositives = %d, want %d", res.SumFalsePositives(), res.TotalInsertions)
	}
	want := res.TotalDeletions + res.TotalSubstitutions
	if res.SumFalseNegatives() != want {
		t.Errorf("SumFalseNegatives = %d, want %d", res.SumFalseNegatives(), want)
	}
}
