// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

// DPResult holds the output of the DP sequence aligner.
//
// All counts are integers. AlignedRef and AlignedHyp include the
// NullClass sentinels at both ends and at insertion/deletion positions;
// they are for debugging and parity inspection only.
type DPResult struct {
	// Per-label counts.
	Insertions    map[string]int            `json:"insertions"`
	Deletions     map[string]int            `json:"deletions"`
	Substitutions map[string]map[string]int `json:"substitutions"`
	HitsPerLabel  map[string]int            `json:"hits_per_label"`

	// Totals summed across all labels.
	TotalInsertions    int `json:"total_insertions"`
	TotalDeletions     int `json:"total_deletions"`
	TotalSubstitutions int `json:"total_substitutions"`
	TotalHits          int `json:"total_hits"`

	// Positive-class counts (Config.PositiveLabel).
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`

	// Aligned sequences, chronological order, sentinel-padded.
	AlignedRef []string `json:"aligned_ref"`
	AlignedHyp []string `json:"aligned_hyp"`
}

// SumTruePositives returns hits summed across all labels. Validators use
// this (not the positive-class TruePositives) when the oracle reports
// only cross-label totals.
func (r *DPResult) SumTruePositives() int { return r.TotalHits }

// SumFalsePositives returns insertions summed across all labels.
func (r *DPResult) SumFalsePositives() int { return r.TotalInsertions }

// SumFalseNegatives returns deletions plus substitutions summed across
// all labels.
func (r *DPResult) SumFalseNegatives() int { return r.TotalDeletions + r.TotalSubstitutions }

// backPointer encodes the DP traceback move for one cell.
type backPointer uint8

const (
	moveSub backPointer = iota // diagonal: substitution or match
	moveIns                    // left: hypothesis has an extra label
	moveDel                    // up: reference label was dropped
)

// DPAligner aligns a reference label sequence against a hypothesis
// sequence with insertion, deletion, and substitution penalties.
//
// Thread Safety: Stateless; safe for concurrent use.
type DPAligner struct {
	cfg Config
}

// NewDPAligner creates a DPAligner with the given config.
func NewDPAligner(cfg Config) *DPAligner {
	return &DPAligner{cfg: cfg}
}

// Align scores hypothesis labels hyp against reference labels ref.
//
// Description:
//
//	Both sequences are padded with a single NullClass sentinel at the
//	start and end, then aligned with classical O(mn) dynamic programming.
//	Tie-breaking when costs are equal is pinned: substitution-or-match is
//	taken first, replaced by insertion only on strictly smaller cost, then
//	by deletion only on strictly smaller cost. The oracle encodes this
//	branch order; changing it changes counts on equal-cost alternatives.
//
//	Empty inputs are legal: alignment proceeds over the padding alone and
//	the counts reduce to pure insertions or deletions.
//
// Outputs:
//   - *DPResult: Counts, totals, positive-class TP/FP/FN, and the aligned
//     sentinel-padded sequences. Never nil.
func (a *DPAligner) Align(ref, hyp []string) *DPResult {
	refPad := padWithSentinels(ref)
	hypPad := padWithSentinels(hyp)
	m, n := len(refPad), len(hypPad)

	cost := make([][]float64, m)
	back := make([][]backPointer, m)
	for i := range cost {
		cost[i] = make([]float64, n)
		back[i] = make([]backPointer, n)
	}

	for j := 1; j < n; j++ {
		cost[0][j] = cost[0][j-1] + a.cfg.PenaltyIns
		back[0][j] = moveIns
	}
	for i := 1; i < m; i++ {
		cost[i][0] = cost[i-1][0] + a.cfg.PenaltyDel
		back[i][0] = moveDel
	}

	for i := 1; i < m; i++ {
		for j := 1; j < n; j++ {
			subCost := cost[i-1][j-1]
			if refPad[i] != hypPad[j] {
				subCost += a.cfg.PenaltySub
			}
			insCost := cost[i][j-1] + a.cfg.PenaltyIns
			delCost := cost[i-1][j] + a.cfg.PenaltyDel

			best, move := subCost, moveSub
			if insCost < best {
				best, move = insCost, moveIns
			}
			if delCost < best {
				best, move = delCost, moveDel
			}
			cost[i][j] = best
			back[i][j] = move
		}
	}

	// Backtrack from (m-1, n-1) to (0, 0), then reverse to chronological
	// order. Gap positions receive the sentinel in the opposite stream.
	var alignedRef, alignedHyp []string
	i, j := m-1, n-1
	for i > 0 || j > 0 {
		switch back[i][j] {
		case moveSub:
			alignedRef = append(alignedRef, refPad[i])
			alignedHyp = append(alignedHyp, hypPad[j])
			i--
			j--
		case moveIns:
			alignedRef = append(alignedRef, NullClass)
			alignedHyp = append(alignedHyp, hypPad[j])
			j--
		case moveDel:
			alignedRef = append(alignedRef, refPad[i])
			alignedHyp = append(alignedHyp, NullClass)
			i--
		}
	}
	alignedRef = append(alignedRef, refPad[0])
	alignedHyp = append(alignedHyp, hypPad[0])
	reverseStrings(alignedRef)
	reverseStrings(alignedHyp)

	return a.count(alignedRef, alignedHyp)
}

// count tallies the aligned streams, excluding the sentinel positions at
// index 0 and the last index.
func (a *DPAligner) count(alignedRef, alignedHyp []string) *DPResult {
	res := &DPResult{
		Insertions:    make(map[string]int),
		Deletions:     make(map[string]int),
		Substitutions: make(map[string]map[string]int),
		HitsPerLabel:  make(map[string]int),
		AlignedRef:    alignedRef,
		AlignedHyp:    alignedHyp,
	}

	for i := 1; i < len(alignedRef)-1; i++ {
		r, h := alignedRef[i], alignedHyp[i]
		switch {
		case r == NullClass && h != NullClass:
			res.Insertions[h]++
			res.TotalInsertions++
		case h == NullClass && r != NullClass:
			res.Deletions[r]++
			res.TotalDeletions++
		case r != h && r != NullClass && h != NullClass:
			if res.Substitutions[r] == nil {
				res.Substitutions[r] = make(map[string]int)
			}
			res.Substitutions[r][h]++
			res.TotalSubstitutions++
		case r == h && r != NullClass:
			res.HitsPerLabel[r]++
			res.TotalHits++
		}
	}

	pos := a.cfg.PositiveLabel
	if pos == "" {
		pos = DefaultPositiveLabel
	}
	res.TruePositives = res.HitsPerLabel[pos]
	res.FalsePositives = res.Insertions[pos]
	res.FalseNegatives = res.Deletions[pos] + sumExcludingCol(res.Substitutions[pos], "")
	return res
}

func padWithSentinels(labels []string) []string {
	out := make([]string, 0, len(labels)+2)
	out = append(out, NullClass)
	out = append(out, labels...)
	out = append(out, NullClass)
	return out
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
