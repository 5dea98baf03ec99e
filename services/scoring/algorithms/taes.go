// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

import (
	"github.com/seizeval/seizeval/services/scoring/annotation"
)

// TAESResult holds the fractional time-aligned event scoring output.
//
// TP, FP, and FN are non-negative floats. Specificity and accuracy are
// not defined by TAES and are reported as zero.
type TAESResult struct {
	TruePositives  float64 `json:"true_positives"`
	FalsePositives float64 `json:"false_positives"`
	FalseNegatives float64 `json:"false_negatives"`

	Sensitivity float64 `json:"sensitivity"`
	Precision   float64 `json:"precision"`
	F1          float64 `json:"f1_score"`
	Specificity float64 `json:"specificity"`
	Accuracy    float64 `json:"accuracy"`
}

// TAESScorer implements time-aligned event scoring for a single target
// label. Both tracks are filtered to the target label before scoring.
//
// Thread Safety: Stateless; safe for concurrent use.
type TAESScorer struct {
	cfg Config
}

// NewTAESScorer creates a TAESScorer with the given config.
func NewTAESScorer(cfg Config) *TAESScorer {
	return &TAESScorer{cfg: cfg}
}

// Score runs TAES scoring of hyp against ref for the configured positive
// label.
//
// Description:
//
//	Events are consumed pairwise in time order. When a hypothesis extends
//	to or past the end of the reference it overlaps (multi-ref branch),
//	the pair is scored fractionally and every later reference the same
//	hypothesis also covers is charged a whole miss: a detector that runs
//	one long detection across k seizures is credited once and penalised
//	k-1 times. When the reference extends past the hypothesis (multi-hyp
//	branch), later hypotheses overlapping the same reference add their
//	fractional hit (reducing the pending miss, floored at zero) and their
//	fractional false alarm. Leftover references count one whole miss
//	each; leftover hypotheses one whole false alarm each.
//
// Outputs:
//   - *TAESResult: Never nil. Empty tracks yield all-zero counts.
func (s *TAESScorer) Score(ref, hyp *annotation.AnnotationFile) *TAESResult {
	target := s.cfg.PositiveLabel
	if target == "" {
		target = DefaultPositiveLabel
	}
	refs := ref.FilterLabel(target)
	hyps := hyp.FilterLabel(target)

	refActive := make([]bool, len(refs))
	hypActive := make([]bool, len(hyps))
	for i := range refActive {
		refActive[i] = true
	}
	for j := range hypActive {
		hypActive[j] = true
	}

	var hit, miss, fa float64
	for i, r := range refs {
		if !refActive[i] {
			continue
		}
		for j, h := range hyps {
			if !hypActive[j] || !r.Overlaps(h) {
				continue
			}
			pairHit, pairFA := calcHF(r, h)
			hit += pairHit
			fa += pairFA
			miss += 1 - pairHit
			refActive[i] = false
			hypActive[j] = false

			if h.StopTime >= r.StopTime {
				// Multi-ref: this hypothesis spans past the reference.
				// Every later reference it also covers is a whole miss.
				for k := i + 1; k < len(refs); k++ {
					if refActive[k] && refs[k].Overlaps(h) {
						miss += 1
						refActive[k] = false
					}
				}
			} else {
				// Multi-hyp: the reference extends past this hypothesis.
				// Later overlapping hypotheses refine the pending miss.
				for l := j + 1; l < len(hyps); l++ {
					if hypActive[l] && r.Overlaps(hyps[l]) {
						ovlpHit, ovlpFA := calcHF(r, hyps[l])
						hit += ovlpHit
						miss -= ovlpHit
						if miss < 0 {
							miss = 0
						}
						fa += ovlpFA
						hypActive[l] = false
					}
				}
			}
			break
		}
	}

	for i := range refs {
		if refActive[i] {
			miss += 1
		}
	}
	for j := range hyps {
		if hypActive[j] {
			fa += 1
		}
	}

	res := &TAESResult{
		TruePositives:  hit,
		FalsePositives: fa,
		FalseNegatives: miss,
	}
	rates := DeriveRates(hit, fa, miss)
	res.Sensitivity = rates.Sensitivity
	res.Precision = rates.Precision
	res.F1 = rates.F1
	return res
}

// calcHF computes the fractional (hit, falseAlarm) contribution of one
// hypothesis event h against one reference event r, normalised by the
// reference duration.
func calcHF(r, h annotation.Event) (hitFrac, faFrac float64) {
	d := r.StopTime - r.StartTime
	if d <= 0 {
		return 0, 0
	}
	switch {
	case h.StartTime <= r.StartTime && h.StopTime <= r.StopTime:
		// Pre-prediction: hypothesis starts early, ends inside.
		hitFrac = (h.StopTime - r.StartTime) / d
		faFrac = min(1, (r.StartTime-h.StartTime)/d)
	case h.StartTime >= r.StartTime && h.StopTime >= r.StopTime:
		// Post-prediction: hypothesis starts inside, runs long.
		hitFrac = (r.StopTime - h.StartTime) / d
		faFrac = min(1, (h.StopTime-r.StopTime)/d)
	case h.StartTime < r.StartTime && h.StopTime > r.StopTime:
		// Over-prediction: hypothesis strictly contains the reference.
		hitFrac = 1
		faFrac = min(1, ((h.StopTime-r.StopTime)+(r.StartTime-h.StartTime))/d)
	default:
		// Under-prediction: hypothesis strictly inside the reference.
		hitFrac = (h.StopTime - h.StartTime) / d
		faFrac = 0
	}
	return hitFrac, faFrac
}
