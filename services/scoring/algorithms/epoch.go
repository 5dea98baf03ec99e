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

// EpochResult holds the output of the fixed-window epoch scorer.
//
// The confusion matrix and the per-label tallies are all integers.
// TP/FP/FN per label are precomputed from the confusion matrix at
// construction; they are not recomputed on access.
type EpochResult struct {
	// Confusion maps reference label -> hypothesis label -> count,
	// accumulated over all sampled midpoints.
	Confusion map[string]map[string]int `json:"confusion"`

	// Per-label tallies from the jointly compressed streams.
	Hits        map[string]int `json:"hits"`
	Misses      map[string]int `json:"misses"`
	FalseAlarms map[string]int `json:"false_alarms"`
	Insertions  map[string]int `json:"insertions"`
	Deletions   map[string]int `json:"deletions"`

	// Per-label TP/FP/FN derived from the confusion matrix:
	// TP(L)=C[L][L], FP(L)=sum over A!=L of C[A][L],
	// FN(L)=sum over B!=L of C[L][B].
	TruePositives  map[string]int `json:"true_positives"`
	FalsePositives map[string]int `json:"false_positives"`
	FalseNegatives map[string]int `json:"false_negatives"`

	// Rates per label derived from TP/FP/FN.
	PerLabelRates map[string]Rates `json:"per_label_rates"`

	// Raw sampled streams with leading/trailing sentinels (RefT, HypT)
	// and the jointly compressed streams (RefO, HypO). Debug output.
	RefT []string `json:"reft"`
	HypT []string `json:"hypt"`
	RefO []string `json:"refo"`
	HypO []string `json:"hypo"`
}

// EpochScorer samples both tracks at fixed-window midpoints and scores
// label agreement per epoch.
//
// Thread Safety: Stateless; safe for concurrent use.
type EpochScorer struct {
	cfg Config
}

// NewEpochScorer creates an EpochScorer with the given config.
func NewEpochScorer(cfg Config) *EpochScorer {
	return &EpochScorer{cfg: cfg}
}

// Score runs epoch scoring of hyp against ref.
//
// Description:
//
//	Both tracks are augmented with background events so they cover
//	[0, duration] continuously, then sampled at midpoints
//	t_k = (k + 0.5) * epoch_duration while t_k <= duration. The boundary
//	is inclusive with no epsilon; an exact multiple of the epoch duration
//	therefore admits the final midpoint only when it lands exactly on the
//	duration. Per-midpoint labels feed the confusion matrix and the raw
//	streams; the raw streams are then jointly compressed (a position
//	survives iff either stream changed) and tallied per label, skipping
//	the sentinel positions at both ends.
//
// Inputs:
//   - ref, hyp: The two tracks. The larger declared duration governs
//     sampling so both tracks answer every midpoint.
//
// Outputs:
//   - *EpochResult: Never nil.
func (s *EpochScorer) Score(ref, hyp *annotation.AnnotationFile) *EpochResult {
	duration := ref.Duration
	if hyp.Duration > duration {
		duration = hyp.Duration
	}
	null := s.cfg.NullClass

	refAug := annotation.Augment(ref.Events, duration, null)
	hypAug := annotation.Augment(hyp.Events, duration, null)

	res := &EpochResult{
		Confusion:   make(map[string]map[string]int),
		Hits:        make(map[string]int),
		Misses:      make(map[string]int),
		FalseAlarms: make(map[string]int),
		Insertions:  make(map[string]int),
		Deletions:   make(map[string]int),
	}

	// Midpoint sampling. The boundary comparison must stay `<= duration`
	// exactly; parity with the oracle breaks otherwise.
	reft := []string{null}
	hypt := []string{null}
	for k := 0; ; k++ {
		t := (float64(k) + 0.5) * s.cfg.EpochDuration
		if t > duration {
			break
		}
		rl := annotation.LabelAt(refAug, t, null)
		hl := annotation.LabelAt(hypAug, t, null)
		if res.Confusion[rl] == nil {
			res.Confusion[rl] = make(map[string]int)
		}
		res.Confusion[rl][hl]++
		reft = append(reft, rl)
		hypt = append(hypt, hl)
	}
	reft = append(reft, null)
	hypt = append(hypt, null)
	res.RefT, res.HypT = reft, hypt

	// Joint duplicate compression: keep position i iff either stream
	// differs from its predecessor. Position 0 always survives.
	refo := []string{reft[0]}
	hypo := []string{hypt[0]}
	for i := 1; i < len(reft); i++ {
		if reft[i] != reft[i-1] || hypt[i] != hypt[i-1] {
			refo = append(refo, reft[i])
			hypo = append(hypo, hypt[i])
		}
	}
	res.RefO, res.HypO = refo, hypo

	for i := 1; i < len(refo)-1; i++ {
		r, h := refo[i], hypo[i]
		switch {
		case r == null && h != null:
			res.FalseAlarms[h]++
			res.Insertions[h]++
		case r != null && h == null:
			res.Misses[r]++
			res.Deletions[r]++
		case r == h:
			res.Hits[r]++
		default:
			res.Misses[r]++
			res.FalseAlarms[h]++
		}
	}

	res.deriveFromConfusion()
	return res
}

// deriveFromConfusion fills the per-label TP/FP/FN maps and rates from
// the confusion matrix. Called once at construction.
func (r *EpochResult) deriveFromConfusion() {
	r.TruePositives = make(map[string]int)
	r.FalsePositives = make(map[string]int)
	r.FalseNegatives = make(map[string]int)
	r.PerLabelRates = make(map[string]Rates)

	labels := make(map[string]struct{})
	for row, cols := range r.Confusion {
		labels[row] = struct{}{}
		for col := range cols {
			labels[col] = struct{}{}
		}
	}
	for label := range labels {
		tp := r.Confusion[label][label]
		fp := sumExcludingRow(r.Confusion, label, label)
		fn := sumExcludingCol(r.Confusion[label], label)
		r.TruePositives[label] = tp
		r.FalsePositives[label] = fp
		r.FalseNegatives[label] = fn
		r.PerLabelRates[label] = DeriveRates(float64(tp), float64(fp), float64(fn))
	}
}
