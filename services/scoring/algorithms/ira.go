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

// IRAResult holds the inter-rater agreement output: an integer confusion
// matrix at sample resolution, per-label Cohen's kappa, and the
// multi-class kappa. Kappas lie in [-1, 1].
type IRAResult struct {
	Confusion     map[string]map[string]int `json:"confusion"`
	PerLabelKappa map[string]float64        `json:"per_label_kappa"`
	MultiKappa    float64                   `json:"multi_class_kappa"`
}

// IRAScorer computes Cohen's kappa agreement between two tracks at epoch
// sample resolution, or directly from two equal-length label sequences.
//
// Event inputs are augmented identically to the epoch scorer so the
// event path and the label-sequence path agree on the same timeline.
//
// Thread Safety: Stateless; safe for concurrent use.
type IRAScorer struct {
	cfg Config
}

// NewIRAScorer creates an IRAScorer with the given config.
func NewIRAScorer(cfg Config) *IRAScorer {
	return &IRAScorer{cfg: cfg}
}

// Score samples both tracks at epoch midpoints and computes kappa.
//
// Outputs:
//   - *IRAResult: Never nil.
func (s *IRAScorer) Score(ref, hyp *annotation.AnnotationFile) *IRAResult {
	duration := ref.Duration
	if hyp.Duration > duration {
		duration = hyp.Duration
	}
	null := s.cfg.NullClass
	refAug := annotation.Augment(ref.Events, duration, null)
	hypAug := annotation.Augment(hyp.Events, duration, null)

	var refLabels, hypLabels []string
	for k := 0; ; k++ {
		t := (float64(k) + 0.5) * s.cfg.EpochDuration
		if t > duration {
			break
		}
		refLabels = append(refLabels, annotation.LabelAt(refAug, t, null))
		hypLabels = append(hypLabels, annotation.LabelAt(hypAug, t, null))
	}
	res, _ := s.ScoreLabels(refLabels, hypLabels)
	return res
}

// ScoreLabels computes kappa directly from two label sequences.
//
// Inputs:
//   - refLabels, hypLabels: Sample-resolution label streams. Must have
//     equal length.
//
// Outputs:
//   - *IRAResult: Nil only on length mismatch.
//   - error: ErrSequenceLength when lengths differ.
func (s *IRAScorer) ScoreLabels(refLabels, hypLabels []string) (*IRAResult, error) {
	if len(refLabels) != len(hypLabels) {
		return nil, ErrSequenceLength
	}

	confusion := make(map[string]map[string]int)
	labels := map[string]struct{}{s.cfg.NullClass: {}}
	for i := range refLabels {
		r, h := refLabels[i], hypLabels[i]
		labels[r] = struct{}{}
		labels[h] = struct{}{}
		if confusion[r] == nil {
			confusion[r] = make(map[string]int)
		}
		confusion[r][h]++
	}

	res := &IRAResult{
		Confusion:     confusion,
		PerLabelKappa: make(map[string]float64, len(labels)),
	}
	for label := range labels {
		res.PerLabelKappa[label] = perLabelKappa(confusion, label)
	}
	res.MultiKappa = multiClassKappa(confusion, labels)
	return res, nil
}

// perLabelKappa flattens the confusion matrix into a 2x2 contingency
// for one label and computes Cohen's kappa on it.
func perLabelKappa(confusion map[string]map[string]int, label string) float64 {
	a := confusion[label][label]
	b := sumExcludingCol(confusion[label], label)
	c := sumExcludingRow(confusion, label, label)
	d := 0
	for row, cols := range confusion {
		if row == label {
			continue
		}
		for col, n := range cols {
			if col == label {
				continue
			}
			d += n
		}
	}

	n := a + b + c + d
	if n == 0 {
		return 0
	}
	fn := float64(n)
	po := float64(a+d) / fn
	pe := (float64(a+b)/fn)*(float64(a+c)/fn) + (float64(c+d)/fn)*(float64(b+d)/fn)
	if 1-pe == 0 {
		if po == pe {
			return 1
		}
		return 0
	}
	return (po - pe) / (1 - pe)
}

// multiClassKappa computes the multi-class Cohen's kappa
// (N*diag - chance) / (N^2 - chance) over the full matrix.
func multiClassKappa(confusion map[string]map[string]int, labels map[string]struct{}) float64 {
	var n, diag, chance float64
	for label := range labels {
		var row, col float64
		for other := range labels {
			row += float64(confusion[label][other])
			col += float64(confusion[other][label])
		}
		n += row
		diag += float64(confusion[label][label])
		chance += row * col
	}
	if n == 0 {
		return 0
	}
	denom := n*n - chance
	if denom == 0 {
		if n*diag == chance {
			return 1
		}
		return 0
	}
	return (n*diag - chance) / denom
}
