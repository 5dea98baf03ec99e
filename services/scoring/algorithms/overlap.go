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

// OverlapResult holds the output of the any-overlap scorer.
//
// Insertions alias false alarms and deletions alias misses; the aliases
// are materialised so serialised results carry both names the way the
// legacy summaries do. No confusion matrix exists for this method:
// cross-label confusion is not part of any-overlap scoring.
type OverlapResult struct {
	Hits        map[string]int `json:"hits"`
	Misses      map[string]int `json:"misses"`
	FalseAlarms map[string]int `json:"false_alarms"`
	Insertions  map[string]int `json:"insertions"`
	Deletions   map[string]int `json:"deletions"`

	// PerLabelRates derives sensitivity/precision/F1 per label from
	// hits/misses/false alarms.
	PerLabelRates map[string]Rates `json:"per_label_rates"`
}

// OverlapScorer marks each reference event hit or missed by any
// same-label strictly overlapping hypothesis event, and symmetrically
// marks unmatched hypothesis events as false alarms.
//
// Thread Safety: Stateless; safe for concurrent use.
type OverlapScorer struct {
	cfg Config
}

// NewOverlapScorer creates an OverlapScorer with the given config.
func NewOverlapScorer(cfg Config) *OverlapScorer {
	return &OverlapScorer{cfg: cfg}
}

// Score runs any-overlap scoring of hyp against ref.
//
// Description:
//
//	Each reference event with label L contributes exactly one hit (some
//	hypothesis event with label L strictly overlaps it) or one miss.
//	Strict overlap requires h.stop > r.start AND h.start < r.stop;
//	tangency at an endpoint does not count. Each hypothesis event with
//	label L contributes one false alarm iff no reference event of label L
//	strictly overlaps it.
//
// Outputs:
//   - *OverlapResult: Never nil.
func (s *OverlapScorer) Score(ref, hyp *annotation.AnnotationFile) *OverlapResult {
	res := &OverlapResult{
		Hits:        make(map[string]int),
		Misses:      make(map[string]int),
		FalseAlarms: make(map[string]int),
		Insertions:  make(map[string]int),
		Deletions:   make(map[string]int),
	}

	for _, re := range ref.Events {
		hit := false
		for _, he := range hyp.Events {
			if he.Label == re.Label && re.Overlaps(he) {
				hit = true
				break
			}
		}
		if hit {
			res.Hits[re.Label]++
		} else {
			res.Misses[re.Label]++
			res.Deletions[re.Label]++
		}
	}

	for _, he := range hyp.Events {
		matched := false
		for _, re := range ref.Events {
			if re.Label == he.Label && he.Overlaps(re) {
				matched = true
				break
			}
		}
		if !matched {
			res.FalseAlarms[he.Label]++
			res.Insertions[he.Label]++
		}
	}

	res.PerLabelRates = make(map[string]Rates)
	labels := make(map[string]struct{})
	for l := range res.Hits {
		labels[l] = struct{}{}
	}
	for l := range res.Misses {
		labels[l] = struct{}{}
	}
	for l := range res.FalseAlarms {
		labels[l] = struct{}{}
	}
	for l := range labels {
		res.PerLabelRates[l] = DeriveRates(
			float64(res.Hits[l]), float64(res.FalseAlarms[l]), float64(res.Misses[l]))
	}
	return res
}
