// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

import (
	"fmt"

	"github.com/seizeval/seizeval/services/scoring/annotation"
)

// Run dispatches one algorithm over a reference/hypothesis track pair
// and wraps its output in the tagged Result union.
//
// Description:
//
//	The DP aligner consumes the ordered event label sequences; the
//	timeline scorers consume the tracks directly. Inputs are never
//	mutated; label mapping is the caller's concern and happens at parse
//	time.
//
// Outputs:
//   - *Result: Tagged union with exactly one payload set. Nil on error.
//   - error: ErrUnknownAlgorithm for an unrecognised tag.
func Run(cfg Config, algo Algorithm, ref, hyp *annotation.AnnotationFile) (*Result, error) {
	res := &Result{Algorithm: algo}
	switch algo {
	case AlgorithmDP:
		res.DP = NewDPAligner(cfg).Align(eventLabels(ref), eventLabels(hyp))
	case AlgorithmEpoch:
		res.Epoch = NewEpochScorer(cfg).Score(ref, hyp)
	case AlgorithmOverlap:
		res.Overlap = NewOverlapScorer(cfg).Score(ref, hyp)
	case AlgorithmTAES:
		res.TAES = NewTAESScorer(cfg).Score(ref, hyp)
	case AlgorithmIRA:
		res.IRA = NewIRAScorer(cfg).Score(ref, hyp)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	return res, nil
}

func eventLabels(f *annotation.AnnotationFile) []string {
	labels := make([]string, len(f.Events))
	for i, ev := range f.Events {
		labels[i] = ev.Label
	}
	return labels
}
