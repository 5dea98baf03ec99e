// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

// Result is the tagged union of algorithm outputs. Exactly one of the
// pointer fields is non-nil, matching Algorithm. Consumers dispatch on
// the tag rather than type-switching.
type Result struct {
	Algorithm Algorithm      `json:"algorithm"`
	DP        *DPResult      `json:"dp,omitempty"`
	Epoch     *EpochResult   `json:"epoch,omitempty"`
	Overlap   *OverlapResult `json:"overlap,omitempty"`
	TAES      *TAESResult    `json:"taes,omitempty"`
	IRA       *IRAResult     `json:"ira,omitempty"`
}

// ResultMap indexes results by algorithm for multi-algorithm runs.
type ResultMap map[Algorithm]*Result

// -----------------------------------------------------------------------------
// Derived rate helpers
// -----------------------------------------------------------------------------

// Rates holds the derived detection rates computed from TP/FP/FN counts.
// Zero denominators yield zero rates throughout.
type Rates struct {
	Sensitivity float64 `json:"sensitivity"`
	Precision   float64 `json:"precision"`
	F1          float64 `json:"f1_score"`
}

// DeriveRates computes sensitivity, precision, and F1 from counts.
// Counts may be fractional (TAES) or integral promoted to float.
func DeriveRates(tp, fp, fn float64) Rates {
	var r Rates
	if tp+fn > 0 {
		r.Sensitivity = tp / (tp + fn)
	}
	if tp+fp > 0 {
		r.Precision = tp / (tp + fp)
	}
	if r.Sensitivity+r.Precision > 0 {
		r.F1 = 2 * r.Sensitivity * r.Precision / (r.Sensitivity + r.Precision)
	}
	return r
}

// sumExcludingRow sums confusion column col over all rows except skip.
func sumExcludingRow(confusion map[string]map[string]int, col, skip string) int {
	total := 0
	for row, cols := range confusion {
		if row == skip {
			continue
		}
		total += cols[col]
	}
	return total
}

// sumExcludingCol sums confusion row over all columns except skip.
func sumExcludingCol(row map[string]int, skip string) int {
	total := 0
	for col, n := range row {
		if col == skip {
			continue
		}
		total += n
	}
	return total
}
