// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package parity compares scoring results from the legacy reference
// implementation against the native scorers, metric by metric, within a
// configurable absolute tolerance.
//
// The reference implementation is an opaque oracle that reports a flat
// metric map. The validator flattens the typed native result into the
// same key space and diffs the intersection; a metric only one side
// reports is not comparable and is ignored.
package parity

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

// DefaultTolerance is the absolute tolerance applied when none is
// configured. Matches the legacy validation harness.
const DefaultTolerance = 1e-10

// Discrepancy records one metric that differs beyond tolerance.
type Discrepancy struct {
	// Metric is the flattened metric key (e.g. "hits.seiz").
	Metric string `json:"metric"`

	// Reference is the oracle's value.
	Reference float64 `json:"reference"`

	// New is the native implementation's value.
	New float64 `json:"new"`

	// AbsDiff is |Reference - New|.
	AbsDiff float64 `json:"abs_diff"`

	// RelDiff is AbsDiff over max(|Reference|, |New|). Informational
	// only; the pass/fail decision uses AbsDiff.
	RelDiff float64 `json:"rel_diff"`
}

// Report is the outcome of one parity check.
type Report struct {
	// Algorithm tags which scorer the report covers.
	Algorithm algorithms.Algorithm `json:"algorithm"`

	// Passed is true when no compared metric exceeded tolerance.
	Passed bool `json:"passed"`

	// Compared is the number of metrics present on both sides.
	Compared int `json:"compared"`

	// Discrepancies lists the offending metrics, sorted by key.
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// Validator performs tolerance-based comparison of result metrics.
//
// Thread Safety: Validator is immutable after construction; safe for
// concurrent use.
type Validator struct {
	tolerance float64
	logger    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithTolerance overrides the absolute comparison tolerance.
func WithTolerance(tol float64) Option {
	return func(v *Validator) {
		if tol > 0 {
			v.tolerance = tol
		}
	}
}

// WithLogger sets the validator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a Validator with DefaultTolerance unless
// overridden.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		tolerance: DefaultTolerance,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate compares the oracle metric map against the native result.
//
// Description:
//
//	The native result is flattened into the oracle's flat key space and
//	the intersection of keys is diffed. TAES gets special handling: both
//	sides' counts are rounded to two decimals first (the legacy
//	aggregation precision) and the detection rates are recomputed from
//	the rounded counts on both sides before comparison.
//
// Outputs:
//   - *Report: Never nil. Passed is true for an empty intersection.
//   - error: Non-nil when res carries no payload for its algorithm tag.
func (v *Validator) Validate(reference map[string]float64, res *algorithms.Result) (*Report, error) {
	newMetrics, err := Flatten(res)
	if err != nil {
		return nil, err
	}
	refMetrics := reference

	if res.Algorithm == algorithms.AlgorithmTAES {
		refMetrics = taesComparable(reference)
		newMetrics = taesComparable(newMetrics)
	}

	report := &Report{Algorithm: res.Algorithm, Passed: true}
	for key, refVal := range refMetrics {
		newVal, ok := newMetrics[key]
		if !ok {
			continue
		}
		report.Compared++
		absDiff := math.Abs(refVal - newVal)
		if absDiff <= v.tolerance {
			continue
		}
		report.Passed = false
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Metric:    key,
			Reference: refVal,
			New:       newVal,
			AbsDiff:   absDiff,
			RelDiff:   relDiff(refVal, newVal, absDiff),
		})
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].Metric < report.Discrepancies[j].Metric
	})

	if !report.Passed {
		v.logger.Warn("parity check failed",
			"algorithm", res.Algorithm,
			"discrepancies", len(report.Discrepancies),
			"compared", report.Compared)
	}
	return report, nil
}

// Flatten projects a typed result into the oracle's flat metric space.
//
// Key conventions: totals use snake_case names; per-label metrics append
// ".<label>"; DP substitutions use "substitutions.<ref>.<hyp>".
func Flatten(res *algorithms.Result) (map[string]float64, error) {
	out := make(map[string]float64, 32)
	switch res.Algorithm {
	case algorithms.AlgorithmDP:
		if res.DP == nil {
			return nil, fmt.Errorf("%w: dp payload missing", algorithms.ErrUnknownAlgorithm)
		}
		flattenDP(res.DP, out)
	case algorithms.AlgorithmEpoch:
		if res.Epoch == nil {
			return nil, fmt.Errorf("%w: epoch payload missing", algorithms.ErrUnknownAlgorithm)
		}
		flattenEpoch(res.Epoch, out)
	case algorithms.AlgorithmOverlap:
		if res.Overlap == nil {
			return nil, fmt.Errorf("%w: overlap payload missing", algorithms.ErrUnknownAlgorithm)
		}
		flattenOverlap(res.Overlap, out)
	case algorithms.AlgorithmTAES:
		if res.TAES == nil {
			return nil, fmt.Errorf("%w: taes payload missing", algorithms.ErrUnknownAlgorithm)
		}
		flattenTAES(res.TAES, out)
	case algorithms.AlgorithmIRA:
		if res.IRA == nil {
			return nil, fmt.Errorf("%w: ira payload missing", algorithms.ErrUnknownAlgorithm)
		}
		flattenIRA(res.IRA, out)
	default:
		return nil, fmt.Errorf("%w: %q", algorithms.ErrUnknownAlgorithm, res.Algorithm)
	}
	return out, nil
}

// flattenDP exposes totals only. The oracle reports cross-label sums, so
// TP/FP/FN come from the summed forms rather than the positive-class
// fields.
func flattenDP(dp *algorithms.DPResult, out map[string]float64) {
	out["total_hits"] = float64(dp.TotalHits)
	out["total_insertions"] = float64(dp.TotalInsertions)
	out["total_deletions"] = float64(dp.TotalDeletions)
	out["total_substitutions"] = float64(dp.TotalSubstitutions)
	out["true_positives"] = float64(dp.SumTruePositives())
	out["false_positives"] = float64(dp.SumFalsePositives())
	out["false_negatives"] = float64(dp.SumFalseNegatives())
	for label, n := range dp.Insertions {
		out["insertions."+label] = float64(n)
	}
	for label, n := range dp.Deletions {
		out["deletions."+label] = float64(n)
	}
	for label, n := range dp.HitsPerLabel {
		out["hits."+label] = float64(n)
	}
	for ref, cols := range dp.Substitutions {
		for hyp, n := range cols {
			out["substitutions."+ref+"."+hyp] = float64(n)
		}
	}
}

func flattenEpoch(ep *algorithms.EpochResult, out map[string]float64) {
	for label, n := range ep.Hits {
		out["hits."+label] = float64(n)
	}
	for label, n := range ep.Misses {
		out["misses."+label] = float64(n)
	}
	for label, n := range ep.FalseAlarms {
		out["false_alarms."+label] = float64(n)
	}
	for label, n := range ep.Insertions {
		out["insertions."+label] = float64(n)
	}
	for label, n := range ep.Deletions {
		out["deletions."+label] = float64(n)
	}
	for label, n := range ep.TruePositives {
		out["true_positives."+label] = float64(n)
	}
	for label, n := range ep.FalsePositives {
		out["false_positives."+label] = float64(n)
	}
	for label, n := range ep.FalseNegatives {
		out["false_negatives."+label] = float64(n)
	}
	for label, r := range ep.PerLabelRates {
		out["sensitivity."+label] = r.Sensitivity
		out["precision."+label] = r.Precision
		out["f1_score."+label] = r.F1
	}
}

func flattenOverlap(ov *algorithms.OverlapResult, out map[string]float64) {
	for label, n := range ov.Hits {
		out["hits."+label] = float64(n)
	}
	for label, n := range ov.Misses {
		out["misses."+label] = float64(n)
	}
	for label, n := range ov.FalseAlarms {
		out["false_alarms."+label] = float64(n)
	}
	for label, r := range ov.PerLabelRates {
		out["sensitivity."+label] = r.Sensitivity
		out["precision."+label] = r.Precision
		out["f1_score."+label] = r.F1
	}
}

func flattenTAES(ta *algorithms.TAESResult, out map[string]float64) {
	out["true_positives"] = ta.TruePositives
	out["false_positives"] = ta.FalsePositives
	out["false_negatives"] = ta.FalseNegatives
	out["sensitivity"] = ta.Sensitivity
	out["precision"] = ta.Precision
	out["f1_score"] = ta.F1
}

func flattenIRA(ira *algorithms.IRAResult, out map[string]float64) {
	out["multi_class_kappa"] = ira.MultiKappa
	for label, k := range ira.PerLabelKappa {
		out["kappa."+label] = k
	}
	for ref, cols := range ira.Confusion {
		for hyp, n := range cols {
			out["confusion."+ref+"."+hyp] = float64(n)
		}
	}
}

// taesComparable rounds the TAES counts to two decimals and recomputes
// the rates from the rounded counts. Applied to both sides so that
// legacy aggregation precision cannot manufacture discrepancies.
func taesComparable(metrics map[string]float64) map[string]float64 {
	tp := round2(metrics["true_positives"])
	fp := round2(metrics["false_positives"])
	fn := round2(metrics["false_negatives"])
	rates := algorithms.DeriveRates(tp, fp, fn)
	return map[string]float64{
		"true_positives":  tp,
		"false_positives": fp,
		"false_negatives": fn,
		"sensitivity":     rates.Sensitivity,
		"precision":       rates.Precision,
		"f1_score":        rates.F1,
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func relDiff(a, b, absDiff float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return absDiff / scale
}
