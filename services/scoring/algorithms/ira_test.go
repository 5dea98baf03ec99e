// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

import (
	"errors"
	"testing"
)

func TestIRA_CompleteDisagreement(t *testing.T) {
	scorer := NewIRAScorer(DefaultConfig())
	res, err := scorer.ScoreLabels(
		[]string{"seiz", "seiz", "seiz", "seiz"},
		[]string{"bckg", "bckg", "bckg", "bckg"},
	)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}

	if res.MultiKappa > 0 {
		t.Errorf("MultiKappa = %v, want <= 0 for complete disagreement", res.MultiKappa)
	}
	if got := res.Confusion["seiz"]["bckg"]; got != 4 {
		t.Errorf("Confusion[seiz][bckg] = %d, want 4", got)
	}
}

func TestIRA_PerfectAgreement(t *testing.T) {
	scorer := NewIRAScorer(DefaultConfig())
	res, err := scorer.ScoreLabels(
		[]string{"seiz", "bckg", "seiz"},
		[]string{"seiz", "bckg", "seiz"},
	)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}

	if !floatEq(res.MultiKappa, 1) {
		t.Errorf("MultiKappa = %v, want 1", res.MultiKappa)
	}
	if !floatEq(res.PerLabelKappa["seiz"], 1) {
		t.Errorf("PerLabelKappa[seiz] = %v, want 1", res.PerLabelKappa["seiz"])
	}
	if !floatEq(res.PerLabelKappa["bckg"], 1) {
		t.Errorf("PerLabelKappa[bckg] = %v, want 1", res.PerLabelKappa["bckg"])
	}
}

func TestIRA_ChanceLevelAgreement(t *testing.T) {
	// Balanced 2x2 contingency with po == pe: kappa must be exactly zero
	// both per label and multi-class.
	scorer := NewIRAScorer(DefaultConfig())
	res, err := scorer.ScoreLabels(
		[]string{"seiz", "seiz", "bckg", "bckg"},
		[]string{"seiz", "bckg", "seiz", "bckg"},
	)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}

	if !floatEq(res.MultiKappa, 0) {
		t.Errorf("MultiKappa = %v, want 0", res.MultiKappa)
	}
	if !floatEq(res.PerLabelKappa["seiz"], 0) {
		t.Errorf("PerLabelKappa[seiz] = %v, want 0", res.PerLabelKappa["seiz"])
	}
}

func TestIRA_SingleLabelIdentity(t *testing.T) {
	// Both raters emit only the background class. The chance term equals
	// N^2, so kappa falls through the degenerate-denominator rule and
	// reports full agreement.
	scorer := NewIRAScorer(DefaultConfig())
	res, err := scorer.ScoreLabels(
		[]string{"bckg", "bckg", "bckg"},
		[]string{"bckg", "bckg", "bckg"},
	)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}

	if !floatEq(res.MultiKappa, 1) {
		t.Errorf("MultiKappa = %v, want 1", res.MultiKappa)
	}
	if !floatEq(res.PerLabelKappa["bckg"], 1) {
		t.Errorf("PerLabelKappa[bckg] = %v, want 1", res.PerLabelKappa["bckg"])
	}
}

func TestIRA_LengthMismatch(t *testing.T) {
	scorer := NewIRAScorer(DefaultConfig())
	_, err := scorer.ScoreLabels([]string{"seiz"}, []string{"seiz", "bckg"})
	if !errors.Is(err, ErrSequenceLength) {
		t.Errorf("err = %v, want ErrSequenceLength", err)
	}
}

func TestIRA_EventPathMatchesLabelPath(t *testing.T) {
	// Scoring tracks through the epoch sampler must agree with scoring
	// the hand-sampled midpoint labels.
	cfg := DefaultConfig()
	scorer := NewIRAScorer(cfg)

	fromEvents := scorer.Score(
		track(4, ev(0, 2, "seiz")),
		track(4, ev(1, 3, "seiz")),
	)
	fromLabels, err := scorer.ScoreLabels(
		[]string{"seiz", "seiz", "bckg", "bckg"},
		[]string{"bckg", "seiz", "seiz", "bckg"},
	)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}

	if !floatEq(fromEvents.MultiKappa, fromLabels.MultiKappa) {
		t.Errorf("event path kappa %v != label path kappa %v",
			fromEvents.MultiKappa, fromLabels.MultiKappa)
	}
	for label, want := range fromLabels.PerLabelKappa {
		if got := fromEvents.PerLabelKappa[label]; !floatEq(got, want) {
			t.Errorf("PerLabelKappa[%s] = %v via events, %v via labels", label, got, want)
		}
	}
}

func TestIRA_EmptySequences(t *testing.T) {
	scorer := NewIRAScorer(DefaultConfig())
	res, err := scorer.ScoreLabels(nil, nil)
	if err != nil {
		t.Fatalf("ScoreLabels: %v", err)
	}
	if res.MultiKappa != 0 {
		t.Errorf("MultiKappa = %v, want 0 for empty input", res.MultiKappa)
	}
	if got := res.PerLabelKappa[DefaultConfig().NullClass]; got != 0 {
		t.Errorf("PerLabelKappa[null] = %v, want 0 for empty input", got)
	}
}
