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

func TestOverlap_TangencyIsNotOverlap(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	res := scorer.Score(
		track(20, ev(0, 10, "seiz")),
		track(20, ev(10, 20, "seiz")),
	)

	if res.Hits["seiz"] != 0 {
		t.Errorf("Hits[seiz] = %d, want 0 (tangent events do not overlap)", res.Hits["seiz"])
	}
	if res.Misses["seiz"] != 1 {
		t.Errorf("Misses[seiz] = %d, want 1", res.Misses["seiz"])
	}
	if res.FalseAlarms["seiz"] != 1 {
		t.Errorf("FalseAlarms[seiz] = %d, want 1", res.FalseAlarms["seiz"])
	}
}

func TestOverlap_TinyOverlapCounts(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	res := scorer.Score(
		track(10, ev(1, 5, "seiz")),
		track(10, ev(4.5, 5.5, "seiz")),
	)

	if res.Hits["seiz"] != 1 || res.Misses["seiz"] != 0 || res.FalseAlarms["seiz"] != 0 {
		t.Errorf("hit/miss/fa = %d/%d/%d, want 1/0/0",
			res.Hits["seiz"], res.Misses["seiz"], res.FalseAlarms["seiz"])
	}
}

func TestOverlap_LabelMustMatch(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	res := scorer.Score(
		track(10, ev(1, 5, "seiz")),
		track(10, ev(2, 4, "spsw")),
	)

	if res.Misses["seiz"] != 1 {
		t.Errorf("Misses[seiz] = %d, want 1 (cross-label overlap is no hit)", res.Misses["seiz"])
	}
	if res.FalseAlarms["spsw"] != 1 {
		t.Errorf("FalseAlarms[spsw] = %d, want 1", res.FalseAlarms["spsw"])
	}
}

func TestOverlap_IdenticalTracks(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	ref := track(30, ev(1, 5, "seiz"), ev(10, 12, "seiz"), ev(20, 25, "spsw"))
	hyp := track(30, ev(1, 5, "seiz"), ev(10, 12, "seiz"), ev(20, 25, "spsw"))
	res := scorer.Score(ref, hyp)

	if res.Hits["seiz"] != 2 || res.Hits["spsw"] != 1 {
		t.Errorf("Hits = %v, want seiz:2 spsw:1", res.Hits)
	}
	for label, n := range res.Misses {
		if n != 0 {
			t.Errorf("Misses[%s] = %d, want 0", label, n)
		}
	}
	for label, n := range res.FalseAlarms {
		if n != 0 {
			t.Errorf("FalseAlarms[%s] = %d, want 0", label, n)
		}
	}
}

func TestOverlap_EmptyReference(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	res := scorer.Score(
		track(30),
		track(30, ev(1, 5, "seiz"), ev(10, 12, "seiz")),
	)

	if len(res.Misses) != 0 {
		t.Errorf("Misses = %v, want empty", res.Misses)
	}
	if res.FalseAlarms["seiz"] != 2 {
		t.Errorf("FalseAlarms[seiz] = %d, want 2", res.FalseAlarms["seiz"])
	}
}

func TestOverlap_SwapExchangesMissAndFalseAlarm(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	ref := track(30, ev(1, 5, "seiz"), ev(10, 12, "seiz"))
	hyp := track(30, ev(2, 4, "seiz"))

	fwd := scorer.Score(ref, hyp)
	rev := scorer.Score(hyp, ref)

	if fwd.Misses["seiz"] != rev.FalseAlarms["seiz"] {
		t.Errorf("forward misses %d != reverse false alarms %d",
			fwd.Misses["seiz"], rev.FalseAlarms["seiz"])
	}
	if fwd.FalseAlarms["seiz"] != rev.Misses["seiz"] {
		t.Errorf("forward false alarms %d != reverse misses %d",
			fwd.FalseAlarms["seiz"], rev.Misses["seiz"])
	}
}

func TestOverlap_AliasesMaterialised(t *testing.T) {
	scorer := NewOverlapScorer(DefaultConfig())
	res := scorer.Score(
		track(20, ev(0, 5, "seiz")),
		track(20, ev(10, 15, "seiz")),
	)

	if res.Deletions["seiz"] != res.Misses["seiz"] {
		t.Errorf("Deletions[seiz] = %d, want %d (alias of misses)",
			res.Deletions["seiz"], res.Misses["seiz"])
	}
	if res.Insertions["seiz"] != res.FalseAlarms["seiz"] {
		t.Errorf("Insertions[seiz] = %d, want %d (alias of false alarms)",
			res.Insertions["seiz"], res.FalseAlarms["seiz"])
	}
}
