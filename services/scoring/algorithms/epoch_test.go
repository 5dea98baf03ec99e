// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package algorithms

import (
	"testing"

	"github.com/seizeval/seizeval/services/scoring/annotation"
)

func track(duration float64, events ...annotation.Event) *annotation.AnnotationFile {
	return &annotation.AnnotationFile{
		Version:  annotation.VersionMagic,
		Duration: duration,
		Events:   events,
	}
}

func ev(start, stop float64, label string) annotation.Event {
	return annotation.Event{
		Channel:    "TERM",
		StartTime:  start,
		StopTime:   stop,
		Label:      label,
		Confidence: 1.0,
	}
}

func TestEpoch_HalfSecondBoundary(t *testing.T) {
	// duration = epoch_duration = 0.5: midpoint 0.25 is in, midpoint
	// 0.75 exceeds the inclusive boundary. Exactly one sample.
	cfg := DefaultConfig()
	cfg.EpochDuration = 0.5
	scorer := NewEpochScorer(cfg)

	res := scorer.Score(
		track(0.5, ev(0, 0.5, "seiz")),
		track(0.5, ev(0, 0.5, "seiz")),
	)

	samples := len(res.RefT) - 2 // strip sentinels
	if samples != 1 {
		t.Fatalf("sample count = %d, want 1", samples)
	}
	if got := res.Confusion["seiz"]["seiz"]; got != samples {
		t.Errorf("Confusion[seiz][seiz] = %d, want %d", got, samples)
	}
}

func TestEpoch_SampleCountBoundary(t *testing.T) {
	// The midpoint boundary is a strict `<= duration` with no epsilon.
	// Sample count is floor(duration/epoch)+1 iff the extra midpoint
	// lands exactly on or before the duration, else floor.
	tests := []struct {
		name     string
		duration float64
		epoch    float64
		want     int
	}{
		{"exact multiple", 2.0, 1.0, 2},
		{"half past", 2.5, 1.0, 3},
		{"just under midpoint", 2.4, 1.0, 2},
		{"unit file", 1.0, 1.0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EpochDuration = tt.epoch
			res := NewEpochScorer(cfg).Score(track(tt.duration), track(tt.duration))
			if got := len(res.RefT) - 2; got != tt.want {
				t.Errorf("sample count = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEpoch_JointCompressionAndTallies(t *testing.T) {
	// ref: seiz over [0,2], hyp: seiz over [1,3], duration 4, epoch 1.
	// Midpoints 0.5/1.5/2.5/3.5 sample to ref=[seiz,seiz,bckg,bckg] and
	// hyp=[bckg,seiz,seiz,bckg].
	scorer := NewEpochScorer(DefaultConfig())
	res := scorer.Score(
		track(4, ev(0, 2, "seiz")),
		track(4, ev(1, 3, "seiz")),
	)

	if got := res.Confusion["seiz"]["bckg"]; got != 1 {
		t.Errorf("Confusion[seiz][bckg] = %d, want 1", got)
	}
	if got := res.Confusion["seiz"]["seiz"]; got != 1 {
		t.Errorf("Confusion[seiz][seiz] = %d, want 1", got)
	}
	if got := res.Confusion["bckg"]["seiz"]; got != 1 {
		t.Errorf("Confusion[bckg][seiz] = %d, want 1", got)
	}
	if got := res.Confusion["bckg"]["bckg"]; got != 1 {
		t.Errorf("Confusion[bckg][bckg] = %d, want 1", got)
	}

	// Joint compression keeps a position when either stream changed from
	// its predecessor. Index 3 (ref seiz->bckg while hyp holds seiz) and
	// index 4 (hyp seiz->bckg) are both change points, so five positions
	// survive out of the six sentinel-padded samples.
	wantRefO := []string{"bckg", "seiz", "seiz", "bckg", "bckg"}
	wantHypO := []string{"bckg", "bckg", "seiz", "seiz", "bckg"}
	if len(res.RefO) != len(wantRefO) {
		t.Fatalf("RefO = %v, want %v", res.RefO, wantRefO)
	}
	for i := range wantRefO {
		if res.RefO[i] != wantRefO[i] || res.HypO[i] != wantHypO[i] {
			t.Fatalf("compressed streams = %v/%v, want %v/%v",
				res.RefO, res.HypO, wantRefO, wantHypO)
		}
	}

	if res.Hits["seiz"] != 1 {
		t.Errorf("Hits[seiz] = %d, want 1", res.Hits["seiz"])
	}
	if res.Misses["seiz"] != 1 || res.Deletions["seiz"] != 1 {
		t.Errorf("Misses/Deletions[seiz] = %d/%d, want 1/1",
			res.Misses["seiz"], res.Deletions["seiz"])
	}
	// The surviving (bckg,seiz) position is a hypothesis-only run.
	if res.FalseAlarms["seiz"] != 1 || res.Insertions["seiz"] != 1 {
		t.Errorf("FalseAlarms/Insertions[seiz] = %d/%d, want 1/1",
			res.FalseAlarms["seiz"], res.Insertions["seiz"])
	}

	// Confusion-derived counts.
	if res.TruePositives["seiz"] != 1 || res.FalsePositives["seiz"] != 1 || res.FalseNegatives["seiz"] != 1 {
		t.Errorf("TP/FP/FN[seiz] = %d/%d/%d, want 1/1/1",
			res.TruePositives["seiz"], res.FalsePositives["seiz"], res.FalseNegatives["seiz"])
	}
}

func TestEpoch_IdenticalTracks(t *testing.T) {
	scorer := NewEpochScorer(DefaultConfig())
	ref := track(10, ev(2, 4, "seiz"), ev(6, 8, "seiz"))
	hyp := track(10, ev(2, 4, "seiz"), ev(6, 8, "seiz"))
	res := scorer.Score(ref, hyp)

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
	if res.Hits["seiz"] != 2 {
		t.Errorf("Hits[seiz] = %d, want 2 (one per compressed run)", res.Hits["seiz"])
	}
}

func TestEpoch_EmptyTracks(t *testing.T) {
	scorer := NewEpochScorer(DefaultConfig())
	res := scorer.Score(track(10), track(10))

	if got := res.Confusion["bckg"]["bckg"]; got != 10 {
		t.Errorf("Confusion[bckg][bckg] = %d, want 10", got)
	}
	if len(res.Hits) != 0 || len(res.Misses) != 0 || len(res.FalseAlarms) != 0 {
		t.Errorf("expected empty tallies for all-background tracks: %v %v %v",
			res.Hits, res.Misses, res.FalseAlarms)
	}
}

func TestEpoch_CountsNonNegative(t *testing.T) {
	scorer := NewEpochScorer(DefaultConfig())
	res := scorer.Score(
		track(20, ev(1, 3, "seiz"), ev(5, 9, "spsw")),
		track(20, ev(2, 6, "seiz")),
	)
	for label, n := range res.TruePositives {
		if n < 0 {
			t.Errorf("TruePositives[%s] = %d, want >= 0", label, n)
		}
	}
	for label, n := range res.FalsePositives {
		if n < 0 {
			t.Errorf("FalsePositives[%s] = %d, want >= 0", label, n)
		}
	}
	for label, n := range res.FalseNegatives {
		if n < 0 {
			t.Errorf("FalseNegatives[%s] = %d, want >= 0", label, n)
		}
	}
}
