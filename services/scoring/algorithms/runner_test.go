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

func TestRun_DispatchesEachAlgorithm(t *testing.T) {
	ref := track(10, ev(0, 5, "seiz"))
	hyp := track(10, ev(1, 6, "seiz"))

	for _, algo := range All() {
		t.Run(string(algo), func(t *testing.T) {
			res, err := Run(DefaultConfig(), algo, ref, hyp)
			if err != nil {
				t.Fatalf("Run(%s): %v", algo, err)
			}
			if res.Algorithm != algo {
				t.Errorf("Algorithm tag = %q, want %q", res.Algorithm, algo)
			}
			set := 0
			if res.DP != nil {
				set++
			}
			if res.Epoch != nil {
				set++
			}
			if res.Overlap != nil {
				set++
			}
			if res.TAES != nil {
				set++
			}
			if res.IRA != nil {
				set++
			}
			if set != 1 {
				t.Errorf("result union has %d payloads set, want exactly 1", set)
			}
		})
	}
}

func TestRun_UnknownAlgorithm(t *testing.T) {
	_, err := Run(DefaultConfig(), Algorithm("bogus"), track(1), track(1))
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("err = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestRun_DoesNotMutateInputs(t *testing.T) {
	ref := track(10, ev(2, 4, "seiz"))
	hyp := track(10, ev(3, 5, "seiz"))

	for _, algo := range All() {
		if _, err := Run(DefaultConfig(), algo, ref, hyp); err != nil {
			t.Fatalf("Run(%s): %v", algo, err)
		}
	}
	if len(ref.Events) != 1 || ref.Events[0].StartTime != 2 || ref.Events[0].Label != "seiz" {
		t.Errorf("reference mutated: %+v", ref.Events)
	}
	if len(hyp.Events) != 1 || hyp.Events[0].StartTime != 3 {
		t.Errorf("hypothesis mutated: %+v", hyp.Events)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, algo := range All() {
		got, err := ParseAlgorithm(string(algo))
		if err != nil || got != algo {
			t.Errorf("ParseAlgorithm(%q) = %v, %v", algo, got, err)
		}
	}
	if _, err := ParseAlgorithm("nope"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("err = %v, want ErrUnknownAlgorithm", err)
	}
}
