// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

const testAnnotation = `# version = csv_v1.0.0
# duration = 30.0000 secs
channel,start_time,stop_time,label,confidence
TERM,0.0000,10.0000,seiz,1.0000
TERM,10.0000,30.0000,bckg,1.0000
`

const testHypothesis = `# version = csv_v1.0.0
# duration = 30.0000 secs
channel,start_time,stop_time,label,confidence
TERM,1.0000,9.0000,seiz,1.0000
TERM,9.0000,30.0000,bckg,1.0000
`

// writePair drops a reference and hypothesis file into a temp dir.
func writePair(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.csv_bi")
	hyp := filepath.Join(dir, "hyp.csv_bi")
	if err := os.WriteFile(ref, []byte(testAnnotation), 0o600); err != nil {
		t.Fatalf("write reference: %v", err)
	}
	if err := os.WriteFile(hyp, []byte(testHypothesis), 0o600); err != nil {
		t.Fatalf("write hypothesis: %v", err)
	}
	return ref, hyp
}

// resetFlags restores the flag variables modified by a test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagRef, flagHyp = "", ""
		flagRefList, flagHypList = "", ""
		flagAlgorithms = []string{"all"}
		flagParams = ""
		flagJSON = false
		flagOracleURL = ""
		flagPipeline = "dual"
	})
}

func TestExpandAlgorithmFlags(t *testing.T) {
	cases := []struct {
		name    string
		in      []string
		want    []algorithms.Algorithm
		wantErr bool
	}{
		{
			name: "all expands in canonical order",
			in:   []string{"all"},
			want: algorithms.All(),
		},
		{
			name: "explicit selection preserves order",
			in:   []string{"taes", "dp"},
			want: []algorithms.Algorithm{algorithms.AlgorithmTAES, algorithms.AlgorithmDP},
		},
		{
			name: "duplicates collapse",
			in:   []string{"dp", "dp", "all"},
			want: algorithms.All(),
		},
		{
			name:    "unknown algorithm rejected",
			in:      []string{"fft"},
			wantErr: true,
		},
		{
			name:    "empty selection rejected",
			in:      nil,
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := expandAlgorithmFlags(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandAlgorithmFlags: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestScoreCommand_Tables(t *testing.T) {
	resetFlags(t)
	flagRef, flagHyp = writePair(t)
	flagAlgorithms = []string{"taes"}

	var out bytes.Buffer
	scoreCmd.SetOut(&out)
	defer scoreCmd.SetOut(nil)

	if err := runScore(scoreCmd, nil); err != nil {
		t.Fatalf("runScore: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "## taes") {
		t.Errorf("missing algorithm heading: %q", text)
	}
	if !strings.Contains(text, "sensitivity") {
		t.Errorf("missing metric rows: %q", text)
	}
}

func TestScoreCommand_JSON(t *testing.T) {
	resetFlags(t)
	flagRef, flagHyp = writePair(t)
	flagAlgorithms = []string{"dp", "taes"}
	flagJSON = true

	var out bytes.Buffer
	scoreCmd.SetOut(&out)
	defer scoreCmd.SetOut(nil)

	if err := runScore(scoreCmd, nil); err != nil {
		t.Fatalf("runScore: %v", err)
	}

	var results []*algorithms.Result
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Algorithm != algorithms.AlgorithmDP || results[0].DP == nil {
		t.Errorf("first result = %+v, want a dp result", results[0])
	}
	if results[1].Algorithm != algorithms.AlgorithmTAES || results[1].TAES == nil {
		t.Errorf("second result = %+v, want a taes result", results[1])
	}
}

func TestScoreCommand_MissingFile(t *testing.T) {
	resetFlags(t)
	flagRef = filepath.Join(t.TempDir(), "absent.csv_bi")
	flagHyp = flagRef
	flagAlgorithms = []string{"taes"}

	if err := runScore(scoreCmd, nil); err == nil {
		t.Fatal("expected an error for a missing reference file")
	}
}

func TestCompareCommand_NewOnlyPipeline(t *testing.T) {
	resetFlags(t)
	flagRef, flagHyp = writePair(t)
	flagAlgorithms = []string{"taes"}
	flagPipeline = "new-only"

	var out bytes.Buffer
	compareCmd.SetOut(&out)
	defer compareCmd.SetOut(nil)

	if err := runCompare(compareCmd, nil); err != nil {
		t.Fatalf("runCompare: %v", err)
	}
	if !strings.Contains(out.String(), "new-only pipeline") {
		t.Errorf("missing pipeline heading: %q", out.String())
	}
}

func TestCompareCommand_ListMode(t *testing.T) {
	resetFlags(t)
	ref, hyp := writePair(t)
	dir := t.TempDir()
	refList := filepath.Join(dir, "ref.list")
	hypList := filepath.Join(dir, "hyp.list")
	if err := os.WriteFile(refList, []byte(ref+"\n"+ref+"\n"), 0o600); err != nil {
		t.Fatalf("write ref list: %v", err)
	}
	if err := os.WriteFile(hypList, []byte(hyp+"\n"+hyp+"\n"), 0o600); err != nil {
		t.Fatalf("write hyp list: %v", err)
	}
	flagRefList, flagHypList = refList, hypList
	flagAlgorithms = []string{"overlap"}
	flagPipeline = "new-only"

	var out bytes.Buffer
	compareCmd.SetOut(&out)
	defer compareCmd.SetOut(nil)

	if err := runCompare(compareCmd, nil); err != nil {
		t.Fatalf("runCompare: %v", err)
	}
	if !strings.Contains(out.String(), "2 files, all passed: true") {
		t.Errorf("missing list summary: %q", out.String())
	}
}

func TestCompareCommand_ListLengthMismatch(t *testing.T) {
	resetFlags(t)
	ref, hyp := writePair(t)
	dir := t.TempDir()
	refList := filepath.Join(dir, "ref.list")
	hypList := filepath.Join(dir, "hyp.list")
	if err := os.WriteFile(refList, []byte(ref+"\n"+ref+"\n"), 0o600); err != nil {
		t.Fatalf("write ref list: %v", err)
	}
	if err := os.WriteFile(hypList, []byte(hyp+"\n"), 0o600); err != nil {
		t.Fatalf("write hyp list: %v", err)
	}
	flagRefList, flagHypList = refList, hypList
	flagAlgorithms = []string{"taes"}
	flagPipeline = "new-only"

	err := runCompare(compareCmd, nil)
	if err == nil {
		t.Fatal("expected a list length error")
	}
}

func TestCompareCommand_MissingInputs(t *testing.T) {
	resetFlags(t)
	flagAlgorithms = []string{"taes"}
	flagPipeline = "new-only"

	if err := runCompare(compareCmd, nil); err == nil {
		t.Fatal("expected an error when neither pair nor lists are given")
	}
}

func TestMetricRows_TAES(t *testing.T) {
	res := &algorithms.Result{
		Algorithm: algorithms.AlgorithmTAES,
		TAES: &algorithms.TAESResult{
			TruePositives: 0.8,
			Sensitivity:   0.8,
			Precision:     1,
			F1:            0.8889,
		},
	}
	rows := metricRows(res)
	if len(rows) != 8 {
		t.Fatalf("got %d rows, want 8", len(rows))
	}
	if rows[0][0] != "true_positives" || rows[0][1] != "0.8000" {
		t.Errorf("first row = %v", rows[0])
	}
}

func TestLoadScoringParams_Defaults(t *testing.T) {
	resetFlags(t)
	t.Setenv("SCORING_PARAMS_FILE", "")

	cfg, err := loadScoringParams()
	if err != nil {
		t.Fatalf("loadScoringParams: %v", err)
	}
	want := algorithms.DefaultConfig()
	if cfg.EpochDuration != want.EpochDuration || cfg.PositiveLabel != want.PositiveLabel ||
		cfg.NullClass != want.NullClass {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadScoringParams_BadPath(t *testing.T) {
	resetFlags(t)
	flagParams = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := loadScoringParams()
	if err == nil {
		t.Fatal("expected an error for a missing parameter file")
	}
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		t.Logf("error is wrapped differently: %v", err)
	}
}
