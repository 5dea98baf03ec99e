// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seizeval/seizeval/services/gateway/config"
	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/annotation"
)

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, err := loadScoringParams()
	if err != nil {
		return err
	}
	algos, err := expandAlgorithmFlags(flagAlgorithms)
	if err != nil {
		return err
	}

	parser := annotation.NewParser(slog.Default())
	ref, err := parser.ParseFile(flagRef)
	if err != nil {
		return fmt.Errorf("parse reference: %w", err)
	}
	hyp, err := parser.ParseFile(flagHyp)
	if err != nil {
		return fmt.Errorf("parse hypothesis: %w", err)
	}

	results := make([]*algorithms.Result, 0, len(algos))
	for _, algo := range algos {
		res, err := algorithms.Run(cfg, algo, ref, hyp)
		if err != nil {
			return fmt.Errorf("score %s: %w", algo, err)
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	fmt.Fprintf(out, "# %s vs %s\n", flagRef, flagHyp)
	for _, res := range results {
		printResult(out, res)
	}
	return nil
}

// loadScoringParams resolves the parameter block: the --params flag,
// then SCORING_PARAMS_FILE, then the built-in defaults.
func loadScoringParams() (algorithms.Config, error) {
	path := flagParams
	if path == "" {
		path = os.Getenv("SCORING_PARAMS_FILE")
	}
	if path == "" {
		return algorithms.DefaultConfig(), nil
	}
	cfg, err := config.LoadParams(path)
	if err != nil {
		return algorithms.Config{}, fmt.Errorf("load scoring parameters: %w", err)
	}
	return *cfg, nil
}

// expandAlgorithmFlags resolves the --algorithms values, expanding "all"
// and dropping duplicates while preserving order.
func expandAlgorithmFlags(names []string) ([]algorithms.Algorithm, error) {
	seen := make(map[algorithms.Algorithm]struct{})
	var out []algorithms.Algorithm
	add := func(algo algorithms.Algorithm) {
		if _, ok := seen[algo]; ok {
			return
		}
		seen[algo] = struct{}{}
		out = append(out, algo)
	}
	for _, name := range names {
		if name == "all" {
			for _, algo := range algorithms.All() {
				add(algo)
			}
			continue
		}
		algo, err := algorithms.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		add(algo)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no algorithms selected")
	}
	return out, nil
}
