// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/dual"
)

const defaultListWorkers = 4

var errParityFailed = errors.New("parity check failed")

func runCompare(cmd *cobra.Command, _ []string) error {
	cfg, err := loadScoringParams()
	if err != nil {
		return err
	}
	algos, err := expandAlgorithmFlags(flagAlgorithms)
	if err != nil {
		return err
	}
	pipeline, err := dual.ParsePipeline(flagPipeline)
	if err != nil {
		return err
	}

	opts := []dual.Option{dual.WithLogger(slog.Default())}
	oracleURL := flagOracleURL
	if oracleURL == "" {
		oracleURL = os.Getenv("ORACLE_URL")
	}
	if oracleURL != "" {
		oracle, err := dual.NewHTTPOracle(oracleURL)
		if err != nil {
			return fmt.Errorf("configure oracle: %w", err)
		}
		opts = append(opts, dual.WithOracle(oracle))
	}
	orch := dual.NewOrchestrator(cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listMode := flagRefList != "" || flagHypList != ""
	if listMode {
		return compareLists(ctx, cmd.OutOrStdout(), orch, pipeline, algos)
	}
	if flagRef == "" || flagHyp == "" {
		return fmt.Errorf("either --ref/--hyp or --ref-list/--hyp-list is required")
	}
	return comparePair(ctx, cmd.OutOrStdout(), orch, pipeline, algos)
}

func comparePair(ctx context.Context, out io.Writer, orch *dual.Orchestrator, pipeline dual.Pipeline, algos []algorithms.Algorithm) error {
	refBytes, err := os.ReadFile(flagRef)
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	hypBytes, err := os.ReadFile(flagHyp)
	if err != nil {
		return fmt.Errorf("read hypothesis: %w", err)
	}

	allPassed := true
	results := make([]*dual.DualResult, 0, len(algos))
	for _, algo := range algos {
		res, err := orch.Run(ctx, algo, pipeline, refBytes, hypBytes)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", algo, err)
		}
		results = append(results, res)
		if !res.ParityPassed() {
			allPassed = false
		}
	}

	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "# %s vs %s (%s pipeline)\n", flagRef, flagHyp, pipeline)
		for _, res := range results {
			printDualResult(out, res)
		}
	}
	if !allPassed {
		return errParityFailed
	}
	return nil
}

func compareLists(ctx context.Context, out io.Writer, orch *dual.Orchestrator, pipeline dual.Pipeline, algos []algorithms.Algorithm) error {
	if flagRefList == "" || flagHypList == "" {
		return fmt.Errorf("list mode needs both --ref-list and --hyp-list")
	}
	refPaths, err := dual.ReadListFile(flagRefList)
	if err != nil {
		return err
	}
	hypPaths, err := dual.ReadListFile(flagHypList)
	if err != nil {
		return err
	}
	workers := listWorkers()

	allPassed := true
	lists := make(map[algorithms.Algorithm]*dual.ListResult, len(algos))
	for _, algo := range algos {
		list, err := orch.RunList(ctx, algo, pipeline, refPaths, hypPaths, workers)
		if err != nil {
			return fmt.Errorf("evaluate %s list: %w", algo, err)
		}
		lists[algo] = list
		if !list.AllPassed {
			allPassed = false
		}
	}

	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lists); err != nil {
			return err
		}
	} else {
		for _, algo := range algos {
			fmt.Fprintf(out, "\n## %s (%s pipeline, %d workers)\n", algo, pipeline, workers)
			printListSummary(out, lists[algo])
		}
	}
	if !allPassed {
		return errParityFailed
	}
	return nil
}

// listWorkers reads PARALLEL_WORKERS, defaulting when unset or invalid.
func listWorkers() int {
	raw := os.Getenv("PARALLEL_WORKERS")
	if raw == "" {
		return defaultListWorkers
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		slog.Warn("invalid PARALLEL_WORKERS, using default",
			"value", raw, "default", defaultListWorkers)
		return defaultListWorkers
	}
	return n
}
