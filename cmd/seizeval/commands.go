// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

var (
	// Shared flags.
	flagRef        string
	flagHyp        string
	flagRefList    string
	flagHypList    string
	flagAlgorithms []string
	flagParams     string
	flagJSON       bool

	// compare flags.
	flagOracleURL string
	flagPipeline  string

	rootCmd = &cobra.Command{
		Use:   "seizeval",
		Short: "Seizure-detection scoring toolkit",
		Long: "Seizeval scores EEG seizure-detection hypotheses against reference\n" +
			"annotations with the NEDC algorithm suite (dp, epoch, overlap, ira,\n" +
			"taes), and validates the native scorers against the legacy reference\n" +
			"implementation.",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation gateway",
		Long: "Starts the HTTP gateway: submission API, job workers, result cache,\n" +
			"progress WebSocket, and metrics. Configuration comes from the\n" +
			"environment.",
		RunE: runServe,
	}

	scoreCmd = &cobra.Command{
		Use:   "score",
		Short: "Score one annotation file pair locally",
		Long: "Runs the native scorers over one reference/hypothesis pair and\n" +
			"prints the metrics. No gateway or oracle required.",
		RunE: runScore,
	}

	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Run both pipelines and validate parity",
		Long: "Scores with the native implementation and the legacy oracle, then\n" +
			"compares their metrics. With --ref-list/--hyp-list, positionally\n" +
			"paired file lists are processed in parallel. Exits non-zero when any\n" +
			"pair fails parity.",
		RunE: runCompare,
	}
)

func init() {
	scoreCmd.Flags().StringVar(&flagRef, "ref", "", "reference annotation file (.csv_bi)")
	scoreCmd.Flags().StringVar(&flagHyp, "hyp", "", "hypothesis annotation file (.csv_bi)")
	scoreCmd.Flags().StringSliceVar(&flagAlgorithms, "algorithms", []string{"all"},
		"algorithms to run (dp, epoch, overlap, ira, taes, all)")
	scoreCmd.Flags().StringVar(&flagParams, "params", "", "scoring parameter YAML")
	scoreCmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON instead of tables")
	_ = scoreCmd.MarkFlagRequired("ref")
	_ = scoreCmd.MarkFlagRequired("hyp")

	compareCmd.Flags().StringVar(&flagRef, "ref", "", "reference annotation file (.csv_bi)")
	compareCmd.Flags().StringVar(&flagHyp, "hyp", "", "hypothesis annotation file (.csv_bi)")
	compareCmd.Flags().StringVar(&flagRefList, "ref-list", "", "newline-delimited reference file list")
	compareCmd.Flags().StringVar(&flagHypList, "hyp-list", "", "newline-delimited hypothesis file list")
	compareCmd.Flags().StringSliceVar(&flagAlgorithms, "algorithms", []string{"all"},
		"algorithms to run (dp, epoch, overlap, ira, taes, all)")
	compareCmd.Flags().StringVar(&flagParams, "params", "", "scoring parameter YAML")
	compareCmd.Flags().StringVar(&flagOracleURL, "oracle-url", "",
		"reference implementation endpoint (defaults to ORACLE_URL)")
	compareCmd.Flags().StringVar(&flagPipeline, "pipeline", "dual",
		"pipeline (reference-only, new-only, dual)")
	compareCmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON instead of tables")

	rootCmd.AddCommand(serveCmd, scoreCmd, compareCmd)
}
