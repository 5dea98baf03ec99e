// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/dual"
	"github.com/seizeval/seizeval/services/scoring/parity"
)

// newMetricTable builds a two-column markdown table writer. All CLI
// tables share the same renderer so output is paste-able into reports.
func newMetricTable(w io.Writer, headers ...string) *tablewriter.Table {
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	return table
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// metricRows flattens one algorithm result into sorted name/value rows.
func metricRows(res *algorithms.Result) [][]string {
	var rows [][]string
	add := func(name, value string) {
		rows = append(rows, []string{name, value})
	}
	addRates := func(prefix string, rates map[string]algorithms.Rates) {
		labels := make([]string, 0, len(rates))
		for label := range rates {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			r := rates[label]
			add(prefix+".sensitivity."+label, formatFloat(r.Sensitivity))
			add(prefix+".precision."+label, formatFloat(r.Precision))
			add(prefix+".f1."+label, formatFloat(r.F1))
		}
	}
	addCounts := func(prefix string, counts map[string]int) {
		labels := make([]string, 0, len(counts))
		for label := range counts {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			add(prefix+"."+label, formatInt(counts[label]))
		}
	}

	switch {
	case res.DP != nil:
		add("hits", formatInt(res.DP.TotalHits))
		add("insertions", formatInt(res.DP.TotalInsertions))
		add("deletions", formatInt(res.DP.TotalDeletions))
		add("substitutions", formatInt(res.DP.TotalSubstitutions))
		add("true_positives", formatInt(res.DP.TruePositives))
		add("false_positives", formatInt(res.DP.FalsePositives))
		add("false_negatives", formatInt(res.DP.FalseNegatives))
	case res.Epoch != nil:
		addCounts("hits", res.Epoch.Hits)
		addCounts("misses", res.Epoch.Misses)
		addCounts("false_alarms", res.Epoch.FalseAlarms)
		addRates("rates", res.Epoch.PerLabelRates)
	case res.Overlap != nil:
		addCounts("hits", res.Overlap.Hits)
		addCounts("misses", res.Overlap.Misses)
		addCounts("false_alarms", res.Overlap.FalseAlarms)
		addRates("rates", res.Overlap.PerLabelRates)
	case res.TAES != nil:
		add("true_positives", formatFloat(res.TAES.TruePositives))
		add("false_positives", formatFloat(res.TAES.FalsePositives))
		add("false_negatives", formatFloat(res.TAES.FalseNegatives))
		add("sensitivity", formatFloat(res.TAES.Sensitivity))
		add("precision", formatFloat(res.TAES.Precision))
		add("f1", formatFloat(res.TAES.F1))
		add("specificity", formatFloat(res.TAES.Specificity))
		add("accuracy", formatFloat(res.TAES.Accuracy))
	case res.IRA != nil:
		add("multi_class_kappa", formatFloat(res.IRA.MultiKappa))
		labels := make([]string, 0, len(res.IRA.PerLabelKappa))
		for label := range res.IRA.PerLabelKappa {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			add("kappa."+label, formatFloat(res.IRA.PerLabelKappa[label]))
		}
	}
	return rows
}

// printResult renders one algorithm result as a metric table.
func printResult(w io.Writer, res *algorithms.Result) {
	fmt.Fprintf(w, "\n## %s\n\n", res.Algorithm)
	table := newMetricTable(w, "metric", "value")
	for _, row := range metricRows(res) {
		table.Append(row)
	}
	table.Render()
}

// printParity renders a parity report, including a discrepancy table
// when the check failed.
func printParity(w io.Writer, report *parity.Report) {
	status := "PASS"
	if !report.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "\nparity: %s (%d metrics compared)\n", status, report.Compared)
	if len(report.Discrepancies) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := newMetricTable(w, "metric", "reference", "new", "abs_diff")
	for _, d := range report.Discrepancies {
		table.Append([]string{
			d.Metric,
			formatFloat(d.Reference),
			formatFloat(d.New),
			formatFloat(d.AbsDiff),
		})
	}
	table.Render()
}

// printDualResult renders one dual-pipeline evaluation: native metrics
// when present, timing, and the parity outcome.
func printDualResult(w io.Writer, res *dual.DualResult) {
	if res.New != nil {
		printResult(w, res.New)
	}
	if res.AlphaTime > 0 || res.BetaTime > 0 {
		fmt.Fprintf(w, "\ntiming: reference=%s native=%s speedup=%.2fx\n",
			res.AlphaTime, res.BetaTime, res.Speedup)
	}
	if res.Parity != nil {
		printParity(w, res.Parity)
	}
}

// printListSummary renders the per-file outcome table for list mode.
func printListSummary(w io.Writer, list *dual.ListResult) {
	fmt.Fprintln(w)
	table := newMetricTable(w, "#", "reference", "hypothesis", "outcome")
	for _, fr := range list.FileResults {
		outcome := "pass"
		switch {
		case fr.Error != "":
			outcome = "error: " + fr.Error
		case !fr.Result.ParityPassed():
			outcome = "parity fail"
		}
		table.Append([]string{
			formatInt(fr.Index),
			fr.RefPath,
			fr.HypPath,
			outcome,
		})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d files, all passed: %t\n", list.TotalFiles, list.AllPassed)
}
