// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dual

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

// FileResult pairs one positional list entry with its evaluation.
type FileResult struct {
	Index   int         `json:"index"`
	RefPath string      `json:"ref_path"`
	HypPath string      `json:"hyp_path"`
	Result  *DualResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListResult aggregates a list-mode run.
type ListResult struct {
	FileResults []FileResult `json:"file_results"`
	AllPassed   bool         `json:"all_passed"`
	TotalFiles  int          `json:"total_files"`
}

// RunList evaluates positionally paired file lists.
//
// Description:
//
//	Pairs are scored concurrently, bounded by workers (values < 1 run
//	sequentially). A failed pair records its error on the FileResult and
//	clears AllPassed; it does not abort the remaining pairs. AllPassed
//	requires every pair to score without error and pass parity.
//
// Outputs:
//   - *ListResult: Nil only on list-length mismatch or cancellation.
//   - error: ErrListLength, or the context's error.
func (o *Orchestrator) RunList(ctx context.Context, algo algorithms.Algorithm, pipeline Pipeline, refPaths, hypPaths []string, workers int) (*ListResult, error) {
	if len(refPaths) != len(hypPaths) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrListLength, len(refPaths), len(hypPaths))
	}
	if workers < 1 {
		workers = 1
	}

	out := &ListResult{
		FileResults: make([]FileResult, len(refPaths)),
		AllPassed:   true,
		TotalFiles:  len(refPaths),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range refPaths {
		g.Go(func() error {
			fr := FileResult{Index: i, RefPath: refPaths[i], HypPath: hypPaths[i]}
			res, err := o.runPair(gctx, algo, pipeline, refPaths[i], hypPaths[i])
			if err != nil {
				fr.Error = err.Error()
			} else {
				fr.Result = res
			}
			out.FileResults[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range out.FileResults {
		fr := &out.FileResults[i]
		if fr.Error != "" || !fr.Result.ParityPassed() {
			out.AllPassed = false
			break
		}
	}
	return out, nil
}

func (o *Orchestrator) runPair(ctx context.Context, algo algorithms.Algorithm, pipeline Pipeline, refPath, hypPath string) (*DualResult, error) {
	refBytes, err := os.ReadFile(refPath)
	if err != nil {
		return nil, fmt.Errorf("read reference list entry: %w", err)
	}
	hypBytes, err := os.ReadFile(hypPath)
	if err != nil {
		return nil, fmt.Errorf("read hypothesis list entry: %w", err)
	}
	return o.Run(ctx, algo, pipeline, refBytes, hypBytes)
}

// ReadListFile loads a newline-delimited file list, skipping blanks and
// `#` comments.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list file %s: %w", path, err)
	}
	return paths, nil
}
