// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dual runs the legacy reference implementation and the native
// scorers side by side, times both, and validates parity between them.
package dual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/annotation"
	"github.com/seizeval/seizeval/services/scoring/parity"
)

// -----------------------------------------------------------------------------
// Pipelines
// -----------------------------------------------------------------------------

// Pipeline selects which implementations an evaluation exercises.
type Pipeline string

const (
	// PipelineReference runs only the legacy oracle.
	PipelineReference Pipeline = "reference-only"

	// PipelineNew runs only the native scorers.
	PipelineNew Pipeline = "new-only"

	// PipelineDual runs both and validates parity.
	PipelineDual Pipeline = "dual"
)

var (
	// ErrUnknownPipeline indicates an unrecognised pipeline token.
	ErrUnknownPipeline = errors.New("unknown pipeline mode")

	// ErrNoOracle indicates a reference pipeline with no oracle configured.
	ErrNoOracle = errors.New("no reference oracle configured")

	// ErrListLength indicates mismatched list-mode file lists.
	ErrListLength = errors.New("reference and hypothesis lists must have equal length")
)

// ParsePipeline validates a pipeline token.
func ParsePipeline(s string) (Pipeline, error) {
	switch Pipeline(s) {
	case PipelineReference, PipelineNew, PipelineDual:
		return Pipeline(s), nil
	case "":
		return PipelineDual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPipeline, s)
	}
}

// IncludesNew reports whether the pipeline exercises the native scorers.
// Only such pipelines are cacheable; the oracle may have side effects.
func (p Pipeline) IncludesNew() bool {
	return p == PipelineNew || p == PipelineDual
}

// -----------------------------------------------------------------------------
// Oracle contract
// -----------------------------------------------------------------------------

// ReferenceRunner is the opaque legacy implementation. It consumes the
// raw annotation blobs and reports a flat metric map in the key space
// the parity validator understands.
type ReferenceRunner interface {
	Run(ctx context.Context, algo algorithms.Algorithm, refBytes, hypBytes []byte) (map[string]float64, error)
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// DualResult carries the outcome of one algorithm evaluation under one
// pipeline. Fields for implementations the pipeline did not run are nil.
type DualResult struct {
	Algorithm algorithms.Algorithm `json:"algorithm"`
	Pipeline  Pipeline             `json:"pipeline"`

	// Reference is the oracle's metric map. Nil for new-only runs.
	Reference map[string]float64 `json:"reference,omitempty"`

	// New is the native result. Nil for reference-only runs.
	New *algorithms.Result `json:"new,omitempty"`

	// Parity is set only for dual runs.
	Parity *parity.Report `json:"parity,omitempty"`

	// AlphaTime is the oracle's wall time; BetaTime the native scorers'.
	// Both come from the monotonic clock.
	AlphaTime time.Duration `json:"alpha_time_ns"`
	BetaTime  time.Duration `json:"beta_time_ns"`

	// Speedup is AlphaTime/BetaTime, or 0 when BetaTime is 0.
	Speedup float64 `json:"speedup"`
}

// ParityPassed reports the parity outcome. Pipelines that ran a single
// implementation trivially pass.
func (d *DualResult) ParityPassed() bool {
	return d.Parity == nil || d.Parity.Passed
}

// -----------------------------------------------------------------------------
// Orchestrator
// -----------------------------------------------------------------------------

// Orchestrator coordinates one evaluation across both implementations.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Orchestrator struct {
	cfg       algorithms.Config
	oracle    ReferenceRunner
	validator *parity.Validator
	parser    *annotation.Parser
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOracle attaches the legacy reference implementation.
func WithOracle(oracle ReferenceRunner) Option {
	return func(o *Orchestrator) { o.oracle = oracle }
}

// WithValidator overrides the parity validator.
func WithValidator(v *parity.Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an Orchestrator. Without WithOracle only the
// new-only pipeline is runnable.
func NewOrchestrator(cfg algorithms.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		validator: parity.NewValidator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.parser = annotation.NewParser(o.logger)
	return o
}

// Run evaluates one algorithm over one blob pair under the given
// pipeline.
//
// Description:
//
//	Each implementation is timed independently. A parity failure is not
//	an error: the report is recorded on the result and the evaluation
//	completes normally. Only implementation faults (oracle transport
//	errors, unparseable blobs) surface as errors.
//
// Outputs:
//   - *DualResult: Nil on error.
//   - error: ErrNoOracle, parse failures, or oracle failures.
func (o *Orchestrator) Run(ctx context.Context, algo algorithms.Algorithm, pipeline Pipeline, refBytes, hypBytes []byte) (*DualResult, error) {
	out := &DualResult{Algorithm: algo, Pipeline: pipeline}

	if pipeline == PipelineReference || pipeline == PipelineDual {
		if o.oracle == nil {
			return nil, fmt.Errorf("%w: pipeline %q", ErrNoOracle, pipeline)
		}
		start := time.Now()
		refMetrics, err := o.oracle.Run(ctx, algo, refBytes, hypBytes)
		out.AlphaTime = time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("reference implementation: %w", err)
		}
		out.Reference = refMetrics
	}

	if pipeline.IncludesNew() {
		start := time.Now()
		res, err := o.runNew(algo, refBytes, hypBytes)
		out.BetaTime = time.Since(start)
		if err != nil {
			return nil, err
		}
		out.New = res
	}

	if pipeline == PipelineDual {
		report, err := o.validator.Validate(out.Reference, out.New)
		if err != nil {
			return nil, fmt.Errorf("parity validation: %w", err)
		}
		out.Parity = report
		if !report.Passed {
			o.logger.Warn("parity mismatch recorded",
				"algorithm", algo, "discrepancies", len(report.Discrepancies))
		}
	}

	if out.BetaTime > 0 {
		out.Speedup = float64(out.AlphaTime) / float64(out.BetaTime)
	}
	return out, nil
}

// runNew parses both blobs, applies the configured label map, and
// dispatches the native scorer.
func (o *Orchestrator) runNew(algo algorithms.Algorithm, refBytes, hypBytes []byte) (*algorithms.Result, error) {
	ref, err := o.parser.ParseBytes(refBytes)
	if err != nil {
		return nil, fmt.Errorf("parse reference track: %w", err)
	}
	hyp, err := o.parser.ParseBytes(hypBytes)
	if err != nil {
		return nil, fmt.Errorf("parse hypothesis track: %w", err)
	}
	ref.MapLabels(o.cfg.LabelMap)
	hyp.MapLabels(o.cfg.LabelMap)
	return algorithms.Run(o.cfg, algo, ref, hyp)
}
