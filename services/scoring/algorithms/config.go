// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package algorithms implements the five seizure-detection scoring
// algorithms: DP sequence alignment, fixed-window epoch scoring,
// any-overlap scoring, time-aligned event scoring (TAES), and
// inter-rater agreement (Cohen's kappa).
//
// All scorers are stateless value types configured by a single Config
// passed by value. They never mutate their inputs and are safe to invoke
// concurrently.
package algorithms

import (
	"errors"
	"fmt"
)

// NullClass is the sentinel token the DP aligner pads sequences with. It
// is distinct from Config.NullClass, which is the background label used
// by the timeline scorers.
const NullClass = "null_class"

// DefaultPositiveLabel is the positive class counted for TP/FP/FN
// reporting when none is configured.
const DefaultPositiveLabel = "seiz"

var (
	// ErrUnknownAlgorithm indicates an unrecognised algorithm name.
	ErrUnknownAlgorithm = errors.New("unknown scoring algorithm")

	// ErrSequenceLength indicates unequal label sequences where equal
	// lengths are required.
	ErrSequenceLength = errors.New("label sequences must have equal length")
)

// -----------------------------------------------------------------------------
// Algorithm enum
// -----------------------------------------------------------------------------

// Algorithm identifies one of the five scoring algorithms.
type Algorithm string

const (
	// AlgorithmDP is Needleman-Wunsch style label sequence alignment.
	AlgorithmDP Algorithm = "dp"
	// AlgorithmEpoch is fixed-window midpoint epoch scoring.
	AlgorithmEpoch Algorithm = "epoch"
	// AlgorithmOverlap is any-overlap binary hit detection.
	AlgorithmOverlap Algorithm = "overlap"
	// AlgorithmTAES is time-aligned event scoring.
	AlgorithmTAES Algorithm = "taes"
	// AlgorithmIRA is inter-rater agreement (Cohen's kappa).
	AlgorithmIRA Algorithm = "ira"
)

// All returns the five algorithms in canonical order.
func All() []Algorithm {
	return []Algorithm{AlgorithmDP, AlgorithmEpoch, AlgorithmOverlap, AlgorithmIRA, AlgorithmTAES}
}

// ParseAlgorithm maps a request token to an Algorithm. The token "all" is
// handled by the caller (it expands to All()).
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmDP, AlgorithmEpoch, AlgorithmOverlap, AlgorithmTAES, AlgorithmIRA:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// Config carries the NEDC-style scoring parameters shared by all
// algorithms. It flows by value; a zero Config is not usable, start from
// DefaultConfig.
type Config struct {
	// EpochDuration is the fixed window width for epoch and IRA sampling,
	// in seconds.
	EpochDuration float64 `yaml:"epoch_duration" validate:"gt=0"`

	// NullClass is the background label used for gap augmentation and as
	// the sampling default.
	NullClass string `yaml:"null_class" validate:"required"`

	// PositiveLabel is the class TP/FP/FN are reported against.
	PositiveLabel string `yaml:"positive_label" validate:"required"`

	// GuardWidth is the legacy guard band width in seconds. Carried in
	// the parameter block for oracle compatibility; the core algorithms
	// do not consume it.
	GuardWidth float64 `yaml:"guard_width" validate:"gte=0"`

	// LabelMap rewrites raw annotation labels to canonical classes before
	// scoring. Optional.
	LabelMap map[string]string `yaml:"label_map"`

	// PenaltyIns, PenaltyDel, PenaltySub are the DP alignment penalties.
	PenaltyIns float64 `yaml:"penalty_ins" validate:"gt=0"`
	PenaltyDel float64 `yaml:"penalty_del" validate:"gt=0"`
	PenaltySub float64 `yaml:"penalty_sub" validate:"gt=0"`
}

// DefaultConfig returns the standard NEDC parameter block.
func DefaultConfig() Config {
	return Config{
		EpochDuration: 1.0,
		NullClass:     "bckg",
		PositiveLabel: DefaultPositiveLabel,
		GuardWidth:    0.001,
		PenaltyIns:    1.0,
		PenaltyDel:    1.0,
		PenaltySub:    1.0,
	}
}
