// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package annotation defines the event model for EEG seizure annotation
// tracks and the csv_bi file format that carries them.
//
// An annotation track is an ordered list of labelled time intervals. The
// scoring algorithms consume a reference track (ground truth) and a
// hypothesis track (system under test); both are instances of
// AnnotationFile.
package annotation

import (
	"errors"
	"fmt"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidInterval indicates stop_time <= start_time.
	ErrInvalidInterval = errors.New("event stop_time must be greater than start_time")

	// ErrNegativeTime indicates a negative start or stop time.
	ErrNegativeTime = errors.New("event times must be non-negative")

	// ErrConfidenceRange indicates a confidence outside [0, 1].
	ErrConfidenceRange = errors.New("event confidence must be in [0, 1]")
)

// -----------------------------------------------------------------------------
// Event
// -----------------------------------------------------------------------------

// Event is a single labelled interval on an annotation track.
//
// Times are seconds from the start of the recording. The scoring core is
// channel-agnostic: Channel is carried through but never interpreted.
//
// Thread Safety: Events flow by value; safe to share.
type Event struct {
	// Channel is the montage channel the event was marked on ("TERM" for
	// term-based annotations).
	Channel string `json:"channel"`

	// StartTime is the inclusive start of the interval, in seconds.
	StartTime float64 `json:"start_time"`

	// StopTime is the end of the interval, in seconds. Must be > StartTime.
	StopTime float64 `json:"stop_time"`

	// Label is the canonical class token (e.g. "seiz", "bckg").
	Label string `json:"label"`

	// Confidence is the annotator confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Validate checks the Event invariants.
//
// Outputs:
//   - error: ErrNegativeTime, ErrInvalidInterval, or ErrConfidenceRange
//     wrapped with the offending values; nil when the event is well formed.
func (e Event) Validate() error {
	if e.StartTime < 0 || e.StopTime < 0 {
		return fmt.Errorf("%w: start=%.4f stop=%.4f", ErrNegativeTime, e.StartTime, e.StopTime)
	}
	if e.StopTime <= e.StartTime {
		return fmt.Errorf("%w: start=%.4f stop=%.4f", ErrInvalidInterval, e.StartTime, e.StopTime)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence=%.4f", ErrConfidenceRange, e.Confidence)
	}
	return nil
}

// Duration returns the interval length in seconds.
func (e Event) Duration() float64 {
	return e.StopTime - e.StartTime
}

// Overlaps reports strict temporal overlap with other. Tangency at an
// endpoint does not count as overlap.
func (e Event) Overlaps(other Event) bool {
	return other.StopTime > e.StartTime && other.StartTime < e.StopTime
}

// Covers reports whether t lies inside the closed interval [start, stop].
func (e Event) Covers(t float64) bool {
	return e.StartTime <= t && t <= e.StopTime
}

// -----------------------------------------------------------------------------
// AnnotationFile
// -----------------------------------------------------------------------------

// AnnotationFile is a parsed annotation track plus its file-level metadata.
//
// Invariant: Duration >= max(StopTime) over Events when Events is non-empty.
// Events need not cover the full duration; gaps are implicit background.
type AnnotationFile struct {
	// Version is the file format magic (e.g. "csv_v1.0.0").
	Version string `json:"version"`

	// Patient is the patient identifier from the metadata block.
	Patient string `json:"patient"`

	// Session is the session identifier (bname).
	Session string `json:"session"`

	// Duration is the recording length in seconds.
	Duration float64 `json:"duration"`

	// Events is the ordered event list (ascending StartTime).
	Events []Event `json:"events"`
}

// SortEvents orders Events ascending by StartTime, then StopTime. The
// scorers assume this ordering; the parser applies it once after load.
func (f *AnnotationFile) SortEvents() {
	sort.SliceStable(f.Events, func(i, j int) bool {
		if f.Events[i].StartTime != f.Events[j].StartTime {
			return f.Events[i].StartTime < f.Events[j].StartTime
		}
		return f.Events[i].StopTime < f.Events[j].StopTime
	})
}

// FilterLabel returns the events carrying the given label, in order.
func (f *AnnotationFile) FilterLabel(label string) []Event {
	out := make([]Event, 0, len(f.Events))
	for _, ev := range f.Events {
		if ev.Label == label {
			out = append(out, ev)
		}
	}
	return out
}

// Labels returns the distinct labels present, in first-seen order.
func (f *AnnotationFile) Labels() []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, ev := range f.Events {
		if _, ok := seen[ev.Label]; !ok {
			seen[ev.Label] = struct{}{}
			out = append(out, ev.Label)
		}
	}
	return out
}

// TotalEventDuration returns the summed duration of all events in seconds.
func (f *AnnotationFile) TotalEventDuration() float64 {
	var total float64
	for _, ev := range f.Events {
		total += ev.Duration()
	}
	return total
}

// MapLabels rewrites event labels through the given raw-to-canonical map.
// Labels absent from the map pass through unchanged. A nil map is a no-op.
func (f *AnnotationFile) MapLabels(labelMap map[string]string) {
	if len(labelMap) == 0 {
		return
	}
	for i := range f.Events {
		if canonical, ok := labelMap[f.Events[i].Label]; ok {
			f.Events[i].Label = canonical
		}
	}
}
