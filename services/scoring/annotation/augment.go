// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

// Augment fills the gaps in a track with background events so that the
// returned event list covers [0, duration] continuously.
//
// Description:
//
//	Gaps between consecutive events, before the first event, and after the
//	last event are filled with events labelled nullClass at confidence 1.
//	An empty track becomes a single background event spanning the whole
//	duration. Input events are assumed sorted by start time (the parser
//	guarantees this) and are not mutated.
//
// Inputs:
//   - events: Sorted event list. May be empty.
//   - duration: Recording length in seconds. Must be > 0 for a useful
//     result; duration <= 0 with no events yields an empty list.
//   - nullClass: Label for the fill events (e.g. "bckg").
//
// Outputs:
//   - []Event: A new continuous event list. Never shares backing storage
//     with the input.
func Augment(events []Event, duration float64, nullClass string) []Event {
	if len(events) == 0 {
		if duration <= 0 {
			return nil
		}
		return []Event{background(0, duration, nullClass)}
	}

	out := make([]Event, 0, 2*len(events)+1)
	cursor := 0.0
	for _, ev := range events {
		if ev.StartTime > cursor {
			out = append(out, background(cursor, ev.StartTime, nullClass))
		}
		out = append(out, ev)
		if ev.StopTime > cursor {
			cursor = ev.StopTime
		}
	}
	if cursor < duration {
		out = append(out, background(cursor, duration, nullClass))
	}
	return out
}

func background(start, stop float64, nullClass string) Event {
	return Event{
		Channel:    "TERM",
		StartTime:  start,
		StopTime:   stop,
		Label:      nullClass,
		Confidence: 1.0,
	}
}

// LabelAt returns the label of the first event covering t, or nullClass
// when no event covers it. The scan is linear; tracks are short.
func LabelAt(events []Event, t float64, nullClass string) string {
	for _, ev := range events {
		if ev.Covers(t) {
			return ev.Label
		}
	}
	return nullClass
}
