// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ratelimit implements a per-client sliding-window request
// limiter. The window is the trailing 60 seconds; timestamps older than
// the window are pruned on every check, so an idle client's state decays
// to nothing.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the trailing observation window.
const Window = time.Minute

// Limiter tracks request timestamps per client id.
//
// Thread Safety: Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	history   map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

// NewLimiter creates a Limiter allowing limit requests per client per
// trailing window. Limits below 1 are clamped to 1.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		limit:   limit,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request for clientID and reports whether it is
// within the limit. A rejected request is not recorded, so a client
// hammering the endpoint does not extend its own lockout.
//
// Outputs:
//   - allowed: Whether the request may proceed.
//   - retryAfter: Suggested wait when rejected; zero when allowed.
func (l *Limiter) Allow(clientID string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	// A client that never comes back would otherwise leave its entry in
	// the map forever; sweep all clients at most once per window.
	if now.Sub(l.lastSweep) >= Window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}

	kept := l.history[clientID][:0]
	for _, ts := range l.history[clientID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.history[clientID] = kept
		return false, Window
	}

	l.history[clientID] = append(kept, now)
	return true, 0
}

// sweepLocked drops every client whose last request predates cutoff.
// Caller holds l.mu.
func (l *Limiter) sweepLocked(cutoff time.Time) {
	for id, history := range l.history {
		live := false
		for _, ts := range history {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.history, id)
		}
	}
}

// ActiveClients returns the number of clients with requests inside the
// window. Used by tests and the readiness endpoint's debug output.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(l.now().Add(-Window))
	return len(l.history)
}
