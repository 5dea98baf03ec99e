// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ratelimit

import (
	"testing"
	"time"
)

// withClock installs a fake clock and returns its advance function.
func withClock(l *Limiter) func(time.Duration) {
	current := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return current }
	return func(d time.Duration) { current = current.Add(d) }
}

func TestAllow_UnderLimit(t *testing.T) {
	l := NewLimiter(3)
	withClock(l)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("client-a"); !ok {
			t.Fatalf("request %d rejected under limit", i+1)
		}
	}
	ok, retry := l.Allow("client-a")
	if ok {
		t.Fatal("request over limit allowed")
	}
	if retry != Window {
		t.Errorf("retryAfter = %v, want %v", retry, Window)
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	l := NewLimiter(2)
	advance := withClock(l)

	l.Allow("c")
	l.Allow("c")
	if ok, _ := l.Allow("c"); ok {
		t.Fatal("third request inside window allowed")
	}

	advance(61 * time.Second)
	if ok, _ := l.Allow("c"); !ok {
		t.Error("request after window expiry rejected")
	}
}

func TestAllow_RejectionsDoNotExtendLockout(t *testing.T) {
	l := NewLimiter(1)
	advance := withClock(l)

	l.Allow("c")
	for i := 0; i < 10; i++ {
		advance(5 * time.Second)
		l.Allow("c") // all rejected; must not be recorded
	}
	advance(11 * time.Second) // 61s past the single recorded request
	if ok, _ := l.Allow("c"); !ok {
		t.Error("rejected requests extended the lockout")
	}
}

func TestAllow_ClientsIsolated(t *testing.T) {
	l := NewLimiter(1)
	withClock(l)

	l.Allow("a")
	if ok, _ := l.Allow("b"); !ok {
		t.Error("client b throttled by client a's traffic")
	}
}

func TestAllow_SweepsIdleClients(t *testing.T) {
	// An entry left by a client that never returns must be reclaimed by
	// other clients' traffic, not only by ActiveClients.
	l := NewLimiter(5)
	advance := withClock(l)

	l.Allow("one-shot")
	advance(2 * time.Minute)
	l.Allow("steady")

	l.mu.Lock()
	_, stale := l.history["one-shot"]
	entries := len(l.history)
	l.mu.Unlock()
	if stale {
		t.Error("idle client entry survived the sweep")
	}
	if entries != 1 {
		t.Errorf("history has %d entries, want 1", entries)
	}
}

func TestActiveClients_PrunesIdle(t *testing.T) {
	l := NewLimiter(5)
	advance := withClock(l)

	l.Allow("a")
	l.Allow("b")
	if got := l.ActiveClients(); got != 2 {
		t.Errorf("ActiveClients = %d, want 2", got)
	}

	advance(2 * time.Minute)
	if got := l.ActiveClients(); got != 0 {
		t.Errorf("ActiveClients = %d, want 0 after idle window", got)
	}
}
