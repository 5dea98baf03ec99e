// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package progress fans evaluation progress events out to per-job
// subscribers.
//
// Events are serialised once per publish and sent to every subscriber.
// A failed send drops the subscriber rather than blocking the
// broadcast. The last event per job is retained and replayed to late
// subscribers, so a client connecting after a terminal event still
// learns the outcome.
package progress

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// EventType classifies a progress event.
type EventType string

const (
	// EventInitial carries the current job status to a fresh subscriber.
	EventInitial EventType = "initial"

	// EventStatus announces a job status transition.
	EventStatus EventType = "status"

	// EventAlgorithm announces a per-algorithm boundary (started or
	// completed, with the result on completion).
	EventAlgorithm EventType = "algorithm"

	// EventHeartbeat keeps idle connections alive.
	EventHeartbeat EventType = "heartbeat"

	// EventError announces a terminal failure.
	EventError EventType = "error"
)

// Algorithm event stages.
const (
	StageStarted   = "started"
	StageCompleted = "completed"
)

// Event is one progress update for a job.
type Event struct {
	Type      EventType       `json:"type"`
	JobID     string          `json:"job_id"`
	Status    string          `json:"status,omitempty"`
	Algorithm string          `json:"algorithm,omitempty"`
	Stage     string          `json:"stage,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Subscriber receives serialised events. Send may block on a slow
// transport; the hub interprets any error as a dead subscriber.
type Subscriber interface {
	Send(payload []byte) error
}

// Hub routes events to per-job subscriber sets.
//
// Thread Safety: Safe for concurrent use.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[Subscriber]struct{}
	lastEvent   map[string][]byte
	logger      *slog.Logger
}

// NewHub creates an empty Hub. A nil logger falls back to slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[Subscriber]struct{}),
		lastEvent:   make(map[string][]byte),
		logger:      logger,
	}
}

// Subscribe registers sub for jobID events. The job's retained last
// event, if any, is replayed to sub immediately so late subscribers see
// the latest state before any further broadcast.
func (h *Hub) Subscribe(jobID string, sub Subscriber) {
	h.mu.Lock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[Subscriber]struct{})
	}
	h.subscribers[jobID][sub] = struct{}{}
	last := h.lastEvent[jobID]
	h.mu.Unlock()

	if last != nil {
		if err := sub.Send(last); err != nil {
			h.logger.Debug("replay to new subscriber failed; dropping it",
				"job_id", jobID, "error", err)
			h.Unsubscribe(jobID, sub)
		}
	}
}

// Unsubscribe removes sub from jobID's set. Safe to call for unknown
// pairs.
func (h *Hub) Unsubscribe(jobID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subscribers[jobID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, jobID)
		}
	}
}

// Publish serialises ev once and sends it to every subscriber of its
// job. Subscribers whose Send fails are removed. Heartbeats are not
// retained as the job's last event; state events are.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("progress event serialisation failed", "job_id", ev.JobID, "error", err)
		return
	}

	h.mu.Lock()
	if ev.Type != EventHeartbeat {
		h.lastEvent[ev.JobID] = payload
	}
	subs := make([]Subscriber, 0, len(h.subscribers[ev.JobID]))
	for sub := range h.subscribers[ev.JobID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Send(payload); err != nil {
			h.logger.Debug("subscriber send failed; dropping it",
				"job_id", ev.JobID, "error", err)
			h.Unsubscribe(ev.JobID, sub)
		}
	}
}

// Forget drops the retained event and subscriber set for a job. Called
// when the job is evicted from the store.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastEvent, jobID)
	delete(h.subscribers, jobID)
}

// SubscriberCount returns the live subscriber count for a job.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[jobID])
}
