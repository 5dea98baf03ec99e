// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jobs holds the asynchronous evaluation core: the job store,
// submission path, and the worker pool that drives the dual-pipeline
// orchestrator.
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seizeval/seizeval/services/gateway/validation"
	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/dual"
)

const (
	// AlgorithmAll expands to every scoring algorithm on submission.
	AlgorithmAll = "all"

	// queueDepth bounds the submission backlog.
	queueDepth = 256

	// defaultRetention caps the number of job records held in memory.
	defaultRetention = 1000

	// Listing page caps.
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	// ErrJobNotFound indicates an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoAlgorithms indicates a submission with an empty algorithm
	// selection.
	ErrNoAlgorithms = errors.New("no algorithms requested")

	// ErrQueueFull indicates the submission backlog is saturated.
	ErrQueueFull = errors.New("job queue is full")
)

// -----------------------------------------------------------------------------
// Job model
// -----------------------------------------------------------------------------

// Status is a job lifecycle state. Jobs move queued -> processing ->
// completed|failed; terminal states are immutable.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one evaluation request and its accumulated results.
type Job struct {
	ID         string                 `json:"job_id"`
	Status     Status                 `json:"status"`
	Pipeline   dual.Pipeline          `json:"pipeline"`
	Algorithms []algorithms.Algorithm `json:"algorithms"`

	// Results is keyed by algorithm name, populated as the worker
	// finishes each one.
	Results map[string]*dual.DualResult `json:"results,omitempty"`

	// Error holds the failure cause for failed jobs.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Scratch locations of the persisted input blobs.
	RefPath string `json:"-"`
	HypPath string `json:"-"`
}

// clone returns a copy safe to hand outside the store's lock. Result
// values are shared; they are never mutated after being recorded.
func (j *Job) clone() *Job {
	out := *j
	out.Algorithms = append([]algorithms.Algorithm(nil), j.Algorithms...)
	if j.Results != nil {
		out.Results = make(map[string]*dual.DualResult, len(j.Results))
		for k, v := range j.Results {
			out.Results[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager validates submissions, persists input blobs to the scratch
// directory, and tracks job records under a single lock. The queue is a
// buffered channel consumed by the worker pool.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string

	queue      chan string
	scratchDir string
	retention  int
	onEvict    func(jobID string)
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetention caps the number of retained job records.
func WithRetention(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.retention = n
		}
	}
}

// WithEvictionHook registers a callback invoked with the id of every
// evicted job, after its record is gone.
func WithEvictionHook(fn func(jobID string)) ManagerOption {
	return func(m *Manager) { m.onEvict = fn }
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager persisting blobs under scratchDir.
func NewManager(scratchDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		jobs:       make(map[string]*Job),
		queue:      make(chan string, queueDepth),
		scratchDir: scratchDir,
		retention:  defaultRetention,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates the request, persists both blobs, and enqueues a new
// job.
//
// Description: Each blob is checked for extension, size, encoding, and
// version header before anything is written. The algorithm list accepts
// the scorer names plus "all", which expands to every scorer; duplicates
// collapse. An empty pipeline selects the dual pipeline.
//
// Inputs:
//   - refName, hypName: client-supplied filenames, used for extension checks.
//   - refBytes, hypBytes: raw annotation blobs.
//   - algoNames: requested algorithms.
//   - pipelineName: requested pipeline, may be empty.
//
// Outputs:
//   - *Job: snapshot of the queued job.
//   - error: validation failure, persistence failure, or ErrQueueFull.
func (m *Manager) Submit(refName, hypName string, refBytes, hypBytes []byte, algoNames []string, pipelineName string) (*Job, error) {
	if err := validation.CheckBlob(refName, refBytes); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if err := validation.CheckBlob(hypName, hypBytes); err != nil {
		return nil, fmt.Errorf("hypothesis: %w", err)
	}

	pipeline, err := dual.ParsePipeline(pipelineName)
	if err != nil {
		return nil, err
	}
	algos, err := expandAlgorithms(algoNames)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	refPath := filepath.Join(m.scratchDir, id+"_ref.csv_bi")
	hypPath := filepath.Join(m.scratchDir, id+"_hyp.csv_bi")
	if err := os.WriteFile(refPath, refBytes, 0o600); err != nil {
		return nil, fmt.Errorf("persist reference blob: %w", err)
	}
	if err := os.WriteFile(hypPath, hypBytes, 0o600); err != nil {
		os.Remove(refPath)
		return nil, fmt.Errorf("persist hypothesis blob: %w", err)
	}

	job := &Job{
		ID:         id,
		Status:     StatusQueued,
		Pipeline:   pipeline,
		Algorithms: algos,
		CreatedAt:  time.Now().UTC(),
		RefPath:    refPath,
		HypPath:    hypPath,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.order = append(m.order, id)
	evicted := m.evictLocked()
	snapshot := job.clone()
	m.mu.Unlock()

	m.notifyEvicted(evicted)

	select {
	case m.queue <- id:
	default:
		m.removeJob(id)
		return nil, ErrQueueFull
	}

	m.logger.Info("job queued",
		"job_id", id, "pipeline", string(pipeline), "algorithms", len(algos))
	return snapshot, nil
}

// Get returns a snapshot of the job, or ErrJobNotFound.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job.clone(), nil
}

// List returns a page of jobs, newest first, optionally filtered by
// status. The second return is the total number of matching jobs before
// pagination. limit is clamped to [1, 200]; zero selects the default of
// 50.
func (m *Manager) List(limit, offset int, status Status) ([]*Job, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*Job, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		job := m.jobs[m.order[i]]
		if status != "" && job.Status != status {
			continue
		}
		matched = append(matched, job)
	}

	total := len(matched)
	if offset >= total {
		return []*Job{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]*Job, 0, end-offset)
	for _, job := range matched[offset:end] {
		page = append(page, job.clone())
	}
	return page, total
}

// Queue exposes the dequeue side to the worker pool.
func (m *Manager) Queue() <-chan string {
	return m.queue
}

// -----------------------------------------------------------------------------
// Worker-side mutation
// -----------------------------------------------------------------------------

// markProcessing transitions a queued job to processing and returns a
// snapshot. Jobs already terminal (or evicted) return an error and are
// not touched.
func (m *Manager) markProcessing(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("job %s is already %s", id, job.Status)
	}
	now := time.Now().UTC()
	job.Status = StatusProcessing
	job.StartedAt = &now
	return job.clone(), nil
}

// addResult records one algorithm's result on the job.
func (m *Manager) addResult(id string, algo algorithms.Algorithm, result *dual.DualResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	if job.Results == nil {
		job.Results = make(map[string]*dual.DualResult, len(job.Algorithms))
	}
	job.Results[string(algo)] = result
}

// complete transitions the job to its terminal state. An empty errMsg
// means completed; anything else means failed with that cause. Terminal
// jobs are left untouched.
func (m *Manager) complete(id string, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	job.CompletedAt = &now
	if errMsg == "" {
		job.Status = StatusCompleted
	} else {
		job.Status = StatusFailed
		job.Error = errMsg
	}
}

// -----------------------------------------------------------------------------
// Retention
// -----------------------------------------------------------------------------

// evictLocked drops the oldest terminal jobs while the store exceeds its
// retention cap. Active jobs are never evicted. Caller holds m.mu.
func (m *Manager) evictLocked() []string {
	if len(m.order) <= m.retention {
		return nil
	}
	var evicted []string
	kept := m.order[:0]
	excess := len(m.order) - m.retention
	for _, id := range m.order {
		job := m.jobs[id]
		if excess > 0 && job.Status.Terminal() {
			delete(m.jobs, id)
			evicted = append(evicted, id)
			excess--
			m.removeBlobs(job)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return evicted
}

// removeJob drops a job record outright. Used when enqueueing fails
// after the record was created.
func (m *Manager) removeJob(id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if ok {
		delete(m.jobs, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		m.removeBlobs(job)
	}
	m.mu.Unlock()
	if ok {
		m.notifyEvicted([]string{id})
	}
}

func (m *Manager) removeBlobs(job *Job) {
	for _, path := range []string{job.RefPath, job.HypPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Debug("scratch blob cleanup failed", "path", path, "error", err)
		}
	}
}

func (m *Manager) notifyEvicted(ids []string) {
	if m.onEvict == nil {
		return
	}
	for _, id := range ids {
		m.onEvict(id)
	}
}

// expandAlgorithms resolves the requested names to a deduplicated
// algorithm list, expanding "all".
func expandAlgorithms(names []string) ([]algorithms.Algorithm, error) {
	if len(names) == 0 {
		return nil, ErrNoAlgorithms
	}
	seen := make(map[algorithms.Algorithm]bool, len(names))
	var out []algorithms.Algorithm
	for _, name := range names {
		if name == AlgorithmAll {
			for _, algo := range algorithms.All() {
				if !seen[algo] {
					seen[algo] = true
					out = append(out, algo)
				}
			}
			continue
		}
		algo, err := algorithms.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		if !seen[algo] {
			seen[algo] = true
			out = append(out, algo)
		}
	}
	return out, nil
}
