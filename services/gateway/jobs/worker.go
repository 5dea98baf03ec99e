// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seizeval/seizeval/services/gateway/cache"
	"github.com/seizeval/seizeval/services/gateway/observability"
	"github.com/seizeval/seizeval/services/gateway/progress"
	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/dual"
)

// defaultPollInterval bounds how long a worker waits on an empty queue
// before re-checking for cancellation.
const defaultPollInterval = 500 * time.Millisecond

// Evaluator runs one algorithm through the selected pipeline. Satisfied
// by dual.Orchestrator.
type Evaluator interface {
	Run(ctx context.Context, algo algorithms.Algorithm, pipeline dual.Pipeline, refBytes, hypBytes []byte) (*dual.DualResult, error)
}

var _ Evaluator = (*dual.Orchestrator)(nil)

// Pool is the evaluation worker pool. Each worker dequeues one job at a
// time, runs its algorithms in order, and publishes progress events at
// every boundary.
//
// Thread Safety: Safe for concurrent use. Start once; Stop waits for
// in-flight jobs to drain.
type Pool struct {
	manager   *Manager
	evaluator Evaluator
	store     cache.Store
	hub       *progress.Hub
	sink      observability.Sink
	workers   int
	poll      time.Duration
	logger    *slog.Logger

	running atomic.Int32
	wg      sync.WaitGroup
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithCache attaches the result cache.
func WithCache(store cache.Store) PoolOption {
	return func(p *Pool) {
		if store != nil {
			p.store = store
		}
	}
}

// WithHub attaches the progress broadcast hub.
func WithHub(hub *progress.Hub) PoolOption {
	return func(p *Pool) {
		if hub != nil {
			p.hub = hub
		}
	}
}

// WithSink attaches the metrics sink.
func WithSink(sink observability.Sink) PoolOption {
	return func(p *Pool) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithWorkers sets the pool size (MAX_WORKERS). Values below 1 clamp
// to 1.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithPollInterval overrides the empty-queue poll interval. Tests use
// this to tighten the shutdown latency.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithPoolLogger overrides the logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a Pool draining manager's queue through evaluator.
func NewPool(manager *Manager, evaluator Evaluator, opts ...PoolOption) *Pool {
	p := &Pool{
		manager:   manager,
		evaluator: evaluator,
		store:     cache.NewNoopStore(),
		hub:       progress.NewHub(nil),
		sink:      &observability.NoOpSink{},
		workers:   1,
		poll:      defaultPollInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They exit when ctx is cancelled, after
// finishing any job already in flight.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Stop blocks until every worker has exited.
func (p *Pool) Stop() {
	p.wg.Wait()
}

// Running reports whether at least one worker is alive. Feeds the
// readiness probe.
func (p *Pool) Running() bool {
	return p.running.Load() > 0
}

// Hub exposes the progress hub the pool publishes to.
func (p *Pool) Hub() *progress.Hub {
	return p.hub
}

// loop is one worker: bounded-wait dequeue, cancellation check, process.
func (p *Pool) loop(ctx context.Context, worker int) {
	defer p.wg.Done()
	p.running.Add(1)
	defer p.running.Add(-1)

	timer := time.NewTimer(p.poll)
	defer timer.Stop()

	for {
		timer.Reset(p.poll)
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping", "worker", worker)
			return
		case id := <-p.manager.Queue():
			p.process(ctx, id)
		case <-timer.C:
		}
	}
}

// process runs every algorithm of one job. The first algorithm error
// fails the job; remaining algorithms are not attempted. Parity
// failures are recorded, not fatal.
func (p *Pool) process(ctx context.Context, id string) {
	job, err := p.manager.markProcessing(id)
	if err != nil {
		p.logger.Warn("dequeued job is not runnable", "job_id", id, "error", err)
		return
	}
	p.hub.Publish(progress.Event{
		Type: progress.EventStatus, JobID: id, Status: string(StatusProcessing),
	})

	refBytes, err := os.ReadFile(job.RefPath)
	if err == nil {
		var hypErr error
		var hypBytes []byte
		hypBytes, hypErr = os.ReadFile(job.HypPath)
		if hypErr != nil {
			err = hypErr
		} else {
			err = p.runAlgorithms(ctx, job, refBytes, hypBytes)
		}
	}

	if err != nil {
		p.fail(id, err)
		return
	}
	p.manager.complete(id, "")
	p.hub.Publish(progress.Event{
		Type: progress.EventStatus, JobID: id, Status: string(StatusCompleted),
	})
	p.logger.Info("job completed", "job_id", id)
}

func (p *Pool) runAlgorithms(ctx context.Context, job *Job, refBytes, hypBytes []byte) error {
	for _, algo := range job.Algorithms {
		p.hub.Publish(progress.Event{
			Type: progress.EventAlgorithm, JobID: job.ID,
			Algorithm: string(algo), Stage: progress.StageStarted,
		})
		p.sink.EvaluationStarted()
		start := time.Now()

		result, payload, err := p.evaluate(ctx, job, algo, refBytes, hypBytes)
		if err != nil {
			p.sink.EvaluationCompleted(string(algo), string(job.Pipeline), time.Since(start), false)
			return err
		}
		if !result.ParityPassed() {
			p.sink.ParityFailure(string(algo))
		}

		p.manager.addResult(job.ID, algo, result)
		p.hub.Publish(progress.Event{
			Type: progress.EventAlgorithm, JobID: job.ID,
			Algorithm: string(algo), Stage: progress.StageCompleted,
			Result: payload,
		})
		p.sink.EvaluationCompleted(string(algo), string(job.Pipeline), time.Since(start), true)
	}
	return nil
}

// evaluate returns the result for one algorithm, from the cache when
// possible. Only pipelines that run the new implementation are
// cacheable; reference-only runs may carry oracle side effects.
func (p *Pool) evaluate(ctx context.Context, job *Job, algo algorithms.Algorithm, refBytes, hypBytes []byte) (*dual.DualResult, json.RawMessage, error) {
	var key string
	if job.Pipeline.IncludesNew() {
		key = cache.Key(refBytes, hypBytes, string(algo), string(job.Pipeline))
		if payload, ok := p.store.Get(ctx, key); ok {
			var cached dual.DualResult
			if err := json.Unmarshal(payload, &cached); err == nil {
				p.logger.Debug("cache hit", "job_id", job.ID, "algorithm", string(algo))
				return &cached, payload, nil
			}
			p.logger.Debug("cache payload undecodable; recomputing",
				"job_id", job.ID, "algorithm", string(algo))
		}
	}

	result, err := p.evaluator.Run(ctx, algo, job.Pipeline, refBytes, hypBytes)
	if err != nil {
		return nil, nil, err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, nil, err
	}
	if key != "" {
		p.store.Set(ctx, key, payload)
	}
	return result, payload, nil
}

func (p *Pool) fail(id string, cause error) {
	p.logger.Error("job failed", "job_id", id, "error", cause)
	p.manager.complete(id, cause.Error())
	p.hub.Publish(progress.Event{
		Type: progress.EventError, JobID: id,
		Status: string(StatusFailed), Error: cause.Error(),
	})
}
