// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes the gateway's evaluation metrics.
//
// # Description
//
// Prometheus metrics for the scoring gateway:
//   - evaluations_total (by algorithm, pipeline, status)
//   - evaluation_duration_seconds (by algorithm, pipeline)
//   - parity_failures_total (by algorithm)
//   - active_evaluations gauge
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "seizeval"
	gatewaySubsystem = "gateway"
)

// ErrRegistrationFailed is returned when metric registration fails.
var ErrRegistrationFailed = errors.New("metric registration failed")

// -----------------------------------------------------------------------------
// Sink interface
// -----------------------------------------------------------------------------

// Sink records evaluation telemetry. Implementations must be safe for
// concurrent use.
type Sink interface {
	// EvaluationStarted marks one evaluation in flight.
	EvaluationStarted()

	// EvaluationCompleted records a finished evaluation and releases the
	// in-flight slot.
	//
	// Inputs:
	//   - algorithm, pipeline: Metric labels.
	//   - duration: Wall time of the evaluation.
	//   - success: Whether the evaluation completed without error.
	EvaluationCompleted(algorithm, pipeline string, duration time.Duration, success bool)

	// ParityFailure records one parity mismatch for the algorithm.
	ParityFailure(algorithm string)
}

// -----------------------------------------------------------------------------
// Prometheus sink
// -----------------------------------------------------------------------------

// PrometheusSink exports evaluation telemetry as Prometheus metrics.
type PrometheusSink struct {
	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  *prometheus.HistogramVec
	parityFailuresTotal *prometheus.CounterVec
	activeEvaluations   prometheus.Gauge
}

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates and registers the gateway metrics. A nil
// registry uses prometheus.DefaultRegisterer.
//
// Outputs:
//   - *PrometheusSink: Never nil on success.
//   - error: ErrRegistrationFailed on a registration conflict that is not
//     a duplicate of an identical collector.
func NewPrometheusSink(registry prometheus.Registerer) (*PrometheusSink, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	s := &PrometheusSink{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "evaluations_total",
				Help:      "Total evaluations by algorithm, pipeline, and status",
			},
			[]string{"algorithm", "pipeline", "status"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Evaluation wall time in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"algorithm", "pipeline"},
		),
		parityFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "parity_failures_total",
				Help:      "Total parity mismatches between implementations",
			},
			[]string{"algorithm"},
		),
		activeEvaluations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "active_evaluations",
				Help:      "Evaluations currently in flight",
			},
		),
	}

	collectors := []prometheus.Collector{
		s.evaluationsTotal,
		s.evaluationDuration,
		s.parityFailuresTotal,
		s.activeEvaluations,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
		}
	}
	return s, nil
}

// EvaluationStarted implements Sink.
func (s *PrometheusSink) EvaluationStarted() {
	s.activeEvaluations.Inc()
}

// EvaluationCompleted implements Sink.
func (s *PrometheusSink) EvaluationCompleted(algorithm, pipeline string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	s.evaluationsTotal.WithLabelValues(algorithm, pipeline, status).Inc()
	s.evaluationDuration.WithLabelValues(algorithm, pipeline).Observe(duration.Seconds())
	s.activeEvaluations.Dec()
}

// ParityFailure implements Sink.
func (s *PrometheusSink) ParityFailure(algorithm string) {
	s.parityFailuresTotal.WithLabelValues(algorithm).Inc()
}

// -----------------------------------------------------------------------------
// No-op sink
// -----------------------------------------------------------------------------

// NoOpSink discards all telemetry. Useful in tests and as the default
// when no registry is wired.
type NoOpSink struct{}

var _ Sink = (*NoOpSink)(nil)

// NewNoOpSink creates a NoOpSink.
func NewNoOpSink() *NoOpSink { return &NoOpSink{} }

// EvaluationStarted implements Sink.
func (*NoOpSink) EvaluationStarted() {}

// EvaluationCompleted implements Sink.
func (*NoOpSink) EvaluationCompleted(string, string, time.Duration, bool) {}

// ParityFailure implements Sink.
func (*NoOpSink) ParityFailure(string) {}
