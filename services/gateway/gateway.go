// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway assembles the evaluation service: HTTP routing, the
// async job core, the result cache, progress broadcasting, metrics,
// and tracing.
//
// Component wiring:
//
//	Request
//	   │
//	   ▼
//	handlers ──► jobs.Manager ──► queue ──► jobs.Pool
//	                                           │
//	                                           ├─► dual.Orchestrator (per-job params snapshot)
//	                                           ├─► cache.Store (Redis or Badger)
//	                                           ├─► progress.Hub ──► WebSocket clients
//	                                           └─► observability.Sink (Prometheus)
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/seizeval/seizeval/services/gateway/cache"
	"github.com/seizeval/seizeval/services/gateway/config"
	"github.com/seizeval/seizeval/services/gateway/handlers"
	"github.com/seizeval/seizeval/services/gateway/jobs"
	"github.com/seizeval/seizeval/services/gateway/observability"
	"github.com/seizeval/seizeval/services/gateway/progress"
	"github.com/seizeval/seizeval/services/gateway/ratelimit"
	"github.com/seizeval/seizeval/services/gateway/routes"
	"github.com/seizeval/seizeval/services/scoring/algorithms"
	"github.com/seizeval/seizeval/services/scoring/dual"
)

// shutdownGrace bounds how long in-flight HTTP requests may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

// Service is the gateway lifecycle contract.
//
// Thread Safety: Run blocks and must be called at most once.
type Service interface {
	// Run starts the HTTP server and blocks until a termination signal
	// or a fatal server error.
	Run() error

	// Router exposes the configured engine for integration tests.
	Router() *gin.Engine
}

type service struct {
	cfg    *config.Config
	logger *slog.Logger

	router   *gin.Engine
	manager  *jobs.Manager
	pool     *jobs.Pool
	store    cache.Store
	hub      *progress.Hub
	params   *config.ParamsStore
	registry *prometheus.Registry

	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// New wires the gateway from cfg.
//
// Description: Builds the full dependency graph: Prometheus registry and
// sink, cache backend (Redis when REDIS_URL is set, embedded Badger
// otherwise), the hot-reloading scoring parameter store, the dual
// orchestrator with an optional oracle, job manager and worker pool,
// and the HTTP router. Tracing is enabled only when an OTLP endpoint is
// configured.
//
// Inputs:
//   - cfg: Validated gateway configuration. Must not be nil.
//
// Outputs:
//   - Service: Ready-to-run gateway.
//   - error: Cache, oracle, or tracer initialisation failure.
func New(cfg *config.Config) (Service, error) {
	s := &service{
		cfg:    cfg,
		logger: slog.Default(),
	}

	if cfg.OTelEndpoint != "" {
		cleanup, err := initTracer(cfg.OTelEndpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	} else {
		s.logger.Info("no OTLP endpoint configured; tracing disabled")
	}

	s.registry = prometheus.NewRegistry()
	sink, err := observability.NewPrometheusSink(s.registry)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	if err := s.initCache(); err != nil {
		return nil, err
	}

	s.params = config.NewParamsStore(cfg.ParamsFile, cfg.Scoring, s.logger)
	s.hub = progress.NewHub(s.logger)

	evaluator, err := s.buildEvaluator()
	if err != nil {
		return nil, err
	}

	s.manager = jobs.NewManager(cfg.ScratchDir,
		jobs.WithEvictionHook(s.hub.Forget),
		jobs.WithManagerLogger(s.logger),
	)
	s.pool = jobs.NewPool(s.manager, evaluator,
		jobs.WithWorkers(cfg.MaxWorkers),
		jobs.WithCache(s.store),
		jobs.WithHub(s.hub),
		jobs.WithSink(sink),
		jobs.WithPoolLogger(s.logger),
	)

	s.initRouter()
	return s, nil
}

// Run starts the workers, the parameter watcher, and the HTTP server,
// then blocks until SIGINT or SIGTERM. Shutdown stops intake first,
// drains the worker pool, and closes the cache backend.
func (s *service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.pool.Start(ctx)
	go func() {
		if err := s.params.Watch(ctx); err != nil {
			s.logger.Warn("scoring params watcher exited", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "port", s.cfg.Port, "workers", s.cfg.MaxWorkers)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		s.shutdown(srv)
		return err
	case <-ctx.Done():
		s.logger.Info("termination signal received; shutting down")
		s.shutdown(srv)
		return nil
	}
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// shutdown stops HTTP intake, waits for the worker pool to drain, and
// releases backend resources.
func (s *service) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown error", "error", err)
	}

	s.pool.Stop()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("cache close error", "error", err)
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
	s.logger.Info("gateway stopped")
}

// initCache selects the cache backend. Redis when configured; otherwise
// an embedded Badger store under the scratch directory.
func (s *service) initCache() error {
	if s.cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(s.cfg.RedisURL, s.cfg.CacheTTL, s.logger)
		if err != nil {
			return fmt.Errorf("initialize redis cache: %w", err)
		}
		s.logger.Info("result cache backend: redis")
		s.store = store
		return nil
	}

	store, err := cache.NewBadgerStore(filepath.Join(s.cfg.ScratchDir, "seizeval-cache"),
		s.cfg.CacheTTL, s.logger)
	if err != nil {
		return fmt.Errorf("initialize embedded cache: %w", err)
	}
	s.logger.Info("result cache backend: badger", "dir", s.cfg.ScratchDir)
	s.store = store
	return nil
}

// buildEvaluator wires the dual orchestrator behind a parameter
// snapshot, so reloaded scoring params apply to jobs submitted after
// the reload without touching in-flight work.
func (s *service) buildEvaluator() (jobs.Evaluator, error) {
	var oracle dual.ReferenceRunner
	if s.cfg.OracleURL != "" {
		o, err := dual.NewHTTPOracle(s.cfg.OracleURL)
		if err != nil {
			return nil, fmt.Errorf("initialize oracle client: %w", err)
		}
		oracle = o
		s.logger.Info("reference oracle configured", "url", s.cfg.OracleURL)
	}
	return &snapshotEvaluator{
		params: s.params,
		oracle: oracle,
		logger: s.logger,
	}, nil
}

// initRouter builds the engine with recovery, tracing middleware when
// enabled, and the route table.
func (s *service) initRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	if s.tracerCleanup != nil {
		s.router.Use(otelgin.Middleware("seizeval-gateway"))
	}

	h := handlers.New(s.manager, s.pool, s.store, s.hub, s.logger)
	limiter := ratelimit.NewLimiter(s.cfg.RequestsPerMinute)
	routes.SetupRoutes(s.router, h, limiter, s.registry)
}

// snapshotEvaluator builds a fresh orchestrator per evaluation from the
// current parameter snapshot.
type snapshotEvaluator struct {
	params *config.ParamsStore
	oracle dual.ReferenceRunner
	logger *slog.Logger
}

var _ jobs.Evaluator = (*snapshotEvaluator)(nil)

// Run implements jobs.Evaluator.
func (e *snapshotEvaluator) Run(ctx context.Context, algo algorithms.Algorithm, pipeline dual.Pipeline, refBytes, hypBytes []byte) (*dual.DualResult, error) {
	opts := []dual.Option{dual.WithLogger(e.logger)}
	if e.oracle != nil {
		opts = append(opts, dual.WithOracle(e.oracle))
	}
	orch := dual.NewOrchestrator(e.params.Snapshot(), opts...)
	return orch.Run(ctx, algo, pipeline, refBytes, hypBytes)
}

// initTracer sets up the OTLP trace exporter and global propagators.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("seizeval-gateway")))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return cleanup, nil
}
