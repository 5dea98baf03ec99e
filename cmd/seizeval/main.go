// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command seizeval is the seizure-detection scoring toolkit.
//
// It offers three modes:
//
//	seizeval serve                      start the evaluation gateway
//	seizeval score --ref R --hyp H      score one file pair locally
//	seizeval compare --ref R --hyp H    dual-pipeline run against the oracle
//
// # Environment Variables
//
//   - GATEWAY_PORT: HTTP server port (default: 8080)
//   - MAX_WORKERS: evaluation worker pool size (default: 4)
//   - PARALLEL_WORKERS: list-mode batch parallelism (default: 4)
//   - CACHE_TTL_SECONDS: result cache lifetime (default: 86400)
//   - REDIS_URL: Redis cache endpoint (embedded cache when unset)
//   - ORACLE_URL: reference implementation endpoint
//   - SCORING_PARAMS_FILE: scoring parameter YAML
//   - OTEL_EXPORTER_OTLP_ENDPOINT: trace collector (tracing off when unset)
package main

import (
	"log/slog"
	"os"

	"github.com/seizeval/seizeval/pkg/logging"
)

func main() {
	logLevel := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger, err := logging.New(logging.Config{Level: logLevel, Service: "seizeval"})
	if err != nil {
		slog.Error("logger initialisation failed", "error", err)
		os.Exit(1)
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
