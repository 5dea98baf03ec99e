// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the gateway's runtime configuration from the
// environment and the NEDC-style scoring parameter file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

// Config is the gateway's runtime configuration.
//
// Environment variables override the zero defaults; the scoring block
// comes from the YAML parameter file when one is configured.
type Config struct {
	// Port is the HTTP listen port.
	Port int `validate:"gt=0,lte=65535"`

	// MaxWorkers sizes the job worker pool.
	MaxWorkers int `validate:"gte=1"`

	// ParallelWorkers bounds list-mode batch parallelism.
	ParallelWorkers int `validate:"gte=1"`

	// CacheTTL is the result cache lifetime.
	CacheTTL time.Duration `validate:"gt=0"`

	// RedisURL selects the Redis cache backend when non-empty; otherwise
	// the embedded store is used.
	RedisURL string

	// ScratchDir receives uploaded annotation blobs.
	ScratchDir string `validate:"required"`

	// RequestsPerMinute is the per-client rate limit.
	RequestsPerMinute int `validate:"gte=1"`

	// OracleURL is the legacy reference implementation endpoint. Empty
	// disables the reference and dual pipelines.
	OracleURL string

	// ParamsFile is the optional NEDC-style scoring parameter file.
	ParamsFile string

	// OTelEndpoint receives traces when non-empty.
	OTelEndpoint string

	// Scoring carries the algorithm parameters.
	Scoring algorithms.Config
}

var validate = validator.New()

// Load builds a Config from the environment, then overlays the scoring
// parameter file when SCORING_PARAMS_FILE is set.
//
// Outputs:
//   - *Config: Nil on validation or file errors.
//   - error: Describes the offending field or file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvInt("GATEWAY_PORT", 8080),
		MaxWorkers:        getEnvInt("MAX_WORKERS", 4),
		ParallelWorkers:   getEnvInt("PARALLEL_WORKERS", 4),
		CacheTTL:          time.Duration(getEnvInt("CACHE_TTL_SECONDS", 86400)) * time.Second,
		RedisURL:          getEnvString("REDIS_URL", ""),
		ScratchDir:        getEnvString("SCRATCH_DIR", os.TempDir()),
		RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 60),
		OracleURL:         getEnvString("ORACLE_URL", ""),
		ParamsFile:        getEnvString("SCORING_PARAMS_FILE", ""),
		OTelEndpoint:      getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Scoring:           algorithms.DefaultConfig(),
	}

	if cfg.ParamsFile != "" {
		scoring, err := LoadParams(cfg.ParamsFile)
		if err != nil {
			return nil, err
		}
		cfg.Scoring = *scoring
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid gateway configuration: %w", err)
	}
	if err := validate.Struct(cfg.Scoring); err != nil {
		return nil, fmt.Errorf("invalid scoring parameters: %w", err)
	}
	return cfg, nil
}

// paramsFile mirrors the NEDC parameter block layout.
type paramsFile struct {
	Scoring algorithms.Config `yaml:"scoring"`
}

// LoadParams reads the scoring parameter block from a YAML file.
//
// Fields absent from the file keep their defaults; the label map merges
// over the default (empty) map.
func LoadParams(path string) (*algorithms.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring params %s: %w", path, err)
	}

	parsed := paramsFile{Scoring: algorithms.DefaultConfig()}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse scoring params %s: %w", path, err)
	}
	if err := validate.Struct(parsed.Scoring); err != nil {
		return nil, fmt.Errorf("invalid scoring params %s: %w", path, err)
	}
	return &parsed.Scoring, nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
