// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.MaxWorkers)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", cfg.CacheTTL)
	}
	if cfg.Scoring.EpochDuration != 1.0 {
		t.Errorf("Scoring.EpochDuration = %v, want 1.0", cfg.Scoring.EpochDuration)
	}
	if cfg.Scoring.NullClass != "bckg" {
		t.Errorf("Scoring.NullClass = %q, want bckg", cfg.Scoring.NullClass)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "9999")
	t.Setenv("MAX_WORKERS", "12")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 || cfg.MaxWorkers != 12 {
		t.Errorf("Port/MaxWorkers = %d/%d, want 9999/12", cfg.Port, cfg.MaxWorkers)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", cfg.CacheTTL)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
}

func TestLoad_BadEnvFallsBack(t *testing.T) {
	t.Setenv("MAX_WORKERS", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want default 4 on unparseable value", cfg.MaxWorkers)
	}
}

const paramsYAML = `scoring:
  epoch_duration: 0.25
  null_class: background
  positive_label: seiz
  guard_width: 0.001
  label_map:
    sz: seiz
    bg: background
  penalty_ins: 1.0
  penalty_del: 1.0
  penalty_sub: 1.0
`

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte(paramsYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	scoring, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if scoring.EpochDuration != 0.25 {
		t.Errorf("EpochDuration = %v, want 0.25", scoring.EpochDuration)
	}
	if scoring.NullClass != "background" {
		t.Errorf("NullClass = %q, want background", scoring.NullClass)
	}
	if scoring.LabelMap["sz"] != "seiz" {
		t.Errorf("LabelMap = %v", scoring.LabelMap)
	}
}

func TestLoadParams_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  epoch_duration: 2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	scoring, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if scoring.EpochDuration != 2.0 {
		t.Errorf("EpochDuration = %v, want 2.0", scoring.EpochDuration)
	}
	if scoring.PositiveLabel != "seiz" || scoring.NullClass != "bckg" {
		t.Errorf("unset fields must keep defaults: %+v", scoring)
	}
}

func TestLoadParams_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  epoch_duration: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadParams(path); err == nil {
		t.Error("expected validation error for negative epoch_duration")
	}
}

func TestLoadParams_MissingFile(t *testing.T) {
	if _, err := LoadParams(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParamsStore_Snapshot(t *testing.T) {
	initial, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	store := NewParamsStore("", initial.Scoring, nil)

	snap := store.Snapshot()
	if snap.EpochDuration != initial.Scoring.EpochDuration {
		t.Errorf("Snapshot = %+v, want seed config", snap)
	}

	// Snapshots are copies; mutating one must not leak into the store.
	snap.EpochDuration = 99
	if store.Snapshot().EpochDuration == 99 {
		t.Error("snapshot mutation leaked into the store")
	}
}
