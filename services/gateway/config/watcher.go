// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

// ParamsStore holds the live scoring parameters and hot-reloads them
// when the parameter file changes on disk.
//
// Readers take a snapshot per evaluation; a reload never affects jobs
// already in flight.
//
// Thread Safety: Safe for concurrent use.
type ParamsStore struct {
	mu      sync.RWMutex
	current algorithms.Config

	path     string
	logger   *slog.Logger
	debounce time.Duration
}

// NewParamsStore creates a store seeded with initial. An empty path
// disables watching; the store then always returns the seed.
func NewParamsStore(path string, initial algorithms.Config, logger *slog.Logger) *ParamsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParamsStore{
		current:  initial,
		path:     path,
		logger:   logger,
		debounce: 250 * time.Millisecond,
	}
}

// Snapshot returns the current scoring parameters by value.
func (s *ParamsStore) Snapshot() algorithms.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Watch reloads the parameter file on write events until ctx is
// cancelled. Editors replace files rather than writing in place, so the
// watch is on the parent directory with a debounce window.
//
// Outputs:
//   - error: Watcher setup failure. Reload failures are logged and the
//     previous snapshot is kept.
func (s *ParamsStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("scoring params watcher error", "error", err)
		}
	}
}

func (s *ParamsStore) reload() {
	params, err := LoadParams(s.path)
	if err != nil {
		s.logger.Warn("scoring params reload failed; keeping previous parameters",
			"path", s.path, "error", err)
		return
	}
	s.mu.Lock()
	s.current = *params
	s.mu.Unlock()
	s.logger.Info("scoring params reloaded", "path", s.path)
}
