// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore backs the result cache with an embedded BadgerDB. Used
// when no REDIS_URL is configured; single-node deployments get result
// caching with no external dependency.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a persistent store at path. An empty path opens
// an in-memory database (tests, ephemeral deployments).
func NewBadgerStore(path string, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl, logger: logger}, nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool) {
	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Debug("cache get failed; treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return payload, true
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, key string, payload []byte) {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		s.logger.Debug("cache set failed; dropping write", "key", key, "error", err)
	}
}

// Ping implements Store. Badger is in-process, so reachability reduces
// to "not closed".
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger cache is closed")
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// NoopStore satisfies Store while caching nothing. Used when caching is
// disabled outright.
type NoopStore struct{}

var _ Store = (*NoopStore)(nil)

// NewNoopStore creates a NoopStore.
func NewNoopStore() *NoopStore { return &NoopStore{} }

// Get implements Store; always a miss.
func (*NoopStore) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Set implements Store; drops the write.
func (*NoopStore) Set(context.Context, string, []byte) {}

// Ping implements Store; always healthy.
func (*NoopStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (*NoopStore) Close() error { return nil }
