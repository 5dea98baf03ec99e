// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides the content-addressed result cache.
//
// Completed evaluation results are stored under a hash of the input
// blobs and scoring coordinates. All cache traffic is best-effort: a
// backend failure is logged at debug and treated as a miss on reads and
// a no-op on writes. Cache errors never reach the evaluation path.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

const (
	// keyPrefix namespaces cache entries so a shared Redis can host other
	// tenants.
	keyPrefix = "seizeval:result:"

	// SchemaVersion is baked into every key; bumping it invalidates all
	// cached results after a result-shape change.
	SchemaVersion = "v1"
)

// keySeparator delimits the hashed fields so that field boundaries
// cannot be forged by crafted blob contents at the concatenation seams.
var keySeparator = []byte("|")

// Key derives the cache key for one evaluation.
//
// The key is sha256 over (ref_bytes | hyp_bytes | algorithm | pipeline |
// version), hex encoded under a fixed prefix. Identical inputs always
// map to the same key; any change to blobs, algorithm, pipeline, or
// schema version changes it.
func Key(refBytes, hypBytes []byte, algorithm, pipeline string) string {
	h := sha256.New()
	h.Write(refBytes)
	h.Write(keySeparator)
	h.Write(hypBytes)
	h.Write(keySeparator)
	h.Write([]byte(algorithm))
	h.Write(keySeparator)
	h.Write([]byte(pipeline))
	h.Write(keySeparator)
	h.Write([]byte(SchemaVersion))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Store is the cache backend contract.
//
// Implementations are best-effort: Get reports a miss on backend
// failure, Set silently drops the write. Only Ping surfaces backend
// health, for the readiness probe.
//
// Thread Safety: All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached payload and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores payload under key with the backend's configured TTL.
	Set(ctx context.Context, key string, payload []byte)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
