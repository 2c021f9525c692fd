// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache stores per-file analysis output keyed by file path,
// content hash and rule-set version.
//
// # Tiers
//
// Memory is an LRU in RAM. Badger persists entries across runs. Tiered
// puts Memory in front of an optional Badger and deduplicates concurrent
// misses for the same key.
//
// # Invalidation
//
// Entries are never updated in place. A changed file has a new content
// hash and a changed rule set has a new version, so stale entries are
// simply never looked up again and age out of the LRU.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"

	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cache is closed")

// Key identifies one cached analysis.
type Key struct {
	Path           string
	ContentHash    string
	RuleSetVersion string
}

// String returns a fixed-length digest of the key.
func (k Key) String() string {
	h := sha256.New()
	h.Write([]byte(k.Path))
	h.Write([]byte{0})
	h.Write([]byte(k.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(k.RuleSetVersion))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Entry is the cached output for one file.
type Entry struct {
	Results     []rules.Result           `json:"results"`
	Predictions []predict.PredictedError `json:"predictions,omitempty"`

	// Imports are the file's package imports, kept so dependency
	// analysis does not need to re-read cached files.
	Imports []deps.ImportUse `json:"imports,omitempty"`

	// ComputedAtMilli is when the entry was produced.
	ComputedAtMilli int64 `json:"computed_at_milli"`
}

// clone returns an Entry whose slices are not shared with e.
func (e Entry) clone() Entry {
	return Entry{
		Results:         slices.Clone(e.Results),
		Predictions:     slices.Clone(e.Predictions),
		Imports:         slices.Clone(e.Imports),
		ComputedAtMilli: e.ComputedAtMilli,
	}
}

// Store is one cache tier.
//
// Thread Safety: Implementations are safe for concurrent use.
type Store interface {
	// Get returns the entry for key and whether it was present.
	Get(ctx context.Context, key Key) (Entry, bool)

	// Put stores an entry, replacing any previous value.
	Put(ctx context.Context, key Key, entry Entry) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Stats returns counters since creation.
	Stats() Stats
}

// Stats contains statistics about a store.
type Stats struct {
	// Entries is the number of entries currently held, -1 if unknown.
	Entries int

	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns the hit percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
