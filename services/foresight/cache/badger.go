// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/foresight/services/foresight/storage"
)

// keyPrefix namespaces cache entries in the database. Bump the version
// segment when Entry's encoding changes.
var keyPrefix = []byte("foresight/file/v1/")

// Badger is a persistent tier on a storage.DB.
//
// Description:
//
//	Entries are JSON-encoded under keyPrefix and expire after the
//	configured TTL. Read and decode failures count as misses and are
//	logged; the cache never fails an analysis.
//
// Thread Safety: Safe for concurrent use.
type Badger struct {
	db     *storage.DB
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// BadgerOption configures a Badger tier.
type BadgerOption func(*Badger)

// WithTTL sets how long persisted entries live. Zero keeps them forever.
func WithTTL(ttl time.Duration) BadgerOption {
	return func(b *Badger) { b.ttl = ttl }
}

// WithBadgerLogger sets the logger for read and decode failures.
func WithBadgerLogger(logger *slog.Logger) BadgerOption {
	return func(b *Badger) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBadger wraps db. The caller keeps ownership of db.
func NewBadger(db *storage.DB, opts ...BadgerOption) *Badger {
	b := &Badger{
		db:     db,
		ttl:    7 * 24 * time.Hour,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func badgerKey(key Key) []byte {
	return append(append([]byte(nil), keyPrefix...), key.String()...)
}

// Get reads and decodes the entry for key.
func (b *Badger) Get(ctx context.Context, key Key) (Entry, bool) {
	var entry Entry
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) && ctx.Err() == nil {
			b.logger.Warn("persistent cache read failed",
				slog.String("path", key.Path),
				slog.String("error", err.Error()))
		}
		b.misses.Add(1)
		recordLookup(ctx, tierBadger, false)
		return Entry{}, false
	}
	b.hits.Add(1)
	recordLookup(ctx, tierBadger, true)
	return entry, true
}

// Put encodes and writes entry.
func (b *Badger) Put(ctx context.Context, key Key, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		e := badger.NewEntry(badgerKey(key), data)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Clear drops every cache entry.
func (b *Badger) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropPrefix(keyPrefix); err != nil {
		return fmt.Errorf("clear persistent cache: %w", err)
	}
	return nil
}

// Stats returns lookup counters. Entries is not tracked.
func (b *Badger) Stats() Stats {
	return Stats{
		Entries: -1,
		Hits:    b.hits.Load(),
		Misses:  b.misses.Load(),
	}
}
