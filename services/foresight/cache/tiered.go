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
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the entry for a missed key.
type ComputeFunc func(ctx context.Context) (Entry, error)

// Tiered puts a Memory LRU in front of an optional persistent Store.
//
// Thread Safety: Safe for concurrent use. Concurrent GetOrCompute calls
// for the same key run compute once.
type Tiered struct {
	memory *Memory
	warm   Store
	flight singleflight.Group
	logger *slog.Logger
}

// TieredOption configures Tiered.
type TieredOption func(*Tiered)

// WithWarm adds a persistent tier behind memory.
func WithWarm(store Store) TieredOption {
	return func(t *Tiered) { t.warm = store }
}

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) TieredOption {
	return func(t *Tiered) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTiered creates a cache with a memory tier of memoryEntries.
func NewTiered(memoryEntries int, opts ...TieredOption) *Tiered {
	t := &Tiered{
		memory: NewMemory(memoryEntries),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get checks memory then the warm tier, promoting warm hits.
func (t *Tiered) Get(ctx context.Context, key Key) (Entry, bool) {
	if e, ok := t.memory.Get(ctx, key); ok {
		return e, true
	}
	if t.warm == nil {
		return Entry{}, false
	}
	e, ok := t.warm.Get(ctx, key)
	if !ok {
		return Entry{}, false
	}
	_ = t.memory.Put(ctx, key, e)
	return e, true
}

// Put writes to every tier. A warm-tier failure is logged, not returned.
func (t *Tiered) Put(ctx context.Context, key Key, entry Entry) error {
	_ = t.memory.Put(ctx, key, entry)
	if t.warm != nil {
		if err := t.warm.Put(ctx, key, entry); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Warn("persistent cache write failed",
				slog.String("path", key.Path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// GetOrCompute returns the cached entry for key or computes and stores it.
//
// Description:
//
//	Uses singleflight so that concurrent misses for the same key compute
//	once and share the result. Compute errors are not cached. A shared
//	compute runs on the context of the caller that started it; when that
//	caller is cancelled the others see a cancellation error they did not
//	cause, so they retry with their own context instead of returning it.
//
// Inputs:
//
//	ctx - Passed to compute and the tiers. Waiting stops when it is done.
//	key - Cache key.
//	compute - Produces the entry on a miss.
//
// Outputs:
//
//	Entry - Cached or freshly computed; callers may modify its slices.
//	bool - True when served from cache.
//	error - The compute error, or ctx.Err() when ctx ends first.
func (t *Tiered) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (Entry, bool, error) {
	if e, ok := t.Get(ctx, key); ok {
		return e, true, nil
	}

	for {
		// ran is set when this caller's compute is the one being shared.
		ran := false
		ch := t.flight.DoChan(key.String(), func() (interface{}, error) {
			ran = true
			if e, ok := t.Get(ctx, key); ok {
				return e, nil
			}
			e, err := compute(ctx)
			if err != nil {
				return Entry{}, err
			}
			if e.ComputedAtMilli == 0 {
				e.ComputedAtMilli = time.Now().UnixMilli()
			}
			_ = t.Put(ctx, key, e)
			return e, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return Entry{}, false, ctx.Err()
		case res = <-ch:
		}

		if res.Err != nil {
			if !ran && ctx.Err() == nil && isCancellation(res.Err) {
				t.logger.Debug("shared compute cancelled by another caller, retrying",
					slog.String("key", key.String()))
				continue
			}
			return Entry{}, false, res.Err
		}
		e := res.Val.(Entry)
		if res.Shared {
			e = e.clone()
		}
		return e, false, nil
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Clear empties every tier.
func (t *Tiered) Clear(ctx context.Context) error {
	if err := t.memory.Clear(ctx); err != nil {
		return err
	}
	if t.warm != nil {
		return t.warm.Clear(ctx)
	}
	return nil
}

// Stats returns the memory tier counters.
func (t *Tiered) Stats() Stats {
	return t.memory.Stats()
}

// WarmStats returns the persistent tier counters, if there is one.
func (t *Tiered) WarmStats() (Stats, bool) {
	if t.warm == nil {
		return Stats{}, false
	}
	return t.warm.Stats(), true
}
