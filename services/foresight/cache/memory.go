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
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries is the LRU size when none is configured.
const DefaultMemoryEntries = 4096

// Memory is an in-process LRU tier.
//
// Thread Safety: Safe for concurrent use.
type Memory struct {
	lru *lru.Cache[string, Entry]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewMemory creates an LRU holding at most size entries. Non-positive
// sizes use DefaultMemoryEntries.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	m := &Memory{}
	// lru.New only fails for a non-positive size.
	m.lru, _ = lru.New[string, Entry](size)
	return m
}

// Get returns a copy of the entry for key.
func (m *Memory) Get(ctx context.Context, key Key) (Entry, bool) {
	e, ok := m.lru.Get(key.String())
	if !ok {
		m.misses.Add(1)
		recordLookup(ctx, tierMemory, false)
		return Entry{}, false
	}
	m.hits.Add(1)
	recordLookup(ctx, tierMemory, true)
	return e.clone(), true
}

// Put stores a copy of entry. Evictions are counted from Add's result,
// so only capacity evictions reach the counter.
func (m *Memory) Put(ctx context.Context, key Key, entry Entry) error {
	if m.lru.Add(key.String(), entry.clone()) {
		m.evictions.Add(1)
	}
	return nil
}

// Clear drops every entry. Cleared entries are not evictions.
func (m *Memory) Clear(ctx context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of entries held.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Stats returns the LRU counters.
func (m *Memory) Stats() Stats {
	return Stats{
		Entries:   m.lru.Len(),
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
	}
}
