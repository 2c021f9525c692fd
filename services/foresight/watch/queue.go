// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// ProcessFunc handles one drained batch of changes, sorted by path.
type ProcessFunc func(ctx context.Context, batch []Change)

// Queue holds pending re-analysis requests keyed by file.
//
// Description:
//
//	Push records the latest change per path. A path that is pending and
//	not yet started is replaced, so only the newest request survives.
//	Run drains everything pending as one batch, waiting on the rate
//	limiter between batches. Requests pushed while a batch is running
//	stay pending for the next batch.
//
// Thread Safety: Safe for concurrent use. One Run at a time.
type Queue struct {
	mu      sync.Mutex
	pending map[string]Change
	signal  chan struct{}
	limiter *rate.Limiter
	process ProcessFunc
}

// NewQueue creates a queue that calls process for each batch, at most
// maxRate batches per second with a burst of one. maxRate <= 0 means
// unlimited.
func NewQueue(process ProcessFunc, maxRate float64) *Queue {
	limit := rate.Inf
	if maxRate > 0 {
		limit = rate.Limit(maxRate)
	}
	return &Queue{
		pending: make(map[string]Change),
		signal:  make(chan struct{}, 1),
		limiter: rate.NewLimiter(limit, 1),
		process: process,
	}
}

// Push queues changes, replacing pending requests for the same path.
func (q *Queue) Push(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	q.mu.Lock()
	for _, c := range changes {
		q.pending[c.Path] = c
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of pending paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// drain takes every pending change.
func (q *Queue) drain() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	batch := make([]Change, 0, len(q.pending))
	for _, c := range q.pending {
		batch = append(batch, c)
	}
	clear(q.pending)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

// Run processes batches until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.signal:
		}

		if err := q.limiter.Wait(ctx); err != nil {
			return err
		}
		if batch := q.drain(); len(batch) > 0 {
			q.process(ctx, batch)
		}
	}
}
