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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCoalesce(t *testing.T) {
	got := Coalesce([]Change{
		{Path: "b.ts", Op: OpWrite},
		{Path: "a.ts", Op: OpWrite},
		{Path: "b.ts", Op: OpRemove},
		{Path: "a.ts", Op: OpWrite},
	})
	assert.Equal(t, []Change{{Path: "a.ts", Op: OpWrite}, {Path: "b.ts", Op: OpRemove}}, got)
	assert.Equal(t, "remove", OpRemove.String())
}

func TestQueue_LatestPendingRequestWins(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Change
	q := NewQueue(func(ctx context.Context, batch []Change) {
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	}, 0)

	q.Push(Change{Path: "a.ts", Op: OpWrite}, Change{Path: "b.ts", Op: OpWrite})
	q.Push(Change{Path: "a.ts", Op: OpRemove})
	assert.Equal(t, 2, q.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []Change{{Path: "a.ts", Op: OpRemove}, {Path: "b.ts", Op: OpWrite}}, batches[0])
	assert.Zero(t, q.Len())
}

func TestQueue_PushDuringProcessingStaysPending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var batches [][]Change

	var q *Queue
	q = NewQueue(func(ctx context.Context, batch []Change) {
		mu.Lock()
		batches = append(batches, batch)
		n := len(batches)
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
		}
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	q.Push(Change{Path: "a.ts"})
	<-started
	q.Push(Change{Path: "a.ts"}, Change{Path: "c.ts"})
	q.Push(Change{Path: "c.ts", Op: OpRemove})
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []Change{{Path: "a.ts"}, {Path: "c.ts", Op: OpRemove}}, batches[1])
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0o755))

	batches := make(chan []Change, 10)
	w, err := NewWatcher(root, func(changes []Change) { batches <- changes }, Options{
		Debounce:    50 * time.Millisecond,
		IncludeFile: func(rel string) bool { return strings.HasSuffix(rel, ".ts") },
		SkipDir:     func(rel string) bool { return rel == "node_modules" },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyStarted)

	file := filepath.Join(root, "src", "a.ts")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte(strings.Repeat("x", i+1)), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x", "index.ts"), []byte("x"), 0o644))

	select {
	case batch := <-batches:
		assert.Equal(t, []Change{{Path: "src/a.ts", Op: OpWrite}}, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}

	select {
	case batch := <-batches:
		t.Fatalf("unexpected second batch %v", batch)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	batches := make(chan []Change, 10)
	w, err := NewWatcher(root, func(changes []Change) { batches <- changes }, Options{Debounce: 30 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	dir := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ts"), []byte("x"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, c := range batch {
				if c.Path == "pkg/b.ts" {
					return
				}
			}
		case <-deadline:
			t.Fatal("change in new directory not seen")
		}
	}
}
