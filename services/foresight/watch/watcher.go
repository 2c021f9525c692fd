// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch turns file system events into debounced, coalesced
// re-analysis requests.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// Op is the kind of change.
type Op int

const (
	// OpWrite covers creates and writes.
	OpWrite Op = iota

	// OpRemove covers removes and renames away.
	OpRemove
)

// String returns the string representation of the operation.
func (op Op) String() string {
	if op == OpRemove {
		return "remove"
	}
	return "write"
}

// Change is one debounced file change.
type Change struct {
	// Path is project-relative with forward slashes.
	Path string
	Op   Op
}

// Handler receives each debounced batch, sorted by path.
type Handler func(changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period that closes a batch. Default 150ms.
	Debounce time.Duration

	// IncludeFile reports whether a project-relative file is of interest.
	// Nil admits everything.
	IncludeFile func(rel string) bool

	// SkipDir reports whether a project-relative directory is not
	// watched. Nil watches every directory.
	SkipDir func(rel string) bool

	// BufferSize is the event buffer. Default 1024.
	BufferSize int

	Logger *slog.Logger
}

// Watcher watches a project tree and batches changes.
//
// Description:
//
//	Directories are watched recursively; new directories are added as
//	they appear. Events are collected until Debounce passes without a
//	new one, then the batch is reduced to the latest change per path
//	and handed to the Handler from a single goroutine.
//
// Thread Safety: Safe for concurrent use.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	handler Handler
	opts    Options
	logger  *slog.Logger

	changes  chan Change
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// NewWatcher creates a Watcher for root. Call Start to begin.
func NewWatcher(root string, handler Handler, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 150 * time.Millisecond
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:    abs,
		fsw:     fsw,
		handler: handler,
		opts:    opts,
		logger:  logger,
		changes: make(chan Change, opts.BufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start adds the tree and launches the event and debounce goroutines.
// They exit when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop closes the watcher and waits for its goroutines. A pending batch
// is flushed first.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		_ = w.fsw.Close()
	})
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) skipDir(path string) bool {
	rel, ok := w.rel(path)
	if !ok {
		return true
	}
	return rel != "." && w.opts.SkipDir != nil && w.opts.SkipDir(rel)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipDir(event.Name) {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Warn("watch add failed", slog.String("dir", event.Name), slog.String("error", err.Error()))
				}
			}
			return
		}
	}

	rel, ok := w.rel(event.Name)
	if !ok {
		return
	}
	if w.opts.IncludeFile != nil && !w.opts.IncludeFile(rel) {
		return
	}

	op := OpWrite
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		op = OpRemove
	}
	select {
	case w.changes <- Change{Path: rel, Op: op}:
	default:
		w.logger.Warn("watch buffer full, change dropped", slog.String("file", rel))
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.handler != nil {
			w.handler(Coalesce(batch))
		}
		batch = batch[:0]
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// Coalesce keeps the latest change per path and sorts by path.
func Coalesce(changes []Change) []Change {
	latest := make(map[string]Change, len(changes))
	for _, c := range changes {
		latest[c.Path] = c
	}
	out := make([]Change, 0, len(latest))
	for _, c := range latest {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
