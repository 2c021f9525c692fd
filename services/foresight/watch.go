// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package foresight

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/foresight/services/foresight/report"
	"github.com/AleutianAI/foresight/services/foresight/scheduler"
	"github.com/AleutianAI/foresight/services/foresight/watch"
)

// ReportFunc receives each report produced in watch mode.
type ReportFunc func(rep *report.Report)

// Watch analyzes path, then re-analyzes changed files until ctx is done.
//
// Description:
//
//	The first report covers the whole project. After that, file events
//	are debounced and coalesced to the latest change per path, queued,
//	and run through the same scheduler as AnalyzeProject. Only changed
//	files are re-analyzed; removed files are dropped. Each batch yields
//	a fresh report over the current state of every file. A change to a
//	manifest, lockfile or .env file reloads project context and
//	re-analyzes everything, with unchanged files served from cache when
//	the context did not change.
//
// Inputs:
//
//	ctx - Stops watching when done.
//	path - Project directory.
//	opts - Run options applied to every batch.
//	onReport - Called from a single goroutine for every report.
//
// Outputs:
//
//	error - Errors from the initial analysis or watcher setup. Nil once
//	        ctx is done.
func (s *Service) Watch(ctx context.Context, path string, opts ProjectOptions, onReport ReportFunc) error {
	if ctx == nil {
		return ErrNilContext
	}

	session, err := s.newWatchSession(ctx, path, opts, onReport)
	if err != nil {
		return err
	}

	queue := watch.NewQueue(session.process, s.cfg.Watch.MaxRate)
	watcher, err := watch.NewWatcher(session.run.root, func(changes []watch.Change) {
		queue.Push(changes...)
	}, watch.Options{
		Debounce: s.cfg.Watch.Debounce,
		IncludeFile: func(rel string) bool {
			return session.run.fsys.Matches(rel) || isProjectFile(rel)
		},
		SkipDir: session.run.fsys.ExcludedDir,
		Logger:  s.logger,
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	s.logger.Info("watching project", slog.String("root", session.run.root))
	err = queue.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// watchSession holds per-file state between batches. It is only touched
// from the queue goroutine after construction.
type watchSession struct {
	svc      *Service
	path     string
	opts     ProjectOptions
	onReport ReportFunc

	run   *projectRun
	state map[string]scheduler.FileOutcome
}

func (s *Service) newWatchSession(ctx context.Context, path string, opts ProjectOptions, onReport ReportFunc) (*watchSession, error) {
	ws := &watchSession{svc: s, path: path, opts: opts, onReport: onReport}
	started := time.Now()
	if err := ws.reload(ctx); err != nil {
		return nil, err
	}
	ws.emit(ctx, started, false)
	return ws, nil
}

// reload re-prepares the project and re-analyzes every file.
func (ws *watchSession) reload(ctx context.Context) error {
	opts := ws.opts
	opts.TargetFiles = nil
	run, err := ws.svc.prepare(ctx, ws.path, opts)
	if err != nil {
		return err
	}
	ws.run = run
	ws.state = make(map[string]scheduler.FileOutcome, len(run.files))
	if len(run.files) == 0 {
		return nil
	}
	outcome, err := ws.svc.execute(ctx, run, run.files)
	if outcome != nil {
		ws.merge(outcome)
	}
	return err
}

// process handles one coalesced batch from the queue.
func (ws *watchSession) process(ctx context.Context, batch []watch.Change) {
	started := time.Now()
	logger := ws.svc.logger.With(slog.Int("changes", len(batch)))

	for _, c := range batch {
		if isProjectFile(c.Path) {
			logger.Info("project context changed, re-analyzing", slog.String("file", c.Path))
			if err := ws.reload(ctx); err != nil {
				logger.Warn("re-analysis failed", slog.String("error", err.Error()))
				recordAnalysis(kindWatch, outcomeError, time.Since(started))
				return
			}
			ws.emit(ctx, started, ctx.Err() != nil)
			return
		}
	}

	var changed []string
	for _, c := range batch {
		switch {
		case c.Op == watch.OpRemove:
			delete(ws.state, c.Path)
			delete(ws.run.all, c.Path)
		case ws.run.fsys.Matches(c.Path):
			ws.run.all[c.Path] = true
			changed = append(changed, c.Path)
		}
	}
	sort.Strings(changed)

	partial := false
	if len(changed) > 0 {
		outcome, err := ws.svc.execute(ctx, ws.run, changed)
		if err != nil && !errors.Is(err, ErrNoReadableFiles) {
			logger.Warn("re-analysis failed", slog.String("error", err.Error()))
		}
		if outcome != nil {
			ws.merge(outcome)
			partial = outcome.Partial
		}
	}
	logger.Debug("batch analyzed", slog.Int("files", len(changed)))
	ws.emit(ctx, started, partial)
}

func (ws *watchSession) merge(outcome *scheduler.Outcome) {
	for _, f := range outcome.Files {
		ws.state[f.Path] = f
	}
}

// emit aggregates the current state into a report.
func (ws *watchSession) emit(ctx context.Context, started time.Time, partial bool) {
	paths := make([]string, 0, len(ws.state))
	for p := range ws.state {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]scheduler.FileOutcome, 0, len(paths))
	counts := runCounts{partial: partial}
	for _, p := range paths {
		f := ws.state[p]
		files = append(files, f)
		switch {
		case f.Err != nil:
			counts.failed++
		case f.FromCache:
			counts.fromCache++
		default:
			counts.analyzed++
		}
	}

	rep := ws.svc.assemble(ctx, ws.run, files, counts, started)
	outcome := outcomeOK
	if rep.Partial {
		outcome = outcomePartial
	}
	recordAnalysis(kindWatch, outcome, time.Since(started))
	if ws.onReport != nil {
		ws.onReport(rep)
	}
}
