// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scheduler runs per-file analysis over a bounded worker pool
// with result caching and cooperative cancellation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/foresight/services/foresight/cache"
	"github.com/AleutianAI/foresight/services/foresight/discovery"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// ReadFailureRuleID labels the warning emitted for an unreadable file.
const ReadFailureRuleID = "file-read-error"

var (
	// ErrNoFiles is returned when a job has nothing to analyze.
	ErrNoFiles = errors.New("no analyzable files")

	// ErrNoReadableFiles is returned when every file failed to read.
	ErrNoReadableFiles = errors.New("no readable files")

	// ErrNilContext is returned when ctx is nil.
	ErrNilContext = errors.New("context must not be nil")
)

// AnalyzeFunc computes the entry for one file. It returns ctx.Err() when
// cancelled part-way; any other error is reported as a failed file.
type AnalyzeFunc func(ctx context.Context, file discovery.File) (cache.Entry, error)

// Job describes one batch.
type Job struct {
	// Source reads file content and hashes.
	Source discovery.Source

	// Files are the project-relative paths to analyze.
	Files []string

	// Version identifies everything besides content that shapes an
	// entry: the rule set, the selection and the prediction settings.
	Version string

	// Analyze runs on cache misses.
	Analyze AnalyzeFunc
}

// FileOutcome is the result for one processed file.
type FileOutcome struct {
	Path      string
	Hash      string
	Entry     cache.Entry
	FromCache bool

	// Err is set when the file could not be read or analyzed. Entry then
	// holds the single warning that reports it.
	Err error
}

// Outcome collects a batch.
type Outcome struct {
	// Files holds completed units in Job.Files order.
	Files []FileOutcome

	Analyzed  int
	FromCache int
	Failed    int

	// Partial is set when cancellation stopped the batch early.
	Partial bool

	Duration time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency bounds the worker pool. Non-positive means
// runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCache sets the file-result cache. Without one every file is
// analyzed.
func WithCache(c *cache.Tiered) Option {
	return func(s *Scheduler) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler owns the worker pool and the file cache.
//
// Thread Safety: Safe for concurrent use; concurrent Runs share the cache.
type Scheduler struct {
	concurrency int
	cache       *cache.Tiered
	logger      *slog.Logger
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run analyzes job.Files.
//
// Description:
//
//	Files are dispatched in order to at most Concurrency workers.
//	Cancellation is checked before each file is dispatched and again
//	before it is analyzed; after it is observed no new file starts and
//	the outcome is marked Partial. Unreadable files become one warning
//	each. Cached entries are served when path, content hash and version
//	all match.
//
// Inputs:
//
//	ctx - Cancellation. Must not be nil.
//	job - The batch.
//
// Outputs:
//
//	*Outcome - Completed units in input order.
//	error - ErrNoFiles, or ErrNoReadableFiles when nothing could be read
//	        and the run was not cancelled.
func (s *Scheduler) Run(ctx context.Context, job Job) (*Outcome, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(job.Files) == 0 {
		return nil, ErrNoFiles
	}

	ctx, span := startRunSpan(ctx, len(job.Files), s.concurrency)
	defer span.End()
	start := time.Now()

	slots := make([]*FileOutcome, len(job.Files))
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	partial := false
	for i, path := range job.Files {
		if ctx.Err() != nil {
			partial = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = s.runFile(ctx, job, path)
			return nil
		})
	}
	_ = g.Wait()

	out := &Outcome{Files: make([]FileOutcome, 0, len(job.Files))}
	for _, slot := range slots {
		if slot == nil {
			partial = true
			continue
		}
		out.Files = append(out.Files, *slot)
		switch {
		case slot.Err != nil:
			out.Failed++
		case slot.FromCache:
			out.FromCache++
		default:
			out.Analyzed++
		}
	}
	out.Partial = partial || ctx.Err() != nil
	out.Duration = time.Since(start)

	setRunSpanResult(span, out)
	recordRun(ctx, out)

	if !out.Partial && out.Failed == len(job.Files) {
		return out, fmt.Errorf("%w: %d file(s) failed", ErrNoReadableFiles, out.Failed)
	}
	return out, nil
}

// runFile reads and analyzes one file. Nil means the unit was abandoned
// because of cancellation.
func (s *Scheduler) runFile(ctx context.Context, job Job, path string) *FileOutcome {
	file, err := job.Source.Read(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("file read failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return failed(path, err, "failed to read file: "+err.Error())
	}

	if ctx.Err() != nil {
		return nil
	}

	analyze := func(ctx context.Context) (cache.Entry, error) {
		return job.Analyze(ctx, file)
	}

	var entry cache.Entry
	hit := false
	if s.cache != nil {
		key := cache.Key{Path: file.Path, ContentHash: file.Hash, RuleSetVersion: job.Version}
		entry, hit, err = s.cache.GetOrCompute(ctx, key, analyze)
	} else {
		entry, err = analyze(ctx)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("file analysis failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return failed(path, err, "failed to analyze file: "+err.Error())
	}

	if hit {
		s.logger.Debug("cache hit", slog.String("file", path))
	}
	return &FileOutcome{Path: file.Path, Hash: file.Hash, Entry: entry, FromCache: hit}
}

func failed(path string, err error, msg string) *FileOutcome {
	return &FileOutcome{
		Path: path,
		Err:  err,
		Entry: cache.Entry{Results: []rules.Result{{
			RuleID:   ReadFailureRuleID,
			Severity: rules.SeverityWarning,
			Message:  msg,
			File:     path,
		}}},
	}
}
