// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package foresight wires discovery, the rule engine, error prediction,
// dependency analysis and report aggregation into one analysis service,
// and exposes it over HTTP.
package foresight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/foresight/pkg/validation"
	"github.com/AleutianAI/foresight/services/foresight/cache"
	"github.com/AleutianAI/foresight/services/foresight/config"
	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/discovery"
	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/report"
	"github.com/AleutianAI/foresight/services/foresight/rules"
	"github.com/AleutianAI/foresight/services/foresight/scheduler"
	"github.com/AleutianAI/foresight/services/foresight/source"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry replaces the process-wide rule registry.
func WithRegistry(registry *rules.Registry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithCache replaces the in-memory file-result cache.
func WithCache(c *cache.Tiered) Option {
	return func(s *Service) { s.cache = c }
}

// WithVulnerabilities replaces the built-in vulnerable-range table.
func WithVulnerabilities(vulns []deps.Vulnerability) Option {
	return func(s *Service) { s.vulns = vulns }
}

// WithCloser registers a function run by Close, in reverse order.
func WithCloser(fn func() error) Option {
	return func(s *Service) { s.closers = append(s.closers, fn) }
}

// Service runs analyses.
//
// Thread Safety:
//
//	Service is safe for concurrent use. The rule registry is snapshotted
//	at the start of every run, so registrations never affect a run in
//	flight.
type Service struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *rules.Registry
	engine     *rules.Engine
	classifier *predict.Classifier
	cache      *cache.Tiered
	scheduler  *scheduler.Scheduler
	vulns      []deps.Vulnerability
	closers    []func() error
}

// NewService creates a Service.
//
// Description:
//
//	Uses the built-in rules, the built-in vulnerability table and an
//	in-memory cache sized from cfg unless options replace them. A nil
//	cfg means config.Default().
//
// Inputs:
//
//	cfg - Effective configuration.
//	opts - Optional overrides.
//
// Outputs:
//
//	*Service - Ready to use.
func NewService(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: rules.Default(),
		vulns:    deps.DefaultVulnerabilities(),
	}
	s.cache = cache.NewTiered(cfg.Cache.MemoryEntries)
	for _, opt := range opts {
		opt(s)
	}

	s.engine = rules.NewEngine(rules.WithLogger(s.logger))
	s.classifier = predict.NewClassifier(
		predict.WithLogger(s.logger),
		predict.WithMinProbability(cfg.MinProbability),
	)
	schedOpts := []scheduler.Option{
		scheduler.WithConcurrency(cfg.Concurrency),
		scheduler.WithLogger(s.logger),
	}
	if s.cache != nil {
		schedOpts = append(schedOpts, scheduler.WithCache(s.cache))
	}
	s.scheduler = scheduler.New(schedOpts...)
	return s
}

// Close releases resources registered with WithCloser.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// DefaultProjectOptions returns ProjectOptions populated from the
// configuration.
func (s *Service) DefaultProjectOptions() ProjectOptions {
	return ProjectOptions{
		StrictMode:          s.cfg.StrictMode,
		PredictErrors:       s.cfg.PredictErrors,
		AnalyzeDependencies: s.cfg.AnalyzeDependencies,
		MaxIssues:           s.cfg.MaxIssues,
	}
}

// =============================================================================
// PROJECT ANALYSIS
// =============================================================================

// AnalyzeProject analyzes every matching file under path.
//
// Description:
//
//	Discovers files, loads manifests, runs the selected rules and the
//	prediction classifier on each file through the bounded scheduler,
//	runs dependency analysis and aggregates everything into a Report.
//	Per-file and per-rule failures become warnings. A malformed manifest
//	skips dependency analysis and is noted in Summary.Degraded.
//	Cancellation returns a Partial report with whatever completed.
//
// Inputs:
//
//	ctx - Cancellation. Must not be nil.
//	path - Project directory.
//	opts - Run options; start from DefaultProjectOptions.
//
// Outputs:
//
//	*report.Report - The report, Partial if cancelled.
//	error - ErrInvalidPath, ErrInvalidOptions or ErrNoReadableFiles.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) AnalyzeProject(ctx context.Context, path string, opts ProjectOptions) (*report.Report, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	started := time.Now()
	ctx, span := startAnalyzeSpan(ctx, path)
	defer span.End()

	logger := s.logger.With(slog.String("root", path))

	run, err := s.prepare(ctx, path, opts)
	if err != nil {
		recordAnalysis(kindProject, outcomeError, time.Since(started))
		setSpanError(span, err)
		return nil, err
	}

	var files []scheduler.FileOutcome
	var counts runCounts
	if len(run.files) > 0 {
		outcome, err := s.execute(ctx, run, run.files)
		if err != nil {
			recordAnalysis(kindProject, outcomeError, time.Since(started))
			setSpanError(span, err)
			return nil, err
		}
		files = outcome.Files
		counts = runCounts{analyzed: outcome.Analyzed, fromCache: outcome.FromCache, failed: outcome.Failed, partial: outcome.Partial}
	} else {
		counts.partial = true
	}

	rep := s.assemble(ctx, run, files, counts, started)
	logger.Info("analysis complete",
		slog.String("report_id", rep.ID),
		slog.Int("files", rep.Summary.FilesAnalyzed+rep.Summary.FilesFromCache),
		slog.Int("results", rep.Summary.TotalResults),
		slog.Bool("partial", rep.Partial),
		slog.Duration("duration", time.Since(started)),
	)

	outcome := outcomeOK
	if rep.Partial {
		outcome = outcomePartial
	}
	recordAnalysis(kindProject, outcome, time.Since(started))
	setAnalyzeSpanResult(span, rep)
	return rep, nil
}

// projectRun is the resolved state of one project analysis.
type projectRun struct {
	root     string
	fsys     *discovery.FS
	opts     ProjectOptions
	explicit framework.Tag

	ruleSet  *rules.RuleSet
	selected []rules.Rule

	// files are the paths to analyze; all is every listed path.
	files []string
	all   map[string]bool

	skipped []discovery.ScanError

	project  *deps.Project
	depsErr  error
	packages map[string]bool
	envKeys  map[string]bool

	version string
}

type runCounts struct {
	analyzed  int
	fromCache int
	failed    int
	partial   bool
}

// prepare resolves options, lists files and loads project context.
func (s *Service) prepare(ctx context.Context, path string, opts ProjectOptions) (*projectRun, error) {
	run := &projectRun{opts: opts}

	if opts.Framework != "" {
		tag, ok := framework.ParseTag(opts.Framework)
		if !ok {
			return nil, fmt.Errorf("%w: unknown framework %q", ErrInvalidOptions, opts.Framework)
		}
		run.explicit = tag
	}

	enabled, err := validation.SanitizeRuleIDs(opts.EnabledRules)
	if err != nil {
		return nil, fmt.Errorf("%w: enabled rules: %v", ErrInvalidOptions, err)
	}
	disabled, err := validation.SanitizeRuleIDs(opts.DisabledRules)
	if err != nil {
		return nil, fmt.Errorf("%w: disabled rules: %v", ErrInvalidOptions, err)
	}
	run.opts.EnabledRules, run.opts.DisabledRules = enabled, disabled
	opts = run.opts

	fsys, err := discovery.NewFS(path, s.discoveryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	run.fsys = fsys
	run.root = fsys.Root()

	run.ruleSet = s.registry.Snapshot()
	s.warnUnknownRules(run.ruleSet, opts)
	run.selected = run.ruleSet.Select(rules.Selection{
		Enabled:  opts.EnabledRules,
		Disabled: opts.DisabledRules,
		Strict:   opts.StrictMode,
	})

	listing, err := fsys.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	run.skipped = listing.Skipped
	run.all = make(map[string]bool, len(listing.Files))
	for _, f := range listing.Files {
		run.all[f] = true
	}

	if len(opts.TargetFiles) > 0 {
		run.files, err = resolveTargets(fsys, opts.TargetFiles)
		if err != nil {
			return nil, err
		}
		run.skipped = nil
	} else {
		run.files = listing.Files
	}

	if len(run.files) == 0 && !listing.Incomplete {
		return nil, fmt.Errorf("%w: nothing to analyze under %s", ErrNoReadableFiles, run.root)
	}

	if opts.PredictErrors || opts.AnalyzeDependencies {
		s.loadProjectContext(ctx, run)
	}
	run.version = runVersion(run, s.cfg.MinProbability)
	return run, nil
}

func (s *Service) discoveryOptions() []discovery.Option {
	d := s.cfg.Discovery
	opts := []discovery.Option{
		discovery.WithFollowSymlinks(d.FollowSymlinks),
	}
	if len(d.Include) > 0 {
		opts = append(opts, discovery.WithIncludes(d.Include...))
	}
	if len(d.Exclude) > 0 {
		opts = append(opts, discovery.WithExcludes(d.Exclude...))
	}
	if d.MaxFileSize > 0 {
		opts = append(opts, discovery.WithMaxFileSize(d.MaxFileSize))
	}
	return opts
}

func (s *Service) warnUnknownRules(set *rules.RuleSet, opts ProjectOptions) {
	known := make(map[string]bool)
	for _, r := range set.Rules() {
		known[r.ID] = true
	}
	for _, id := range append(append([]string(nil), opts.EnabledRules...), opts.DisabledRules...) {
		if !known[id] {
			s.logger.Warn("unknown rule id in options", slog.String("rule", id))
		}
	}
}

// resolveTargets converts target paths to sorted, distinct project-relative
// paths. Paths outside the root are rejected.
func resolveTargets(fsys *discovery.FS, targets []string) ([]string, error) {
	seen := make(map[string]bool, len(targets))
	var out []string
	for _, t := range targets {
		rel, err := fsys.Rel(t)
		if err != nil {
			return nil, fmt.Errorf("%w: target %q: %v", ErrInvalidOptions, t, err)
		}
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

// execute runs files through the scheduler.
func (s *Service) execute(ctx context.Context, run *projectRun, files []string) (*scheduler.Outcome, error) {
	outcome, err := s.scheduler.Run(ctx, scheduler.Job{
		Source:  run.fsys,
		Files:   files,
		Version: run.version,
		Analyze: s.analyzer(run),
	})
	if errors.Is(err, scheduler.ErrNoReadableFiles) {
		return outcome, fmt.Errorf("%w: %v", ErrNoReadableFiles, err)
	}
	return outcome, err
}

// analyzer returns the per-file analysis used on cache misses.
func (s *Service) analyzer(run *projectRun) scheduler.AnalyzeFunc {
	return func(ctx context.Context, file discovery.File) (cache.Entry, error) {
		fc := source.New(file.Path, file.Content, source.LanguageUnknown)
		tags := framework.Detect(fc, run.explicit)

		results, err := s.engine.Execute(ctx, rules.NewFile(fc, tags), run.selected)
		if err != nil {
			return cache.Entry{}, err
		}

		entry := cache.Entry{
			Results:         results,
			Imports:         importUses(fc),
			ComputedAtMilli: time.Now().UnixMilli(),
		}
		if run.opts.PredictErrors {
			entry.Predictions = s.classifier.Predict(ctx, predict.Input{
				File:       fc,
				Frameworks: tags,
				Packages:   run.packages,
				Files:      run.all,
				EnvKeys:    run.envKeys,
			})
		}
		return entry, nil
	}
}

// importUses lists the package imports of fc for dependency analysis.
func importUses(fc *source.FileContext) []deps.ImportUse {
	var out []deps.ImportUse
	for _, imp := range fc.Imports {
		name, ok := source.PackageName(imp.Specifier)
		if !ok {
			continue
		}
		out = append(out, deps.ImportUse{
			Package:  name,
			File:     fc.Path,
			Line:     imp.Line,
			TypeOnly: imp.TypeOnly,
		})
	}
	return out
}

// DependencySkippedRuleID labels the warning emitted when manifests could
// not be read and dependency analysis was skipped.
const DependencySkippedRuleID = "dependency-analysis-skipped"

// assemble merges file outcomes with dependency analysis into a report.
func (s *Service) assemble(ctx context.Context, run *projectRun, files []scheduler.FileOutcome, counts runCounts, started time.Time) *report.Report {
	var (
		results     []rules.Result
		predictions []predict.PredictedError
		imports     []deps.ImportUse
		degraded    []string
	)
	for _, f := range files {
		results = append(results, f.Entry.Results...)
		predictions = append(predictions, f.Entry.Predictions...)
		imports = append(imports, f.Entry.Imports...)
	}

	for _, skipped := range run.skipped {
		counts.failed++
		results = append(results, rules.Result{
			RuleID:   scheduler.ReadFailureRuleID,
			Severity: rules.SeverityWarning,
			Message:  "file skipped: " + skipped.Err.Error(),
			File:     skipped.Path,
		})
	}

	var issues []deps.Issue
	if run.opts.AnalyzeDependencies && !counts.partial {
		switch {
		case run.depsErr != nil:
			note := "dependency analysis skipped: " + run.depsErr.Error()
			degraded = append(degraded, note)
			results = append(results, rules.Result{
				RuleID:     DependencySkippedRuleID,
				Severity:   rules.SeverityWarning,
				Message:    note,
				Suggestion: "Fix the manifest syntax so dependencies can be checked",
			})
		case run.project != nil:
			project := *run.project
			project.Imports = imports
			project.Vulnerabilities = s.vulns
			issues = deps.Analyze(ctx, &project)
		}
	}

	return report.Aggregate(report.Input{
		Root:             run.root,
		RuleSetVersion:   run.ruleSet.Version(),
		Started:          started,
		Results:          results,
		Predictions:      predictions,
		DependencyIssues: issues,
		MaxIssues:        run.maxIssues(s.cfg),
		FilesAnalyzed:    counts.analyzed,
		FilesFromCache:   counts.fromCache,
		FilesFailed:      counts.failed,
		Partial:          counts.partial,
		Degraded:         degraded,
	})
}

func (run *projectRun) maxIssues(cfg *config.Config) int {
	if run.opts.MaxIssues != 0 {
		return run.opts.MaxIssues
	}
	return cfg.MaxIssues
}

// =============================================================================
// SNIPPET ANALYSIS
// =============================================================================

// AnalyzeSnippet analyzes a single piece of code.
//
// Description:
//
//	Runs the configured rule selection and, when enabled, the prediction
//	classifier on code as if it were a file named FileName. Nothing is
//	read from disk, no cache is used and dependency analysis does not
//	run, so predictions that need project context stay silent.
//
// Inputs:
//
//	ctx - Cancellation. Must not be nil.
//	code - Source text.
//	opts - Language, framework hint and file name.
//
// Outputs:
//
//	*SnippetResult - Sorted findings.
//	error - ErrEmptySnippet, ErrSnippetTooLarge, ErrInvalidOptions or
//	        ctx.Err().
//
// Thread Safety: Safe for concurrent use.
func (s *Service) AnalyzeSnippet(ctx context.Context, code string, opts SnippetOptions) (*SnippetResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	started := time.Now()

	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptySnippet
	}
	if len(code) > MaxSnippetBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrSnippetTooLarge, len(code))
	}

	lang := source.LanguageUnknown
	if opts.Language != "" {
		l, ok := source.ParseLanguage(opts.Language)
		if !ok {
			return nil, fmt.Errorf("%w: unknown language %q", ErrInvalidOptions, opts.Language)
		}
		lang = l
	} else if opts.FileName != "" {
		lang = source.DetectLanguage(opts.FileName)
	}
	if lang == source.LanguageUnknown {
		return nil, fmt.Errorf("%w: language is required", ErrInvalidOptions)
	}

	var explicit framework.Tag
	if opts.Framework != "" {
		tag, ok := framework.ParseTag(opts.Framework)
		if !ok {
			return nil, fmt.Errorf("%w: unknown framework %q", ErrInvalidOptions, opts.Framework)
		}
		explicit = tag
	}

	name := opts.FileName
	if name == "" {
		name = "snippet" + lang.Extension()
	}

	fc := source.New(name, []byte(code), lang)
	tags := framework.Detect(fc, explicit)
	selected := s.registry.Snapshot().Select(rules.Selection{Strict: s.cfg.StrictMode})

	results, err := s.engine.Execute(ctx, rules.NewFile(fc, tags), selected)
	if err != nil {
		recordAnalysis(kindSnippet, outcomeError, time.Since(started))
		return nil, err
	}
	results = report.Dedup(results)
	report.SortResults(results)

	predictions := []predict.PredictedError{}
	if s.cfg.PredictErrors {
		predictions = append(predictions, s.classifier.Predict(ctx, predict.Input{File: fc, Frameworks: tags})...)
		predict.Sort(predictions)
	}

	recordAnalysis(kindSnippet, outcomeOK, time.Since(started))
	return &SnippetResult{
		FileName:    fc.Path,
		Language:    string(fc.Language),
		Frameworks:  tags.Strings(),
		Results:     results,
		Predictions: predictions,
	}, nil
}

// =============================================================================
// RULES AND CACHE
// =============================================================================

// Rules lists registered rules, optionally filtered by framework tag.
//
// Outputs:
//
//	[]rules.Info - Rules in registration order.
//	string - The rule-set version.
//	error - ErrInvalidOptions for an unknown tag.
func (s *Service) Rules(tag string) ([]rules.Info, string, error) {
	set := s.registry.Snapshot()
	var filter framework.Tag
	if tag != "" {
		t, ok := framework.ParseTag(tag)
		if !ok {
			return nil, "", fmt.Errorf("%w: unknown framework %q", ErrInvalidOptions, tag)
		}
		filter = t
	}
	list := set.List(filter)
	out := make([]rules.Info, 0, len(list))
	for _, r := range list {
		out = append(out, r.Info())
	}
	return out, set.Version(), nil
}

// RuleCount returns the number of registered rules.
func (s *Service) RuleCount() int { return s.registry.Len() }

// ClearCache drops every cached file result.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	s.logger.Info("cache cleared")
	return nil
}

// CacheStats returns counters for each cache tier.
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	stats := CacheStats{Memory: s.cache.Stats()}
	if warm, ok := s.cache.WarmStats(); ok {
		stats.Warm = &warm
	}
	return stats
}
