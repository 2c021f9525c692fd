// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report merges per-file findings into one AnalysisReport.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// DefaultMaxIssues caps Results when the caller passes zero.
const DefaultMaxIssues = 1000

// Summary holds counts computed before truncation.
type Summary struct {
	// Errors, Warnings and Info count results and dependency issues of
	// each severity. Predictions carry no severity and are not included.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`

	// TotalResults counts deduplicated results before truncation.
	TotalResults int `json:"total_results"`

	Predictions      int `json:"predictions"`
	DependencyIssues int `json:"dependency_issues"`

	FilesAnalyzed  int `json:"files_analyzed"`
	FilesFromCache int `json:"files_from_cache"`
	FilesFailed    int `json:"files_failed"`

	// Truncated reports that Results holds fewer than TotalResults.
	Truncated bool `json:"truncated"`

	// Degraded lists human-readable notes about skipped analysis.
	Degraded []string `json:"degraded,omitempty"`
}

// Report is the result of one analysis run. It is never mutated after
// Aggregate returns.
type Report struct {
	ID             string    `json:"id"`
	Root           string    `json:"root,omitempty"`
	RuleSetVersion string    `json:"rule_set_version"`
	CreatedAt      time.Time `json:"created_at"`
	DurationMs     int64     `json:"duration_ms"`

	// Partial is set when the run was cancelled; only completed files are
	// included.
	Partial bool `json:"partial"`

	Summary          Summary                  `json:"summary"`
	Results          []rules.Result           `json:"results"`
	Predictions      []predict.PredictedError `json:"predictions"`
	DependencyIssues []deps.Issue             `json:"dependency_issues"`
}

// Input collects everything Aggregate merges.
type Input struct {
	Root           string
	RuleSetVersion string
	Started        time.Time

	Results          []rules.Result
	Predictions      []predict.PredictedError
	DependencyIssues []deps.Issue

	// MaxIssues caps Results; zero means DefaultMaxIssues, negative
	// means unlimited.
	MaxIssues int

	// MaxPredictions caps Predictions when positive.
	MaxPredictions int

	FilesAnalyzed  int
	FilesFromCache int
	FilesFailed    int

	Partial  bool
	Degraded []string
}

// Aggregate builds a Report.
//
// Description:
//
//	Results are deduplicated on (rule ID, file, line, message), keeping
//	the first occurrence, then ordered by severity (error first), file,
//	line, column and rule ID. The summary is taken from the full
//	deduplicated set; only then are Results cut to MaxIssues. Dependency
//	issues add to the per-severity counts but not to TotalResults.
//	Predictions are ordered by probability descending. Dependency issues
//	are ordered by severity then kind and package.
//
// Inputs:
//
//	in - Findings and run metadata. Slices are copied, not retained.
//
// Outputs:
//
//	*Report - Never nil.
func Aggregate(in Input) *Report {
	results := Dedup(in.Results)
	SortResults(results)

	summary := Summary{
		TotalResults:     len(results),
		Predictions:      len(in.Predictions),
		DependencyIssues: len(in.DependencyIssues),
		FilesAnalyzed:    in.FilesAnalyzed,
		FilesFromCache:   in.FilesFromCache,
		FilesFailed:      in.FilesFailed,
		Degraded:         append([]string(nil), in.Degraded...),
	}
	for _, r := range results {
		summary.count(r.Severity)
	}
	for _, issue := range in.DependencyIssues {
		summary.count(issue.Severity)
	}

	limit := in.MaxIssues
	if limit == 0 {
		limit = DefaultMaxIssues
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
		summary.Truncated = true
	}

	predictions := append([]predict.PredictedError(nil), in.Predictions...)
	predict.Sort(predictions)
	if in.MaxPredictions > 0 && len(predictions) > in.MaxPredictions {
		predictions = predictions[:in.MaxPredictions]
	}

	issues := append([]deps.Issue(nil), in.DependencyIssues...)
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity != b.Severity {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Package < b.Package
	})

	now := time.Now().UTC()
	r := &Report{
		ID:               uuid.NewString(),
		Root:             in.Root,
		RuleSetVersion:   in.RuleSetVersion,
		CreatedAt:        now,
		Partial:          in.Partial,
		Summary:          summary,
		Results:          orEmpty(results),
		Predictions:      orEmpty(predictions),
		DependencyIssues: orEmpty(issues),
	}
	if !in.Started.IsZero() {
		r.DurationMs = now.Sub(in.Started).Milliseconds()
	}
	return r
}

func (s *Summary) count(sev rules.Severity) {
	switch sev {
	case rules.SeverityError:
		s.Errors++
	case rules.SeverityWarning:
		s.Warnings++
	default:
		s.Info++
	}
}

// Dedup returns results without exact duplicates, keeping first
// occurrences in order.
func Dedup(results []rules.Result) []rules.Result {
	seen := make(map[string]bool, len(results))
	out := make([]rules.Result, 0, len(results))
	for _, r := range results {
		k := r.DedupKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// SortResults orders results by severity rank descending, then file,
// line, column and rule ID. Results without a line sort first in their
// file.
func SortResults(results []rules.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Severity != b.Severity {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RuleID < b.RuleID
	})
}

// Counts returns the number of findings per severity name.
func (r *Report) Counts() map[string]int {
	return map[string]int{
		rules.SeverityError.String():   r.Summary.Errors,
		rules.SeverityWarning.String(): r.Summary.Warnings,
		rules.SeverityInfo.String():    r.Summary.Info,
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
