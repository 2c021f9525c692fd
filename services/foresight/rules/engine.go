// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// FailureMessage is the message of the synthetic result emitted when a
// rule panics or returns an error.
const FailureMessage = "rule execution failed"

// Engine runs rules against files and isolates per-rule failures.
//
// Thread Safety: Safe for concurrent use; holds no mutable state.
type Engine struct {
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used to report rule failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every applicable rule against f.
//
// Description:
//
//	Rules run in the order given; results keep each rule's emission
//	order. Rules whose AppliesTo does not intersect f.Frameworks are
//	skipped. A rule that panics or returns an error contributes exactly
//	one warning with FailureMessage and execution moves on. The context
//	is checked before every rule; once it is done no further rule runs.
//	No deduplication happens here.
//
// Inputs:
//
//	ctx - Cancellation.
//	f - File under analysis.
//	rules - Ordered rules, usually from RuleSet.Select.
//
// Outputs:
//
//	[]Result - Findings in rule order.
//	error - ctx.Err() if cancelled part-way; results so far are returned.
func (e *Engine) Execute(ctx context.Context, f *File, rules []Rule) ([]Result, error) {
	ctx, span := startExecuteSpan(ctx, f.Path, len(rules))
	defer span.End()

	start := time.Now()
	var results []Result
	failures := 0

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			setExecuteSpanResult(span, len(results), failures)
			return results, err
		}
		if !rule.Applies(f) {
			continue
		}

		found, err := e.runRule(ctx, f, rule)
		if err != nil {
			failures++
			e.logger.Warn("rule failed",
				slog.String("rule", rule.ID),
				slog.String("file", f.Path),
				slog.String("error", err.Error()),
			)
			recordRuleFailure(ctx, rule.ID)
			results = append(results, Result{
				RuleID:   rule.ID,
				Severity: SeverityWarning,
				Message:  FailureMessage,
				File:     f.Path,
			})
			continue
		}

		for _, res := range found {
			res.RuleID = rule.ID
			if res.File == "" {
				res.File = f.Path
			}
			results = append(results, res)
		}
	}

	setExecuteSpanResult(span, len(results), failures)
	recordExecuteMetrics(ctx, time.Since(start), len(results))
	return results, nil
}

// runRule calls rule.Check, converting a panic into ErrRuleFailed.
func (e *Engine) runRule(ctx context.Context, f *File, rule Rule) (results []Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Debug("rule panic stack",
				slog.String("rule", rule.ID),
				slog.String("stack", string(debug.Stack())),
			)
			results = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrRuleFailed, rule.ID, p)
		}
	}()

	results, err = rule.Check(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuleFailed, rule.ID, err)
	}
	return results, nil
}
