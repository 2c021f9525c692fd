// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
)

// MaxPerPattern caps predictions from one pattern in one file.
const MaxPerPattern = 5

// Classifier runs patterns over files.
//
// Thread Safety: Safe for concurrent use after construction.
type Classifier struct {
	patterns     []Pattern
	minimum      float64
	logger       *slog.Logger
	enabledTypes map[ErrorType]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used to report pattern panics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMinProbability drops predictions scoring below p.
func WithMinProbability(p float64) Option {
	return func(c *Classifier) { c.minimum = p }
}

// WithErrorTypes restricts the classifier to the given error types.
func WithErrorTypes(types ...ErrorType) Option {
	return func(c *Classifier) {
		if len(types) == 0 {
			return
		}
		c.enabledTypes = make(map[ErrorType]bool, len(types))
		for _, t := range types {
			c.enabledTypes[t] = true
		}
	}
}

// WithPatterns replaces the pattern catalog.
func WithPatterns(patterns []Pattern) Option {
	return func(c *Classifier) { c.patterns = patterns }
}

// NewClassifier creates a Classifier over DefaultPatterns.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		patterns: DefaultPatterns(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Patterns returns the active patterns.
func (c *Classifier) Patterns() []Pattern {
	out := make([]Pattern, 0, len(c.patterns))
	for _, p := range c.patterns {
		if c.enabledTypes == nil || c.enabledTypes[p.ErrorType] {
			out = append(out, p)
		}
	}
	return out
}

// Predict scores one file.
//
// Description:
//
//	Every active pattern whose AppliesTo intersects in.Frameworks runs
//	its trigger. Each candidate is scored from the pattern's constant
//	weights. A pattern that panics is logged and contributes nothing.
//	The result is sorted by probability descending, then line, then
//	pattern ID, so identical input yields identical output.
//
// Inputs:
//
//	ctx - Used for tracing only; patterns do not block.
//	in - The file and what is known about its project.
//
// Outputs:
//
//	[]PredictedError - Possibly empty.
func (c *Classifier) Predict(ctx context.Context, in Input) []PredictedError {
	if in.File == nil {
		return nil
	}
	_, span := startPredictSpan(ctx, in.File.Path)
	defer span.End()

	var out []PredictedError
	for _, p := range c.Patterns() {
		if len(p.AppliesTo) > 0 && !appliesTo(p, in) {
			continue
		}
		found := c.run(p, &in)
		if len(found) > MaxPerPattern {
			found = found[:MaxPerPattern]
		}
		for _, cand := range found {
			prob, signals := score(p.Base, p.Signals, cand.matched)
			if prob < c.minimum {
				continue
			}
			expected := p.ExpectedText
			if strings.Contains(expected, "%s") {
				expected = fmt.Sprintf(expected, cand.subject)
			}
			out = append(out, PredictedError{
				PatternID:            p.ID,
				ErrorType:            p.ErrorType,
				Phase:                p.Phase,
				Probability:          prob,
				File:                 in.File.Path,
				Line:                 cand.line,
				Message:              cand.message,
				PreventionSuggestion: p.Suggestion,
				ExpectedErrorText:    expected,
				Signals:              signals,
			})
		}
	}

	Sort(out)
	setPredictSpanResult(span, len(out))
	recordPredictions(ctx, out)
	return out
}

func appliesTo(p Pattern, in Input) bool {
	for _, t := range p.AppliesTo {
		if in.Frameworks.Has(t) {
			return true
		}
	}
	return false
}

func (c *Classifier) run(p Pattern, in *Input) (found []candidate) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("prediction pattern panicked",
				slog.String("pattern", p.ID),
				slog.String("file", in.File.Path),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			found = nil
		}
	}()
	return p.detect(in)
}

// Sort orders predictions by probability descending, then file, line and
// pattern ID.
func Sort(preds []PredictedError) {
	sort.SliceStable(preds, func(i, j int) bool {
		a, b := preds[i], preds[j]
		if a.Probability != b.Probability {
			return a.Probability > b.Probability
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.PatternID < b.PatternID
	})
}
