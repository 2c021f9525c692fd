// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

func result(id string, sev rules.Severity, file string, line int) rules.Result {
	return rules.Result{RuleID: id, Severity: sev, File: file, Line: line, Message: id + " message"}
}

func TestAggregate_OrderingAndDedup(t *testing.T) {
	in := Input{
		Results: []rules.Result{
			result("no-var", rules.SeverityInfo, "b.ts", 1),
			result("console-log-detection", rules.SeverityWarning, "a.ts", 9),
			result("syntax-error", rules.SeverityError, "b.ts", 4),
			result("console-log-detection", rules.SeverityWarning, "a.ts", 9),
			result("debugger-statement", rules.SeverityError, "a.ts", 2),
			result("console-log-detection", rules.SeverityWarning, "a.ts", 3),
		},
	}
	r := Aggregate(in)

	var got []string
	for _, res := range r.Results {
		got = append(got, fmt.Sprintf("%s %s:%d", res.Severity, res.File, res.Line))
	}
	want := []string{
		"error a.ts:2",
		"error b.ts:4",
		"warning a.ts:3",
		"warning a.ts:9",
		"info b.ts:1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, r.Summary.TotalResults)
	assert.Equal(t, 2, r.Summary.Errors)
	assert.Equal(t, 2, r.Summary.Warnings)
	assert.Equal(t, 1, r.Summary.Info)
	assert.NotEmpty(t, r.ID)
}

func TestAggregate_CapAppliesAfterSummary(t *testing.T) {
	var results []rules.Result
	for i := 0; i < 30; i++ {
		results = append(results, result("r", rules.SeverityWarning, "a.ts", i+1))
	}
	results = append(results, result("e", rules.SeverityError, "z.ts", 1))

	r := Aggregate(Input{Results: results, MaxIssues: 10})
	require.Len(t, r.Results, 10)
	assert.True(t, r.Summary.Truncated)
	assert.Equal(t, 31, r.Summary.TotalResults)
	assert.Equal(t, 30, r.Summary.Warnings)
	assert.Equal(t, "e", r.Results[0].RuleID, "errors survive truncation first")
}

func TestAggregate_DefaultAndUnlimitedCap(t *testing.T) {
	var results []rules.Result
	for i := 0; i < DefaultMaxIssues+5; i++ {
		results = append(results, result("r", rules.SeverityInfo, "a.ts", i+1))
	}
	assert.Len(t, Aggregate(Input{Results: results}).Results, DefaultMaxIssues)
	assert.Len(t, Aggregate(Input{Results: results, MaxIssues: -1}).Results, DefaultMaxIssues+5)
}

func TestAggregate_PredictionsAndIssues(t *testing.T) {
	in := Input{
		Predictions: []predict.PredictedError{
			{PatternID: "a", Probability: 0.5, File: "x.tsx"},
			{PatternID: "b", Probability: 0.9, File: "x.tsx"},
			{PatternID: "c", Probability: 0.7, File: "x.tsx"},
		},
		MaxPredictions: 2,
		DependencyIssues: []deps.Issue{
			{Kind: deps.KindDuplicate, Package: "lodash", Severity: rules.SeverityInfo},
			{Kind: deps.KindMissing, Package: "left-pad", Severity: rules.SeverityWarning},
			{Kind: deps.KindVulnerable, Package: "minimist", Severity: rules.SeverityError},
		},
		Partial:  true,
		Degraded: []string{"dependency analysis skipped"},
	}
	r := Aggregate(in)

	require.Len(t, r.Predictions, 2)
	assert.Equal(t, "b", r.Predictions[0].PatternID)
	assert.Equal(t, "c", r.Predictions[1].PatternID)
	assert.Equal(t, 3, r.Summary.Predictions)

	require.Len(t, r.DependencyIssues, 3)
	assert.Equal(t, deps.KindVulnerable, r.DependencyIssues[0].Kind)
	assert.Equal(t, deps.KindDuplicate, r.DependencyIssues[2].Kind)
	assert.Equal(t, 3, r.Summary.DependencyIssues)

	assert.True(t, r.Partial)
	assert.Equal(t, []string{"dependency analysis skipped"}, r.Summary.Degraded)
}

func TestAggregate_EmptyIsNotNil(t *testing.T) {
	r := Aggregate(Input{})
	assert.NotNil(t, r.Results)
	assert.NotNil(t, r.Predictions)
	assert.NotNil(t, r.DependencyIssues)
	assert.Equal(t, map[string]int{"error": 0, "warning": 0, "info": 0}, r.Counts())
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	preds := []predict.PredictedError{{PatternID: "low", Probability: 0.1}, {PatternID: "high", Probability: 0.9}}
	Aggregate(Input{Predictions: preds})
	assert.Equal(t, "low", preds[0].PatternID)
}

func TestAggregate_SeverityCountsIncludeDependencyIssues(t *testing.T) {
	r := Aggregate(Input{
		Results: []rules.Result{
			result("no-console", rules.SeverityWarning, "a.ts", 1),
			result("no-console", rules.SeverityWarning, "a.ts", 2),
		},
		DependencyIssues: []deps.Issue{
			{Kind: deps.KindMissing, Package: "left-pad", Severity: rules.SeverityError},
			{Kind: deps.KindDuplicate, Package: "lodash", Severity: rules.SeverityInfo},
		},
		MaxIssues: 1,
	})

	assert.Equal(t, Summary{
		Errors:           1,
		Warnings:         2,
		Info:             1,
		TotalResults:     2,
		DependencyIssues: 2,
		Truncated:        true,
	}, r.Summary)
	assert.Equal(t, map[string]int{"error": 1, "warning": 2, "info": 1}, r.Counts())
}
