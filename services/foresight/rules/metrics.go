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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for rule execution.
var (
	tracer = otel.Tracer("foresight.rules")
	meter  = otel.Meter("foresight.rules")
)

var (
	executeLatency metric.Float64Histogram
	resultsFound   metric.Int64Counter
	ruleFailures   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		executeLatency, err = meter.Float64Histogram(
			"foresight_rules_execute_duration_seconds",
			metric.WithDescription("Duration of rule execution for one file"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resultsFound, err = meter.Int64Counter(
			"foresight_rules_results_total",
			metric.WithDescription("Total number of rule results produced"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		ruleFailures, err = meter.Int64Counter(
			"foresight_rules_failures_total",
			metric.WithDescription("Total number of rules that panicked or errored"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startExecuteSpan(ctx context.Context, file string, ruleCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Execute",
		trace.WithAttributes(
			attribute.String("rules.file", file),
			attribute.Int("rules.count", ruleCount),
		),
	)
}

func setExecuteSpanResult(span trace.Span, results, failures int) {
	span.SetAttributes(
		attribute.Int("rules.result_count", results),
		attribute.Int("rules.failure_count", failures),
	)
}

func recordExecuteMetrics(ctx context.Context, duration time.Duration, results int) {
	if err := initMetrics(); err != nil {
		return
	}
	executeLatency.Record(ctx, duration.Seconds())
	resultsFound.Add(ctx, int64(results))
}

func recordRuleFailure(ctx context.Context, ruleID string) {
	if err := initMetrics(); err != nil {
		return
	}
	ruleFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", ruleID)))
}
