// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("foresight.deps")
	meter  = otel.Meter("foresight.deps")
)

var (
	issuesTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		issuesTotal, metricsErr = meter.Int64Counter(
			"foresight_dependency_issues_total",
			metric.WithDescription("Total dependency issues by kind"),
		)
	})
	return metricsErr
}

func startAnalyzeSpan(ctx context.Context, manifests, imports int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "deps.Analyze",
		trace.WithAttributes(
			attribute.Int("deps.manifests", manifests),
			attribute.Int("deps.imports", imports),
		),
	)
}

func setAnalyzeSpanResult(span trace.Span, issues int) {
	span.SetAttributes(attribute.Int("deps.issue_count", issues))
}

func recordIssues(ctx context.Context, issues []Issue) {
	if len(issues) == 0 || initMetrics() != nil {
		return
	}
	for _, i := range issues {
		issuesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(i.Kind))))
	}
}
