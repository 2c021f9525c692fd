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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/foresight/services/foresight/report"
)

var tracer = otel.Tracer("foresight.service")

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "foresight"

const (
	kindProject = "project"
	kindSnippet = "snippet"
	kindWatch   = "watch"

	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeError   = "error"
)

var (
	// analysesTotal counts analyses by kind and outcome.
	// Labels: kind (project, snippet, watch), outcome (ok, partial, error)
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analyses_total",
			Help:      "Total analyses run, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// analysisDuration measures end-to-end analysis latency.
	// Labels: kind
	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	// reportResults tracks the size of produced reports before truncation.
	reportResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "report_results",
			Help:      "Deduplicated results per project report",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// httpRequestsTotal counts API requests by handler and status.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total API requests, by handler and status code",
		},
		[]string{"handler", "status"},
	)
)

func recordAnalysis(kind, outcome string, d time.Duration) {
	analysesTotal.WithLabelValues(kind, outcome).Inc()
	analysisDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func startAnalyzeSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Service.AnalyzeProject",
		trace.WithAttributes(attribute.String("foresight.root", root)),
	)
}

func setAnalyzeSpanResult(span trace.Span, rep *report.Report) {
	reportResults.Observe(float64(rep.Summary.TotalResults))
	span.SetAttributes(
		attribute.String("foresight.report_id", rep.ID),
		attribute.Int("foresight.results", rep.Summary.TotalResults),
		attribute.Int("foresight.predictions", rep.Summary.Predictions),
		attribute.Int("foresight.dependency_issues", rep.Summary.DependencyIssues),
		attribute.Bool("foresight.partial", rep.Partial),
	)
}

func setSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
