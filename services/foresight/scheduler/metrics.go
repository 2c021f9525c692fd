// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scheduler

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("foresight.scheduler")
	meter  = otel.Meter("foresight.scheduler")
)

var (
	runLatency    metric.Float64Histogram
	filesTotal    metric.Int64Counter
	runsCancelled metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"foresight_scheduler_run_duration_seconds",
			metric.WithDescription("Duration of one scheduled batch"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesTotal, err = meter.Int64Counter(
			"foresight_scheduler_files_total",
			metric.WithDescription("Files processed, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runsCancelled, err = meter.Int64Counter(
			"foresight_scheduler_partial_runs_total",
			metric.WithDescription("Batches stopped early by cancellation"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, files, concurrency int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scheduler.Run",
		trace.WithAttributes(
			attribute.Int("scheduler.files", files),
			attribute.Int("scheduler.concurrency", concurrency),
		),
	)
}

func setRunSpanResult(span trace.Span, out *Outcome) {
	span.SetAttributes(
		attribute.Int("scheduler.analyzed", out.Analyzed),
		attribute.Int("scheduler.from_cache", out.FromCache),
		attribute.Int("scheduler.failed", out.Failed),
		attribute.Bool("scheduler.partial", out.Partial),
	)
}

func recordRun(ctx context.Context, out *Outcome) {
	if err := initMetrics(); err != nil {
		return
	}
	// Recording must survive a cancelled run context.
	ctx = context.WithoutCancel(ctx)
	runLatency.Record(ctx, out.Duration.Seconds())
	filesTotal.Add(ctx, int64(out.Analyzed), metric.WithAttributes(attribute.String("outcome", "analyzed")))
	filesTotal.Add(ctx, int64(out.FromCache), metric.WithAttributes(attribute.String("outcome", "cached")))
	filesTotal.Add(ctx, int64(out.Failed), metric.WithAttributes(attribute.String("outcome", "failed")))
	if out.Partial {
		runsCancelled.Add(ctx, 1)
	}
}
