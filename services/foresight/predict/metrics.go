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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("foresight.predict")
	meter  = otel.Meter("foresight.predict")
)

var (
	predictionsTotal metric.Int64Counter
	probabilityHist  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		predictionsTotal, err = meter.Int64Counter(
			"foresight_predictions_total",
			metric.WithDescription("Total predictions by error type"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		probabilityHist, err = meter.Float64Histogram(
			"foresight_prediction_probability",
			metric.WithDescription("Distribution of prediction probabilities"),
			metric.WithExplicitBucketBoundaries(0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func startPredictSpan(ctx context.Context, file string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Classifier.Predict",
		trace.WithAttributes(attribute.String("predict.file", file)),
	)
}

func setPredictSpanResult(span trace.Span, count int) {
	span.SetAttributes(attribute.Int("predict.count", count))
}

func recordPredictions(ctx context.Context, preds []PredictedError) {
	if len(preds) == 0 || initMetrics() != nil {
		return
	}
	for _, p := range preds {
		attrs := metric.WithAttributes(attribute.String("error_type", string(p.ErrorType)))
		predictionsTotal.Add(ctx, 1, attrs)
		probabilityHist.Record(ctx, p.Probability, attrs)
	}
}
