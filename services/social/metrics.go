// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package social

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("socialgraph.service")
	meter  = otel.Meter("socialgraph.service")
)

var (
	mutationTotal metric.Int64Counter
	queryLatency  metric.Float64Histogram
	reloadTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		mutationTotal, err = meter.Int64Counter(
			"socialgraph_mutations_total",
			metric.WithDescription("Graph mutations by operation and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"socialgraph_service_query_duration_seconds",
			metric.WithDescription("Duration of service queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reloadTotal, err = meter.Int64Counter(
			"socialgraph_watch_reloads_total",
			metric.WithDescription("Reloads triggered by external data file edits"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordMutation(ctx context.Context, op, result string) {
	if err := initMetrics(); err != nil {
		return
	}
	mutationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
}

func recordQuery(ctx context.Context, queryType string, d time.Duration, results int) {
	if err := initMetrics(); err != nil {
		return
	}
	queryLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("query_type", queryType),
		attribute.Int("results", results),
	))
}

func recordReload(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	reloadTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
