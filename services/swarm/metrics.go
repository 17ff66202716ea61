// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package swarm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
)

// Package-level meter for engine operations.
var meter = otel.Meter("aleutian.swarm.engine")

// Metrics for event ingestion and subscriber tracking.
var (
	eventsIngested  metric.Int64Counter
	subscriberCount metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		eventsIngested, err = meter.Int64Counter(
			"swarm_events_ingested_total",
			metric.WithDescription("Total number of events submitted to the normalizer"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		subscriberCount, err = meter.Int64Gauge(
			"swarm_subscribers",
			metric.WithDescription("Number of open delta-stream subscribers"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordIngest counts one normalized event. deltaCount zero means the
// event was a documented no-op.
func recordIngest(ev *ingest.Event, deltaCount int) {
	if err := initMetrics(); err != nil {
		return
	}
	eventType := "malformed"
	if ev != nil && ev.Type != "" {
		eventType = ev.Type
	}
	eventsIngested.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("event_type", eventType),
			attribute.Bool("applied", deltaCount > 0),
		),
	)
}

// recordSubscriberCount records the current subscriber set size.
func recordSubscriberCount(n int) {
	if err := initMetrics(); err != nil {
		return
	}
	subscriberCount.Record(context.Background(), int64(n))
}
