// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("aleutian.swarm.graph")
	meter  = otel.Meter("aleutian.swarm.graph")
)

// Mutation operation labels for the mutations counter.
const (
	opUpsertNode = "upsert_node"
	opPatchNode  = "patch_node"
	opUpsertEdge = "upsert_edge"
	opRemoveNode = "remove_node"
	opRemoveEdge = "remove_edge"
)

// Metrics for store mutations and sweeps.
var (
	mutationsTotal metric.Int64Counter
	sweepLatency   metric.Float64Histogram
	sweepsTotal    metric.Int64Counter
	nodesEvicted   metric.Int64Counter
	edgesEvicted   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		mutationsTotal, err = meter.Int64Counter(
			"swarm_graph_mutations_total",
			metric.WithDescription("Total number of graph mutations applied"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sweepLatency, err = meter.Float64Histogram(
			"swarm_graph_sweep_duration_seconds",
			metric.WithDescription("Duration of eviction sweeps"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sweepsTotal, err = meter.Int64Counter(
			"swarm_graph_sweeps_total",
			metric.WithDescription("Total number of eviction sweeps"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesEvicted, err = meter.Int64Counter(
			"swarm_graph_nodes_evicted_total",
			metric.WithDescription("Nodes removed by the eviction sweeper"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesEvicted, err = meter.Int64Counter(
			"swarm_graph_edges_evicted_total",
			metric.WithDescription("Edges removed by the eviction sweeper"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordMutation counts one applied store mutation.
func recordMutation(op string) {
	if err := initMetrics(); err != nil {
		return
	}
	mutationsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// recordSweep records metrics for one sweep execution.
func recordSweep(ctx context.Context, duration time.Duration, result SweepResult, manual bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("manual", manual))
	sweepLatency.Record(ctx, duration.Seconds(), attrs)
	sweepsTotal.Add(ctx, 1, attrs)

	if removed := result.NodesBefore - result.NodesAfter; removed > 0 {
		nodesEvicted.Add(ctx, int64(removed))
	}
	if removed := result.EdgesBefore - result.EdgesAfter; removed > 0 {
		edgesEvicted.Add(ctx, int64(removed))
	}
}

// startSweepSpan creates a span for a sweep execution.
func startSweepSpan(ctx context.Context, manual bool, nodeCount, edgeCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Sweeper.Sweep",
		trace.WithAttributes(
			attribute.Bool("sweep.manual", manual),
			attribute.Int("sweep.node_count", nodeCount),
			attribute.Int("sweep.edge_count", edgeCount),
		),
	)
}

// setSweepSpanResult sets the result attributes on a sweep span.
func setSweepSpanResult(span trace.Span, result SweepResult) {
	span.SetAttributes(
		attribute.Int("sweep.nodes_removed", result.NodesBefore-result.NodesAfter),
		attribute.Int("sweep.edges_removed", result.EdgesBefore-result.EdgesAfter),
	)
}
