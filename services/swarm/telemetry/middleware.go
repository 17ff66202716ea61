// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	httpLatency metric.Float64Histogram

	httpMetricsOnce sync.Once
	httpMetricsErr  error
)

// initHTTPMetrics initializes the HTTP metrics. Safe to call multiple times.
func initHTTPMetrics() error {
	httpMetricsOnce.Do(func() {
		meter := otel.Meter("aleutian.swarm.http")
		httpLatency, httpMetricsErr = meter.Float64Histogram(
			"swarm_http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests"),
			metric.WithUnit("s"),
		)
	})
	return httpMetricsErr
}

// Middleware returns Gin middleware that adds tracing and request metrics.
//
// Description:
//
//	Wraps each request in a span with standard HTTP semantic attributes,
//	records request duration with method/route/status attributes, and
//	sets span status to Error for 5xx responses.
//
// Inputs:
//
//	tracerName - Name for the tracer (e.g., "swarm.http").
//
// Thread Safety: Safe for concurrent use.
func Middleware(tracerName string) gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(c.Request.Context(), spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.host", c.Request.Host),
				attribute.String("net.peer.ip", c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}

		if err := initHTTPMetrics(); err == nil {
			httpLatency.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.route", c.FullPath()),
					attribute.Int("http.status_code", status),
				),
			)
		}
	}
}
