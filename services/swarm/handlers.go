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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/hub"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Handlers contains the HTTP handlers for the swarm service.
type Handlers struct {
	eng *Engine
}

// NewHandlers creates handlers for the given engine.
func NewHandlers(eng *Engine) *Handlers {
	return &Handlers{eng: eng}
}

// getOrCreateRequestID returns the inbound X-Request-ID or generates one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

// HandleIngest handles POST /v1/swarm/events.
//
// Description:
//
//	Accepts one lifecycle event for ingestion. The envelope must be valid
//	JSON; the event inside is validated by the normalizer, so an envelope
//	with a missing type or payload is still accepted and becomes a
//	documented no-op rather than an error.
//
// Response:
//
//	202 Accepted: IngestResponse
//	400 Bad Request: Malformed JSON body
//	503 Service Unavailable: Engine stopped or queue saturated
func (h *Handlers) HandleIngest(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleIngest")

	var ev ingest.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.eng.Ingest(c.Request.Context(), &ev); err != nil {
		logger.Error("Failed to enqueue event", "event_type", ev.Type, "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Event queue unavailable",
			Code:  "QUEUE_UNAVAILABLE",
		})
		return
	}

	c.JSON(http.StatusAccepted, IngestResponse{Accepted: true})
}

// HandleGraph handles GET /v1/swarm/graph.
//
// Response:
//
//	200 OK: graph.Snapshot (full node and edge lists)
func (h *Handlers) HandleGraph(c *gin.Context) {
	snap, err := h.eng.Snapshot(c.Request.Context())
	if err != nil {
		h.engineError(c, "HandleGraph", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleStats handles GET /v1/swarm/stats.
//
// Response:
//
//	200 OK: graph.Metrics computed from a fresh snapshot
func (h *Handlers) HandleStats(c *gin.Context) {
	metrics, err := h.eng.Metrics(c.Request.Context())
	if err != nil {
		h.engineError(c, "HandleStats", err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// HandleGCStatus handles GET /v1/swarm/gc.
//
// Response:
//
//	200 OK: GCStatusResponse (eviction config plus current counts)
func (h *Handlers) HandleGCStatus(c *gin.Context) {
	status, err := h.eng.Status(c.Request.Context())
	if err != nil {
		h.engineError(c, "HandleGCStatus", err)
		return
	}
	c.JSON(http.StatusOK, GCStatusResponse{
		Config:    h.eng.GCConfig(),
		NodeCount: status.NodeCount,
		EdgeCount: status.EdgeCount,
	})
}

// HandleGCTrigger handles POST /v1/swarm/gc/trigger.
//
// Description:
//
//	Runs a manual sweep through the mutation queue, so it never races
//	ordinary ingestion. Works even when the periodic sweeper is disabled.
//
// Response:
//
//	200 OK: graph.SweepResult (before/after counts)
func (h *Handlers) HandleGCTrigger(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGCTrigger")

	result, err := h.eng.TriggerSweep(c.Request.Context())
	if err != nil {
		h.engineError(c, "HandleGCTrigger", err)
		return
	}

	logger.Info("Manual sweep completed",
		"nodes_removed", result.NodesBefore-result.NodesAfter,
		"edges_removed", result.EdgesBefore-result.EdgesAfter,
	)
	c.JSON(http.StatusOK, result)
}

// HandleHealth handles GET /v1/swarm/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	status, err := h.eng.Status(c.Request.Context())
	if err != nil {
		h.engineError(c, "HandleHealth", err)
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       ServiceVersion,
		Subscribers:   status.Subscribers,
		NodeCount:     status.NodeCount,
		EdgeCount:     status.EdgeCount,
		UptimeSeconds: h.eng.Uptime().Seconds(),
	})
}

// HandleWebSocket handles GET /v1/swarm/ws.
//
// Description:
//
//	Upgrades the connection and subscribes it to the delta stream. The
//	subscriber receives one full-snapshot message, then every mutation
//	as a separate delta in apply order. The read loop exists only to
//	detect disconnects; inbound frames are discarded.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}

	client := hub.NewClient(conn)
	go client.Run()

	if err := h.eng.Subscribe(c.Request.Context(), client); err != nil {
		slog.Warn("Failed to subscribe websocket client", "error", err)
		client.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.eng.Unsubscribe(client.ID())
				client.Close()
				return
			}
		}
	}()
}

// engineError maps engine failures onto transport-level responses.
func (h *Handlers) engineError(c *gin.Context, handler string, err error) {
	slog.Error("Engine request failed", "handler", handler, "error", err)
	if errors.Is(err, ErrEngineStopped) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Engine stopped",
			Code:  "ENGINE_STOPPED",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Internal error",
		Code:  "INTERNAL_ERROR",
	})
}
