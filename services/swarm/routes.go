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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all swarm routes with the router.
//
// Description:
//
//	Registers all /v1/swarm/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/swarm/events - Ingest one lifecycle event
//	GET  /v1/swarm/graph - Full graph snapshot
//	GET  /v1/swarm/stats - Computed graph analytics
//	GET  /v1/swarm/gc - Eviction configuration and current counts
//	POST /v1/swarm/gc/trigger - Run a manual sweep
//	GET  /v1/swarm/health - Health check
//	GET  /v1/swarm/ws - WebSocket delta-stream subscription
//
// Example:
//
//	eng := swarm.NewEngine(swarm.DefaultConfig())
//	eng.Start()
//	handlers := swarm.NewHandlers(eng)
//
//	v1 := router.Group("/v1")
//	swarm.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sw := rg.Group("/swarm")
	{
		// Event ingestion
		sw.POST("/events", handlers.HandleIngest)

		// Graph queries
		sw.GET("/graph", handlers.HandleGraph)
		sw.GET("/stats", handlers.HandleStats)

		// Eviction sweeper
		sw.GET("/gc", handlers.HandleGCStatus)
		sw.POST("/gc/trigger", handlers.HandleGCTrigger)

		// Health check
		sw.GET("/health", handlers.HandleHealth)

		// Delta stream
		sw.GET("/ws", handlers.HandleWebSocket)
	}
}
