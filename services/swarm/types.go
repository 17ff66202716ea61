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

import "github.com/AleutianAI/AleutianSwarm/services/swarm/graph"

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// IngestResponse acknowledges an accepted event.
type IngestResponse struct {
	Accepted bool `json:"accepted"`
}

// HealthResponse reports service liveness and basic counters.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Subscribers   int     `json:"subscribers"`
	NodeCount     int     `json:"nodeCount"`
	EdgeCount     int     `json:"edgeCount"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// GCStatusResponse reports the eviction configuration and current counts.
type GCStatusResponse struct {
	Config    graph.SweepConfig `json:"config"`
	NodeCount int               `json:"nodeCount"`
	EdgeCount int               `json:"edgeCount"`
}

// EngineStatus is the engine-internal view behind HealthResponse.
type EngineStatus struct {
	Subscribers int
	NodeCount   int
	EdgeCount   int
}
