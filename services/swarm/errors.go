// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package swarm provides the swarm-visualization HTTP service.
//
// The service exposes endpoints for:
//   - Ingesting swarm lifecycle events
//   - Fetching the live graph snapshot and computed analytics
//   - Inspecting and triggering the eviction sweeper
//   - Subscribing to the ordered delta stream over WebSocket
package swarm

import "errors"

// Sentinel errors for the swarm service.
var (
	// ErrEngineStopped indicates the mutation loop is no longer running.
	ErrEngineStopped = errors.New("engine stopped")

	// ErrInvalidConfig indicates the service configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
