// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the in-memory property graph for swarm observability.
//
// The graph holds typed, attributed nodes (swarms, agents, tasks, issues,
// files, analyses) and directed, typed edges between them. It is the single
// authoritative owner of swarm topology state: the event normalizer and the
// eviction sweeper mutate it, the analytics engine and the broadcast hub read
// it through snapshots.
//
// # Ownership Model
//
// Records returned by Store methods are owned by the Store:
//   - Pointers returned by UpsertNode/PatchNode/UpsertEdge/GetNode MUST NOT
//     be mutated by callers.
//   - Snapshot() returns deep copies that callers may keep indefinitely.
//
// # Thread Safety
//
// Store is NOT safe for concurrent use. It is designed for single-writer
// access: one goroutine (the engine's mutation loop) performs all mutations
// and snapshot generation. Snapshots are immutable copies and can be read
// from any goroutine.
//
// # Lifecycle
//
// Nodes and edges are created on first reference by an event, replaced by
// later upserts, merged into by patches, and destroyed only by explicit
// removal or by the eviction sweeper. A process restart starts from an
// empty graph; nothing is persisted.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is returned when patching a node that does not exist.
	// Patch is a strict merge: it never creates the node.
	ErrNodeNotFound = errors.New("node not found")
)
