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

import "time"

// Well-known node types. The type tag is an open string: events may carry
// types outside this list and the store accepts them unchanged.
const (
	NodeTypeSwarm    = "Swarm"
	NodeTypeAgent    = "Agent"
	NodeTypeTask     = "Task"
	NodeTypeIssue    = "Issue"
	NodeTypeFile     = "File"
	NodeTypeAnalysis = "Analysis"
)

// Well-known edge types.
const (
	EdgeTypeOrchestrates = "ORCHESTRATES"
	EdgeTypeExecutes     = "EXECUTES"
	EdgeTypeModifies     = "MODIFIES"
	EdgeTypeImplements   = "IMPLEMENTS"
	EdgeTypeCollaborates = "COLLABORATES"
)

// Well-known status values used by the analytics engine.
const (
	StatusActive    = "active"
	StatusExecuting = "executing"
	StatusCompleted = "completed"
)

// Node is a typed, attributed entity in the property graph.
//
// Enumerated fields cover the attributes the normalizer and analytics engine
// understand; Attrs is the open extension map for everything else an event
// payload carries.
type Node struct {
	// ID is the globally unique node identifier.
	ID string `json:"id"`

	// Type is an open string tag (Swarm, Agent, Task, ...).
	Type string `json:"type"`

	// Label is the display name. Falls back through name, title, path,
	// then the node type when the event payload names nothing.
	Label string `json:"label"`

	// Status is the lifecycle status (active, executing, completed, ...).
	Status string `json:"status,omitempty"`

	// Progress is the completion fraction in [0, 1] for task nodes.
	Progress float64 `json:"progress,omitempty"`

	// Priority is an open priority tag (low, medium, high, critical).
	Priority string `json:"priority,omitempty"`

	// Capabilities lists agent capabilities (agent nodes only).
	Capabilities []string `json:"capabilities,omitempty"`

	// DurationMilli is the task duration in milliseconds, set when a task
	// completes. Zero means no duration was recorded.
	DurationMilli float64 `json:"duration,omitempty"`

	// Attrs holds payload fields outside the enumerated set.
	Attrs map[string]any `json:"attrs,omitempty"`

	// CreatedAtMilli is when this record was (re)created. Upsert replaces
	// the whole record and resets this value.
	CreatedAtMilli int64 `json:"createdAt"`

	// UpdatedAtMilli is bumped by every upsert and patch. The eviction
	// sweeper orders nodes by this value.
	UpdatedAtMilli int64 `json:"updatedAt"`

	// seq is the insertion sequence, reset on upsert. Breaks timestamp
	// ties during eviction.
	seq uint64
}

// Clone returns a deep copy of the node. Deltas handed to subscribers
// must be clones; the store keeps mutating its own record.
func (n *Node) Clone() *Node {
	out := *n
	if n.Capabilities != nil {
		out.Capabilities = append([]string(nil), n.Capabilities...)
	}
	if n.Attrs != nil {
		out.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}

// Edge is a directed, typed relationship between two nodes.
//
// The edge ID is fully determined by (from, type, to): re-adding an edge
// with the same triple replaces the existing record. Referential integrity
// is not enforced; an edge may reference node IDs that are absent from the
// store (dangling edges are legal).
type Edge struct {
	// ID is EdgeID(From, Type, To).
	ID string `json:"id"`

	// Type is an open string tag (ORCHESTRATES, EXECUTES, ...).
	Type string `json:"type"`

	// From is the source node ID.
	From string `json:"from"`

	// To is the target node ID.
	To string `json:"to"`

	// Attrs holds open edge attributes (protocol, volume, start time, ...).
	Attrs map[string]any `json:"attrs,omitempty"`

	// ExpiresAtMilli marks an ephemeral edge. Zero means no expiry; a
	// non-zero value is the unix-millisecond instant after which the
	// sweeper removes the edge.
	ExpiresAtMilli int64 `json:"expiresAt,omitempty"`

	// CreatedAtMilli is when this record was (re)created.
	CreatedAtMilli int64 `json:"createdAt"`

	// UpdatedAtMilli is bumped by every upsert.
	UpdatedAtMilli int64 `json:"updatedAt"`

	// seq is the insertion sequence, reset on upsert.
	seq uint64
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	out := *e
	if e.Attrs != nil {
		out.Attrs = make(map[string]any, len(e.Attrs))
		for k, v := range e.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}

// EdgeID derives the deterministic edge identifier for a (from, type, to)
// triple. This is the dedup key for UpsertEdge.
func EdgeID(from, edgeType, to string) string {
	return from + "-" + edgeType + "-" + to
}

// NodeData carries the normalized payload for a node upsert.
//
// ID may be empty; the store then generates a "<type>_<n>" identifier.
// Label resolution order: Label, Name, Title, Path, then the node type.
type NodeData struct {
	ID            string
	Label         string
	Name          string
	Title         string
	Path          string
	Status        string
	Progress      float64
	Priority      string
	Capabilities  []string
	DurationMilli float64
	Attrs         map[string]any
}

// NodePatch carries a partial update for PatchNode. Nil pointer fields are
// left untouched; Attrs entries are merged into the existing attribute map.
type NodePatch struct {
	Label         *string
	Status        *string
	Progress      *float64
	Priority      *string
	DurationMilli *float64
	Attrs         map[string]any
}

// EdgeData carries the normalized payload for an edge upsert.
type EdgeData struct {
	// Attrs holds open edge attributes.
	Attrs map[string]any

	// TTL, when positive, makes the edge ephemeral: it expires TTL after
	// the upsert and is removed by the sweeper's expiry pass.
	TTL time.Duration
}

// Snapshot is a full, consistent, deeply-copied view of the graph. It is
// immutable once taken and safe to read from any goroutine.
type Snapshot struct {
	// Nodes in insertion order.
	Nodes []*Node `json:"nodes"`

	// Edges in insertion order.
	Edges []*Edge `json:"edges"`

	// TakenAtMilli is when the snapshot was taken.
	TakenAtMilli int64 `json:"takenAt"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges in the snapshot.
func (s Snapshot) EdgeCount() int { return len(s.Edges) }
