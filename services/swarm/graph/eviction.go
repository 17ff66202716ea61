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
	"sort"
	"time"
)

// Default sweep configuration values.
const (
	DefaultMaxNodes = 500
	DefaultMaxEdges = 2000
	DefaultMaxAge   = 10 * time.Minute
	DefaultInterval = 30 * time.Second
)

// SweepConfig configures the eviction sweeper. This policy is the system's
// backpressure mechanism against unbounded memory use.
type SweepConfig struct {
	// Enabled controls the periodic timer. A disabled sweeper never
	// auto-runs, but manual triggers still execute.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MaxNodes gates the sweep: nothing happens while both node and edge
	// counts are below their thresholds. It is also the target the size
	// pass shrinks back down to.
	MaxNodes int `yaml:"max_nodes" json:"maxNodes"`

	// MaxEdges is the edge-count gate threshold.
	MaxEdges int `yaml:"max_edges" json:"maxEdges"`

	// MaxAge is how old a record may grow before the age pass removes it.
	MaxAge time.Duration `yaml:"max_age" json:"maxAge"`

	// Interval is how often the periodic timer fires.
	Interval time.Duration `yaml:"interval" json:"interval"`

	// PinnedTypes lists node types exempt from eviction regardless of age.
	PinnedTypes []string `yaml:"pinned_types" json:"pinnedTypes"`
}

// DefaultSweepConfig returns sensible defaults. Swarm nodes are pinned so
// the root of the topology survives long quiet periods.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Enabled:     true,
		MaxNodes:    DefaultMaxNodes,
		MaxEdges:    DefaultMaxEdges,
		MaxAge:      DefaultMaxAge,
		Interval:    DefaultInterval,
		PinnedTypes: []string{NodeTypeSwarm},
	}
}

// SweepResult reports the before/after counts of one sweep execution.
type SweepResult struct {
	NodesBefore int `json:"nodesBefore"`
	NodesAfter  int `json:"nodesAfter"`
	EdgesBefore int `json:"edgesBefore"`
	EdgesAfter  int `json:"edgesAfter"`
}

// Changed reports whether the sweep removed anything.
func (r SweepResult) Changed() bool {
	return r.NodesBefore != r.NodesAfter || r.EdgesBefore != r.EdgesAfter
}

// Sweeper shrinks the store when size/age thresholds are exceeded and
// removes expired ephemeral edges.
//
// Thread Safety:
//
//	Sweeper mutates the store and therefore runs on the same single
//	owning goroutine as every other mutation.
type Sweeper struct {
	store  *Store
	cfg    SweepConfig
	pinned map[string]bool
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store *Store, cfg SweepConfig) *Sweeper {
	pinned := make(map[string]bool, len(cfg.PinnedTypes))
	for _, t := range cfg.PinnedTypes {
		pinned[t] = true
	}
	return &Sweeper{store: store, cfg: cfg, pinned: pinned}
}

// Config returns the sweep configuration.
func (sw *Sweeper) Config() SweepConfig { return sw.cfg }

// ExpireEdges removes every ephemeral edge whose expiry instant has passed.
//
// Description:
//
//	Runs on every timer tick and manual trigger, independent of the size
//	gate: a collaboration edge with a 30s TTL must disappear on schedule
//	even when the graph is far below its thresholds.
//
// Outputs:
//
//	[]*Edge - The removed edges, for edge:removed delta fan-out.
func (sw *Sweeper) ExpireEdges(now time.Time) []*Edge {
	nowMilli := now.UnixMilli()
	var removed []*Edge
	for id, e := range sw.store.edges {
		if e.ExpiresAtMilli != 0 && e.ExpiresAtMilli <= nowMilli {
			removed = append(removed, e)
			sw.store.RemoveEdge(id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].seq < removed[j].seq })
	return removed
}

// Sweep runs one threshold-and-age-based cleanup.
//
// Description:
//
//	Step 1: if node count < MaxNodes AND edge count < MaxEdges, the sweep
//	is a cheap no-op. Step 2: cutoff = now - MaxAge. Step 3: remove every
//	non-pinned node older than the cutoff, plus every edge that is itself
//	older than the cutoff or touches a removed node. Step 4: if the node
//	count still exceeds MaxNodes, remove the oldest excess non-pinned
//	nodes (timestamp ascending, ties by insertion order) and cascade their
//	edges. Record age is UpdatedAtMilli, so ordering is least-recently-
//	touched: upserts reset it and patches bump it.
//
//	The sweep never fails. Enabled is not consulted here; it only gates
//	the periodic timer, so manual triggers work on a disabled sweeper.
//
// Inputs:
//
//	ctx - Context for telemetry only; the sweep itself is not cancellable.
//	now - The sweep instant.
//	manual - True for an operator-triggered sweep (telemetry attribute).
//
// Outputs:
//
//	SweepResult - Before/after counts. Changed() reports whether a
//	gc:cleanup delta should be emitted.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time, manual bool) SweepResult {
	result := SweepResult{
		NodesBefore: sw.store.NodeCount(),
		EdgesBefore: sw.store.EdgeCount(),
		NodesAfter:  sw.store.NodeCount(),
		EdgesAfter:  sw.store.EdgeCount(),
	}

	if result.NodesBefore < sw.cfg.MaxNodes && result.EdgesBefore < sw.cfg.MaxEdges {
		return result
	}

	ctx, span := startSweepSpan(ctx, manual, result.NodesBefore, result.EdgesBefore)
	defer span.End()
	start := time.Now()

	cutoffMilli := now.Add(-sw.cfg.MaxAge).UnixMilli()
	removedNodes := make(map[string]bool)

	// Age pass over nodes.
	for id, n := range sw.store.nodes {
		if sw.pinned[n.Type] {
			continue
		}
		if n.UpdatedAtMilli < cutoffMilli {
			removedNodes[id] = true
			sw.store.RemoveNode(id)
		}
	}

	// Age and cascade pass over edges.
	sw.removeEdges(func(e *Edge) bool {
		return e.UpdatedAtMilli < cutoffMilli || removedNodes[e.From] || removedNodes[e.To]
	})

	// Size pass: shrink back down to MaxNodes, oldest first.
	if excess := sw.store.NodeCount() - sw.cfg.MaxNodes; excess > 0 {
		candidates := make([]*Node, 0, sw.store.NodeCount())
		for _, n := range sw.store.nodes {
			if !sw.pinned[n.Type] {
				candidates = append(candidates, n)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].UpdatedAtMilli != candidates[j].UpdatedAtMilli {
				return candidates[i].UpdatedAtMilli < candidates[j].UpdatedAtMilli
			}
			return candidates[i].seq < candidates[j].seq
		})
		if excess > len(candidates) {
			excess = len(candidates)
		}

		evicted := make(map[string]bool, excess)
		for _, n := range candidates[:excess] {
			evicted[n.ID] = true
			sw.store.RemoveNode(n.ID)
		}
		sw.removeEdges(func(e *Edge) bool {
			return evicted[e.From] || evicted[e.To]
		})
	}

	result.NodesAfter = sw.store.NodeCount()
	result.EdgesAfter = sw.store.EdgeCount()

	setSweepSpanResult(span, result)
	recordSweep(ctx, time.Since(start), result, manual)
	return result
}

// removeEdges deletes every edge matching the predicate.
func (sw *Sweeper) removeEdges(match func(*Edge) bool) {
	for id, e := range sw.store.edges {
		if match(e) {
			sw.store.RemoveEdge(id)
		}
	}
}
