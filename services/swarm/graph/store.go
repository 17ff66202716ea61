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
	"fmt"
	"sort"
	"time"
)

// Store is the authoritative in-memory mapping of node and edge records.
//
// Thread Safety:
//
//	Store is NOT safe for concurrent use. All mutations and snapshot
//	generation must run on the single owning goroutine (the engine's
//	mutation loop). See the package documentation.
type Store struct {
	nodes map[string]*Node
	edges map[string]*Edge

	// seq is the global insertion counter shared by nodes and edges.
	seq uint64

	// idSeq feeds generated node identifiers.
	idSeq uint64

	// now is the clock, injectable for tests.
	now func() time.Time
}

// StoreOption is a functional option for configuring Store.
type StoreOption func(*Store)

// WithClock overrides the store's clock. Used by tests to control record
// timestamps deterministically.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty graph store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NodeCount returns the number of nodes in the store.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges in the store.
func (s *Store) EdgeCount() int { return len(s.edges) }

// GetNode retrieves a node by ID. The returned pointer is owned by the
// store and must not be mutated.
func (s *Store) GetNode(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// GetEdge retrieves an edge by ID. The returned pointer is owned by the
// store and must not be mutated.
func (s *Store) GetEdge(id string) (*Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// UpsertNode creates or replaces a node.
//
// Description:
//
//	The node ID comes from data.ID, or a generated "<type>_<n>" fallback
//	when the payload names none. An existing node with the same ID is
//	replaced wholesale (not merged) and its timestamps and insertion
//	sequence are reset; the eviction sweeper therefore orders nodes by
//	last touch, not by first appearance.
//
// Inputs:
//
//	nodeType - Open type tag (Swarm, Agent, Task, ...).
//	data - Normalized payload. Zero-value fields are stored as absent.
//
// Outputs:
//
//	*Node - The new record. Owned by the store; do not mutate.
//	bool - True if the node did not exist before this call.
func (s *Store) UpsertNode(nodeType string, data NodeData) (*Node, bool) {
	id := data.ID
	if id == "" {
		s.idSeq++
		id = fmt.Sprintf("%s_%d", nodeType, s.idSeq)
	}

	_, existed := s.nodes[id]
	nowMilli := s.now().UnixMilli()
	s.seq++

	node := &Node{
		ID:             id,
		Type:           nodeType,
		Label:          resolveLabel(nodeType, data),
		Status:         data.Status,
		Progress:       data.Progress,
		Priority:       data.Priority,
		DurationMilli:  data.DurationMilli,
		CreatedAtMilli: nowMilli,
		UpdatedAtMilli: nowMilli,
		seq:            s.seq,
	}
	if len(data.Capabilities) > 0 {
		node.Capabilities = append([]string(nil), data.Capabilities...)
	}
	if len(data.Attrs) > 0 {
		node.Attrs = make(map[string]any, len(data.Attrs))
		for k, v := range data.Attrs {
			node.Attrs[k] = v
		}
	}

	s.nodes[id] = node
	recordMutation(opUpsertNode)
	return node, !existed
}

// resolveLabel applies the display-name fallback chain.
func resolveLabel(nodeType string, data NodeData) string {
	for _, candidate := range []string{data.Label, data.Name, data.Title, data.Path} {
		if candidate != "" {
			return candidate
		}
	}
	return nodeType
}

// PatchNode merges a partial update into an existing node.
//
// Description:
//
//	Set pointer fields overwrite the corresponding record fields; Attrs
//	entries are merged into the existing attribute map. UpdatedAtMilli is
//	bumped; CreatedAtMilli and the insertion sequence are preserved.
//
// Outputs:
//
//	*Node - The patched record. Owned by the store; do not mutate.
//	error - ErrNodeNotFound if the ID is absent. The store is unchanged.
func (s *Store) PatchNode(id string, patch NodePatch) (*Node, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	if patch.Label != nil {
		node.Label = *patch.Label
	}
	if patch.Status != nil {
		node.Status = *patch.Status
	}
	if patch.Progress != nil {
		node.Progress = *patch.Progress
	}
	if patch.Priority != nil {
		node.Priority = *patch.Priority
	}
	if patch.DurationMilli != nil {
		node.DurationMilli = *patch.DurationMilli
	}
	if len(patch.Attrs) > 0 {
		if node.Attrs == nil {
			node.Attrs = make(map[string]any, len(patch.Attrs))
		}
		for k, v := range patch.Attrs {
			node.Attrs[k] = v
		}
	}

	node.UpdatedAtMilli = s.now().UnixMilli()
	recordMutation(opPatchNode)
	return node, nil
}

// UpsertEdge creates or replaces a directed edge.
//
// Description:
//
//	The edge ID is EdgeID(from, edgeType, to); an existing edge with the
//	same triple is replaced and its properties are fully overwritten.
//	Neither endpoint needs to exist in the store.
//
// Outputs:
//
//	*Edge - The new record. Owned by the store; do not mutate.
//	bool - True if the edge did not exist before this call.
func (s *Store) UpsertEdge(edgeType, from, to string, data EdgeData) (*Edge, bool) {
	id := EdgeID(from, edgeType, to)
	_, existed := s.edges[id]

	now := s.now()
	nowMilli := now.UnixMilli()
	s.seq++

	edge := &Edge{
		ID:             id,
		Type:           edgeType,
		From:           from,
		To:             to,
		CreatedAtMilli: nowMilli,
		UpdatedAtMilli: nowMilli,
		seq:            s.seq,
	}
	if len(data.Attrs) > 0 {
		edge.Attrs = make(map[string]any, len(data.Attrs))
		for k, v := range data.Attrs {
			edge.Attrs[k] = v
		}
	}
	if data.TTL > 0 {
		edge.ExpiresAtMilli = now.Add(data.TTL).UnixMilli()
	}

	s.edges[id] = edge
	recordMutation(opUpsertEdge)
	return edge, !existed
}

// RemoveNode deletes a node by ID. Idempotent: removing an absent node
// returns false. Edges touching the node are NOT cascaded; that cleanup is
// the sweeper's responsibility, so ad-hoc removal can leave dangling edges.
func (s *Store) RemoveNode(id string) bool {
	if _, ok := s.nodes[id]; !ok {
		return false
	}
	delete(s.nodes, id)
	recordMutation(opRemoveNode)
	return true
}

// RemoveEdge deletes an edge by ID. Idempotent.
func (s *Store) RemoveEdge(id string) bool {
	if _, ok := s.edges[id]; !ok {
		return false
	}
	delete(s.edges, id)
	recordMutation(opRemoveEdge)
	return true
}

// Snapshot returns a full, deeply-copied view of the graph in insertion
// order. The result is immutable and safe to hand to other goroutines; a
// long metrics computation over it can never observe a half-applied
// mutation.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Nodes:        make([]*Node, 0, len(s.nodes)),
		Edges:        make([]*Edge, 0, len(s.edges)),
		TakenAtMilli: s.now().UnixMilli(),
	}
	for _, n := range s.nodes {
		snap.Nodes = append(snap.Nodes, n.Clone())
	}
	for _, e := range s.edges {
		snap.Edges = append(snap.Edges, e.Clone())
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].seq < snap.Nodes[j].seq })
	sort.Slice(snap.Edges, func(i, j int) bool { return snap.Edges[i].seq < snap.Edges[j].seq })
	return snap
}
