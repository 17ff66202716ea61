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
	"errors"
	"testing"
	"time"
)

// fakeClock returns a clock that advances one millisecond per call.
func fakeClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func TestUpsertNode_Create(t *testing.T) {
	s := NewStore()

	node, created := s.UpsertNode(NodeTypeAgent, NodeData{
		ID:           "agent-1",
		Name:         "researcher",
		Status:       StatusActive,
		Capabilities: []string{"search"},
	})

	if !created {
		t.Fatal("expected created=true for a new node")
	}
	if node.ID != "agent-1" {
		t.Errorf("ID = %q, want agent-1", node.ID)
	}
	if node.Label != "researcher" {
		t.Errorf("Label = %q, want researcher", node.Label)
	}
	if s.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", s.NodeCount())
	}
}

func TestUpsertNode_GeneratedID(t *testing.T) {
	s := NewStore()

	a, _ := s.UpsertNode(NodeTypeTask, NodeData{Title: "first"})
	b, _ := s.UpsertNode(NodeTypeTask, NodeData{Title: "second"})

	if a.ID != "Task_1" {
		t.Errorf("first generated ID = %q, want Task_1", a.ID)
	}
	if b.ID != "Task_2" {
		t.Errorf("second generated ID = %q, want Task_2", b.ID)
	}
	if s.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", s.NodeCount())
	}
}

func TestUpsertNode_ReplacesWholesale(t *testing.T) {
	s := NewStore()

	s.UpsertNode(NodeTypeTask, NodeData{
		ID:       "task-1",
		Title:    "original",
		Status:   StatusExecuting,
		Progress: 0.5,
		Priority: "high",
	})
	node, created := s.UpsertNode(NodeTypeTask, NodeData{
		ID:    "task-1",
		Title: "replacement",
	})

	if created {
		t.Fatal("expected created=false for an existing ID")
	}
	if s.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", s.NodeCount())
	}
	if node.Label != "replacement" {
		t.Errorf("Label = %q, want replacement", node.Label)
	}
	// Replace, not merge: fields absent from the new payload are gone.
	if node.Status != "" || node.Progress != 0 || node.Priority != "" {
		t.Errorf("stale fields survived replace: status=%q progress=%v priority=%q",
			node.Status, node.Progress, node.Priority)
	}
}

func TestUpsertNode_ResetsTimestamps(t *testing.T) {
	s := NewStore(WithClock(fakeClock(time.UnixMilli(1000))))

	first, _ := s.UpsertNode(NodeTypeAgent, NodeData{ID: "agent-1"})
	second, _ := s.UpsertNode(NodeTypeAgent, NodeData{ID: "agent-1"})

	if second.CreatedAtMilli <= first.CreatedAtMilli {
		t.Errorf("CreatedAtMilli not reset on replace: first=%d second=%d",
			first.CreatedAtMilli, second.CreatedAtMilli)
	}
	if second.seq <= first.seq {
		t.Errorf("seq not reset on replace: first=%d second=%d", first.seq, second.seq)
	}
}

func TestLabelFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		data NodeData
		want string
	}{
		{"label wins", NodeData{Label: "l", Name: "n", Title: "t", Path: "p"}, "l"},
		{"name second", NodeData{Name: "n", Title: "t", Path: "p"}, "n"},
		{"title third", NodeData{Title: "t", Path: "p"}, "t"},
		{"path fourth", NodeData{Path: "p"}, "p"},
		{"type last", NodeData{}, NodeTypeFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			node, _ := s.UpsertNode(NodeTypeFile, tt.data)
			if node.Label != tt.want {
				t.Errorf("Label = %q, want %q", node.Label, tt.want)
			}
		})
	}
}

func TestPatchNode(t *testing.T) {
	s := NewStore(WithClock(fakeClock(time.UnixMilli(1000))))

	orig, _ := s.UpsertNode(NodeTypeTask, NodeData{
		ID:     "task-1",
		Title:  "task",
		Status: StatusExecuting,
		Attrs:  map[string]any{"kept": true},
	})
	createdAt := orig.CreatedAtMilli

	progress := 0.75
	status := StatusCompleted
	node, err := s.PatchNode("task-1", NodePatch{
		Progress: &progress,
		Status:   &status,
		Attrs:    map[string]any{"extra": 1},
	})
	if err != nil {
		t.Fatalf("PatchNode: %v", err)
	}

	if node.Progress != 0.75 || node.Status != StatusCompleted {
		t.Errorf("patched fields = (%v, %q), want (0.75, completed)", node.Progress, node.Status)
	}
	if node.Label != "task" {
		t.Errorf("unset field changed: Label = %q", node.Label)
	}
	if node.Attrs["kept"] != true || node.Attrs["extra"] != 1 {
		t.Errorf("Attrs not merged: %v", node.Attrs)
	}
	if node.CreatedAtMilli != createdAt {
		t.Errorf("CreatedAtMilli changed on patch: %d -> %d", createdAt, node.CreatedAtMilli)
	}
	if node.UpdatedAtMilli <= createdAt {
		t.Errorf("UpdatedAtMilli not bumped: %d", node.UpdatedAtMilli)
	}
}

func TestPatchNode_NotFound(t *testing.T) {
	s := NewStore()

	_, err := s.PatchNode("missing", NodePatch{})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
	if s.NodeCount() != 0 {
		t.Errorf("store changed by failed patch")
	}
}

func TestUpsertEdge_Dedup(t *testing.T) {
	s := NewStore()

	first, created := s.UpsertEdge(EdgeTypeExecutes, "agent-1", "task-1", EdgeData{})
	if !created {
		t.Fatal("expected created=true for a new edge")
	}
	if first.ID != "agent-1-EXECUTES-task-1" {
		t.Errorf("ID = %q", first.ID)
	}

	second, created := s.UpsertEdge(EdgeTypeExecutes, "agent-1", "task-1", EdgeData{
		Attrs: map[string]any{"volume": 3},
	})
	if created {
		t.Fatal("expected created=false for the same triple")
	}
	if s.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", s.EdgeCount())
	}
	if second.Attrs["volume"] != 3 {
		t.Errorf("replacement attrs not applied: %v", second.Attrs)
	}

	// Reversed direction is a distinct edge.
	_, created = s.UpsertEdge(EdgeTypeExecutes, "task-1", "agent-1", EdgeData{})
	if !created || s.EdgeCount() != 2 {
		t.Errorf("reversed edge not distinct: created=%v count=%d", created, s.EdgeCount())
	}
}

func TestUpsertEdge_TTL(t *testing.T) {
	start := time.UnixMilli(1000)
	s := NewStore(WithClock(func() time.Time { return start }))

	edge, _ := s.UpsertEdge(EdgeTypeCollaborates, "a", "b", EdgeData{TTL: 30 * time.Second})
	if edge.ExpiresAtMilli != start.Add(30*time.Second).UnixMilli() {
		t.Errorf("ExpiresAtMilli = %d", edge.ExpiresAtMilli)
	}

	durable, _ := s.UpsertEdge(EdgeTypeExecutes, "a", "b", EdgeData{})
	if durable.ExpiresAtMilli != 0 {
		t.Errorf("durable edge has expiry: %d", durable.ExpiresAtMilli)
	}
}

func TestRemove_Idempotent(t *testing.T) {
	s := NewStore()
	s.UpsertNode(NodeTypeAgent, NodeData{ID: "agent-1"})
	s.UpsertEdge(EdgeTypeExecutes, "agent-1", "task-1", EdgeData{})

	if !s.RemoveNode("agent-1") {
		t.Error("first RemoveNode = false")
	}
	if s.RemoveNode("agent-1") {
		t.Error("second RemoveNode = true")
	}

	// No cascade: the edge survives its endpoint.
	if s.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1 (no cascade)", s.EdgeCount())
	}

	id := EdgeID("agent-1", EdgeTypeExecutes, "task-1")
	if !s.RemoveEdge(id) {
		t.Error("first RemoveEdge = false")
	}
	if s.RemoveEdge(id) {
		t.Error("second RemoveEdge = true")
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	s := NewStore()
	s.UpsertNode(NodeTypeAgent, NodeData{ID: "agent-1", Attrs: map[string]any{"k": "v"}})
	s.UpsertEdge(EdgeTypeExecutes, "agent-1", "task-1", EdgeData{})

	snap := s.Snapshot()

	// Mutating the snapshot must not touch the store.
	snap.Nodes[0].Label = "tampered"
	snap.Nodes[0].Attrs["k"] = "tampered"
	snap.Edges[0].From = "tampered"

	stored, _ := s.GetNode("agent-1")
	if stored.Label == "tampered" || stored.Attrs["k"] == "tampered" {
		t.Error("snapshot mutation leaked into store node")
	}
	edge, _ := s.GetEdge(EdgeID("agent-1", EdgeTypeExecutes, "task-1"))
	if edge.From == "tampered" {
		t.Error("snapshot mutation leaked into store edge")
	}

	// Mutating the store must not touch an existing snapshot.
	s.UpsertNode(NodeTypeAgent, NodeData{ID: "agent-2"})
	if snap.NodeCount() != 1 {
		t.Errorf("snapshot grew after store mutation: %d", snap.NodeCount())
	}
}

func TestSnapshot_InsertionOrder(t *testing.T) {
	s := NewStore()
	s.UpsertNode(NodeTypeSwarm, NodeData{ID: "s1"})
	s.UpsertNode(NodeTypeAgent, NodeData{ID: "a1"})
	s.UpsertNode(NodeTypeTask, NodeData{ID: "t1"})

	// Re-upserting moves the record to the back of the order.
	s.UpsertNode(NodeTypeSwarm, NodeData{ID: "s1"})

	snap := s.Snapshot()
	got := []string{snap.Nodes[0].ID, snap.Nodes[1].ID, snap.Nodes[2].ID}
	want := []string{"a1", "t1", "s1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot order = %v, want %v", got, want)
		}
	}
}
