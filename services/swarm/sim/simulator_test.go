// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sim

import (
	"testing"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/graph"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
)

// drive runs the simulator against a real normalizer and store.
func drive(t *testing.T, steps int) (*Simulator, *graph.Store, []ingest.Event) {
	t.Helper()

	store := graph.NewStore()
	norm := ingest.NewNormalizer(store)

	var seen []ingest.Event
	s := New(func(ev *ingest.Event) {
		seen = append(seen, *ev)
		norm.Ingest(ev)
	}, WithSeed(42))

	s.bootstrap()
	for i := 0; i < steps; i++ {
		s.Step()
	}
	return s, store, seen
}

func TestBootstrap(t *testing.T) {
	_, store, seen := drive(t, 0)

	if len(seen) != 3 {
		t.Fatalf("bootstrap emitted %d events, want 3", len(seen))
	}
	if seen[0].Type != ingest.EventSwarmInit {
		t.Errorf("first event = %s, want swarm-init", seen[0].Type)
	}

	snap := store.Snapshot()
	m := graph.ComputeMetrics(snap)
	if m.NodesByType[graph.NodeTypeSwarm] != 1 {
		t.Errorf("swarm nodes = %d, want 1", m.NodesByType[graph.NodeTypeSwarm])
	}
	if m.NodesByType[graph.NodeTypeAgent] != 2 {
		t.Errorf("agent nodes = %d, want 2", m.NodesByType[graph.NodeTypeAgent])
	}
	// Every agent hangs off the swarm root.
	if m.EdgesByType[graph.EdgeTypeOrchestrates] != 2 {
		t.Errorf("orchestration edges = %d, want 2", m.EdgesByType[graph.EdgeTypeOrchestrates])
	}
}

func TestStep_EmitsOnlyRecognizedEvents(t *testing.T) {
	recognized := map[string]bool{
		ingest.EventSwarmInit:       true,
		ingest.EventAgentSpawn:      true,
		ingest.EventTaskOrchestrate: true,
		ingest.EventTaskAssign:      true,
		ingest.EventTaskProgress:    true,
		ingest.EventFileOperation:   true,
		ingest.EventAgentMessage:    true,
	}

	_, _, seen := drive(t, 50)

	for _, ev := range seen {
		if !recognized[ev.Type] {
			t.Errorf("emitted unrecognized event type %q", ev.Type)
		}
		if ev.Data == nil {
			t.Errorf("emitted %s with nil payload", ev.Type)
		}
	}
}

func TestStep_PopulationStaysBounded(t *testing.T) {
	s, store, _ := drive(t, 200)

	if len(s.agents) > DefaultMaxAgents {
		t.Errorf("agents = %d, want <= %d", len(s.agents), DefaultMaxAgents)
	}
	if len(s.tasks) > DefaultMaxOpenTasks {
		t.Errorf("open tasks = %d, want <= %d", len(s.tasks), DefaultMaxOpenTasks)
	}

	m := graph.ComputeMetrics(store.Snapshot())
	if m.NodesByType[graph.NodeTypeAgent] > DefaultMaxAgents {
		t.Errorf("agent nodes = %d, want <= %d", m.NodesByType[graph.NodeTypeAgent], DefaultMaxAgents)
	}
}

func TestStep_TasksComplete(t *testing.T) {
	_, store, _ := drive(t, 200)

	m := graph.ComputeMetrics(store.Snapshot())
	if m.CompletedTasks == 0 {
		t.Error("no task completed after 200 steps")
	}
	if m.AvgTaskDurationMilli < 0 {
		t.Errorf("AvgTaskDurationMilli = %v", m.AvgTaskDurationMilli)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	_, _, a := drive(t, 30)
	_, _, b := drive(t, 30)

	if len(a) != len(b) {
		t.Fatalf("runs diverged in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			t.Fatalf("runs diverged at event %d: %s vs %s", i, a[i].Type, b[i].Type)
		}
	}
}
