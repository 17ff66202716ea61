// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sim generates synthetic swarm activity for demo deployments.
//
// The simulator emits a plausible event stream (swarm init, agent spawns,
// task lifecycle, file operations, collaboration messages) through the same
// ingestion path real producers use. It holds no reference to the graph
// store; its only output is events.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
)

// Default simulator tuning.
const (
	DefaultStepInterval = 2 * time.Second
	DefaultMaxAgents    = 6
	DefaultMaxOpenTasks = 8
)

var agentNames = []string{
	"researcher", "coder", "reviewer", "tester", "architect", "documenter",
}

var agentCapabilities = [][]string{
	{"search", "summarize"},
	{"codegen", "refactor"},
	{"review", "lint"},
	{"test", "fuzz"},
	{"design", "plan"},
	{"docs", "diagrams"},
}

var taskTitles = []string{
	"Implement retry policy",
	"Refactor session store",
	"Add schema migration",
	"Profile hot path",
	"Write integration tests",
	"Update API docs",
	"Fix flaky websocket test",
	"Tune eviction thresholds",
}

var filePaths = []string{
	"internal/store/session.go",
	"internal/api/retry.go",
	"migrations/0007_schema.sql",
	"docs/api.md",
	"internal/ws/conn_test.go",
	"internal/gc/sweeper.go",
}

// EmitFunc delivers one synthetic event to the ingestion path.
type EmitFunc func(*ingest.Event)

// simTask tracks an in-flight synthetic task.
type simTask struct {
	id       string
	agentID  string
	progress float64
	started  time.Time
}

// Simulator produces a synthetic swarm activity stream.
//
// Thread Safety:
//
//	Not safe for concurrent use; Run owns all state.
type Simulator struct {
	emit     EmitFunc
	rng      *rand.Rand
	interval time.Duration

	swarmID string
	agents  []string
	tasks   []*simTask
}

// Option is a functional option for configuring Simulator.
type Option func(*Simulator)

// WithInterval sets the step interval.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSeed makes the stream deterministic. Used by tests.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a simulator that delivers events through emit.
func New(emit EmitFunc, opts ...Option) *Simulator {
	s := &Simulator{
		emit:     emit,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		interval: DefaultStepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the simulation until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.bootstrap()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Simulator started", "interval", s.interval, "swarm_id", s.swarmID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Simulator stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// bootstrap emits the swarm root and an initial pair of agents.
func (s *Simulator) bootstrap() {
	s.swarmID = "swarm_" + uuid.New().String()[:8]
	s.emit(&ingest.Event{
		Type: ingest.EventSwarmInit,
		Data: map[string]any{
			"id":       s.swarmID,
			"name":     "demo-swarm",
			"topology": "hierarchical",
		},
	})
	s.spawnAgent()
	s.spawnAgent()
}

// Step emits one round of synthetic activity.
func (s *Simulator) Step() {
	if len(s.agents) < DefaultMaxAgents && s.rng.Float64() < 0.3 {
		s.spawnAgent()
	}
	if len(s.tasks) < DefaultMaxOpenTasks && s.rng.Float64() < 0.5 {
		s.orchestrateTask()
	}
	s.advanceTasks()

	if len(s.agents) >= 2 && s.rng.Float64() < 0.4 {
		s.sendMessage()
	}
}

func (s *Simulator) spawnAgent() {
	idx := len(s.agents) % len(agentNames)
	agentID := fmt.Sprintf("agent_%s_%s", agentNames[idx], uuid.New().String()[:8])
	s.agents = append(s.agents, agentID)
	s.emit(&ingest.Event{
		Type: ingest.EventAgentSpawn,
		Data: map[string]any{
			"id":           agentID,
			"swarmId":      s.swarmID,
			"name":         agentNames[idx],
			"status":       "active",
			"capabilities": agentCapabilities[idx],
		},
	})
}

func (s *Simulator) orchestrateTask() {
	taskID := "task_" + uuid.New().String()[:8]
	agentID := s.agents[s.rng.Intn(len(s.agents))]

	s.emit(&ingest.Event{
		Type: ingest.EventTaskOrchestrate,
		Data: map[string]any{
			"id":       taskID,
			"title":    taskTitles[s.rng.Intn(len(taskTitles))],
			"status":   "executing",
			"priority": []string{"low", "medium", "high"}[s.rng.Intn(3)],
		},
	})
	s.emit(&ingest.Event{
		Type: ingest.EventTaskAssign,
		Data: map[string]any{
			"taskId":  taskID,
			"agentId": agentID,
		},
	})

	s.tasks = append(s.tasks, &simTask{id: taskID, agentID: agentID, started: time.Now()})
}

// advanceTasks pushes progress on every open task and completes the ones
// that reach the end, occasionally touching a file along the way.
func (s *Simulator) advanceTasks() {
	remaining := s.tasks[:0]
	for _, t := range s.tasks {
		t.progress += 0.1 + s.rng.Float64()*0.2

		if s.rng.Float64() < 0.3 {
			s.emit(&ingest.Event{
				Type: ingest.EventFileOperation,
				Data: map[string]any{
					"path":      filePaths[s.rng.Intn(len(filePaths))],
					"taskId":    t.id,
					"operation": []string{"create", "modify", "delete"}[s.rng.Intn(3)],
				},
			})
		}

		if t.progress >= 1 {
			s.emit(&ingest.Event{
				Type: ingest.EventTaskProgress,
				Data: map[string]any{
					"taskId":   t.id,
					"progress": 1.0,
					"status":   "completed",
					"duration": float64(time.Since(t.started).Milliseconds()),
				},
			})
			continue
		}

		s.emit(&ingest.Event{
			Type: ingest.EventTaskProgress,
			Data: map[string]any{
				"taskId":   t.id,
				"progress": t.progress,
				"status":   "executing",
			},
		})
		remaining = append(remaining, t)
	}
	s.tasks = remaining
}

func (s *Simulator) sendMessage() {
	from := s.agents[s.rng.Intn(len(s.agents))]
	to := s.agents[s.rng.Intn(len(s.agents))]
	if from == to {
		return
	}
	s.emit(&ingest.Event{
		Type: ingest.EventAgentMessage,
		Data: map[string]any{
			"from":     from,
			"to":       to,
			"protocol": "a2a",
			"volume":   1 + s.rng.Intn(16),
		},
	})
}
