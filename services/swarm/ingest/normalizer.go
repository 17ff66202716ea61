// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest normalizes inbound swarm lifecycle events into canonical
// graph mutations.
//
// Each recognized event type maps to one or more store mutations (node
// upsert, edge upsert, node patch). Malformed events are documented no-ops:
// ingestion never fails and never leaves the store half-mutated.
package ingest

import (
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/graph"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/hub"
)

// Recognized inbound event types.
const (
	EventSwarmInit       = "swarm-init"
	EventAgentSpawn      = "agent-spawn"
	EventTaskOrchestrate = "task-orchestrate"
	EventTaskAssign      = "task-assign"
	EventTaskProgress    = "task-progress"
	EventFileOperation   = "file-operation"
	EventIssueUpdate     = "issue-update"
	EventAgentMessage    = "agent-message"
)

// DefaultCollabTTL is how long a collaboration edge lives before the
// sweeper's expiry pass removes it.
const DefaultCollabTTL = 30 * time.Second

// Event is one inbound domain event: a type tag plus an open payload.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Normalizer maps domain events onto graph mutations.
//
// Thread Safety:
//
//	Normalizer mutates the store and therefore runs on the single owning
//	goroutine (the engine's mutation loop).
type Normalizer struct {
	store     *graph.Store
	collabTTL time.Duration
	now       func() time.Time
}

// NormalizerOption is a functional option for configuring Normalizer.
type NormalizerOption func(*Normalizer)

// WithCollabTTL overrides the collaboration-edge lifetime.
func WithCollabTTL(ttl time.Duration) NormalizerOption {
	return func(n *Normalizer) {
		if ttl > 0 {
			n.collabTTL = ttl
		}
	}
}

// WithClock overrides the normalizer's clock (delta timestamps and edge
// attributes). Pair it with the store's clock so every timestamp agrees.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a normalizer over the given store.
func NewNormalizer(store *graph.Store, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{store: store, collabTTL: DefaultCollabTTL, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Ingest applies one event to the store.
//
// Description:
//
//	Never fails. A nil event, an empty type, or a nil payload is a
//	documented no-op; unrecognized types are silently dropped. For
//	recognized types, the returned messages are the deltas produced by
//	the applied mutations, in apply order, ready for broadcast.
func (n *Normalizer) Ingest(ev *Event) []hub.Message {
	if ev == nil || ev.Type == "" || ev.Data == nil {
		slog.Debug("Dropping malformed event", "has_event", ev != nil)
		return nil
	}

	switch ev.Type {
	case EventSwarmInit:
		return n.upsertNode(graph.NodeTypeSwarm, ev.Data, "id", "swarmId")

	case EventAgentSpawn:
		deltas := n.upsertNode(graph.NodeTypeAgent, ev.Data, "id", "agentId")
		agentID := stringField(ev.Data, "id", "agentId")
		swarmID := stringField(ev.Data, "swarmId")
		if agentID != "" && swarmID != "" {
			deltas = append(deltas, n.upsertEdge(graph.EdgeTypeOrchestrates, swarmID, agentID, graph.EdgeData{}))
		}
		return deltas

	case EventTaskOrchestrate:
		return n.upsertNode(graph.NodeTypeTask, ev.Data, "id", "taskId")

	case EventTaskAssign:
		agentID := stringField(ev.Data, "agentId")
		taskID := stringField(ev.Data, "taskId")
		if agentID == "" || taskID == "" {
			slog.Debug("Dropping task-assign without endpoints", "agent_id", agentID, "task_id", taskID)
			return nil
		}
		return []hub.Message{n.upsertEdge(graph.EdgeTypeExecutes, agentID, taskID, graph.EdgeData{
			Attrs: map[string]any{"startedAt": n.now().UnixMilli()},
		})}

	case EventTaskProgress:
		return n.patchTask(ev.Data)

	case EventFileOperation:
		deltas := n.upsertNode(graph.NodeTypeFile, ev.Data, "id", "path")
		fileID := stringField(ev.Data, "id", "path")
		taskID := stringField(ev.Data, "taskId")
		if fileID != "" && taskID != "" {
			deltas = append(deltas, n.upsertEdge(graph.EdgeTypeModifies, taskID, fileID, graph.EdgeData{
				Attrs: map[string]any{"operation": stringField(ev.Data, "operation")},
			}))
		}
		deltas = append(deltas, hub.NewAt(hub.MessageFileModification, ev.Data, n.now()))
		return deltas

	case EventIssueUpdate:
		deltas := n.upsertNode(graph.NodeTypeIssue, ev.Data, "id", "issueId")
		issueID := stringField(ev.Data, "id", "issueId")
		taskID := stringField(ev.Data, "taskId")
		if issueID != "" && taskID != "" {
			deltas = append(deltas, n.upsertEdge(graph.EdgeTypeImplements, taskID, issueID, graph.EdgeData{}))
		}
		return deltas

	case EventAgentMessage:
		from := stringField(ev.Data, "from", "fromAgentId")
		to := stringField(ev.Data, "to", "toAgentId")
		if from == "" || to == "" {
			slog.Debug("Dropping agent-message without endpoints", "from", from, "to", to)
			return nil
		}
		attrs := map[string]any{}
		if protocol := stringField(ev.Data, "protocol"); protocol != "" {
			attrs["protocol"] = protocol
		}
		if volume, ok := floatField(ev.Data, "volume"); ok {
			attrs["volume"] = volume
		}
		deltas := []hub.Message{n.upsertEdge(graph.EdgeTypeCollaborates, from, to, graph.EdgeData{
			Attrs: attrs,
			TTL:   n.collabTTL,
		})}
		deltas = append(deltas, hub.NewAt(hub.MessageCollaboration, ev.Data, n.now()))
		return deltas

	default:
		slog.Debug("Dropping unrecognized event type", "type", ev.Type)
		return nil
	}
}

// upsertNode extracts NodeData from the payload and applies the upsert.
// idKeys are tried in order for the node identifier. The delta carries a
// clone: the store keeps mutating its record while subscribers serialize
// the message on their own goroutines.
func (n *Normalizer) upsertNode(nodeType string, data map[string]any, idKeys ...string) []hub.Message {
	node, created := n.store.UpsertNode(nodeType, nodeDataFrom(data, idKeys))
	msgType := hub.MessageNodeAdded
	if !created {
		msgType = hub.MessageNodeUpdated
	}
	return []hub.Message{hub.NewAt(msgType, node.Clone(), n.now())}
}

// upsertEdge applies the edge upsert and wraps a clone in a delta.
func (n *Normalizer) upsertEdge(edgeType, from, to string, data graph.EdgeData) hub.Message {
	edge, _ := n.store.UpsertEdge(edgeType, from, to, data)
	return hub.NewAt(hub.MessageEdgeAdded, edge.Clone(), n.now())
}

// patchTask applies a task-progress patch; a missing task is a no-op.
func (n *Normalizer) patchTask(data map[string]any) []hub.Message {
	taskID := stringField(data, "id", "taskId")
	if taskID == "" {
		slog.Debug("Dropping task-progress without task id")
		return nil
	}

	patch := graph.NodePatch{}
	if progress, ok := floatField(data, "progress"); ok {
		patch.Progress = &progress
	}
	if status := stringField(data, "status"); status != "" {
		patch.Status = &status
	}
	if duration, ok := floatField(data, "duration"); ok {
		patch.DurationMilli = &duration
	}

	node, err := n.store.PatchNode(taskID, patch)
	if err != nil {
		slog.Debug("Dropping task-progress for unknown task", "task_id", taskID)
		return nil
	}
	return []hub.Message{hub.NewAt(hub.MessageNodeUpdated, node.Clone(), n.now())}
}

// consumedKeys are payload fields mapped onto enumerated record fields;
// everything else lands in the open Attrs map.
var consumedKeys = map[string]bool{
	"id": true, "swarmId": true, "agentId": true, "taskId": true,
	"issueId": true, "path": true, "name": true, "title": true,
	"label": true, "status": true, "progress": true, "priority": true,
	"capabilities": true, "duration": true,
}

// nodeDataFrom extracts the enumerated node fields from an event payload.
func nodeDataFrom(data map[string]any, idKeys []string) graph.NodeData {
	nd := graph.NodeData{
		ID:       stringField(data, idKeys...),
		Label:    stringField(data, "label"),
		Name:     stringField(data, "name"),
		Title:    stringField(data, "title"),
		Path:     stringField(data, "path"),
		Status:   stringField(data, "status"),
		Priority: stringField(data, "priority"),
	}
	if progress, ok := floatField(data, "progress"); ok {
		nd.Progress = progress
	}
	if duration, ok := floatField(data, "duration"); ok {
		nd.DurationMilli = duration
	}
	if caps, ok := data["capabilities"].([]any); ok {
		for _, c := range caps {
			if s, ok := c.(string); ok {
				nd.Capabilities = append(nd.Capabilities, s)
			}
		}
	} else if caps, ok := data["capabilities"].([]string); ok {
		nd.Capabilities = append(nd.Capabilities, caps...)
	}

	for k, v := range data {
		if consumedKeys[k] {
			continue
		}
		if nd.Attrs == nil {
			nd.Attrs = make(map[string]any)
		}
		nd.Attrs[k] = v
	}
	return nd
}

// stringField returns the first non-empty string value among the keys.
func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// floatField returns the numeric value for the key, accepting the types
// encoding/json produces plus plain Go ints from in-process producers.
func floatField(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
