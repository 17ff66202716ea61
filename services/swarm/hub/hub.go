// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hub fans out graph deltas to websocket subscribers.
//
// The hub tracks the set of open subscribers. A new subscriber receives one
// full-snapshot message, then every delta in the order mutations were
// applied to the store. There is no acknowledgement, retry, or replay of
// missed deltas; a reconnecting subscriber simply receives a fresh snapshot.
//
// # Thread Safety
//
// Hub itself is NOT safe for concurrent use: it is owned by the engine's
// mutation loop, which is what makes delta ordering structural. Each
// Client's write pump runs on its own goroutine and consumes a bounded send
// channel, so fan-out to the sockets is concurrent while the enqueue order
// stays fixed.
package hub

import "time"

// Delta and snapshot message types pushed to subscribers.
const (
	MessageGraphSnapshot    = "graph:snapshot"
	MessageNodeAdded        = "node:added"
	MessageNodeUpdated      = "node:updated"
	MessageEdgeAdded        = "edge:added"
	MessageEdgeRemoved      = "edge:removed"
	MessageGCCleanup        = "gc:cleanup"
	MessageFileModification = "file-modification"
	MessageCollaboration    = "collaboration"
)

// Message is one typed push message on the delta stream.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// New creates a message stamped with the current unix-millisecond time.
func New(msgType string, data any) Message {
	return NewAt(msgType, data, time.Now())
}

// NewAt creates a message stamped at the given instant. Producers with an
// injectable clock use this so delta timestamps line up with record
// timestamps under test clocks.
func NewAt(msgType string, data any, at time.Time) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: at.UnixMilli(),
	}
}

// Hub is the set of currently-open subscribers.
type Hub struct {
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Count returns the number of tracked subscribers.
func (h *Hub) Count() int { return len(h.clients) }

// Add registers a subscriber.
func (h *Hub) Add(c *Client) {
	h.clients[c.ID()] = c
}

// Remove drops a subscriber by ID and closes it. Idempotent.
func (h *Hub) Remove(id string) {
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		c.Close()
	}
}

// Broadcast enqueues one message to every open subscriber.
//
// Description:
//
//	A subscriber whose channel is closed or whose send buffer is full is
//	pruned from the set rather than erroring: a broken or slow observer
//	never stalls the mutation path. Pruned clients reconnect and receive
//	a fresh snapshot.
func (h *Hub) Broadcast(msg Message) {
	for id, c := range h.clients {
		if !c.TrySend(msg) {
			delete(h.clients, id)
			c.Close()
		}
	}
}

// CloseAll closes every subscriber and empties the set. Used on shutdown.
func (h *Hub) CloseAll() {
	for id, c := range h.clients {
		delete(h.clients, id)
		c.Close()
	}
}
