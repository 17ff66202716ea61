// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// sendBufferSize is the per-subscriber delta buffer. A subscriber that
// falls this far behind is treated as broken and pruned.
const sendBufferSize = 256

// Conn is the subset of *websocket.Conn the client needs. Tests substitute
// an in-memory fake.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client is one subscriber connection with its bounded send queue.
//
// Thread Safety:
//
//	TrySend, Close, and Closed are safe to call from any goroutine. Run
//	must be started exactly once, on its own goroutine.
type Client struct {
	id   string
	conn Conn
	send chan Message
	done chan struct{}

	closeOnce sync.Once
}

// NewClient wraps a connection in a subscriber client with a fresh ID.
func NewClient(conn Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Message, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (c *Client) ID() string { return c.id }

// Run is the write pump: it drains the send queue onto the socket until
// the client is closed or a write fails. Call on a dedicated goroutine.
func (c *Client) Run() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("Subscriber write failed", "subscriber_id", c.id, "error", err)
				c.Close()
				return
			}
		}
	}
}

// TrySend enqueues a message without blocking.
//
// Outputs:
//
//	bool - False if the client is closed or its buffer is full; the
//	caller should prune the client.
func (c *Client) TrySend(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close shuts the client down and closes the underlying connection.
// Idempotent and safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Subscriber close failed", "subscriber_id", c.id, "error", err)
		}
	})
}

// Closed reports whether the client has been shut down.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
