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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn that records written messages.
type fakeConn struct {
	mu       sync.Mutex
	written  []Message
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, v.(Message))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitForMessages polls until the conn has seen n messages or the deadline
// passes.
func waitForMessages(t *testing.T, conn *fakeConn, n int) []Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := conn.messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, len(conn.messages()))
	return nil
}

func TestClient_WritePumpPreservesOrder(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient(conn)
	go client.Run()
	defer client.Close()

	require.True(t, client.TrySend(New(MessageNodeAdded, "first")))
	require.True(t, client.TrySend(New(MessageEdgeAdded, "second")))
	require.True(t, client.TrySend(New(MessageNodeUpdated, "third")))

	msgs := waitForMessages(t, conn, 3)
	assert.Equal(t, "first", msgs[0].Data)
	assert.Equal(t, "second", msgs[1].Data)
	assert.Equal(t, "third", msgs[2].Data)
}

func TestClient_TrySendAfterClose(t *testing.T) {
	client := NewClient(&fakeConn{})
	client.Close()

	assert.False(t, client.TrySend(New(MessageNodeAdded, nil)))
	assert.True(t, client.Closed())
}

func TestClient_TrySendFullBuffer(t *testing.T) {
	// No write pump running, so the buffer fills up.
	client := NewClient(&fakeConn{})
	defer client.Close()

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, client.TrySend(New(MessageNodeAdded, i)))
	}
	assert.False(t, client.TrySend(New(MessageNodeAdded, "overflow")))
}

func TestClient_WriteErrorClosesClient(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	client := NewClient(conn)
	go client.Run()

	client.TrySend(New(MessageNodeAdded, nil))

	deadline := time.Now().Add(2 * time.Second)
	for !client.Closed() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.True(t, client.Closed())
	assert.True(t, conn.isClosed())
}

func TestHub_BroadcastFanOut(t *testing.T) {
	h := NewHub()

	connA, connB := &fakeConn{}, &fakeConn{}
	a, b := NewClient(connA), NewClient(connB)
	go a.Run()
	go b.Run()
	defer a.Close()
	defer b.Close()

	h.Add(a)
	h.Add(b)
	require.Equal(t, 2, h.Count())

	h.Broadcast(New(MessageNodeAdded, "n1"))
	h.Broadcast(New(MessageEdgeAdded, "e1"))

	for _, conn := range []*fakeConn{connA, connB} {
		msgs := waitForMessages(t, conn, 2)
		assert.Equal(t, "n1", msgs[0].Data)
		assert.Equal(t, "e1", msgs[1].Data)
	}
}

func TestHub_BroadcastPrunesClosedClient(t *testing.T) {
	h := NewHub()

	live := NewClient(&fakeConn{})
	go live.Run()
	defer live.Close()

	dead := NewClient(&fakeConn{})
	dead.Close()

	h.Add(live)
	h.Add(dead)
	require.Equal(t, 2, h.Count())

	h.Broadcast(New(MessageNodeAdded, nil))

	assert.Equal(t, 1, h.Count(), "closed client should be pruned")
}

func TestHub_BroadcastPrunesSlowClient(t *testing.T) {
	h := NewHub()

	// No write pump: the client stops accepting once its buffer is full.
	slow := NewClient(&fakeConn{})
	defer slow.Close()
	h.Add(slow)

	for i := 0; i <= sendBufferSize; i++ {
		h.Broadcast(New(MessageNodeAdded, i))
	}

	assert.Equal(t, 0, h.Count(), "slow client should be pruned, not block")
	assert.True(t, slow.Closed())
}

func TestHub_RemoveIdempotent(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	c := NewClient(conn)
	h.Add(c)

	h.Remove(c.ID())
	h.Remove(c.ID())

	assert.Equal(t, 0, h.Count())
	assert.True(t, conn.isClosed())
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	conns := []*fakeConn{{}, {}, {}}
	for _, conn := range conns {
		h.Add(NewClient(conn))
	}

	h.CloseAll()

	assert.Equal(t, 0, h.Count())
	for _, conn := range conns {
		assert.True(t, conn.isClosed())
	}
}
