// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package swarm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/graph"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/hub"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
)

// ServiceVersion is the swarm service version.
const ServiceVersion = "0.1.0"

// op is one unit of work on the engine's mutation queue.
type op interface{ isOp() }

type ingestOp struct{ event *ingest.Event }

type sweepOp struct{ reply chan graph.SweepResult }

type snapshotOp struct{ reply chan graph.Snapshot }

type subscribeOp struct{ client *hub.Client }

type unsubscribeOp struct{ id string }

type statusOp struct{ reply chan EngineStatus }

func (ingestOp) isOp()      {}
func (sweepOp) isOp()       {}
func (snapshotOp) isOp()    {}
func (subscribeOp) isOp()   {}
func (unsubscribeOp) isOp() {}
func (statusOp) isOp()      {}

// Engine owns the graph store and serializes every mutation through a
// single loop.
//
// Description:
//
//	All graph mutations (ingestion, sweeps, manual triggers) and all
//	subscriber membership changes flow through one bounded work queue
//	processed by one goroutine. This single-writer discipline is what
//	keeps the dedup, eviction, and delta-ordering invariants correct
//	without fine-grained locking. Reads (snapshot, metrics, status) pass
//	through the same queue and return immutable copies.
//
// Thread Safety:
//
//	All exported methods are safe for concurrent use; they communicate
//	with the loop over channels.
type Engine struct {
	cfg     Config
	store   *graph.Store
	sweeper *graph.Sweeper
	norm    *ingest.Normalizer
	hub     *hub.Hub

	ops     chan op
	quit    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	now       func() time.Time
	startedAt time.Time
}

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the engine's clock (store timestamps and sweep
// instants). Used by tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with the given configuration. Call Start to
// launch the mutation loop.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:     cfg,
		ops:     make(chan op, cfg.QueueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.store = graph.NewStore(graph.WithClock(e.now))
	e.sweeper = graph.NewSweeper(e.store, cfg.GC)
	e.norm = ingest.NewNormalizer(e.store,
		ingest.WithCollabTTL(cfg.CollabTTL),
		ingest.WithClock(e.now),
	)
	e.hub = hub.NewHub()
	return e
}

// Start launches the mutation loop. Safe to call once; later calls are
// no-ops.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.startedAt = e.now()
		go e.run()
	})
}

// Stop shuts the loop down, closing every subscriber. Blocks until the
// loop has exited or ctx is done.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.quit) })
	select {
	case <-e.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Uptime returns how long the engine has been running.
func (e *Engine) Uptime() time.Duration {
	return e.now().Sub(e.startedAt)
}

// GCConfig returns the eviction configuration.
func (e *Engine) GCConfig() graph.SweepConfig {
	return e.cfg.GC
}

// Ingest enqueues one event for normalization.
//
// Description:
//
//	Blocks while the bounded queue is full (structural backpressure on
//	producers). The event itself is validated by the normalizer inside
//	the loop; malformed events are accepted here and dropped there.
func (e *Engine) Ingest(ctx context.Context, ev *ingest.Event) error {
	return e.submit(ctx, ingestOp{event: ev})
}

// Snapshot returns a full, immutable copy of the graph.
func (e *Engine) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	reply := make(chan graph.Snapshot, 1)
	if err := e.submit(ctx, snapshotOp{reply: reply}); err != nil {
		return graph.Snapshot{}, err
	}
	return await(ctx, e.quit, reply)
}

// Metrics computes graph analytics from a fresh snapshot. The computation
// runs on the caller's goroutine against the immutable copy, outside the
// mutation loop.
func (e *Engine) Metrics(ctx context.Context) (graph.Metrics, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return graph.Metrics{}, err
	}
	return graph.ComputeMetrics(snap), nil
}

// TriggerSweep runs a manual sweep and returns its before/after counts.
// Works even when the periodic sweeper is disabled.
func (e *Engine) TriggerSweep(ctx context.Context) (graph.SweepResult, error) {
	reply := make(chan graph.SweepResult, 1)
	if err := e.submit(ctx, sweepOp{reply: reply}); err != nil {
		return graph.SweepResult{}, err
	}
	return await(ctx, e.quit, reply)
}

// Status returns subscriber and record counts.
func (e *Engine) Status(ctx context.Context) (EngineStatus, error) {
	reply := make(chan EngineStatus, 1)
	if err := e.submit(ctx, statusOp{reply: reply}); err != nil {
		return EngineStatus{}, err
	}
	return await(ctx, e.quit, reply)
}

// Subscribe registers a subscriber client. The loop sends the full current
// snapshot first; every mutation applied afterwards reaches the client as
// a separate delta in apply order.
func (e *Engine) Subscribe(ctx context.Context, client *hub.Client) error {
	return e.submit(ctx, subscribeOp{client: client})
}

// Unsubscribe drops a subscriber. Fire-and-forget; losing the race with
// shutdown is fine because shutdown closes all clients anyway.
func (e *Engine) Unsubscribe(id string) {
	_ = e.submit(context.Background(), unsubscribeOp{id: id})
}

// submit places an op on the queue, honoring cancellation and shutdown.
func (e *Engine) submit(ctx context.Context, o op) error {
	select {
	case <-e.quit:
		return ErrEngineStopped
	default:
	}
	select {
	case e.ops <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrEngineStopped
	}
}

// await reads a reply, honoring cancellation and shutdown.
func await[T any](ctx context.Context, quit chan struct{}, reply chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-quit:
		var zero T
		return zero, ErrEngineStopped
	}
}

// run is the mutation loop: the single logical owner of the graph store.
func (e *Engine) run() {
	defer close(e.stopped)

	var tick <-chan time.Time
	if e.cfg.GC.Enabled && e.cfg.GC.Interval > 0 {
		ticker := time.NewTicker(e.cfg.GC.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("Engine started",
		"gc_enabled", e.cfg.GC.Enabled,
		"gc_interval", e.cfg.GC.Interval,
		"queue_size", e.cfg.QueueSize,
	)

	for {
		select {
		case <-e.quit:
			e.hub.CloseAll()
			slog.Info("Engine stopped")
			return
		case <-tick:
			e.runSweep(context.Background(), false)
		case o := <-e.ops:
			e.handle(o)
		}
	}
}

// handle processes one op to completion before the next begins.
func (e *Engine) handle(o op) {
	switch o := o.(type) {
	case ingestOp:
		deltas := e.norm.Ingest(o.event)
		before := e.hub.Count()
		for _, d := range deltas {
			e.hub.Broadcast(d)
		}
		recordIngest(o.event, len(deltas))
		if e.hub.Count() != before {
			recordSubscriberCount(e.hub.Count())
		}

	case sweepOp:
		o.reply <- e.runSweep(context.Background(), true)

	case snapshotOp:
		o.reply <- e.store.Snapshot()

	case subscribeOp:
		snap := e.store.Snapshot()
		if o.client.TrySend(hub.NewAt(hub.MessageGraphSnapshot, snap, e.now())) {
			e.hub.Add(o.client)
			slog.Info("Subscriber connected",
				"subscriber_id", o.client.ID(),
				"nodes", snap.NodeCount(),
				"edges", snap.EdgeCount(),
			)
		} else {
			o.client.Close()
		}
		recordSubscriberCount(e.hub.Count())

	case unsubscribeOp:
		before := e.hub.Count()
		e.hub.Remove(o.id)
		if e.hub.Count() < before {
			slog.Info("Subscriber disconnected", "subscriber_id", o.id)
		}
		recordSubscriberCount(e.hub.Count())

	case statusOp:
		o.reply <- EngineStatus{
			Subscribers: e.hub.Count(),
			NodeCount:   e.store.NodeCount(),
			EdgeCount:   e.store.EdgeCount(),
		}
	}
}

// runSweep expires ephemeral edges, runs the threshold sweep, and emits
// the resulting deltas.
func (e *Engine) runSweep(ctx context.Context, manual bool) graph.SweepResult {
	now := e.now()

	for _, edge := range e.sweeper.ExpireEdges(now) {
		e.hub.Broadcast(hub.NewAt(hub.MessageEdgeRemoved, edge.Clone(), now))
	}

	result := e.sweeper.Sweep(ctx, now, manual)
	if result.Changed() {
		e.hub.Broadcast(hub.NewAt(hub.MessageGCCleanup, result, now))
		slog.Info("Eviction sweep removed records",
			"nodes_before", result.NodesBefore,
			"nodes_after", result.NodesAfter,
			"edges_before", result.EdgesBefore,
			"edges_after", result.EdgesAfter,
			"manual", manual,
		)
	}
	return result
}
