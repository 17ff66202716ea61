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

// Metrics contains aggregate statistics derived from one graph snapshot.
//
// Thread Safety: Metrics is a value type computed from an immutable
// snapshot; safe to pass between goroutines.
type Metrics struct {
	// NodeCount is the total number of nodes.
	NodeCount int `json:"nodeCount"`

	// EdgeCount is the total number of edges.
	EdgeCount int `json:"edgeCount"`

	// NodesByType maps each node type to its count.
	NodesByType map[string]int `json:"nodesByType"`

	// EdgesByType maps each edge type to its count.
	EdgesByType map[string]int `json:"edgesByType"`

	// ActiveAgents counts Agent nodes with status "active".
	ActiveAgents int `json:"activeAgents"`

	// ActiveTasks counts Task nodes with status "executing".
	ActiveTasks int `json:"activeTasks"`

	// CompletedTasks counts Task nodes with status "completed".
	CompletedTasks int `json:"completedTasks"`

	// AvgTaskDurationMilli is the mean duration over completed tasks that
	// carry a duration. Zero if none qualify.
	AvgTaskDurationMilli float64 `json:"avgTaskDuration"`

	// AvgDegree is 2E/V, zero on an empty graph.
	AvgDegree float64 `json:"avgDegree"`

	// Clustering is the triangle count divided by n(n-1)(n-2)/6. The
	// denominator is graph-wide, not the usual per-node local clustering
	// average; this approximation is kept as built. Zero when V < 3.
	Clustering float64 `json:"clustering"`

	// Components is the number of connected components over the
	// undirected adjacency graph. Isolated nodes are singletons.
	Components int `json:"components"`
}

// ComputeMetrics derives aggregate statistics from a snapshot.
//
// Description:
//
//	Pure function of the snapshot, recomputed in full on each call; there
//	is no incremental caching. Edge endpoints that reference no live node
//	(dangling edges) still count toward EdgesByType and AvgDegree but are
//	ignored when building the undirected adjacency used by the clustering
//	and component computations.
//
// Complexity:
//
//	O(V + E) for the counts and components; O(sum of deg^2) for the
//	triangle count.
func ComputeMetrics(snap Snapshot) Metrics {
	m := Metrics{
		NodeCount:   len(snap.Nodes),
		EdgeCount:   len(snap.Edges),
		NodesByType: make(map[string]int),
		EdgesByType: make(map[string]int),
	}

	var durationSum float64
	var durationCount int

	for _, n := range snap.Nodes {
		m.NodesByType[n.Type]++

		switch n.Type {
		case NodeTypeAgent:
			if n.Status == StatusActive {
				m.ActiveAgents++
			}
		case NodeTypeTask:
			switch n.Status {
			case StatusExecuting:
				m.ActiveTasks++
			case StatusCompleted:
				m.CompletedTasks++
				if n.DurationMilli > 0 {
					durationSum += n.DurationMilli
					durationCount++
				}
			}
		}
	}
	if durationCount > 0 {
		m.AvgTaskDurationMilli = durationSum / float64(durationCount)
	}

	for _, e := range snap.Edges {
		m.EdgesByType[e.Type]++
	}

	if m.NodeCount > 0 {
		m.AvgDegree = 2 * float64(m.EdgeCount) / float64(m.NodeCount)
	}

	adj := buildAdjacency(snap)
	m.Clustering = clusteringCoefficient(snap, adj)
	m.Components = countComponents(snap, adj)
	return m
}

// buildAdjacency builds the undirected adjacency map over edges whose
// endpoints both exist in the snapshot.
func buildAdjacency(snap Snapshot) map[string]map[string]bool {
	exists := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		exists[n.ID] = true
	}

	adj := make(map[string]map[string]bool, len(snap.Nodes))
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	for _, e := range snap.Edges {
		if e.From == e.To || !exists[e.From] || !exists[e.To] {
			continue
		}
		link(e.From, e.To)
		link(e.To, e.From)
	}
	return adj
}

// clusteringCoefficient counts closed triangles and normalizes by the
// graph-wide binomial term n(n-1)(n-2)/6.
func clusteringCoefficient(snap Snapshot, adj map[string]map[string]bool) float64 {
	n := len(snap.Nodes)
	if n < 3 {
		return 0
	}

	// Every triangle is seen once from each of its three corners.
	triangles := 0
	for _, node := range snap.Nodes {
		neighbors := make([]string, 0, len(adj[node.ID]))
		for nb := range adj[node.ID] {
			neighbors = append(neighbors, nb)
		}
		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				if adj[neighbors[i]][neighbors[j]] {
					triangles++
				}
			}
		}
	}
	triangles /= 3

	possible := float64(n) * float64(n-1) * float64(n-2) / 6
	return float64(triangles) / possible
}

// countComponents counts connected components with a BFS from every
// unvisited node.
func countComponents(snap Snapshot, adj map[string]map[string]bool) int {
	visited := make(map[string]bool, len(snap.Nodes))
	components := 0

	for _, start := range snap.Nodes {
		if visited[start.ID] {
			continue
		}
		components++
		queue := []string{start.ID}
		visited[start.ID] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for nb := range adj[id] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	return components
}
