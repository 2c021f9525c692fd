// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"sort"
)

// graph is a package-name adjacency list with sorted, distinct edges.
type graph map[string][]string

func (g graph) addEdge(from, to string) {
	if from == "" || to == "" {
		return
	}
	for _, existing := range g[from] {
		if existing == to {
			return
		}
	}
	g[from] = append(g[from], to)
}

func (g graph) sort() {
	for k := range g {
		sort.Strings(g[k])
	}
}

// buildGraph joins workspace manifests and locked packages into one
// name-level graph.
func buildGraph(p *Project) graph {
	g := make(graph)
	for _, m := range p.Manifests {
		if m.Name == "" {
			continue
		}
		for _, section := range []map[string]string{m.Dependencies, m.PeerDependencies, m.OptionalDependencies} {
			for dep := range section {
				g.addEdge(m.Name, dep)
			}
		}
	}
	if p.Lock != nil {
		for _, pkg := range p.Lock.Packages {
			for dep := range pkg.Dependencies {
				g.addEdge(pkg.Name, dep)
			}
		}
	}
	g.sort()
	return g
}

// shortestCycle runs a depth-first search from every node in sorted
// order, tracking the active path. Each back edge closes a cycle; the
// shortest one wins, ties broken by the lexically smaller rotation. The
// returned cycle starts at its lexically smallest member and repeats it
// at the end. Nil means the graph is acyclic.
func shortestCycle(g graph) []string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int)
	index := make(map[string]int)
	var path []string
	var best []string

	consider := func(cycle []string) {
		cycle = canonicalCycle(cycle)
		if best == nil || len(cycle) < len(best) || len(cycle) == len(best) && lessPath(cycle, best) {
			best = cycle
		}
	}

	var visit func(n string)
	visit = func(n string) {
		state[n] = active
		index[n] = len(path)
		path = append(path, n)
		for _, next := range g[n] {
			switch state[next] {
			case active:
				cycle := append([]string(nil), path[index[next]:]...)
				consider(cycle)
			case unvisited:
				visit(next)
			}
		}
		path = path[:len(path)-1]
		state[n] = done
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if state[n] == unvisited {
			visit(n)
		}
	}

	if best == nil {
		return nil
	}
	return append(best, best[0])
}

// canonicalCycle rotates cycle to start at its smallest member.
func canonicalCycle(cycle []string) []string {
	start := 0
	for i, n := range cycle {
		if n < cycle[start] {
			start = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[start:]...)
	return append(out, cycle[:start]...)
}

func lessPath(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
