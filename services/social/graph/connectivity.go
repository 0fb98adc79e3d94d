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

import "sort"

// AreConnected reports whether a path of friendships links a and b.
//
// Description:
//
//	A user is always connected to itself, known or not. Otherwise both
//	users must exist. Breadth-first search from a marks nodes visited when
//	discovered and stops as soon as b is discovered as a neighbour, before
//	it would be enqueued.
//
// Complexity: O(V + E) worst case.
func (g *Graph) AreConnected(a, b string) bool {
	if a == b {
		return true
	}
	if !g.HasUser(a) || !g.HasUser(b) {
		return false
	}

	visited := map[string]struct{}{a: {}}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.adj[cur] {
			if next == b {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

// MutualFriends returns the friends shared by a and b, sorted ascending.
//
// Either user being unknown yields an empty slice.
func (g *Graph) MutualFriends(a, b string) []string {
	out := make([]string, 0)
	g.eachMutual(a, b, func(u string) {
		out = append(out, u)
	})
	sort.Strings(out)
	return out
}

// MutualFriendCount returns len(MutualFriends(a, b)) without allocating.
func (g *Graph) MutualFriendCount(a, b string) int {
	n := 0
	g.eachMutual(a, b, func(string) { n++ })
	return n
}

// eachMutual iterates the smaller adjacency set and looks each one up in the larger.
func (g *Graph) eachMutual(a, b string, fn func(string)) {
	fa, okA := g.adj[a]
	fb, okB := g.adj[b]
	if !okA || !okB {
		return
	}
	small, large := fa, fb
	if len(small) > len(large) {
		small, large = large, small
	}
	for u := range small {
		if _, ok := large[u]; ok {
			fn(u)
		}
	}
}
