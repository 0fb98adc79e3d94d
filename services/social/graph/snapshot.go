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

import (
	"sort"
	"unicode/utf8"
)

// Snapshot is a detached copy of the graph used for persistence.
//
// Adjacency is keyed by username and lists friend usernames. IDToUser and
// UserToID carry the identifier mapping; either may be nil when loading.
type Snapshot struct {
	Adjacency map[string][]string
	IDToUser  map[string]string
	UserToID  map[string]string
}

// NewSnapshot returns an empty snapshot with allocated maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Adjacency: make(map[string][]string),
		IDToUser:  make(map[string]string),
		UserToID:  make(map[string]string),
	}
}

// Usernames returns the snapshot's users sorted ascending.
func (s *Snapshot) Usernames() []string {
	users := make([]string, 0, len(s.Adjacency))
	for u := range s.Adjacency {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Snapshot copies the current graph state.
//
// Friend lists are sorted so that serializers see a stable order.
func (g *Graph) Snapshot() *Snapshot {
	snap := &Snapshot{
		Adjacency: make(map[string][]string, len(g.adj)),
		IDToUser:  g.dir.idToUser(),
		UserToID:  g.dir.userToID(),
	}
	for u, friends := range g.adj {
		snap.Adjacency[u] = sortedKeys(friends)
	}
	return snap
}

// Restore replaces the graph contents with snap.
//
// Description:
//
//	Every username in snap.Adjacency (and every username named only by
//	snap.IDToUser) becomes a user. Ids come from snap.UserToID, then from
//	the inverse of snap.IDToUser, then from the graph's IDFunc. Edges are
//	added symmetrically even if the snapshot lists only one direction.
//	Self-loops and edges to unknown users are dropped. Empty and
//	non-UTF-8 usernames are never added.
//
// Outputs:
//
//	int - Number of dropped edge entries.
func (g *Graph) Restore(snap *Snapshot) int {
	g.Clear()
	if snap == nil {
		return 0
	}

	ids := make(map[string]string, len(snap.IDToUser)+len(snap.UserToID))
	for id, u := range snap.IDToUser {
		ids[u] = id
	}
	for u, id := range snap.UserToID {
		ids[u] = id
	}

	add := func(u string) {
		if u == "" || !utf8.ValidString(u) {
			return
		}
		if _, ok := g.adj[u]; ok {
			return
		}
		g.adj[u] = make(friendSet)
		id, ok := ids[u]
		if !ok {
			id = g.idFn(u)
		}
		g.dir.Bind(u, id)
	}

	// Bind in sorted order so id collisions resolve deterministically.
	for _, u := range snap.Usernames() {
		add(u)
	}
	extra := make([]string, 0)
	for _, u := range snap.IDToUser {
		if _, ok := g.adj[u]; !ok {
			extra = append(extra, u)
		}
	}
	sort.Strings(extra)
	for _, u := range extra {
		add(u)
	}

	dropped := 0
	for u, friends := range snap.Adjacency {
		for _, f := range friends {
			if _, ok := g.adj[u]; !ok || f == u {
				dropped++
				continue
			}
			if _, ok := g.adj[f]; !ok {
				dropped++
				continue
			}
			if _, ok := g.adj[u][f]; ok {
				continue
			}
			g.adj[u][f] = struct{}{}
			g.adj[f][u] = struct{}{}
			g.edges++
		}
	}
	return dropped
}
