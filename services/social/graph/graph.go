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
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/AleutianAI/AleutianSocial/services/social/identity"
)

// friendSet is the adjacency set of a single user.
type friendSet map[string]struct{}

// Graph is the undirected friendship graph.
//
// Description:
//
//	Each user maps to the set of usernames it is friends with. Every edge
//	is stored in both endpoints' sets; AddFriendship and RemoveFriendship
//	always touch both or neither.
//
// Invariants:
//
//   - a ∈ adj[b] ⇔ b ∈ adj[a]
//   - a ∉ adj[a]
//   - every key of adj is bound in the directory
//
// Thread Safety: NOT safe for concurrent use.
type Graph struct {
	adj   map[string]friendSet
	dir   *Directory
	idFn  IDFunc
	edges int

	// ranks holds the last PageRank scores; nil when never computed or
	// invalidated by a mutation.
	ranks map[string]float64
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDFunc overrides the stable id function.
//
// The default is identity.StableID.
func WithIDFunc(fn IDFunc) Option {
	return func(g *Graph) {
		if fn != nil {
			g.idFn = fn
		}
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		adj:  make(map[string]friendSet),
		dir:  NewDirectory(),
		idFn: identity.StableID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddUser inserts a user with no friends.
//
// Outputs:
//
//	error - ErrInvalidUsername for an empty or non-UTF-8 name,
//	ErrAlreadyExists if the username is taken.
func (g *Graph) AddUser(name string) error {
	if name == "" || !utf8.ValidString(name) {
		return fmt.Errorf("add %q: %w", name, ErrInvalidUsername)
	}
	if _, ok := g.adj[name]; ok {
		return fmt.Errorf("add %q: %w", name, ErrAlreadyExists)
	}
	g.adj[name] = make(friendSet)
	g.dir.Bind(name, g.idFn(name))
	g.invalidate()
	return nil
}

// RemoveUser deletes a user, every edge touching it, and its id mapping.
//
// Description:
//
//	Reverse-edge indices are not maintained, so every other user's set is
//	scanned: O(V).
func (g *Graph) RemoveUser(name string) error {
	if _, ok := g.adj[name]; !ok {
		return fmt.Errorf("remove %q: %w", name, ErrNotFound)
	}
	for user, friends := range g.adj {
		if user == name {
			continue
		}
		if _, ok := friends[name]; ok {
			delete(friends, name)
			g.edges--
		}
	}
	delete(g.adj, name)
	g.dir.Unbind(name)
	g.invalidate()
	return nil
}

// AddFriendship connects a and b. Re-adding an existing edge is a no-op.
func (g *Graph) AddFriendship(a, b string) error {
	if a == b {
		return fmt.Errorf("befriend %q: %w", a, ErrInvalidSelfEdge)
	}
	if err := g.requireUsers(a, b); err != nil {
		return fmt.Errorf("befriend %q and %q: %w", a, b, err)
	}
	if _, ok := g.adj[a][b]; ok {
		return nil
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
	g.edges++
	g.invalidate()
	return nil
}

// RemoveFriendship disconnects a and b. Removing an absent edge is a no-op.
func (g *Graph) RemoveFriendship(a, b string) error {
	if err := g.requireUsers(a, b); err != nil {
		return fmt.Errorf("unfriend %q and %q: %w", a, b, err)
	}
	if _, ok := g.adj[a][b]; !ok {
		return nil
	}
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	g.edges--
	g.invalidate()
	return nil
}

// FriendsOf returns the friends of name sorted ascending.
//
// Unknown users yield an empty slice; use HasUser to tell the cases apart.
func (g *Graph) FriendsOf(name string) []string {
	return sortedKeys(g.adj[name])
}

// HasUser reports whether name is a user.
func (g *Graph) HasUser(name string) bool {
	_, ok := g.adj[name]
	return ok
}

// AreFriends reports whether a and b share an edge.
func (g *Graph) AreFriends(a, b string) bool {
	_, ok := g.adj[a][b]
	return ok
}

// Degree returns the number of friends of name.
func (g *Graph) Degree(name string) int {
	return len(g.adj[name])
}

// Users returns every username sorted ascending.
func (g *Graph) Users() []string {
	users := make([]string, 0, len(g.adj))
	for u := range g.adj {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// UserCount returns the number of users.
func (g *Graph) UserCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of friendships (unordered pairs).
func (g *Graph) EdgeCount() int {
	return g.edges
}

// IDOf returns the stable id of name.
func (g *Graph) IDOf(name string) (string, bool) {
	return g.dir.IDOf(name)
}

// UserByID resolves a stable id back to a username.
func (g *Graph) UserByID(id string) (string, bool) {
	return g.dir.UserByID(id)
}

// SharesID reports whether name's stable id collides with another user's.
func (g *Graph) SharesID(name string) bool {
	return g.dir.Shared(name)
}

// Clear removes every user and friendship.
func (g *Graph) Clear() {
	g.adj = make(map[string]friendSet)
	g.dir.Reset()
	g.edges = 0
	g.invalidate()
}

// requireUsers returns ErrNotFound naming the first missing user.
func (g *Graph) requireUsers(names ...string) error {
	for _, n := range names {
		if _, ok := g.adj[n]; !ok {
			return fmt.Errorf("%q: %w", n, ErrNotFound)
		}
	}
	return nil
}

// invalidate marks the rank state stale.
func (g *Graph) invalidate() {
	g.ranks = nil
}

func sortedKeys(set friendSet) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
