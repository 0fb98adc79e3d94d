// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the social graph model and its analytics.
//
// The graph is undirected and unweighted: users are vertices keyed by
// username, friendships are unordered pairs stored symmetrically in both
// endpoints' adjacency sets.
//
// # Components
//
//   - Directory: username ↔ stable id bijection
//   - Graph: adjacency store plus the directory
//   - Connectivity: AreConnected (BFS) and MutualFriends
//   - PageRank: fixed-iteration synchronous power iteration
//   - Recommend: mutual-friend count weighted by influence
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. It assumes a single active caller;
// callers sharing a Graph across goroutines must serialize access
// externally (see the social.Service type).
//
// # Rank State
//
// A successful ComputePageRank stores its scores on the Graph. Any
// structural mutation (user or friendship added/removed, Clear, Restore)
// invalidates them until the next computation.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNotFound is returned when a referenced user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists is returned when adding a user whose username is
	// already a key in the graph.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrInvalidSelfEdge is returned when a friendship would connect a
	// user to itself.
	ErrInvalidSelfEdge = errors.New("user cannot befriend itself")

	// ErrEmptyGraph is returned by ComputePageRank when there are no users.
	ErrEmptyGraph = errors.New("graph has no users")

	// ErrInvalidUsername is returned for empty usernames and names that
	// are not valid UTF-8.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidDamping is returned by CheckDamping for an explicit
	// damping factor outside (0, 1).
	ErrInvalidDamping = errors.New("damping factor must be in (0, 1)")
)
