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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_BindUnbind(t *testing.T) {
	d := NewDirectory()

	assert.True(t, d.Bind("alice", "a1"))
	id, ok := d.IDOf("alice")
	require.True(t, ok)
	assert.Equal(t, "a1", id)
	u, ok := d.UserByID("a1")
	require.True(t, ok)
	assert.Equal(t, "alice", u)

	d.Unbind("alice")
	_, ok = d.IDOf("alice")
	assert.False(t, ok)
	_, ok = d.UserByID("a1")
	assert.False(t, ok)
	assert.Zero(t, d.Len())

	// Unbinding an unknown name is harmless.
	d.Unbind("nobody")
}

func TestDirectory_Rebind(t *testing.T) {
	d := NewDirectory()
	d.Bind("alice", "a1")
	d.Bind("alice", "a2")

	_, ok := d.UserByID("a1")
	assert.False(t, ok, "old id must be released")
	u, _ := d.UserByID("a2")
	assert.Equal(t, "alice", u)
	assert.Equal(t, 1, d.Len())
}

func TestDirectory_Collision(t *testing.T) {
	d := NewDirectory()
	require.True(t, d.Bind("alice", "same"))
	assert.False(t, d.Bind("bob", "same"))

	// First holder keeps the reverse mapping.
	u, _ := d.UserByID("same")
	assert.Equal(t, "alice", u)
	id, ok := d.IDOf("bob")
	require.True(t, ok)
	assert.Equal(t, "same", id)

	// Removing the non-holder leaves the holder intact.
	d.Unbind("bob")
	u, ok = d.UserByID("same")
	require.True(t, ok)
	assert.Equal(t, "alice", u)
}

func TestDirectory_CollisionHandsOverReverseMapping(t *testing.T) {
	d := NewDirectory()
	d.Bind("alice", "same")
	d.Bind("carol", "same")
	d.Bind("bob", "same")
	assert.True(t, d.Shared("bob"))

	d.Unbind("alice")
	u, ok := d.UserByID("same")
	require.True(t, ok, "a remaining holder must take the id over")
	assert.Equal(t, "bob", u)

	d.Unbind("bob")
	u, ok = d.UserByID("same")
	require.True(t, ok)
	assert.Equal(t, "carol", u)
	assert.False(t, d.Shared("carol"))

	d.Unbind("carol")
	_, ok = d.UserByID("same")
	assert.False(t, ok)
}

func TestGraph_RemoveCollidingUserKeepsLookup(t *testing.T) {
	g := NewGraph(WithIDFunc(func(string) string { return "000000" }))
	require.NoError(t, g.AddUser("a"))
	require.NoError(t, g.AddUser("b"))
	assert.True(t, g.SharesID("a"))

	require.NoError(t, g.RemoveUser("a"))
	id, ok := g.IDOf("b")
	require.True(t, ok)
	u, ok := g.UserByID(id)
	require.True(t, ok)
	assert.Equal(t, "b", u)
	assert.False(t, g.SharesID("b"))
}

func TestDirectory_BijectionOnGraph(t *testing.T) {
	g := buildGraph(t, []string{"alice", "bob", "carol"}, nil)
	require.NoError(t, g.RemoveUser("bob"))

	snap := g.Snapshot()
	assert.Len(t, snap.UserToID, 2)
	assert.Len(t, snap.IDToUser, 2)
	for u, id := range snap.UserToID {
		assert.Equal(t, u, snap.IDToUser[id])
	}
}
