// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search provides prefix lookup over usernames.
//
// The Trie is a derived index: it is built wholesale from the current user
// set and must be rebuilt after users are added or removed. It does not
// support deletion.
package search

import "sort"

// DefaultLimit is the result cap used when Search is given limit <= 0.
const DefaultLimit = 10

// node is one trie vertex. Children are owned by their parent.
type node struct {
	children map[rune]*node
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// sortedRunes returns the child labels in ascending order.
func (n *node) sortedRunes() []rune {
	keys := make([]rune, 0, len(n.children))
	for r := range n.children {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Trie is a prefix tree of usernames.
//
// Thread Safety: NOT safe for concurrent use.
type Trie struct {
	root  *node
	words int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// Build returns a trie holding every word in words.
func Build(words []string) *Trie {
	t := NewTrie()
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

// Insert adds word. Inserting an existing word is a no-op; the empty
// string is ignored.
func (t *Trie) Insert(word string) {
	if word == "" {
		return
	}
	cur := t.root
	for _, r := range word {
		next, ok := cur.children[r]
		if !ok {
			next = newNode()
			cur.children[r] = next
		}
		cur = next
	}
	if !cur.terminal {
		cur.terminal = true
		t.words++
	}
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	return t.words
}

// Search returns up to limit words starting with prefix.
//
// Description:
//
//	Walks prefix rune by rune and returns an empty slice as soon as a rune
//	has no matching child. From the matched node a depth-first pre-order
//	walk collects terminal words, visiting children in ascending rune
//	order, and stops once limit words are collected. Results are
//	therefore in lexicographic order. An empty prefix matches every word.
//
// Inputs:
//
//   - prefix: Leading characters to match. Case-sensitive.
//   - limit: Maximum results; <= 0 means DefaultLimit.
//
// Outputs:
//
//   - []string: Matches, never nil.
func (t *Trie) Search(prefix string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]string, 0)

	cur := t.root
	for _, r := range prefix {
		next, ok := cur.children[r]
		if !ok {
			return out
		}
		cur = next
	}

	buf := []rune(prefix)
	collect(cur, buf, limit, &out)
	return out
}

// collect appends terminal words under n to out until limit is reached.
// Returns false once the cap is hit so callers stop descending.
func collect(n *node, buf []rune, limit int, out *[]string) bool {
	if n.terminal {
		*out = append(*out, string(buf))
		if len(*out) >= limit {
			return false
		}
	}
	for _, r := range n.sortedRunes() {
		if !collect(n.children[r], append(buf, r), limit, out) {
			return false
		}
	}
	return true
}
