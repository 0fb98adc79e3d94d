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

// IDFunc derives a stable identifier from a username.
//
// Implementations must be deterministic. Collisions are tolerated: the
// directory keeps the first username bound to an id, and hands the id to
// another holder when that one is unbound.
type IDFunc func(username string) string

// Directory is the username ↔ stable id bijection.
//
// Description:
//
//	Both directions live in one owning type and are only ever mutated
//	together through Bind and Unbind, so the two maps cannot drift.
//
// Invariants:
//
//   - byID[id] == u implies byName[u] == id.
//   - Every bound username has exactly one id, and every id bound to
//     some username resolves back to one of its holders.
//   - holders[id] counts the usernames bound to id.
//
// Thread Safety: NOT safe for concurrent use.
type Directory struct {
	byName  map[string]string
	byID    map[string]string
	holders map[string]int
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byName:  make(map[string]string),
		byID:    make(map[string]string),
		holders: make(map[string]int),
	}
}

// Bind associates username with id.
//
// Description:
//
//	Any previous binding of username is released first. If id is already
//	held by a different username (a hash collision) the existing holder
//	keeps the reverse mapping and Bind reports false; the username is
//	still given the id in the forward direction so it stays total.
//
// Outputs:
//
//	bool - True if the binding is fully bijective.
func (d *Directory) Bind(username, id string) bool {
	d.Unbind(username)
	d.byName[username] = id
	d.holders[id]++
	if holder, taken := d.byID[id]; taken && holder != username {
		return false
	}
	d.byID[id] = username
	return true
}

// Unbind removes username and its id.
//
// Description:
//
//	If username held the reverse mapping of a shared id, the
//	lexicographically smallest remaining holder takes it over. The
//	scan over byName only runs in that collision case.
func (d *Directory) Unbind(username string) {
	id, ok := d.byName[username]
	if !ok {
		return
	}
	delete(d.byName, username)
	d.holders[id]--
	if d.holders[id] <= 0 {
		delete(d.holders, id)
		delete(d.byID, id)
		return
	}
	if d.byID[id] != username {
		return
	}
	next := ""
	for u, uid := range d.byName {
		if uid == id && (next == "" || u < next) {
			next = u
		}
	}
	d.byID[id] = next
}

// Shared reports whether username's id is also bound to another username.
func (d *Directory) Shared(username string) bool {
	id, ok := d.byName[username]
	return ok && d.holders[id] > 1
}

// IDOf returns the id bound to username.
func (d *Directory) IDOf(username string) (string, bool) {
	id, ok := d.byName[username]
	return id, ok
}

// UserByID returns the username bound to id.
func (d *Directory) UserByID(id string) (string, bool) {
	u, ok := d.byID[id]
	return u, ok
}

// Len returns the number of bound usernames.
func (d *Directory) Len() int {
	return len(d.byName)
}

// Reset drops every binding.
func (d *Directory) Reset() {
	d.byName = make(map[string]string)
	d.byID = make(map[string]string)
	d.holders = make(map[string]int)
}

// userToID returns a copy of the forward map.
func (d *Directory) userToID() map[string]string {
	out := make(map[string]string, len(d.byName))
	for u, id := range d.byName {
		out[u] = id
	}
	return out
}

// idToUser returns a copy of the reverse map.
func (d *Directory) idToUser() map[string]string {
	out := make(map[string]string, len(d.byID))
	for id, u := range d.byID {
		out[id] = u
	}
	return out
}
