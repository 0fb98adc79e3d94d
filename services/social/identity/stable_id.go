// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity derives stable user identifiers.
//
// A stable id is a short fixed-width hex string computed from the username.
// Persisted friend lists reference users by id rather than by name, so the
// id must be deterministic across processes and platforms.
package identity

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	// IDWidth is the number of hex characters in a stable id.
	IDWidth = 6

	// idMask keeps the low 24 bits (IDWidth hex digits).
	idMask = 0xFFFFFF
)

// StableID returns the stable id for username.
//
// Description:
//
//	Hashes the username with xxhash64 and formats the low 24 bits as six
//	lowercase hex characters. The same input always yields the same output.
//	Collisions are possible and are not resolved here.
//
// Example:
//
//	id := identity.StableID("alice") // e.g. "3f09a1"
func StableID(username string) string {
	return fmt.Sprintf("%0*x", IDWidth, xxhash.Sum64String(username)&idMask)
}

// Valid reports whether id has the shape of a stable id.
func Valid(id string) bool {
	if len(id) != IDWidth {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
