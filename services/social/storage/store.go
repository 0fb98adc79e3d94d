// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the persistence contract for the social graph.
//
// Backends live in sub-packages:
//
//   - csvfile: one line per user, diff-friendly, the default
//   - badger: embedded key/value store
//
// Persisted friend lists reference users by stable id, not by username.
// A full Save is always authoritative; AppendUser and RemoveUserRecord
// are best-effort incremental edits that a later Save reconciles.
package storage

import (
	"context"
	"errors"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
)

// Sentinel errors for storage operations.
var (
	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("store is closed")

	// ErrInvalidRecord is returned when a record cannot be encoded.
	ErrInvalidRecord = errors.New("invalid record")
)

// Store persists graph snapshots.
//
// Implementations must tolerate a missing backing store on Load by
// returning an empty snapshot and a nil error. Save must be complete and
// order-independent: saving the same graph twice produces identical
// output.
type Store interface {
	// Load reads the persisted snapshot.
	Load(ctx context.Context) (*graph.Snapshot, error)

	// Save replaces the persisted state with snap.
	Save(ctx context.Context, snap *graph.Snapshot) error

	// AppendUser records a new friendless user.
	AppendUser(ctx context.Context, id, username string) error

	// RemoveUserRecord deletes every record with the given id and scrubs
	// it from other users' friend lists. Callers use Save instead when
	// the id is shared by more than one user.
	RemoveUserRecord(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
