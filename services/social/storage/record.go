// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"log/slog"
	"sort"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/identity"
)

// Record is the logical persisted shape of one user.
type Record struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	FriendIDs []string `json:"friends"`
}

// RecordsFromSnapshot converts a snapshot into records sorted by username,
// each with friend ids sorted ascending.
//
// Users missing from snap.UserToID get identity.StableID.
func RecordsFromSnapshot(snap *graph.Snapshot) []Record {
	if snap == nil {
		return nil
	}
	idOf := func(u string) string {
		if id, ok := snap.UserToID[u]; ok {
			return id
		}
		return identity.StableID(u)
	}

	users := snap.Usernames()
	records := make([]Record, 0, len(users))
	for _, u := range users {
		friends := snap.Adjacency[u]
		ids := make([]string, 0, len(friends))
		for _, f := range friends {
			ids = append(ids, idOf(f))
		}
		sort.Strings(ids)
		records = append(records, Record{ID: idOf(u), Username: u, FriendIDs: ids})
	}
	return records
}

// SnapshotFromRecords rebuilds a snapshot from records.
//
// Description:
//
//	Records with an empty id or username are skipped. When two records
//	share an id the first one wins. Friend ids that resolve to no record
//	are dropped and logged at warn level.
//
// Outputs:
//
//	*graph.Snapshot - Never nil.
//	int - Number of skipped records plus dropped friend references.
func SnapshotFromRecords(records []Record, logger *slog.Logger) (*graph.Snapshot, int) {
	if logger == nil {
		logger = slog.Default()
	}
	snap := graph.NewSnapshot()
	skipped := 0

	accepted := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID == "" || r.Username == "" {
			skipped++
			continue
		}
		if _, dup := snap.Adjacency[r.Username]; dup {
			skipped++
			continue
		}
		if _, taken := snap.IDToUser[r.ID]; !taken {
			snap.IDToUser[r.ID] = r.Username
		}
		snap.UserToID[r.Username] = r.ID
		snap.Adjacency[r.Username] = nil
		accepted = append(accepted, r)
	}

	for _, r := range accepted {
		friends := make([]string, 0, len(r.FriendIDs))
		for _, fid := range r.FriendIDs {
			if fid == "" {
				continue
			}
			name, ok := snap.IDToUser[fid]
			if !ok {
				logger.Warn("dropping unknown friend reference",
					slog.String("user", r.Username),
					slog.String("friend_id", fid),
				)
				skipped++
				continue
			}
			friends = append(friends, name)
		}
		snap.Adjacency[r.Username] = friends
	}
	return snap, skipped
}

// RemoveRecord drops every record with id and scrubs id from every friend
// list. Reports whether a record was removed.
func RemoveRecord(records []Record, id string) ([]Record, bool) {
	out := records[:0]
	removed := false
	for _, r := range records {
		if r.ID == id {
			removed = true
			continue
		}
		kept := r.FriendIDs[:0]
		for _, fid := range r.FriendIDs {
			if fid != id {
				kept = append(kept, fid)
			}
		}
		r.FriendIDs = kept
		out = append(out, r)
	}
	return out, removed
}
