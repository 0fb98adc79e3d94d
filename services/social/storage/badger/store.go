// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/storage"
)

var tracer = otel.Tracer("socialgraph.storage.badger")

var userPrefix = []byte("user/")

// userKey is user/<id>/<username>, so users whose ids collide keep
// separate entries.
func userKey(id, username string) []byte {
	key := make([]byte, 0, len(userPrefix)+len(id)+1+len(username))
	key = append(key, userPrefix...)
	key = append(key, id...)
	key = append(key, '/')
	return append(key, username...)
}

// Store is a storage.Store backed by BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	gc     *gcLoop
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the database described by cfg.
//
// Outputs:
//
//	*Store - Call Close when done.
//	error - Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger.With(slog.String("store", "badger"))}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, s.logger)
	}
	return s, nil
}

// Load reads every user record. An empty database yields an empty
// snapshot.
func (s *Store) Load(ctx context.Context) (*graph.Snapshot, error) {
	_, span := tracer.Start(ctx, "badger.Load")
	defer span.End()

	var records []storage.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = scanRecords(txn)
		return err
	})
	if err != nil {
		return nil, mapErr("load", err)
	}

	snap, skipped := storage.SnapshotFromRecords(records, s.logger)
	if skipped > 0 {
		s.logger.Warn("skipped malformed entries", slog.Int("count", skipped))
	}
	span.SetAttributes(attribute.Int("records", len(records)), attribute.Int("skipped", skipped))
	return snap, nil
}

// Save replaces all user records in a single transaction.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) error {
	_, span := tracer.Start(ctx, "badger.Save")
	defer span.End()

	records := storage.RecordsFromSnapshot(snap)
	span.SetAttributes(attribute.Int("records", len(records)))

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, userPrefix); err != nil {
			return err
		}
		for _, r := range records {
			if err := putRecord(txn, r); err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr("save", err)
}

// AppendUser writes a friendless user record.
func (s *Store) AppendUser(ctx context.Context, id, username string) error {
	_, span := tracer.Start(ctx, "badger.AppendUser")
	defer span.End()

	if id == "" || username == "" {
		return fmt.Errorf("append %q: %w", username, storage.ErrInvalidRecord)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putRecord(txn, storage.Record{ID: id, Username: username, FriendIDs: []string{}})
	})
	return mapErr("append", err)
}

// RemoveUserRecord deletes the record for id and scrubs it from every
// friend list.
func (s *Store) RemoveUserRecord(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "badger.RemoveUserRecord")
	defer span.End()

	err := s.db.Update(func(txn *badger.Txn) error {
		records, err := scanRecords(txn)
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.ID == id {
				if err := txn.Delete(userKey(r.ID, r.Username)); err != nil {
					return err
				}
				continue
			}
			kept := make([]string, 0, len(r.FriendIDs))
			for _, fid := range r.FriendIDs {
				if fid != id {
					kept = append(kept, fid)
				}
			}
			if len(kept) == len(r.FriendIDs) {
				continue
			}
			r.FriendIDs = kept
			if err := putRecord(txn, r); err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr("remove", err)
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.gc != nil {
			s.gc.halt()
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func scanRecords(txn *badger.Txn) ([]storage.Record, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = userPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var records []storage.Record
	for it.Seek(userPrefix); it.ValidForPrefix(userPrefix); it.Next() {
		item := it.Item()
		var r storage.Record
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		records = append(records, r)
	}
	return records, nil
}

func putRecord(txn *badger.Txn, r storage.Record) error {
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode %q: %w", r.Username, err)
	}
	return txn.Set(userKey(r.ID, r.Username), val)
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%s: %w", op, storage.ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
