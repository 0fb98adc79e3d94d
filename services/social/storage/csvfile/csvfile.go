// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package csvfile stores the social graph as a line-oriented CSV file.
//
// Each line is one user:
//
//	id,username,friendId|friendId|...
//
// Lines are sorted by username and friend ids are sorted, so saving an
// unchanged graph produces byte-identical output. Full saves write a
// temporary file and rename it over the target.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/storage"
)

var tracer = otel.Tracer("socialgraph.storage.csvfile")

const (
	fieldSep  = ','
	friendSep = "|"
	filePerm  = 0o644
	dirPerm   = 0o750
)

// Config configures a Store.
type Config struct {
	// Path of the CSV file. Required.
	Path string

	// Logger for skipped records. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Store is a storage.Store backed by a CSV file.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	written uint64 // xxhash of the file after our last write
}

var _ storage.Store = (*Store)(nil)

// New creates a Store. The file is not touched until the first write.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("csvfile: path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   cfg.Path,
		logger: logger.With(slog.String("store", "csv"), slog.String("path", cfg.Path)),
	}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (*graph.Snapshot, error) {
	_, span := tracer.Start(ctx, "csvfile.Load")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.written = 0
		span.AddEvent("missing_file")
		return graph.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	s.written = xxhash.Sum64(data)

	records, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	snap, skipped := storage.SnapshotFromRecords(records, s.logger)
	if skipped > 0 {
		s.logger.Warn("skipped malformed entries", slog.Int("count", skipped))
	}
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("skipped", skipped),
	)
	return snap, nil
}

// Save writes the full snapshot atomically.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) error {
	_, span := tracer.Start(ctx, "csvfile.Save")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	records := storage.RecordsFromSnapshot(snap)
	span.SetAttributes(attribute.Int("records", len(records)))
	return s.writeLocked(records, span)
}

// AppendUser appends a friendless user line.
func (s *Store) AppendUser(ctx context.Context, id, username string) error {
	_, span := tracer.Start(ctx, "csvfile.AppendUser")
	defer span.End()

	if id == "" || username == "" {
		return fmt.Errorf("append %q: %w", username, storage.ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	line, err := encode([]storage.Record{{ID: id, Username: username}})
	if err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return s.refreshHashLocked()
}

// RemoveUserRecord rewrites the file without the record for id and
// without any friend reference to it.
func (s *Store) RemoveUserRecord(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "csvfile.RemoveUserRecord",
		trace.WithAttributes(attribute.String("id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	records, err := decode(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	records, removed := storage.RemoveRecord(records, id)
	if !removed {
		s.logger.Debug("remove: no record for id", slog.String("id", id))
	}
	return s.writeLocked(records, span)
}

// Changed reports whether the file differs from what this store last
// read or wrote. Used to ignore file events caused by our own writes.
func (s *Store) Changed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.written != 0, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", s.path, err)
	}
	return xxhash.Sum64(data) != s.written, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// writeLocked replaces the file with records via temp file + rename.
func (s *Store) writeLocked(records []storage.Record, span trace.Span) error {
	data, err := encode(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}

	s.written = xxhash.Sum64(data)
	span.SetAttributes(attribute.Int("bytes", len(data)))
	return nil
}

func (s *Store) refreshHashLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	s.written = xxhash.Sum64(data)
	return nil
}

// encode renders records as CSV lines terminated by '\n'.
func encode(records []storage.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = fieldSep
	for _, r := range records {
		for _, fid := range r.FriendIDs {
			if strings.Contains(fid, friendSep) {
				return nil, fmt.Errorf("friend id %q: %w", fid, storage.ErrInvalidRecord)
			}
		}
		row := []string{r.ID, r.Username, strings.Join(r.FriendIDs, friendSep)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode %q: %w", r.Username, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// decode parses CSV lines. Lines with fewer than two fields are skipped
// and trailing carriage returns are trimmed.
func decode(data []byte) ([]storage.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = fieldSep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []storage.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			continue
		}
		rec := storage.Record{
			ID:       trim(row[0]),
			Username: trim(row[1]),
		}
		if len(row) > 2 {
			for _, fid := range strings.Split(trim(row[2]), friendSep) {
				if fid = strings.TrimSpace(fid); fid != "" {
					rec.FriendIDs = append(rec.FriendIDs, fid)
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func trim(s string) string {
	return strings.TrimRight(s, "\r")
}
