// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package social is the session layer of socialgraph.
//
// A Service owns one graph, its persistence store and the derived search
// index. Every call is serialized by a mutex, so a Service may be shared
// by HTTP handlers, the file watcher and the CLI. Mutations are persisted
// synchronously before the call returns.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/search"
	"github.com/AleutianAI/AleutianSocial/services/social/storage"
)

// ErrPersist wraps storage failures after an in-memory mutation succeeded.
// The mutation is kept and the next successful write saves the full graph.
var ErrPersist = errors.New("persist failed")

// Options tunes a Service.
type Options struct {
	// Rank holds the default PageRank parameters.
	Rank graph.PageRankOptions

	// RecommendTopK is used when Recommend is called with k <= 0.
	RecommendTopK int

	// SearchLimit is used when Search is called with limit <= 0.
	SearchLimit int

	// Backend names the store for Stats. Informational.
	Backend string

	Logger *slog.Logger
}

// Stats summarizes the graph.
type Stats struct {
	Users       int    `json:"users"`
	Friendships int    `json:"friendships"`
	RanksValid  bool   `json:"ranks_valid"`
	Backend     string `json:"backend,omitempty"`
}

// Service is the concurrency-safe session around a graph.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	mu    sync.Mutex
	g     *graph.Graph
	store storage.Store
	trie  *search.Trie
	opts  Options

	// trieDirty forces a rebuild before the next search.
	trieDirty bool
	// needsSave is set when an incremental write failed.
	needsSave bool

	logger *slog.Logger
}

// New creates a Service and loads the persisted graph.
//
// Inputs:
//
//	ctx - Context for the initial load.
//	store - Persistence backend. Owned by the Service from now on.
//	opts - Tuning; zero values fall back to defaults.
//
// Outputs:
//
//	*Service - Ready to use. Call Close when done.
//	error - Load failure.
func New(ctx context.Context, store storage.Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("social: store must not be nil")
	}
	opts.Rank.Validate()
	if opts.RecommendTopK <= 0 {
		opts.RecommendTopK = 3
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = search.DefaultLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		g:         graph.NewGraph(),
		store:     store,
		trie:      search.NewTrie(),
		trieDirty: true,
		opts:      opts,
		logger:    logger,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory graph with the persisted one.
func (s *Service) Reload(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Service.Reload")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	dropped := s.g.Restore(snap)
	s.trieDirty = true
	s.needsSave = false
	if dropped > 0 {
		s.logger.Warn("dropped invalid edges on load", slog.Int("count", dropped))
	}
	s.logger.Info("graph loaded",
		slog.Int("users", s.g.UserCount()),
		slog.Int("friendships", s.g.EdgeCount()),
	)
	span.SetAttributes(attribute.Int("users", s.g.UserCount()))
	return nil
}

// AddUser creates a user and appends it to the store.
func (s *Service) AddUser(ctx context.Context, name string) error {
	return s.mutate(ctx, "add_user", func() (persistFn, error) {
		if err := s.g.AddUser(name); err != nil {
			return nil, err
		}
		id, _ := s.g.IDOf(name)
		return func(ctx context.Context) error {
			return s.store.AppendUser(ctx, id, name)
		}, nil
	})
}

// RemoveUser deletes a user and its friendships. When the user's stable
// id collides with another user's the graph is saved in full.
func (s *Service) RemoveUser(ctx context.Context, name string) error {
	return s.mutate(ctx, "remove_user", func() (persistFn, error) {
		id, _ := s.g.IDOf(name)
		shared := s.g.SharesID(name)
		if err := s.g.RemoveUser(name); err != nil {
			return nil, err
		}
		if shared {
			// Record edits are keyed by id and would touch the other holder.
			return s.saveLocked, nil
		}
		return func(ctx context.Context) error {
			return s.store.RemoveUserRecord(ctx, id)
		}, nil
	})
}

// AddFriendship connects a and b and saves the graph.
func (s *Service) AddFriendship(ctx context.Context, a, b string) error {
	return s.mutate(ctx, "add_friendship", func() (persistFn, error) {
		if err := s.g.AddFriendship(a, b); err != nil {
			return nil, err
		}
		return s.saveLocked, nil
	})
}

// RemoveFriendship disconnects a and b and saves the graph.
func (s *Service) RemoveFriendship(ctx context.Context, a, b string) error {
	return s.mutate(ctx, "remove_friendship", func() (persistFn, error) {
		if err := s.g.RemoveFriendship(a, b); err != nil {
			return nil, err
		}
		return s.saveLocked, nil
	})
}

// Clear removes every user and saves the empty graph.
func (s *Service) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func() (persistFn, error) {
		s.g.Clear()
		return s.saveLocked, nil
	})
}

// Save writes the full graph to the store.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.needsSave = false
	return nil
}

// Friends returns the sorted friends of name.
func (s *Service) Friends(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.g.HasUser(name) {
		return nil, fmt.Errorf("friends of %q: %w", name, graph.ErrNotFound)
	}
	return s.g.FriendsOf(name), nil
}

// MutualFriends returns the sorted friends shared by a and b.
func (s *Service) MutualFriends(a, b string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.MutualFriends(a, b)
}

// Connected reports whether a and b are linked by a friendship path.
func (s *Service) Connected(a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AreConnected(a, b)
}

// HasUser reports whether name exists.
func (s *Service) HasUser(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.HasUser(name)
}

// IDOf returns the stable id of name.
func (s *Service) IDOf(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.IDOf(name)
}

// Users returns every username sorted.
func (s *Service) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Users()
}

// Stats returns counts for the current graph.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Users:       s.g.UserCount(),
		Friendships: s.g.EdgeCount(),
		RanksValid:  s.g.HasRanks(),
		Backend:     s.opts.Backend,
	}
}

// ComputePageRank runs PageRank. Nil opts, or zero fields, use the
// configured defaults. An explicit damping factor outside (0, 1) returns
// graph.ErrInvalidDamping.
func (s *Service) ComputePageRank(ctx context.Context, opts *graph.PageRankOptions) (*graph.PageRankResult, error) {
	if opts != nil {
		if err := graph.CheckDamping(opts.DampingFactor); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.ComputePageRank(ctx, s.rankOpts(opts))
}

// Ranked returns the current rank listing, at most top rows (all when
// top <= 0). The bool is false when ranks are stale.
func (s *Service) Ranked(top int) ([]graph.RankedUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.g.HasRanks() {
		return nil, false
	}
	return s.g.Top(top), true
}

// Recommend suggests friends for user. With withRank, stale ranks are
// recomputed first so influence reflects the current graph.
func (s *Service) Recommend(ctx context.Context, user string, k int, withRank bool) ([]graph.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "Service.Recommend",
		trace.WithAttributes(attribute.String("user", user), attribute.Bool("with_rank", withRank)))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if k <= 0 {
		k = s.opts.RecommendTopK
	}
	if withRank && !s.g.HasRanks() && s.g.HasUser(user) {
		if _, err := s.g.ComputePageRank(ctx, s.rankOpts(nil)); err != nil {
			return nil, err
		}
	}
	recs, err := s.g.Recommend(user, k)
	if err != nil {
		return nil, err
	}
	recordQuery(ctx, "recommend", time.Since(start), len(recs))
	return recs, nil
}

// Search returns usernames starting with prefix, rebuilding the index
// if users changed since the last search.
func (s *Service) Search(ctx context.Context, prefix string, limit int) []string {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	if s.trieDirty {
		s.trie = search.Build(s.g.Users())
		s.trieDirty = false
		s.logger.Debug("search index rebuilt", slog.Int("words", s.trie.Len()))
	}
	out := s.trie.Search(prefix, limit)
	recordQuery(ctx, "search", time.Since(start), len(out))
	return out
}

// Close closes the store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}

// persistFn writes a mutation to the store. Called with mu held.
type persistFn func(ctx context.Context) error

// mutate applies fn under the lock and persists its result.
//
// A failed in-memory mutation is returned as is and nothing is written.
// A failed write keeps the mutation, returns ErrPersist and escalates the
// next write to a full save.
func (s *Service) mutate(ctx context.Context, op string, fn func() (persistFn, error)) error {
	ctx, span := tracer.Start(ctx, "Service."+op)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	persist, err := fn()
	if err != nil {
		recordMutation(ctx, op, "rejected")
		span.RecordError(err)
		return err
	}
	s.trieDirty = true

	if s.needsSave {
		persist = s.saveLocked
	}
	if err := persist(ctx); err != nil {
		s.needsSave = true
		recordMutation(ctx, op, "persist_failed")
		span.RecordError(err)
		s.logger.Error("persist failed", slog.String("op", op), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, ErrPersist, err)
	}
	s.needsSave = false
	recordMutation(ctx, op, "ok")
	s.logger.Debug("mutation applied", slog.String("op", op))
	return nil
}

func (s *Service) saveLocked(ctx context.Context) error {
	return s.store.Save(ctx, s.g.Snapshot())
}

func (s *Service) rankOpts(opts *graph.PageRankOptions) *graph.PageRankOptions {
	if opts == nil {
		o := s.opts.Rank
		return &o
	}
	o := *opts
	if o.DampingFactor == 0 {
		o.DampingFactor = s.opts.Rank.DampingFactor
	}
	if o.Iterations == 0 {
		o.Iterations = s.opts.Rank.Iterations
	}
	o.Validate()
	return &o
}
