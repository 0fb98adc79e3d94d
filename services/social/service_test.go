// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package social

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSocial/services/social/config"
	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/storage"
	"github.com/AleutianAI/AleutianSocial/services/social/storage/csvfile"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// flakyStore is an in-memory storage.Store whose writes can be made to fail.
type flakyStore struct {
	mu      sync.Mutex
	snap    *graph.Snapshot
	fail    bool
	saves   int
	appends int
	removes int
}

func (f *flakyStore) Load(context.Context) (*graph.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return graph.NewSnapshot(), nil
	}
	return f.snap, nil
}

func (f *flakyStore) Save(_ context.Context, snap *graph.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.saves++
	f.snap = snap
	return nil
}

func (f *flakyStore) AppendUser(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.appends++
	return nil
}

func (f *flakyStore) RemoveUserRecord(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.removes++
	return nil
}

func (f *flakyStore) Close() error { return nil }

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func newCSVService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	store, err := csvfile.New(csvfile.Config{Path: path, Logger: quiet})
	require.NoError(t, err)
	svc, err := New(context.Background(), store, Options{Backend: "csv", Logger: quiet})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, path
}

func seed(t *testing.T, svc *Service, users []string, edges [][2]string) {
	t.Helper()
	ctx := context.Background()
	for _, u := range users {
		require.NoError(t, svc.AddUser(ctx, u))
	}
	for _, e := range edges {
		require.NoError(t, svc.AddFriendship(ctx, e[0], e[1]))
	}
}

func TestService_MutationsPersist(t *testing.T) {
	ctx := context.Background()
	svc, path := newCSVService(t)
	seed(t, svc, []string{"alice", "bob", "carol"}, [][2]string{{"alice", "bob"}, {"bob", "carol"}})

	store, err := csvfile.New(csvfile.Config{Path: path, Logger: quiet})
	require.NoError(t, err)
	reopened, err := New(ctx, store, Options{Logger: quiet})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"alice", "bob", "carol"}, reopened.Users())
	friends, err := reopened.Friends("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, friends)
	assert.Equal(t, Stats{Users: 3, Friendships: 2}, reopened.Stats())

	require.NoError(t, svc.RemoveUser(ctx, "bob"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "bob")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestService_RejectedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{}
	svc, err := New(ctx, store, Options{Logger: quiet})
	require.NoError(t, err)

	require.NoError(t, svc.AddUser(ctx, "alice"))
	assert.ErrorIs(t, svc.AddUser(ctx, "alice"), graph.ErrAlreadyExists)
	assert.ErrorIs(t, svc.AddFriendship(ctx, "alice", "alice"), graph.ErrInvalidSelfEdge)
	assert.ErrorIs(t, svc.AddFriendship(ctx, "alice", "zed"), graph.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveUser(ctx, "zed"), graph.ErrNotFound)

	assert.Equal(t, 1, store.appends)
	assert.Zero(t, store.saves)
	assert.Zero(t, store.removes)
}

func TestService_PersistFailureEscalatesToFullSave(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{}
	svc, err := New(ctx, store, Options{Logger: quiet})
	require.NoError(t, err)
	require.NoError(t, svc.AddUser(ctx, "alice"))

	store.setFail(true)
	err = svc.AddUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrPersist)
	assert.True(t, svc.HasUser("bob"), "in-memory mutation is kept")

	store.setFail(false)
	require.NoError(t, svc.AddUser(ctx, "carol"))
	assert.Equal(t, 1, store.appends, "append after failure is replaced by a full save")
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, []string{"alice", "bob", "carol"}, store.snap.Usernames())

	require.NoError(t, svc.AddUser(ctx, "dave"))
	assert.Equal(t, 2, store.appends)
}

func TestService_Queries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCSVService(t)
	seed(t, svc,
		[]string{"alice", "bob", "carol", "dave", "erin"},
		[][2]string{{"alice", "bob"}, {"alice", "carol"}, {"bob", "dave"}, {"carol", "dave"}},
	)

	assert.Equal(t, []string{"bob", "carol"}, svc.MutualFriends("alice", "dave"))
	assert.True(t, svc.Connected("alice", "dave"))
	assert.False(t, svc.Connected("alice", "erin"))
	assert.False(t, svc.Connected("alice", "nobody"))

	_, err := svc.Friends("nobody")
	assert.ErrorIs(t, err, graph.ErrNotFound)

	recs, err := svc.Recommend(ctx, "alice", 0, false)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "dave", recs[0].Username)
	assert.InDelta(t, 2.0, recs[0].Score, 1e-12)

	_, err = svc.Recommend(ctx, "nobody", 3, false)
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestService_RecommendWithRank(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCSVService(t)
	seed(t, svc, []string{"alice", "bob", "carol"}, [][2]string{{"alice", "bob"}, {"bob", "carol"}})

	_, ok := svc.Ranked(0)
	assert.False(t, ok)

	recs, err := svc.Recommend(ctx, "alice", 3, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "carol", recs[0].Username)
	assert.Less(t, recs[0].Score, 1.0, "rank influence is below the stale default")

	ranked, ok := svc.Ranked(1)
	require.True(t, ok)
	require.Len(t, ranked, 1)
	assert.Equal(t, "bob", ranked[0].Username)

	require.NoError(t, svc.AddUser(ctx, "dave"))
	_, ok = svc.Ranked(0)
	assert.False(t, ok, "mutation invalidates ranks")
}

func TestService_PageRank(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCSVService(t)

	_, err := svc.ComputePageRank(ctx, nil)
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)

	seed(t, svc, []string{"a", "b"}, [][2]string{{"a", "b"}})
	res, err := svc.ComputePageRank(ctx, &graph.PageRankOptions{})
	require.NoError(t, err)
	assert.Equal(t, graph.DefaultIterations, res.Iterations)
	assert.InDelta(t, 0.5, res.Scores["a"], 1e-12)

	res, err = svc.ComputePageRank(ctx, &graph.PageRankOptions{DampingFactor: 0.5, Iterations: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)

	for _, d := range []float64{1, 1.5, -0.5} {
		_, err = svc.ComputePageRank(ctx, &graph.PageRankOptions{DampingFactor: d})
		assert.ErrorIs(t, err, graph.ErrInvalidDamping, "%v", d)
	}
}

func TestService_PageRankUnsetDampingUsesConfigured(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, &flakyStore{}, Options{
		Rank:   graph.PageRankOptions{DampingFactor: 0.5},
		Logger: quiet,
	})
	require.NoError(t, err)
	defer svc.Close()
	seed(t, svc, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})

	// One round on the path a - b - c: (1-d)/3 + d*(1/3)/2.
	want := func(d float64) float64 { return (1-d)/3 + d/6 }

	res, err := svc.ComputePageRank(ctx, &graph.PageRankOptions{Iterations: 1})
	require.NoError(t, err)
	assert.InDelta(t, want(0.5), res.Scores["a"], 1e-12)

	res, err = svc.ComputePageRank(ctx, &graph.PageRankOptions{DampingFactor: 0.2, Iterations: 1})
	require.NoError(t, err)
	assert.InDelta(t, want(0.2), res.Scores["a"], 1e-12)
}

func TestService_SearchTracksUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCSVService(t)
	seed(t, svc, []string{"alice", "albert", "bob"}, nil)

	assert.Equal(t, []string{"albert", "alice"}, svc.Search(ctx, "al", 0))
	assert.Equal(t, []string{"albert"}, svc.Search(ctx, "al", 1))

	require.NoError(t, svc.RemoveUser(ctx, "albert"))
	require.NoError(t, svc.AddUser(ctx, "alfred"))
	assert.Equal(t, []string{"alfred", "alice"}, svc.Search(ctx, "al", 0))
	assert.Equal(t, []string{"alfred", "alice", "bob"}, svc.Search(ctx, "", 0))
}

func TestService_SearchReturnsStoredNames(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCSVService(t)
	seed(t, svc, []string{"alex", "alé"}, nil)

	assert.ErrorIs(t, svc.AddUser(ctx, "al\xffx"), graph.ErrInvalidUsername)
	matches := svc.Search(ctx, "al", 0)
	assert.Equal(t, []string{"alex", "alé"}, matches)
	for _, m := range matches {
		assert.True(t, svc.HasUser(m), "%q must be a stored username", m)
	}
}

func TestService_ClearAndReload(t *testing.T) {
	ctx := context.Background()
	svc, path := newCSVService(t)
	seed(t, svc, []string{"alice", "bob"}, [][2]string{{"alice", "bob"}})

	require.NoError(t, svc.Clear(ctx))
	assert.Empty(t, svc.Users())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	reloaded, err := svc.ReloadIfChanged(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded, "own write is not an external change")

	require.NoError(t, os.WriteFile(path, []byte("aaaaaa,zoe,\n"), 0o644))
	reloaded, err = svc.ReloadIfChanged(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, []string{"zoe"}, svc.Users())
	assert.Equal(t, []string{"zoe"}, svc.Search(ctx, "z", 0))
}

func TestService_RemoveUserWithSharedID(t *testing.T) {
	ctx := context.Background()
	svc, path := newCSVService(t)
	content := "000000,alice,000001\n000000,bob,\n000001,carol,000000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	reloaded, err := svc.ReloadIfChanged(ctx)
	require.NoError(t, err)
	require.True(t, reloaded)
	require.Equal(t, []string{"alice", "bob", "carol"}, svc.Users())

	require.NoError(t, svc.RemoveUser(ctx, "alice"))
	id, ok := svc.IDOf("bob")
	require.True(t, ok)
	assert.Equal(t, "000000", id)

	store, err := csvfile.New(csvfile.Config{Path: path, Logger: quiet})
	require.NoError(t, err)
	reopened, err := New(ctx, store, Options{Logger: quiet})
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []string{"bob", "carol"}, reopened.Users())
	friends, err := reopened.Friends("carol")
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestService_RemoveUserWithSharedIDSavesInFull(t *testing.T) {
	ctx := context.Background()
	snap := graph.NewSnapshot()
	snap.Adjacency["alice"] = nil
	snap.Adjacency["bob"] = nil
	snap.UserToID["alice"] = "000000"
	snap.UserToID["bob"] = "000000"
	store := &flakyStore{snap: snap}
	svc, err := New(ctx, store, Options{Logger: quiet})
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.RemoveUser(ctx, "alice"))
	assert.Equal(t, 1, store.saves)
	assert.Zero(t, store.removes)

	require.NoError(t, svc.RemoveUser(ctx, "bob"))
	assert.Equal(t, 1, store.removes)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStore(config.StorageConfig{Backend: config.BackendCSV, Path: filepath.Join(dir, "u.csv")}, quiet)
	require.NoError(t, err)
	assert.IsType(t, &csvfile.Store{}, s)
	require.NoError(t, s.Close())

	s, err = OpenStore(config.StorageConfig{Backend: config.BackendBadger, BadgerDir: filepath.Join(dir, "db")}, quiet)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenStore(config.StorageConfig{Backend: "mongo"}, quiet)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestOpen_BadgerBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.BadgerDir = filepath.Join(t.TempDir(), "db")

	svc, err := Open(ctx, cfg, quiet)
	require.NoError(t, err)
	seed(t, svc, []string{"alice", "bob"}, [][2]string{{"alice", "bob"}})
	_, watchable := svc.Watchable()
	assert.False(t, watchable)
	require.NoError(t, svc.Close())

	svc, err = Open(ctx, cfg, quiet)
	require.NoError(t, err)
	defer svc.Close()
	assert.True(t, svc.Connected("alice", "bob"))
	assert.Equal(t, "badger", svc.Stats().Backend)
}

var _ storage.Store = (*flakyStore)(nil)
