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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSocial/services/social/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	svc, _ := newCSVService(t)
	return NewRouter(svc, RouterConfig{Logger: quiet}), svc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleAddUser(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"created", AddUserRequest{Username: "alice"}, http.StatusCreated, ""},
		{"duplicate", AddUserRequest{Username: "alice"}, http.StatusConflict, "USER_EXISTS"},
		{"missing", map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"separator", AddUserRequest{Username: "a|b"}, http.StatusBadRequest, "INVALID_USERNAME"},
		{"padded", AddUserRequest{Username: " bob"}, http.StatusBadRequest, "INVALID_USERNAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/v1/social/users", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeBody[ErrorResponse](t, w).Code)
				return
			}
			resp := decodeBody[UserResponse](t, w)
			assert.Equal(t, "alice", resp.Username)
			assert.Equal(t, identity.StableID("alice"), resp.ID)
		})
	}
}

func TestHandlers_FriendshipFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, u := range []string{"alice", "bob", "carol"} {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/v1/social/users", AddUserRequest{Username: u}).Code)
	}

	w := do(t, r, http.MethodPost, "/v1/social/friendships", FriendshipRequest{A: "alice", B: "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, r, http.MethodPost, "/v1/social/friendships", FriendshipRequest{A: "bob", B: "carol"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/v1/social/friendships", FriendshipRequest{A: "alice", B: "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SELF_FRIENDSHIP", decodeBody[ErrorResponse](t, w).Code)

	w = do(t, r, http.MethodPost, "/v1/social/friendships", FriendshipRequest{A: "alice", B: "zed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/v1/social/users/bob/friends", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice", "carol"}, decodeBody[FriendsResponse](t, w).Friends)

	w = do(t, r, http.MethodGet, "/v1/social/mutual?a=alice&b=carol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bob"}, decodeBody[MutualResponse](t, w).Mutual)

	w = do(t, r, http.MethodGet, "/v1/social/connection?a=alice&b=carol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[ConnectionResponse](t, w).Connected)

	w = do(t, r, http.MethodGet, "/v1/social/users/alice/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs := decodeBody[RecommendResponse](t, w).Recommendations
	require.Len(t, recs, 1)
	assert.Equal(t, "carol", recs[0].Username)
	assert.Equal(t, 1, recs[0].Mutual)

	w = do(t, r, http.MethodDelete, "/v1/social/friendships/bob/carol", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/v1/social/connection?a=alice&b=carol", nil)
	assert.False(t, decodeBody[ConnectionResponse](t, w).Connected)

	w = do(t, r, http.MethodDelete, "/v1/social/users/bob", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodDelete, "/v1/social/users/bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/v1/social/users", nil)
	assert.Equal(t, UsersResponse{Users: []string{"alice", "carol"}, Count: 2}, decodeBody[UsersResponse](t, w))
}

func TestHandlers_QueryValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/v1/social/mutual?a=alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/v1/social/search?limit=0x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/v1/social/users/nobody/recommendations", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", decodeBody[ErrorResponse](t, w).Code)

	w = do(t, r, http.MethodGet, "/v1/social/connection?a=ghost&b=ghost", nil)
	assert.True(t, decodeBody[ConnectionResponse](t, w).Connected)
}

func TestHandlers_PageRank(t *testing.T) {
	r, svc := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/social/pagerank", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "EMPTY_GRAPH", decodeBody[ErrorResponse](t, w).Code)

	seed(t, svc, []string{"hub", "a", "b", "c"}, [][2]string{{"hub", "a"}, {"hub", "b"}, {"hub", "c"}})

	w = do(t, r, http.MethodGet, "/v1/social/pagerank", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/v1/social/pagerank", PageRankRequest{Top: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[PageRankResponse](t, w)
	assert.Equal(t, 20, resp.Iterations)
	require.Len(t, resp.Ranks, 2)
	assert.Equal(t, "hub", resp.Ranks[0].Username)
	assert.Equal(t, 1, resp.Ranks[0].Rank)

	for _, d := range []float64{1.5, 1, -0.5} {
		w = do(t, r, http.MethodPost, "/v1/social/pagerank", PageRankRequest{Damping: d})
		assert.Equal(t, http.StatusBadRequest, w.Code, "damping %v", d)
	}

	w = do(t, r, http.MethodGet, "/v1/social/pagerank?top=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[PageRankResponse](t, w).Ranks, 1)
}

func TestHandlers_SearchStatsClear(t *testing.T) {
	r, svc := newTestRouter(t)
	seed(t, svc, []string{"alice", "albert", "bob"}, [][2]string{{"alice", "bob"}})

	w := do(t, r, http.MethodGet, "/v1/social/search?q=al&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, SearchResponse{Prefix: "al", Matches: []string{"albert"}}, decodeBody[SearchResponse](t, w))

	w = do(t, r, http.MethodGet, "/v1/social/stats", nil)
	assert.Equal(t, Stats{Users: 3, Friendships: 1, Backend: "csv"}, decodeBody[Stats](t, w))

	w = do(t, r, http.MethodPost, "/v1/social/clear", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/v1/social/stats", nil)
	assert.Equal(t, 0, decodeBody[Stats](t, w).Users)
}

func TestHandlers_RequestIDAndHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/social/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "healthy", decodeBody[HealthResponse](t, w).Status)

	w = do(t, r, http.MethodGet, "/v1/social/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	svc, _ := newCSVService(t)
	r := NewRouter(svc, RouterConfig{RateLimit: 0.001, Burst: 2, Logger: quiet})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/v1/social/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/v1/social/health", nil).Code)
	w := do(t, r, http.MethodGet, "/v1/social/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody[ErrorResponse](t, w).Code)
}

func TestNewRouter_Metrics(t *testing.T) {
	svc, _ := newCSVService(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("socialgraph_up 1\n"))
	})
	r := NewRouter(svc, RouterConfig{MetricsHandler: metrics, Logger: quiet})

	w := do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "socialgraph_up")
}
