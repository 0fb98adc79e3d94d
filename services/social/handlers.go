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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
)

// ServiceVersion is the socialgraph API version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the social graph.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleListUsers handles GET /v1/social/users.
func (h *Handlers) HandleListUsers(c *gin.Context) {
	getOrCreateRequestID(c)
	users := h.svc.Users()
	c.JSON(http.StatusOK, UsersResponse{Users: users, Count: len(users)})
}

// HandleAddUser handles POST /v1/social/users.
//
// Description:
//
//	Creates a user and appends it to the data store.
//
// Request Body:
//
//	AddUserRequest
//
// Response:
//
//	201 Created: UserResponse
//	400 Bad Request: Malformed body or invalid username
//	409 Conflict: Username already exists
//	500 Internal Server Error: Persistence failure
func (h *Handlers) HandleAddUser(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddUser")

	var req AddUserRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	if err := h.svc.AddUser(c.Request.Context(), req.Username); err != nil {
		respondError(c, logger, err, "ADD_USER_FAILED")
		return
	}

	id, _ := h.svc.IDOf(req.Username)
	logger.Info("User added", "username", req.Username)
	c.JSON(http.StatusCreated, UserResponse{Username: req.Username, ID: id})
}

// HandleRemoveUser handles DELETE /v1/social/users/:username.
//
// Response:
//
//	204 No Content: Removed
//	404 Not Found: Unknown user
func (h *Handlers) HandleRemoveUser(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRemoveUser")

	name := c.Param("username")
	if err := h.svc.RemoveUser(c.Request.Context(), name); err != nil {
		respondError(c, logger, err, "REMOVE_USER_FAILED")
		return
	}
	logger.Info("User removed", "username", name)
	c.Status(http.StatusNoContent)
}

// HandleFriends handles GET /v1/social/users/:username/friends.
func (h *Handlers) HandleFriends(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFriends")

	name := c.Param("username")
	friends, err := h.svc.Friends(name)
	if err != nil {
		respondError(c, logger, err, "FRIENDS_FAILED")
		return
	}
	c.JSON(http.StatusOK, FriendsResponse{Username: name, Friends: friends})
}

// HandleRecommend handles GET /v1/social/users/:username/recommendations.
//
// Description:
//
//	Suggests friends-of-friends ranked by mutual count times influence.
//	Influence is the stored PageRank score, or 1.0 when ranks are stale.
//	With with_rank=true, stale ranks are recomputed first.
//
// Query:
//
//	k - Maximum suggestions (default from config)
//	with_rank - Recompute PageRank when stale
//
// Response:
//
//	200 OK: RecommendResponse
//	404 Not Found: Unknown user
func (h *Handlers) HandleRecommend(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRecommend")

	var q RecommendQuery
	if !bindQuery(c, logger, &q) {
		return
	}

	name := c.Param("username")
	recs, err := h.svc.Recommend(c.Request.Context(), name, q.K, q.WithRank)
	if err != nil {
		respondError(c, logger, err, "RECOMMEND_FAILED")
		return
	}
	c.JSON(http.StatusOK, RecommendResponse{Username: name, Recommendations: recs})
}

// HandleAddFriendship handles POST /v1/social/friendships.
//
// Response:
//
//	201 Created: FriendshipResponse
//	400 Bad Request: Malformed body or self friendship
//	404 Not Found: Either user unknown
func (h *Handlers) HandleAddFriendship(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddFriendship")

	var req FriendshipRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	if err := h.svc.AddFriendship(c.Request.Context(), req.A, req.B); err != nil {
		respondError(c, logger, err, "ADD_FRIENDSHIP_FAILED")
		return
	}
	logger.Info("Friendship added", "a", req.A, "b", req.B)
	c.JSON(http.StatusCreated, FriendshipResponse{A: req.A, B: req.B})
}

// HandleRemoveFriendship handles DELETE /v1/social/friendships/:a/:b.
func (h *Handlers) HandleRemoveFriendship(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRemoveFriendship")

	a, b := c.Param("a"), c.Param("b")
	if err := h.svc.RemoveFriendship(c.Request.Context(), a, b); err != nil {
		respondError(c, logger, err, "REMOVE_FRIENDSHIP_FAILED")
		return
	}
	logger.Info("Friendship removed", "a", a, "b", b)
	c.Status(http.StatusNoContent)
}

// HandleMutual handles GET /v1/social/mutual?a=&b=.
func (h *Handlers) HandleMutual(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleMutual")

	var q PairQuery
	if !bindQuery(c, logger, &q) {
		return
	}
	c.JSON(http.StatusOK, MutualResponse{A: q.A, B: q.B, Mutual: h.svc.MutualFriends(q.A, q.B)})
}

// HandleConnection handles GET /v1/social/connection?a=&b=.
//
// Unknown users are reported as not connected, never as an error.
func (h *Handlers) HandleConnection(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleConnection")

	var q PairQuery
	if !bindQuery(c, logger, &q) {
		return
	}
	c.JSON(http.StatusOK, ConnectionResponse{A: q.A, B: q.B, Connected: h.svc.Connected(q.A, q.B)})
}

// HandleComputePageRank handles POST /v1/social/pagerank.
//
// Description:
//
//	Recomputes PageRank over the whole graph and returns the ranking.
//	The body is optional; zero fields use the configured defaults.
//
// Response:
//
//	200 OK: PageRankResponse
//	400 Bad Request: Invalid parameters
//	422 Unprocessable Entity: Graph has no users
func (h *Handlers) HandleComputePageRank(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleComputePageRank")

	var req PageRankRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, logger, &req) {
			return
		}
	}

	res, err := h.svc.ComputePageRank(c.Request.Context(), &graph.PageRankOptions{
		DampingFactor: req.Damping,
		Iterations:    req.Iterations,
	})
	if err != nil {
		respondError(c, logger, err, "PAGERANK_FAILED")
		return
	}

	ranks := graph.RankScores(res.Scores)
	if req.Top > 0 && req.Top < len(ranks) {
		ranks = ranks[:req.Top]
	}
	logger.Info("PageRank computed", "users", len(res.Scores), "iterations", res.Iterations)
	c.JSON(http.StatusOK, PageRankResponse{Iterations: res.Iterations, Delta: res.Delta, Ranks: ranks})
}

// HandleGetPageRank handles GET /v1/social/pagerank?top=.
//
// Returns the stored ranking. 409 when ranks are stale or never computed.
func (h *Handlers) HandleGetPageRank(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetPageRank")

	var q TopQuery
	if !bindQuery(c, logger, &q) {
		return
	}
	ranks, ok := h.svc.Ranked(q.Top)
	if !ok {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "PageRank is stale; POST /pagerank to recompute",
			Code:  "RANKS_STALE",
		})
		return
	}
	c.JSON(http.StatusOK, PageRankResponse{Ranks: ranks})
}

// HandleSearch handles GET /v1/social/search?q=&limit=.
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSearch")

	var q SearchQuery
	if !bindQuery(c, logger, &q) {
		return
	}
	matches := h.svc.Search(c.Request.Context(), q.Q, q.Limit)
	c.JSON(http.StatusOK, SearchResponse{Prefix: q.Q, Matches: matches})
}

// HandleClear handles POST /v1/social/clear.
func (h *Handlers) HandleClear(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleClear")

	if err := h.svc.Clear(c.Request.Context()); err != nil {
		respondError(c, logger, err, "CLEAR_FAILED")
		return
	}
	logger.Warn("Graph cleared")
	c.Status(http.StatusNoContent)
}

// HandleStats handles GET /v1/social/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, h.svc.Stats())
}

// HandleHealth handles GET /v1/social/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// bindJSON binds and validates a JSON body, writing a 400 on failure.
func bindJSON(c *gin.Context, logger *slog.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	if err := requestValidate.Struct(req); err != nil {
		logger.Warn("Request validation failed", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid username",
			Code:    "INVALID_USERNAME",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// bindQuery binds query parameters, writing a 400 on failure.
func bindQuery(c *gin.Context, logger *slog.Logger, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		logger.Warn("Invalid query", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallbackCode string) {
	statusCode := http.StatusInternalServerError
	errCode := fallbackCode

	switch {
	case errors.Is(err, graph.ErrNotFound):
		statusCode = http.StatusNotFound
		errCode = "USER_NOT_FOUND"
	case errors.Is(err, graph.ErrAlreadyExists):
		statusCode = http.StatusConflict
		errCode = "USER_EXISTS"
	case errors.Is(err, graph.ErrInvalidSelfEdge):
		statusCode = http.StatusBadRequest
		errCode = "SELF_FRIENDSHIP"
	case errors.Is(err, graph.ErrInvalidUsername):
		statusCode = http.StatusBadRequest
		errCode = "INVALID_USERNAME"
	case errors.Is(err, graph.ErrInvalidDamping):
		statusCode = http.StatusBadRequest
		errCode = "INVALID_REQUEST"
	case errors.Is(err, graph.ErrEmptyGraph):
		statusCode = http.StatusUnprocessableEntity
		errCode = "EMPTY_GRAPH"
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err)
	}
	c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// if absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	c.Set(requestIDKey, requestID)
	return requestID
}
