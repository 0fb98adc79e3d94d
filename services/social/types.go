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
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
)

// MaxUsernameLength bounds usernames accepted over HTTP.
const MaxUsernameLength = 64

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("username", validateUsername)
}

// validateUsername rejects names that cannot round-trip through the data
// file: empty, surrounding whitespace, control characters, or the friend
// list separator.
func validateUsername(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > MaxUsernameLength {
		return false
	}
	if strings.TrimSpace(name) != name || strings.Contains(name, "|") {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AddUserRequest is the body of POST /users.
type AddUserRequest struct {
	Username string `json:"username" binding:"required" validate:"username"`
}

// FriendshipRequest is the body of POST /friendships.
type FriendshipRequest struct {
	A string `json:"a" binding:"required" validate:"username"`
	B string `json:"b" binding:"required" validate:"username"`
}

// PairQuery carries two usernames in the query string.
type PairQuery struct {
	A string `form:"a" binding:"required"`
	B string `form:"b" binding:"required"`
}

// RecommendQuery is the query of GET /users/:username/recommendations.
type RecommendQuery struct {
	K        int  `form:"k" binding:"omitempty,min=1,max=1000"`
	WithRank bool `form:"with_rank"`
}

// SearchQuery is the query of GET /search.
type SearchQuery struct {
	Q     string `form:"q"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// PageRankRequest is the optional body of POST /pagerank. A zero
// damping or iteration count keeps the configured value.
type PageRankRequest struct {
	Damping    float64 `json:"damping" binding:"omitempty,gt=0,lt=1"`
	Iterations int     `json:"iterations" binding:"omitempty,min=1,max=10000"`
	Top        int     `json:"top" binding:"omitempty,min=1"`
}

// TopQuery is the query of GET /pagerank.
type TopQuery struct {
	Top int `form:"top" binding:"omitempty,min=1"`
}

// UserResponse describes one user.
type UserResponse struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// UsersResponse lists every user.
type UsersResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// FriendsResponse lists the friends of a user.
type FriendsResponse struct {
	Username string   `json:"username"`
	Friends  []string `json:"friends"`
}

// FriendshipResponse echoes a friendship mutation.
type FriendshipResponse struct {
	A string `json:"a"`
	B string `json:"b"`
}

// MutualResponse is the body of GET /mutual.
type MutualResponse struct {
	A      string   `json:"a"`
	B      string   `json:"b"`
	Mutual []string `json:"mutual"`
}

// ConnectionResponse is the body of GET /connection.
type ConnectionResponse struct {
	A         string `json:"a"`
	B         string `json:"b"`
	Connected bool   `json:"connected"`
}

// PageRankResponse lists ranked users.
type PageRankResponse struct {
	Iterations int                `json:"iterations,omitempty"`
	Delta      float64            `json:"delta,omitempty"`
	Ranks      []graph.RankedUser `json:"ranks"`
}

// RecommendResponse lists friend suggestions.
type RecommendResponse struct {
	Username        string                 `json:"username"`
	Recommendations []graph.Recommendation `json:"recommendations"`
}

// SearchResponse lists usernames matching a prefix.
type SearchResponse struct {
	Prefix  string   `json:"prefix"`
	Matches []string `json:"matches"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
