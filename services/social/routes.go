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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all social graph routes under /social.
//
// Description:
//
//	Sets up the HTTP routes for the social graph API.
//
// Inputs:
//
//	rg - Router group to register routes under (e.g., /v1)
//	handlers - The handlers instance
//
// User Endpoints:
//
//	GET    /v1/social/users - List users
//	POST   /v1/social/users - Add a user
//	DELETE /v1/social/users/:username - Remove a user
//	GET    /v1/social/users/:username/friends - List friends
//	GET    /v1/social/users/:username/recommendations - Suggest friends
//
// Friendship Endpoints:
//
//	POST   /v1/social/friendships - Add a friendship
//	DELETE /v1/social/friendships/:a/:b - Remove a friendship
//
// Query Endpoints:
//
//	GET  /v1/social/mutual?a=&b= - Mutual friends
//	GET  /v1/social/connection?a=&b= - Path existence
//	POST /v1/social/pagerank - Recompute PageRank
//	GET  /v1/social/pagerank?top= - Stored ranking
//	GET  /v1/social/search?q=&limit= - Username prefix search
//
// Admin Endpoints:
//
//	POST /v1/social/clear - Remove everything
//	GET  /v1/social/stats - Counts
//	GET  /v1/social/health - Health check
//
// Example:
//
//	handlers := social.NewHandlers(svc)
//	v1 := router.Group("/v1")
//	social.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	s := rg.Group("/social")
	{
		s.GET("/users", handlers.HandleListUsers)
		s.POST("/users", handlers.HandleAddUser)
		s.DELETE("/users/:username", handlers.HandleRemoveUser)
		s.GET("/users/:username/friends", handlers.HandleFriends)
		s.GET("/users/:username/recommendations", handlers.HandleRecommend)

		s.POST("/friendships", handlers.HandleAddFriendship)
		s.DELETE("/friendships/:a/:b", handlers.HandleRemoveFriendship)

		s.GET("/mutual", handlers.HandleMutual)
		s.GET("/connection", handlers.HandleConnection)
		s.POST("/pagerank", handlers.HandleComputePageRank)
		s.GET("/pagerank", handlers.HandleGetPageRank)
		s.GET("/search", handlers.HandleSearch)

		s.POST("/clear", handlers.HandleClear)
		s.GET("/stats", handlers.HandleStats)
		s.GET("/health", handlers.HandleHealth)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName labels otelgin spans.
	ServiceName string

	// RateLimit in requests per second; 0 disables.
	RateLimit float64
	Burst     int

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler

	Logger *slog.Logger
}

// NewRouter builds the gin engine serving svc.
func NewRouter(svc *Service, cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "socialgraph"
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(RequestID())
	router.Use(RequestLogger(cfg.Logger))
	router.Use(RateLimit(cfg.RateLimit, cfg.Burst))

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}
