// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PageRank configuration constants.
const (
	// DefaultDampingFactor is the probability of following a friendship
	// instead of jumping to a random user.
	DefaultDampingFactor = 0.85

	// DefaultIterations is the fixed number of power iterations.
	DefaultIterations = 20
)

// PageRankOptions configures ComputePageRank.
type PageRankOptions struct {
	// DampingFactor must be in (0, 1). Zero means unset. Default: 0.85
	DampingFactor float64

	// Iterations must be > 0. Default: 20
	Iterations int
}

// CheckDamping reports whether d is usable as an explicit damping factor.
// Zero is accepted and means "use the default".
func CheckDamping(d float64) error {
	if d == 0 || (d > 0 && d < 1) {
		return nil
	}
	return fmt.Errorf("%v: %w", d, ErrInvalidDamping)
}

// Validate applies defaults for unset and out-of-range values.
func (o *PageRankOptions) Validate() {
	if o.DampingFactor <= 0 || o.DampingFactor >= 1 || math.IsNaN(o.DampingFactor) {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
}

// DefaultPageRankOptions returns the standard options.
func DefaultPageRankOptions() *PageRankOptions {
	return &PageRankOptions{
		DampingFactor: DefaultDampingFactor,
		Iterations:    DefaultIterations,
	}
}

// PageRankResult is the output of ComputePageRank.
type PageRankResult struct {
	// Scores maps username to rank. Sums to 1.0 when every user has at
	// least one friend; friendless users leak mass otherwise.
	Scores map[string]float64

	// Iterations performed (always the configured count).
	Iterations int

	// Delta is the L1 change of the final iteration. Informational only.
	Delta float64
}

// RankedUser is one row of an ordered rank listing.
type RankedUser struct {
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// ComputePageRank runs synchronous power iteration over the graph.
//
// Description:
//
//	Every user starts at 1/N. Each iteration builds a fresh score map
//	where
//
//	  new[v] = (1-d)/N + Σ_{u: v ∈ friends(u)} d·rank[u]/|friends(u)|
//
//	and replaces the previous map whole. Users with no friends pass on
//	nothing; their mass is not redistributed. There is no convergence
//	check: exactly opts.Iterations rounds run.
//
//	On success the scores become the graph's rank state, used by
//	Recommend until the next mutation.
//
// Inputs:
//
//   - ctx: Context for cancellation. Must not be nil.
//   - opts: Configuration options. If nil, defaults are used.
//
// Outputs:
//
//   - *PageRankResult: Final scores.
//   - error: ErrEmptyGraph for a graph with no users, or the context
//     error if cancelled. No rank state is stored on error.
//
// Complexity: O(k × (V + E)).
func (g *Graph) ComputePageRank(ctx context.Context, opts *PageRankOptions) (*PageRankResult, error) {
	ctx, span := tracer.Start(ctx, "Graph.ComputePageRank",
		trace.WithAttributes(
			attribute.Int("user_count", g.UserCount()),
			attribute.Int("edge_count", g.EdgeCount()),
		),
	)
	defer span.End()
	start := time.Now()

	if g.UserCount() == 0 {
		g.ranks = nil
		span.AddEvent("empty_graph")
		return nil, ErrEmptyGraph
	}

	if opts == nil {
		opts = DefaultPageRankOptions()
	} else {
		opts.Validate()
	}
	span.SetAttributes(
		attribute.Float64("damping_factor", opts.DampingFactor),
		attribute.Int("iterations", opts.Iterations),
	)

	// Fixed traversal order keeps floating-point sums reproducible.
	users := g.Users()
	friends := make([][]string, len(users))
	for i, u := range users {
		friends[i] = sortedKeys(g.adj[u])
	}

	n := float64(len(users))
	d := opts.DampingFactor
	base := (1 - d) / n

	scores := make(map[string]float64, len(users))
	for _, u := range users {
		scores[u] = 1 / n
	}

	var delta float64
	for iter := 0; iter < opts.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			span.AddEvent("cancelled", trace.WithAttributes(
				attribute.Int("iterations_completed", iter),
			))
			return nil, fmt.Errorf("pagerank: %w", err)
		}

		next := make(map[string]float64, len(users))
		for _, u := range users {
			next[u] = base
		}
		for i, u := range users {
			if len(friends[i]) == 0 {
				continue
			}
			share := d * scores[u] / float64(len(friends[i]))
			for _, v := range friends[i] {
				next[v] += share
			}
		}

		delta = 0
		for _, u := range users {
			delta += math.Abs(next[u] - scores[u])
		}
		scores = next
	}

	g.ranks = scores

	slog.Debug("PageRank completed",
		slog.Int("iterations", opts.Iterations),
		slog.Float64("delta", delta),
		slog.Int("user_count", len(users)),
	)
	span.SetAttributes(attribute.Float64("delta", delta))
	recordQueryMetrics(ctx, "pagerank", time.Since(start), len(users))

	return &PageRankResult{
		Scores:     copyScores(scores),
		Iterations: opts.Iterations,
		Delta:      delta,
	}, nil
}

// Ranks returns a copy of the current rank state, or nil when no
// computation has run since the last mutation.
func (g *Graph) Ranks() map[string]float64 {
	if g.ranks == nil {
		return nil
	}
	return copyScores(g.ranks)
}

// HasRanks reports whether the rank state is valid.
func (g *Graph) HasRanks() bool {
	return g.ranks != nil
}

// Ranked returns the current rank state ordered by score descending,
// username ascending. Nil when ranks are stale.
func (g *Graph) Ranked() []RankedUser {
	return RankScores(g.ranks)
}

// Top returns at most k rows of Ranked. k <= 0 returns all rows.
func (g *Graph) Top(k int) []RankedUser {
	rows := g.Ranked()
	if k > 0 && len(rows) > k {
		rows = rows[:k]
	}
	return rows
}

// RankScores orders a score map by score descending, username ascending.
func RankScores(scores map[string]float64) []RankedUser {
	if scores == nil {
		return nil
	}
	rows := make([]RankedUser, 0, len(scores))
	for u, s := range scores {
		rows = append(rows, RankedUser{Username: u, Score: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Username < rows[j].Username
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func copyScores(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
