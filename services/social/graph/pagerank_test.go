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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rankTolerance = 1e-9

func sumScores(scores map[string]float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

func TestPageRankOptions_Validate(t *testing.T) {
	tests := []struct {
		name     string
		opts     PageRankOptions
		expected PageRankOptions
	}{
		{
			name:     "valid options unchanged",
			opts:     PageRankOptions{DampingFactor: 0.5, Iterations: 7},
			expected: PageRankOptions{DampingFactor: 0.5, Iterations: 7},
		},
		{
			name:     "negative damping replaced with default",
			opts:     PageRankOptions{DampingFactor: -0.1, Iterations: 7},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, Iterations: 7},
		},
		{
			name:     "damping > 1 replaced with default",
			opts:     PageRankOptions{DampingFactor: 1.2, Iterations: 7},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, Iterations: 7},
		},
		{
			name:     "zero iterations replaced with default",
			opts:     PageRankOptions{DampingFactor: 0.85, Iterations: 0},
			expected: PageRankOptions{DampingFactor: 0.85, Iterations: DefaultIterations},
		},
		{
			name:     "unset damping gets default",
			opts:     PageRankOptions{Iterations: 3},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, Iterations: 3},
		},
		{
			name:     "damping of exactly 1 replaced with default",
			opts:     PageRankOptions{DampingFactor: 1, Iterations: 1},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, Iterations: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Validate()
			assert.Equal(t, tt.expected, opts)
		})
	}
}

func TestComputePageRank_EmptyGraph(t *testing.T) {
	g := NewGraph()
	result, err := g.ComputePageRank(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyGraph)
	assert.Nil(t, result)
	assert.Nil(t, g.Ranks())
	assert.False(t, g.HasRanks())
}

func TestComputePageRank_MassConservation(t *testing.T) {
	// Every user has at least one friend, so no mass is trapped.
	g := buildGraph(t,
		[]string{"a", "b", "c", "d", "e", "f"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}, {"d", "e"}, {"e", "f"}},
	)

	for _, iters := range []int{1, 2, 5, 20, 100} {
		result, err := g.ComputePageRank(context.Background(), &PageRankOptions{
			DampingFactor: DefaultDampingFactor,
			Iterations:    iters,
		})
		require.NoError(t, err)
		assert.Equal(t, iters, result.Iterations)
		assert.InDelta(t, 1.0, sumScores(result.Scores), rankTolerance, "iterations=%d", iters)
		for u, s := range result.Scores {
			assert.GreaterOrEqual(t, s, 0.0, "score of %s", u)
		}
	}
}

func TestComputePageRank_TrappedMass(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "lonely"}, [][2]string{{"a", "b"}})

	result, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)

	// The isolated user keeps only the random-jump share after the first
	// iteration; its own mass is not passed on.
	n := 3.0
	assert.InDelta(t, (1-DefaultDampingFactor)/n, result.Scores["lonely"], rankTolerance)
	assert.Less(t, sumScores(result.Scores), 1.0)
	assert.InDelta(t, result.Scores["a"], result.Scores["b"], rankTolerance)
}

func TestCheckDamping(t *testing.T) {
	for _, d := range []float64{0, 0.01, 0.5, 0.85, 0.99} {
		assert.NoError(t, CheckDamping(d), "%v", d)
	}
	for _, d := range []float64{-0.1, 1, 1.5, math.NaN()} {
		assert.ErrorIs(t, CheckDamping(d), ErrInvalidDamping, "%v", d)
	}
}

func TestComputePageRank_SingleIterationByHand(t *testing.T) {
	// Path a - b - c.
	g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	d := 0.85
	result, err := g.ComputePageRank(context.Background(), &PageRankOptions{DampingFactor: d, Iterations: 1})
	require.NoError(t, err)

	third := 1.0 / 3
	base := (1 - d) / 3
	assert.InDelta(t, base+d*third/2, result.Scores["a"], rankTolerance)
	assert.InDelta(t, base+d*third+d*third, result.Scores["b"], rankTolerance)
	assert.InDelta(t, base+d*third/2, result.Scores["c"], rankTolerance)
}

func TestComputePageRank_SynchronousUpdate(t *testing.T) {
	// With synchronous updates a symmetric star ranks its leaves
	// identically regardless of traversal order.
	g := buildGraph(t,
		[]string{"hub", "x", "y", "z"},
		[][2]string{{"hub", "x"}, {"hub", "y"}, {"hub", "z"}},
	)
	result, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)

	assert.InDelta(t, result.Scores["x"], result.Scores["y"], rankTolerance)
	assert.InDelta(t, result.Scores["y"], result.Scores["z"], rankTolerance)
	assert.Greater(t, result.Scores["hub"], result.Scores["x"])
}

func TestComputePageRank_Deterministic(t *testing.T) {
	g := buildGraph(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}, {"c", "d"}},
	)
	first, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)
	second, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Scores, second.Scores)
}

func TestComputePageRank_StoresRanks(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	result, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, result.Scores, g.Ranks())

	// Returned maps are copies.
	result.Scores["a"] = 99
	assert.NotEqual(t, 99.0, g.Ranks()["a"])
}

func TestComputePageRank_Cancelled(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.ComputePageRank(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.False(t, g.HasRanks())
}

func TestGraph_RankedAndTop(t *testing.T) {
	g := buildGraph(t,
		[]string{"hub", "x", "y", "z"},
		[][2]string{{"hub", "x"}, {"hub", "y"}, {"hub", "z"}},
	)
	assert.Nil(t, g.Ranked())

	_, err := g.ComputePageRank(context.Background(), nil)
	require.NoError(t, err)

	rows := g.Ranked()
	require.Len(t, rows, 4)
	assert.Equal(t, "hub", rows[0].Username)
	assert.Equal(t, 1, rows[0].Rank)
	// Equal leaves fall back to username order.
	assert.Equal(t, []string{"x", "y", "z"}, []string{rows[1].Username, rows[2].Username, rows[3].Username})

	top := g.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, rows[:2], top)
	assert.Len(t, g.Top(0), 4)
}

func TestRankScores_Ordering(t *testing.T) {
	rows := RankScores(map[string]float64{"b": 0.2, "a": 0.2, "c": 0.6})
	require.Len(t, rows, 3)
	assert.Equal(t, "c", rows[0].Username)
	assert.Equal(t, "a", rows[1].Username)
	assert.Equal(t, "b", rows[2].Username)
	assert.Equal(t, 3, rows[2].Rank)
	assert.False(t, math.IsNaN(rows[0].Score))
}
