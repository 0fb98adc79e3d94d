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
	"fmt"
	"sort"
)

// DefaultInfluence is the influence used for every candidate when no rank
// state is available.
const DefaultInfluence = 1.0

// Recommendation is a suggested friend.
type Recommendation struct {
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Mutual   int     `json:"mutual"`
}

// Recommend suggests up to topK new friends for user.
//
// Description:
//
//	Candidates are every user other than user and its current friends.
//	Each is scored as mutual-friend count × influence, where influence is
//	the candidate's current rank or DefaultInfluence if ranks are stale.
//	Scores <= 0 are dropped. Results are ordered by score descending,
//	then username ascending.
//
// Inputs:
//
//   - user: Username to recommend for.
//   - topK: Maximum results. Values <= 0 yield no results.
//
// Outputs:
//
//   - []Recommendation: Possibly empty, never nil.
//   - error: ErrNotFound if user is unknown.
func (g *Graph) Recommend(user string, topK int) ([]Recommendation, error) {
	own, ok := g.adj[user]
	if !ok {
		return nil, fmt.Errorf("recommend for %q: %w", user, ErrNotFound)
	}

	out := make([]Recommendation, 0)
	if topK <= 0 {
		return out, nil
	}

	for cand := range g.adj {
		if cand == user {
			continue
		}
		if _, friend := own[cand]; friend {
			continue
		}
		mutual := g.MutualFriendCount(user, cand)
		if mutual == 0 {
			continue
		}
		score := float64(mutual) * g.influence(cand)
		if score <= 0 {
			continue
		}
		out = append(out, Recommendation{Username: cand, Score: score, Mutual: mutual})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (g *Graph) influence(user string) float64 {
	if g.ranks == nil {
		return DefaultInfluence
	}
	return g.ranks[user]
}
