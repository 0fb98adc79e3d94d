// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSocial/services/social"
	"github.com/AleutianAI/AleutianSocial/services/social/graph"
)

func runPageRank(cmd *cobra.Command, _ []string, s *session) error {
	res, err := s.svc.ComputePageRank(cmd.Context(), &graph.PageRankOptions{
		DampingFactor: pagerankDamping,
		Iterations:    pagerankIterations,
	})
	if err != nil {
		return err
	}
	ranks := graph.RankScores(res.Scores)
	if pagerankTop > 0 && pagerankTop < len(ranks) {
		ranks = ranks[:pagerankTop]
	}

	if ok, err := s.emitJSON(social.PageRankResponse{Iterations: res.Iterations, Delta: res.Delta, Ranks: ranks}); ok {
		return err
	}
	s.printer.Title("PageRank")
	s.printer.Table(rankRows(ranks))
	s.printer.Muted("%d iterations, last delta %.2e", res.Iterations, res.Delta)
	return nil
}

func rankRows(ranks []graph.RankedUser) [][]string {
	rows := make([][]string, 0, len(ranks)+1)
	rows = append(rows, []string{"#", "USER", "SCORE"})
	for _, r := range ranks {
		rows = append(rows, []string{strconv.Itoa(r.Rank), r.Username, strconv.FormatFloat(r.Score, 'f', 6, 64)})
	}
	return rows
}

func runRecommend(cmd *cobra.Command, args []string, s *session) error {
	recs, err := s.svc.Recommend(cmd.Context(), args[0], recommendTop, recommendWithRank)
	if err != nil {
		return err
	}
	if ok, err := s.emitJSON(social.RecommendResponse{Username: args[0], Recommendations: recs}); ok {
		return err
	}
	s.printer.Title(fmt.Sprintf("Suggested friends for %s", args[0]))
	if len(recs) == 0 {
		s.printer.Muted("No suggestions")
		return nil
	}
	s.printer.Table(recommendRows(recs))
	return nil
}

func recommendRows(recs []graph.Recommendation) [][]string {
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, []string{"USER", "MUTUAL", "SCORE"})
	for _, r := range recs {
		rows = append(rows, []string{r.Username, strconv.Itoa(r.Mutual), strconv.FormatFloat(r.Score, 'f', 6, 64)})
	}
	return rows
}

func runSearch(cmd *cobra.Command, args []string, s *session) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	matches := s.svc.Search(cmd.Context(), prefix, searchLimit)
	if ok, err := s.emitJSON(social.SearchResponse{Prefix: prefix, Matches: matches}); ok {
		return err
	}
	s.printer.Title(fmt.Sprintf("Users starting with %q", prefix))
	s.printer.List(matches, "No matches")
	return nil
}
