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
	"github.com/spf13/cobra"
)

// --- Global Flags ---
var (
	configPath string
	dataPath   string
	backend    string
	jsonOutput bool
	verbose    bool

	pagerankTop        int
	pagerankDamping    float64
	pagerankIterations int

	recommendTop      int
	recommendWithRank bool

	searchLimit int

	serveAddr  string
	serveWatch bool

	rootCmd = &cobra.Command{
		Use:   "socialgraph",
		Short: "Manage and analyze a social graph of users and friendships",
		Long: `socialgraph stores users and undirected friendships, and answers
mutual-friend, connectivity, PageRank, recommendation and prefix
search queries. Every mutation is written to the data file immediately.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Users ---
	addCmd = &cobra.Command{
		Use:   "add USER",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runAdd), // Defined in cmd_graph.go
	}
	removeCmd = &cobra.Command{
		Use:     "remove USER",
		Aliases: []string{"rm"},
		Short:   "Remove a user and all of their friendships",
		Args:    cobra.ExactArgs(1),
		RunE:    withSession(runRemove),
	}
	usersCmd = &cobra.Command{
		Use:     "users",
		Aliases: []string{"ls"},
		Short:   "List all users",
		Args:    cobra.NoArgs,
		RunE:    withSession(runUsers),
	}

	// --- Friendships ---
	befriendCmd = &cobra.Command{
		Use:   "befriend A B",
		Short: "Make two users friends",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runBefriend),
	}
	unfriendCmd = &cobra.Command{
		Use:   "unfriend A B",
		Short: "Remove a friendship",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runUnfriend),
	}
	friendsCmd = &cobra.Command{
		Use:   "friends USER",
		Short: "List a user's friends",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runFriends),
	}

	// --- Queries ---
	mutualCmd = &cobra.Command{
		Use:   "mutual A B",
		Short: "List friends shared by two users",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runMutual),
	}
	connectedCmd = &cobra.Command{
		Use:   "connected A B",
		Short: "Check whether a chain of friendships links two users",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runConnected),
	}
	pagerankCmd = &cobra.Command{
		Use:   "pagerank",
		Short: "Compute and display PageRank influence scores",
		Args:  cobra.NoArgs,
		RunE:  withSession(runPageRank), // Defined in cmd_rank.go
	}
	recommendCmd = &cobra.Command{
		Use:   "recommend USER",
		Short: "Suggest new friends by mutual friends and influence",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runRecommend),
	}
	searchCmd = &cobra.Command{
		Use:   "search PREFIX",
		Short: "Find usernames starting with a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withSession(runSearch),
	}

	// --- Admin ---
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show user and friendship counts",
		Args:  cobra.NoArgs,
		RunE:  withSession(runStats),
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "DANGER: Remove every user and friendship",
		Args:  cobra.NoArgs,
		RunE:  withSession(runClear),
	}

	// --- Front ends ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}
	menuCmd = &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		Args:  cobra.NoArgs,
		RunE:  runMenu, // Defined in cmd_menu.go
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.socialgraph/socialgraph.yaml)")
	pf.StringVar(&dataPath, "data", "", "data file, or database directory for the badger backend")
	pf.StringVar(&backend, "backend", "", "storage backend: csv or badger")
	pf.BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	pagerankCmd.Flags().IntVar(&pagerankTop, "top", 0, "show only the top N users (0 = all)")
	pagerankCmd.Flags().Float64Var(&pagerankDamping, "damping", 0, "damping factor in (0, 1); 0 uses the config value")
	pagerankCmd.Flags().IntVar(&pagerankIterations, "iterations", 0, "iterations (default from config)")

	recommendCmd.Flags().IntVar(&recommendTop, "top", 0, "maximum suggestions (default from config)")
	recommendCmd.Flags().BoolVar(&recommendWithRank, "with-rank", false, "compute PageRank first so influence is used")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum matches (default from config)")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the data file when it is edited externally")

	rootCmd.AddCommand(
		addCmd, removeCmd, usersCmd,
		befriendCmd, unfriendCmd, friendsCmd,
		mutualCmd, connectedCmd, pagerankCmd, recommendCmd, searchCmd,
		statsCmd, clearCmd,
		serveCmd, menuCmd,
	)
}
