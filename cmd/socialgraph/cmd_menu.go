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
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSocial/pkg/ux"
)

var errNoTTY = errors.New("menu needs an interactive terminal; use the subcommands instead")

// menuAction is one entry of the interactive menu. Each prompt becomes
// one positional argument of run.
type menuAction struct {
	label   string
	prompts []string
	confirm bool
	run     func(cmd *cobra.Command, args []string, s *session) error
}

var menuActions = map[string]menuAction{
	"add":       {label: "Add user", prompts: []string{"Username"}, run: runAdd},
	"remove":    {label: "Remove user", prompts: []string{"Username"}, run: runRemove},
	"befriend":  {label: "Add friendship", prompts: []string{"First user", "Second user"}, run: runBefriend},
	"unfriend":  {label: "Remove friendship", prompts: []string{"First user", "Second user"}, run: runUnfriend},
	"friends":   {label: "Show friends", prompts: []string{"Username"}, run: runFriends},
	"mutual":    {label: "Mutual friends", prompts: []string{"First user", "Second user"}, run: runMutual},
	"connected": {label: "Check connection", prompts: []string{"First user", "Second user"}, run: runConnected},
	"recommend": {label: "Recommend friends", prompts: []string{"Username"}, run: runRecommend},
	"pagerank":  {label: "Compute PageRank", run: runPageRank},
	"search":    {label: "Search users", prompts: []string{"Prefix"}, run: runSearch},
	"users":     {label: "List users", run: runUsers},
	"stats":     {label: "Stats", run: runStats},
	"clear":     {label: "Clear graph", confirm: true, run: runClear},
}

var menuOrder = []string{
	"add", "remove", "befriend", "unfriend", "friends", "mutual",
	"connected", "recommend", "pagerank", "search", "users", "stats", "clear",
}

const menuQuit = "quit"

// runMenu loops over a selection form until the user quits.
func runMenu(cmd *cobra.Command, _ []string) error {
	if !ux.IsTerminal(os.Stdin) || !ux.IsTerminal(os.Stdout) {
		return errNoTTY
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	options := make([]huh.Option[string], 0, len(menuOrder)+1)
	for _, key := range menuOrder {
		options = append(options, huh.NewOption(menuActions[key].label, key))
	}
	options = append(options, huh.NewOption("Quit", menuQuit))

	s.printer.Title("socialgraph")
	for {
		var choice string
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("What would you like to do?").
				Options(options...).
				Value(&choice),
		)).Run()
		if errors.Is(err, huh.ErrUserAborted) || choice == menuQuit {
			return nil
		}
		if err != nil {
			return err
		}

		action := menuActions[choice]
		args, proceed, err := promptArgs(action)
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if err != nil || !proceed {
			continue
		}
		if err := action.run(cmd, args, s); err != nil {
			s.printer.Error("%v", err)
		}
	}
}

// promptArgs collects the inputs an action needs. proceed is false when
// a confirmation was declined.
func promptArgs(action menuAction) ([]string, bool, error) {
	values := make([]string, len(action.prompts))
	fields := make([]huh.Field, 0, len(action.prompts)+1)
	for i, p := range action.prompts {
		input := huh.NewInput().Title(p).Value(&values[i])
		if p != "Prefix" {
			input = input.Validate(requireName)
		}
		fields = append(fields, input)
	}
	proceed := true
	if action.confirm {
		proceed = false
		fields = append(fields, huh.NewConfirm().
			Title("This deletes every user. Continue?").
			Affirmative("Yes").
			Negative("No").
			Value(&proceed))
	}
	if len(fields) == 0 {
		return nil, true, nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, false, err
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return values, proceed, nil
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a username is required")
	}
	return nil
}
