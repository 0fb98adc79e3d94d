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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSocial/services/social"
)

func runAdd(cmd *cobra.Command, args []string, s *session) error {
	name := args[0]
	if err := s.svc.AddUser(cmd.Context(), name); err != nil {
		return err
	}
	id, _ := s.svc.IDOf(name)
	if ok, err := s.emitJSON(social.UserResponse{Username: name, ID: id}); ok {
		return err
	}
	s.printer.Success("Added %s (%s)", name, id)
	return nil
}

func runRemove(cmd *cobra.Command, args []string, s *session) error {
	id, _ := s.svc.IDOf(args[0])
	if err := s.svc.RemoveUser(cmd.Context(), args[0]); err != nil {
		return err
	}
	if ok, err := s.emitJSON(social.UserResponse{Username: args[0], ID: id}); ok {
		return err
	}
	s.printer.Success("Removed %s", args[0])
	return nil
}

func runUsers(_ *cobra.Command, _ []string, s *session) error {
	users := s.svc.Users()
	if ok, err := s.emitJSON(social.UsersResponse{Users: users, Count: len(users)}); ok {
		return err
	}
	s.printer.Title(fmt.Sprintf("Users (%d)", len(users)))
	s.printer.List(users, "No users yet")
	return nil
}

func runBefriend(cmd *cobra.Command, args []string, s *session) error {
	if err := s.svc.AddFriendship(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	if ok, err := s.emitJSON(social.FriendshipResponse{A: args[0], B: args[1]}); ok {
		return err
	}
	s.printer.Success("%s and %s are now friends", args[0], args[1])
	return nil
}

func runUnfriend(cmd *cobra.Command, args []string, s *session) error {
	if err := s.svc.RemoveFriendship(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	if ok, err := s.emitJSON(social.FriendshipResponse{A: args[0], B: args[1]}); ok {
		return err
	}
	s.printer.Success("%s and %s are no longer friends", args[0], args[1])
	return nil
}

func runFriends(_ *cobra.Command, args []string, s *session) error {
	friends, err := s.svc.Friends(args[0])
	if err != nil {
		return err
	}
	if ok, err := s.emitJSON(social.FriendsResponse{Username: args[0], Friends: friends}); ok {
		return err
	}
	s.printer.Title(fmt.Sprintf("Friends of %s", args[0]))
	s.printer.List(friends, "No friends yet")
	return nil
}

func runMutual(_ *cobra.Command, args []string, s *session) error {
	mutual := s.svc.MutualFriends(args[0], args[1])
	if ok, err := s.emitJSON(social.MutualResponse{A: args[0], B: args[1], Mutual: mutual}); ok {
		return err
	}
	s.printer.Title(fmt.Sprintf("Mutual friends of %s and %s", args[0], args[1]))
	s.printer.List(mutual, "No mutual friends")
	return nil
}

func runConnected(_ *cobra.Command, args []string, s *session) error {
	connected := s.svc.Connected(args[0], args[1])
	if ok, err := s.emitJSON(social.ConnectionResponse{A: args[0], B: args[1], Connected: connected}); ok {
		return err
	}
	if connected {
		s.printer.Success("%s and %s are connected", args[0], args[1])
	} else {
		s.printer.Warning("%s and %s are not connected", args[0], args[1])
	}
	return nil
}

func runStats(_ *cobra.Command, _ []string, s *session) error {
	st := s.svc.Stats()
	if ok, err := s.emitJSON(st); ok {
		return err
	}
	s.printer.Box("Graph", fmt.Sprintf("%d users, %d friendships (%s)", st.Users, st.Friendships, st.Backend))
	return nil
}

func runClear(cmd *cobra.Command, _ []string, s *session) error {
	before := s.svc.Stats()
	if err := s.svc.Clear(cmd.Context()); err != nil {
		return err
	}
	if ok, err := s.emitJSON(s.svc.Stats()); ok {
		return err
	}
	s.printer.Success("Cleared %d users and %d friendships", before.Users, before.Friendships)
	return nil
}
