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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSocial/pkg/logging"
	"github.com/AleutianAI/AleutianSocial/pkg/ux"
	"github.com/AleutianAI/AleutianSocial/services/social"
	"github.com/AleutianAI/AleutianSocial/services/social/config"
)

// session is everything a command needs: resolved config, logger, the
// opened service and an output printer.
type session struct {
	cfg     config.Config
	logger  *logging.Logger
	svc     *social.Service
	printer *ux.Printer
}

func (s *session) Close() {
	if s.svc != nil {
		if err := s.svc.Close(); err != nil {
			s.logger.Warn("close store", "error", err)
		}
	}
	_ = s.logger.Close()
}

// resolveConfig loads the config file and applies persistent flags.
func resolveConfig() (config.Config, error) {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dataPath != "" {
		cfg.Storage.Path = dataPath
		if cfg.Storage.Backend == config.BackendBadger {
			cfg.Storage.BadgerDir = dataPath
		}
	}
	if backend != "" {
		cfg.Storage.Backend = strings.ToLower(backend)
		if cfg.Storage.Backend == config.BackendBadger && dataPath != "" {
			cfg.Storage.BadgerDir = dataPath
		}
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger. One-shot commands only surface
// warnings unless -v is given.
func newLogger(cmd *cobra.Command, cfg config.Config, longRunning bool) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	if !longRunning && !verbose && level < logging.LevelWarn {
		level = logging.LevelWarn
	}
	return logging.New(logging.Config{
		Level:   level,
		Dir:     cfg.Logging.Dir,
		Service: "socialgraph",
		JSON:    cfg.Logging.JSON,
		Output:  cmd.ErrOrStderr(),
	})
}

// newPrinter writes to the command's streams, styled only on a terminal.
func newPrinter(cmd *cobra.Command) *ux.Printer {
	plain := jsonOutput
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !ux.IsTerminal(f) {
		plain = true
	}
	return ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), plain)
}

// openSession resolves config and opens the graph.
func openSession(cmd *cobra.Command, longRunning bool) (*session, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg, longRunning)
	logger.Slog().Debug("config resolved",
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
	)

	svc, err := social.Open(cmd.Context(), cfg, logger.Slog())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, svc: svc, printer: newPrinter(cmd)}, nil
}

// withSession runs fn with an opened session and closes it afterwards.
func withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

// emitJSON writes v as indented JSON when --json is set.
func (s *session) emitJSON(v any) (bool, error) {
	if !jsonOutput {
		return false, nil
	}
	enc := json.NewEncoder(s.printer.Out())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return true, fmt.Errorf("encode output: %w", err)
	}
	return true, nil
}
