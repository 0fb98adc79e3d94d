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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianSocial/services/social/config"
	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/storage"
	"github.com/AleutianAI/AleutianSocial/services/social/storage/badger"
	"github.com/AleutianAI/AleutianSocial/services/social/storage/csvfile"
)

// OpenStore opens the backend selected by cfg.Backend.
func OpenStore(cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", config.BackendCSV:
		return csvfile.New(csvfile.Config{Path: cfg.Path, Logger: logger})
	case config.BackendBadger:
		bcfg := badger.DefaultConfig(cfg.BadgerDir)
		bcfg.SyncWrites = cfg.SyncWrites
		bcfg.Logger = logger
		return badger.Open(bcfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// OptionsFromConfig maps application config onto service options.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) Options {
	return Options{
		Rank: graph.PageRankOptions{
			DampingFactor: cfg.Rank.Damping,
			Iterations:    cfg.Rank.Iterations,
		},
		RecommendTopK: cfg.Recommend.TopK,
		SearchLimit:   cfg.Search.Limit,
		Backend:       cfg.Storage.Backend,
		Logger:        logger,
	}
}

// Open opens the configured store and loads a Service from it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, error) {
	store, err := OpenStore(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	svc, err := New(ctx, store, OptionsFromConfig(cfg, logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

// changeDetector is implemented by stores that can tell whether their
// backing file was modified by someone else.
type changeDetector interface {
	Changed() (bool, error)
}

// ReloadIfChanged reloads the graph when the store reports an external
// modification. Stores without change detection always reload.
func (s *Service) ReloadIfChanged(ctx context.Context) (bool, error) {
	if cd, ok := s.store.(changeDetector); ok {
		changed, err := cd.Changed()
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
	}
	if err := s.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Watchable returns the data file path when the store is file backed.
func (s *Service) Watchable() (string, bool) {
	if p, ok := s.store.(interface{ Path() string }); ok {
		return p.Path(), true
	}
	return "", false
}
