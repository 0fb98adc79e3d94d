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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSocial/services/social"
	"github.com/AleutianAI/AleutianSocial/services/social/telemetry"
)

// runServe runs the HTTP API until SIGINT or SIGTERM.
//
// Description:
//
//	Starts telemetry, the gin server and, with --watch, the data file
//	watcher under one errgroup. The first failure or a signal cancels
//	the group, the server drains within server.shutdown_timeout, and
//	telemetry is flushed last.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.logger.Slog()
	slog.SetDefault(logger)

	providers, err := telemetry.Init(ctx, s.cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	addr := s.cfg.Server.Address
	if serveAddr != "" {
		addr = serveAddr
	}
	watch := s.cfg.Server.Watch || serveWatch

	gin.SetMode(gin.ReleaseMode)
	router := social.NewRouter(s.svc, social.RouterConfig{
		ServiceName:    s.cfg.Telemetry.ServiceName,
		RateLimit:      s.cfg.Server.RateLimit,
		Burst:          s.cfg.Server.Burst,
		MetricsHandler: providers.MetricsHandler,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting socialgraph server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down socialgraph server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watch {
		watcher, err := social.NewDataWatcher(s.svc, s.cfg.Server.Debounce, logger)
		switch {
		case errors.Is(err, social.ErrNotWatchable):
			logger.Warn("--watch ignored: backend has no data file", slog.String("backend", s.cfg.Storage.Backend))
		case err != nil:
			return err
		default:
			g.Go(func() error {
				if err := watcher.Start(gCtx); err != nil {
					return err
				}
				<-gCtx.Done()
				watcher.Stop()
				return nil
			})
		}
	}

	return g.Wait()
}
