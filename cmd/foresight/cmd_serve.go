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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/foresight/services/foresight"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	port  int
	debug bool
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Run the analysis HTTP API",
		Long: `Serve the analysis API on --port (default from configuration).

Endpoints:
  POST   /v1/foresight/analyze
  POST   /v1/foresight/snippet
  GET    /v1/foresight/rules
  DELETE /v1/foresight/cache
  GET    /v1/foresight/health
  GET    /metrics

Configuration is loaded from path (default: the current directory).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, flags, args)
		},
	}
	cmd.Flags().IntVar(&flags.port, "port", 0, "Port to listen on")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable gin debug mode and request logging")
	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, flags *serveFlags, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd, global, root)
	if err != nil {
		return err
	}
	defer a.close()
	a.logger.Install()

	if flags.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("foresight"))
	if flags.debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	foresight.RegisterRoutes(v1, foresight.NewHandlers(a.svc))
	foresight.RegisterMetrics(router)

	port := a.cfg.Server.Port
	if flags.port > 0 {
		port = flags.port
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting foresight server",
			slog.String("address", server.Addr),
			slog.Int("rules", a.svc.RuleCount()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down foresight server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
