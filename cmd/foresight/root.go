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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/foresight/pkg/logging"
	"github.com/AleutianAI/foresight/pkg/ux"
	"github.com/AleutianAI/foresight/services/foresight"
	"github.com/AleutianAI/foresight/services/foresight/config"
	"github.com/AleutianAI/foresight/services/foresight/telemetry"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	output     string
	json       bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "foresight",
		Short: "Predict problems in JavaScript and TypeScript projects before they ship",
		Long: `Foresight statically analyzes React, Next.js, Vue, Svelte and Astro
projects. It runs framework-aware rules, predicts likely runtime errors
and checks declared dependencies against what the code imports.

Configuration is read from .foresight.yml in the project root, then .env,
then FORESIGHT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       foresight.ServiceVersion,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "",
		"Config file (default <path>/.foresight.yml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.output, "output", "",
		"Output style: full, minimal, machine (default: detect)")
	root.PersistentFlags().BoolVar(&flags.json, "json", false,
		"Output as JSON")

	root.AddCommand(
		newAnalyzeCmd(flags),
		newSnippetCmd(flags),
		newWatchCmd(flags),
		newRulesCmd(flags),
		newServeCmd(flags),
		newCacheCmd(flags),
	)
	return root
}

// =============================================================================
// APPLICATION SETUP
// =============================================================================

// app bundles what a command needs after configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	svc     *foresight.Service
	out     io.Writer
	printer *ux.Printer
	json    bool

	shutdownTelemetry func(context.Context) error
}

// setup loads configuration for root and builds the service.
//
// Description:
//
//	Loads config (defaults, .foresight.yml, .env, environment), applies
//	--log-level, creates the logger writing to stderr, starts the
//	configured telemetry exporters and opens the service. Call close
//	when done.
func setup(ctx context.Context, cmd *cobra.Command, flags *globalFlags, root string) (*app, error) {
	var opts []config.Option
	if flags.configFile != "" {
		opts = append(opts, config.WithFile(flags.configFile))
	}
	cfg, err := config.Load(root, opts...)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "foresight",
		JSON:    cfg.Log.JSON,
		Output:  cmd.ErrOrStderr(),
	})

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = "foresight"
	tcfg.ServiceVersion = foresight.ServiceVersion
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	svc, err := foresight.Open(cfg, root, logger.Slog())
	if err != nil {
		_ = shutdown(ctx)
		_ = logger.Close()
		return nil, err
	}

	out := cmd.OutOrStdout()
	outLevel := ux.DetectLevel(out)
	if flags.output != "" {
		outLevel = ux.ParseLevel(flags.output)
	}
	return &app{
		cfg:               cfg,
		logger:            logger,
		svc:               svc,
		out:               out,
		printer:           ux.NewPrinter(out, outLevel),
		json:              flags.json,
		shutdownTelemetry: shutdown,
	}, nil
}

func (a *app) close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("service close failed", slog.String("error", err.Error()))
	}
	if err := a.shutdownTelemetry(context.Background()); err != nil {
		a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	_ = a.logger.Close()
}

// writeJSON writes v as indented JSON.
func (a *app) writeJSON(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// projectRoot resolves the optional path argument.
func projectRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", foresight.ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", foresight.ErrInvalidPath, root)
	}
	return abs, nil
}
