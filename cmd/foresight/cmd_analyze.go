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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/foresight/services/foresight"
	"github.com/AleutianAI/foresight/services/foresight/report"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// analyzeFlags holds the analyze command options.
type analyzeFlags struct {
	framework string
	enable    []string
	disable   []string
	noStrict  bool
	noPredict bool
	noDeps    bool
	maxIssues int
	files     []string
	timeout   time.Duration
	failOn    string
}

func newAnalyzeCmd(global *globalFlags) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a project directory",
		Long: `Analyze every JavaScript, TypeScript, Vue, Svelte and Astro file under
path (default: the current directory).

Exit codes:
  0 - No findings at or above --fail-on
  1 - Findings at or above --fail-on
  2 - Invalid input or analysis failure

Interrupting the run (Ctrl-C) prints the partial report gathered so far.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.framework, "framework", "",
		"Force a framework: react, nextjs, vue, svelte, astro")
	cmd.Flags().StringSliceVar(&flags.enable, "enable", nil,
		"Only run these rule IDs")
	cmd.Flags().StringSliceVar(&flags.disable, "disable", nil,
		"Skip these rule IDs")
	cmd.Flags().BoolVar(&flags.noStrict, "no-strict", false,
		"Skip best-practice rules")
	cmd.Flags().BoolVar(&flags.noPredict, "no-predict", false,
		"Skip error prediction")
	cmd.Flags().BoolVar(&flags.noDeps, "no-deps", false,
		"Skip dependency analysis")
	cmd.Flags().IntVar(&flags.maxIssues, "max-issues", 0,
		"Maximum results to report (0 = configured default, -1 = unlimited)")
	cmd.Flags().StringSliceVar(&flags.files, "file", nil,
		"Only analyze these files")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0,
		"Stop after this long and report partial results")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "error",
		"Exit 1 when findings reach this severity: error, warning, info, never")
	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalFlags, flags *analyzeFlags, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	threshold, err := parseFailOn(flags.failOn)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	a, err := setup(ctx, cmd, global, root)
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.svc.DefaultProjectOptions()
	opts.Framework = flags.framework
	opts.EnabledRules = flags.enable
	opts.DisabledRules = flags.disable
	opts.TargetFiles = flags.files
	if flags.noStrict {
		opts.StrictMode = false
	}
	if flags.noPredict {
		opts.PredictErrors = false
	}
	if flags.noDeps {
		opts.AnalyzeDependencies = false
	}
	if flags.maxIssues != 0 {
		opts.MaxIssues = flags.maxIssues
	}

	rep, err := a.svc.AnalyzeProject(ctx, root, opts)
	if err != nil {
		return err
	}

	if a.json {
		if err := a.writeJSON(rep); err != nil {
			return err
		}
	} else {
		a.printer.Report(rep)
	}

	if rep.Partial {
		a.logger.Warn("analysis interrupted, report is partial")
	}
	if threshold >= 0 && reaches(rep, rules.Severity(threshold)) {
		return &exitCodeError{code: ExitFindings}
	}
	return nil
}

// parseFailOn returns the severity rank that fails the run, or -1 for
// "never".
func parseFailOn(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never", "none":
		return -1, nil
	case "error":
		return int(rules.SeverityError), nil
	case "warning", "warn":
		return int(rules.SeverityWarning), nil
	case "info":
		return int(rules.SeverityInfo), nil
	default:
		return 0, fmt.Errorf("%w: --fail-on %q", foresight.ErrInvalidOptions, s)
	}
}

// reaches reports whether any result or dependency issue is at least
// threshold. Counts come from the summary so truncated results still count.
func reaches(rep *report.Report, threshold rules.Severity) bool {
	s := rep.Summary
	switch threshold {
	case rules.SeverityInfo:
		return s.Errors+s.Warnings+s.Info > 0
	case rules.SeverityWarning:
		return s.Errors+s.Warnings > 0
	default:
		return s.Errors > 0
	}
}
