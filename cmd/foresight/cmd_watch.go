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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/foresight/services/foresight/report"
)

func newWatchCmd(global *globalFlags) *cobra.Command {
	var framework string
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-analyze a project as files change",
		Long: `Analyze path once, then re-analyze changed files and print a fresh
report after each burst of changes. Manifest and .env changes trigger a
full re-analysis. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			opts := a.svc.DefaultProjectOptions()
			opts.Framework = framework

			if !a.json {
				a.printer.Success(fmt.Sprintf("Watching %s", root))
			}
			return a.svc.Watch(ctx, root, opts, func(rep *report.Report) {
				if a.json {
					if err := a.writeJSON(rep); err != nil {
						a.logger.Warn("writing report failed", "error", err)
					}
					return
				}
				a.printer.Report(rep)
			})
		},
	}
	cmd.Flags().StringVar(&framework, "framework", "",
		"Force a framework: react, nextjs, vue, svelte, astro")
	return cmd
}
