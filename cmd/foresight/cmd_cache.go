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

func newCacheCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the analysis cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Drop every cached file analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args)
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context(), cmd, global, root)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.ClearCache(cmd.Context()); err != nil {
				return err
			}
			if !a.json {
				a.printer.Success("Cache cleared")
			}
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Show cache hit and miss counters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args)
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context(), cmd, global, root)
			if err != nil {
				return err
			}
			defer a.close()
			return a.writeJSON(a.svc.CacheStats())
		},
	}

	cmd.AddCommand(clearCmd, statsCmd)
	return cmd
}
