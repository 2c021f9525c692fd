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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/foresight/services/foresight"
)

func newRulesCmd(global *globalFlags) *cobra.Command {
	var framework string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the registered rules",
		Long: `List every rule the engine knows, including custom rules from the
configured rules file. --framework limits the list to rules that apply
to that framework.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context(), cmd, global, cwd)
			if err != nil {
				return err
			}
			defer a.close()

			list, version, err := a.svc.Rules(framework)
			if err != nil {
				return err
			}
			if a.json {
				return a.writeJSON(foresight.RulesResponse{Version: version, Rules: list})
			}
			a.printer.Rules(list, version)
			return nil
		},
	}
	cmd.Flags().StringVar(&framework, "framework", "",
		"Only rules for this framework")
	return cmd
}
