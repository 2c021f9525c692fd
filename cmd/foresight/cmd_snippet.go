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
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/foresight/services/foresight"
)

type snippetFlags struct {
	language  string
	framework string
	name      string
}

func newSnippetCmd(global *globalFlags) *cobra.Command {
	flags := &snippetFlags{}
	cmd := &cobra.Command{
		Use:   "snippet [file]",
		Short: "Analyze a single piece of code",
		Long: `Analyze one file or standard input without project context.

The language comes from --language or the file extension. Reading from
standard input requires --language or --name.`,
		Example: `  foresight snippet src/App.tsx
  cat Widget.vue | foresight snippet --language vue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnippet(cmd, global, flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.language, "language", "",
		"Language: javascript, typescript, jsx, tsx, vue, svelte, astro")
	cmd.Flags().StringVar(&flags.framework, "framework", "",
		"Framework hint: react, nextjs, vue, svelte, astro")
	cmd.Flags().StringVar(&flags.name, "name", "",
		"File name used in results (default: the file argument)")
	return cmd
}

func runSnippet(cmd *cobra.Command, global *globalFlags, flags *snippetFlags, args []string) error {
	var (
		code []byte
		err  error
	)
	name := flags.name
	if len(args) == 1 {
		code, err = os.ReadFile(args[0])
		if name == "" {
			name = filepath.Base(args[0])
		}
	} else {
		code, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), foresight.MaxSnippetBytes+1))
	}
	if err != nil {
		return fmt.Errorf("reading snippet: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := setup(cmd.Context(), cmd, global, cwd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.svc.AnalyzeSnippet(cmd.Context(), string(code), foresight.SnippetOptions{
		Language:  flags.language,
		Framework: flags.framework,
		FileName:  name,
	})
	if err != nil {
		return err
	}

	if a.json {
		return a.writeJSON(result)
	}
	a.printer.Results(result.Results)
	a.printer.Predictions(result.Predictions)
	if len(result.Results) == 0 && len(result.Predictions) == 0 {
		a.printer.Success(fmt.Sprintf("No issues in %s", result.FileName))
	}
	return nil
}
