// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Level defines the richness of CLI output
type Level string

const (
	// LevelFull uses color, icons and boxes.
	LevelFull Level = "full"

	// LevelMinimal uses icons without color.
	LevelMinimal Level = "minimal"

	// LevelMachine emits tab-separated lines for scripts.
	LevelMachine Level = "machine"
)

// ParseLevel converts a string to Level
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return LevelFull
	case "minimal", "min", "m":
		return LevelMinimal
	case "machine", "quiet", "q":
		return LevelMachine
	default:
		return LevelFull
	}
}

// DetectLevel picks a level for w.
//
// Description:
//
//	FORESIGHT_OUTPUT wins when set. Otherwise a writer that is not a
//	terminal gets LevelMachine, and NO_COLOR downgrades a terminal to
//	LevelMinimal.
func DetectLevel(w io.Writer) Level {
	if env := os.Getenv("FORESIGHT_OUTPUT"); env != "" {
		return ParseLevel(env)
	}
	if !IsTerminal(w) {
		return LevelMachine
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return LevelMinimal
	}
	return LevelFull
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
