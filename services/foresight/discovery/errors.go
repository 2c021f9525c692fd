// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery finds and reads the source files of a project.
//
// The Scheduler consumes a Source: something that can list analyzable
// paths and read a path's content together with its hash. FS walks a
// directory tree with include/exclude globs; Memory serves an in-memory
// file set for snippets and tests.
//
// # Thread Safety
//
// FS and Memory are safe for concurrent use after construction.
package discovery

import "errors"

var (
	// ErrPathTraversal is returned when a path escapes the project root.
	ErrPathTraversal = errors.New("path escapes project root")

	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large to analyze")

	// ErrFileUnstable is returned when a file keeps changing while it is
	// read, after all retries.
	ErrFileUnstable = errors.New("file changed during read")

	// ErrSymlinkCycle is returned when symlink following detects a cycle.
	ErrSymlinkCycle = errors.New("symlink cycle detected")

	// ErrInvalidRoot is returned when the project root is missing or not
	// a directory.
	ErrInvalidRoot = errors.New("invalid project root")

	// ErrNotFound is returned by Memory for unknown paths.
	ErrNotFound = errors.New("file not found")
)
