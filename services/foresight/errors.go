// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package foresight

import "errors"

// Sentinel errors for the Foresight service.
var (
	// ErrInvalidPath indicates the project path is missing or not a directory.
	ErrInvalidPath = errors.New("invalid project path")

	// ErrNoReadableFiles indicates nothing in the project could be analyzed.
	ErrNoReadableFiles = errors.New("no readable files")

	// ErrInvalidOptions indicates an unknown framework, language or rule.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNilContext indicates a nil context was passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrEmptySnippet indicates a snippet with no code.
	ErrEmptySnippet = errors.New("snippet is empty")

	// ErrSnippetTooLarge indicates a snippet over MaxSnippetBytes.
	ErrSnippetTooLarge = errors.New("snippet exceeds size limit")
)
