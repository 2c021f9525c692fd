// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ErrFixMismatch indicates a patch does not match the content it is
// applied to.
var ErrFixMismatch = errors.New("fix does not apply")

// replaceLineFix renders a unified diff that replaces 1-based line n of f
// with replacement (which may be empty to delete the line). One line of
// context is kept on each side. Returns "" if n is out of range.
func replaceLineFix(f *File, n int, replacement []string) string {
	total := f.LineCount()
	if n < 1 || n > total {
		return ""
	}
	start := max(1, n-1)
	end := min(total, n+1)

	var body bytes.Buffer
	for i := start; i <= end; i++ {
		if i != n {
			body.WriteString(" " + f.Line(i) + "\n")
			continue
		}
		body.WriteString("-" + f.Line(i) + "\n")
		for _, r := range replacement {
			body.WriteString("+" + r + "\n")
		}
	}

	origLines := end - start + 1
	newLines := origLines - 1 + len(replacement)
	newStart := start
	if newLines == 0 {
		newStart = start - 1
	}

	fd := &diff.FileDiff{
		OrigName: "a/" + f.Path,
		NewName:  "b/" + f.Path,
		Hunks: []*diff.Hunk{{
			OrigStartLine: int32(start),
			OrigLines:     int32(origLines),
			NewStartLine:  int32(newStart),
			NewLines:      int32(newLines),
			Body:          body.Bytes(),
		}},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return ""
	}
	return string(out)
}

// removeLineFix deletes line n.
func removeLineFix(f *File, n int) string {
	return replaceLineFix(f, n, nil)
}

// ApplyFix applies an AutoFix patch produced by this package to content.
//
// Description:
//
//	Context and removed lines must match content exactly; otherwise
//	ErrFixMismatch is returned and content is left untouched.
//
// Inputs:
//
//	content - Current file text.
//	patch - Unified diff for a single file.
//
// Outputs:
//
//	string - Patched text.
//	error - Parse failure or ErrFixMismatch.
func ApplyFix(content, patch string) (string, error) {
	fd, err := diff.ParseFileDiff([]byte(patch))
	if err != nil {
		return "", fmt.Errorf("parse fix: %w", err)
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	idx := 0

	for _, hunk := range fd.Hunks {
		hunkStart := int(hunk.OrigStartLine) - 1
		if hunkStart < idx {
			return "", fmt.Errorf("%w: overlapping hunks", ErrFixMismatch)
		}
		for idx < hunkStart && idx < len(lines) {
			out = append(out, lines[idx])
			idx++
		}

		for _, line := range strings.Split(strings.TrimSuffix(string(hunk.Body), "\n"), "\n") {
			if line == "" {
				line = " "
			}
			op, text := line[0], line[1:]
			switch op {
			case ' ', '-':
				if idx >= len(lines) || lines[idx] != text {
					return "", fmt.Errorf("%w: line %d", ErrFixMismatch, idx+1)
				}
				if op == ' ' {
					out = append(out, text)
				}
				idx++
			case '+':
				out = append(out, text)
			}
		}
	}

	out = append(out, lines[idx:]...)
	return strings.Join(out, "\n"), nil
}
