// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"path"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/source"
)

// ExcludedDirs are dependency and build output directories that are never
// analyzed, wherever they appear in the tree.
var ExcludedDirs = []string{
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	".nuxt",
	".output",
	".svelte-kit",
	".turbo",
	".vercel",
	"coverage",
	"out",
	".git",
}

// DefaultIncludes matches every analyzable source extension.
func DefaultIncludes() []string {
	exts := source.AnalyzableExtensions()
	patterns := make([]string, 0, len(exts))
	for _, ext := range exts {
		patterns = append(patterns, "**/*"+ext)
	}
	return patterns
}

// DefaultExcludes returns "**/<dir>/**" for every ExcludedDirs entry plus
// minified bundles and declaration files.
func DefaultExcludes() []string {
	patterns := make([]string, 0, len(ExcludedDirs)+2)
	for _, dir := range ExcludedDirs {
		patterns = append(patterns, "**/"+dir+"/**")
	}
	return append(patterns, "**/*.min.js", "**/*.d.ts")
}

// GlobMatcher matches slash-separated relative paths against include and
// exclude patterns.
//
// Patterns use glob syntax with ** for recursive matching:
//   - * matches any sequence of non-separator characters
//   - ** matches any sequence of path segments, including none
//   - ? matches any single non-separator character
//   - [abc] matches one of the characters in brackets
//
// Thread Safety: GlobMatcher is safe for concurrent use after creation.
type GlobMatcher struct {
	includes []string
	excludes []string
}

// NewGlobMatcher creates a matcher. Empty includes admit every path.
func NewGlobMatcher(includes, excludes []string) *GlobMatcher {
	return &GlobMatcher{includes: includes, excludes: excludes}
}

// Match reports whether a file path is included and not excluded.
func (m *GlobMatcher) Match(p string) bool {
	if m.Excluded(p) {
		return false
	}
	if len(m.includes) == 0 {
		return true
	}
	for _, pattern := range m.includes {
		if matchGlob(pattern, p) {
			return true
		}
	}
	return false
}

// Excluded reports whether p, a file or directory, matches an exclude.
// A directory is excluded when "<dir>/" would be.
func (m *GlobMatcher) Excluded(p string) bool {
	for _, pattern := range m.excludes {
		if matchGlob(pattern, p) || matchGlob(pattern, p+"/") {
			return true
		}
	}
	return false
}

// matchGlob matches p against pattern segment by segment so that "**"
// can absorb zero or more whole segments.
func matchGlob(pattern, p string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(p, "/"))
}

func matchSegments(pattern, parts []string) bool {
	for len(pattern) > 0 {
		seg := pattern[0]
		if seg == "**" {
			// Collapse consecutive "**".
			for len(pattern) > 1 && pattern[1] == "**" {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pattern[1:], parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		if ok, _ := path.Match(seg, parts[0]); !ok {
			return false
		}
		pattern, parts = pattern[1:], parts[1:]
	}
	return len(parts) == 0
}
