// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// parseRange parses an npm-style range. Ranges that do not address the
// registry (workspace:, file:, git URLs, npm: aliases, dist tags) are not
// checkable and return false.
func parseRange(r string) (*semver.Constraints, bool) {
	r = strings.TrimSpace(r)
	switch {
	case r == "" || r == "latest" || r == "*" || r == "x":
		r = "*"
	case isLocalRange(r), strings.HasPrefix(r, "npm:"):
		return nil, false
	}
	c, err := semver.NewConstraint(r)
	if err != nil {
		return nil, false
	}
	return c, true
}

// satisfies reports whether version is inside r. Unparseable input is
// treated as satisfied so it never produces a finding.
func satisfies(version, r string) bool {
	c, ok := parseRange(r)
	if !ok {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return true
	}
	return c.Check(v)
}

var rangeLiteralRe = regexp.MustCompile(`v?(\d+)(?:\.(\d+|[xX*]))?(?:\.(\d+|[xX*]))?(-[0-9A-Za-z.-]+)?`)

// candidateVersions returns the versions at which the intersection of
// ranges could begin: every literal bound, its next patch, and 0.0.0.
// For ranges built from comparators and carets this set always contains
// a member of a non-empty intersection.
func candidateVersions(ranges []string) []*semver.Version {
	seen := make(map[string]bool)
	var out []*semver.Version
	add := func(v *semver.Version) {
		if !seen[v.String()] {
			seen[v.String()] = true
			out = append(out, v)
		}
	}
	add(semver.MustParse("0.0.0"))

	for _, r := range ranges {
		for _, m := range rangeLiteralRe.FindAllStringSubmatch(r, -1) {
			parts := []string{m[1], wildcardZero(m[2]), wildcardZero(m[3])}
			lit := strings.Join(parts, ".") + m[4]
			v, err := semver.NewVersion(lit)
			if err != nil {
				continue
			}
			add(v)
			next := v.IncPatch()
			add(&next)
		}
	}
	return out
}

func wildcardZero(s string) string {
	if s == "" || s == "x" || s == "X" || s == "*" {
		return "0"
	}
	return s
}

// intersect reports whether some version satisfies every range.
// Unparseable ranges are ignored.
func intersect(ranges []string) bool {
	var constraints []*semver.Constraints
	var literal []string
	for _, r := range ranges {
		if c, ok := parseRange(r); ok {
			constraints = append(constraints, c)
			literal = append(literal, r)
		}
	}
	if len(constraints) < 2 {
		return true
	}
	for _, v := range candidateVersions(literal) {
		all := true
		for _, c := range constraints {
			if !c.Check(v) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// sortVersions orders versions by semver precedence, falling back to
// lexical order for unparseable strings.
func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, errA := semver.NewVersion(versions[i])
		b, errB := semver.NewVersion(versions[j])
		if errA != nil || errB != nil {
			return versions[i] < versions[j]
		}
		return a.LessThan(b)
	})
}

func satisfiesConstraint(c *semver.Constraints, version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}
