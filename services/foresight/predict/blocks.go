// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/source"
)

// matchClose returns the offset of the bracket closing the one at open in
// masked text, or -1. Comments and literals are already blank so only
// code brackets are counted.
func matchClose(masked string, open int) int {
	if open < 0 || open >= len(masked) {
		return -1
	}
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// hookCall is one lifecycle hook invocation such as useEffect(() => {...}, [a]).
type hookCall struct {
	// offset of the hook name.
	offset int
	line   int
	// body is the masked text of the callback body.
	body string
	// raw is the unmasked callback body.
	raw string
	// start and end bound the body in the file, end exclusive.
	start, end int
	// hasDeps reports whether a dependency argument follows the callback.
	hasDeps bool
	// emptyDeps reports a literal [] dependency list.
	emptyDeps bool
	// deps holds the entries of a literal dependency array.
	deps []string
}

// contains reports whether offset falls inside the callback body.
func (c hookCall) contains(offset int) bool {
	return offset >= c.start && offset < c.end
}

// findHookCalls locates calls to the named hook and splits out the
// callback body and dependency list.
func findHookCalls(fc *source.FileContext, re *regexp.Regexp) []hookCall {
	var calls []hookCall
	for _, loc := range re.FindAllStringIndex(fc.Masked, -1) {
		open := loc[1] - 1
		closeParen := matchClose(fc.Masked, open)
		if closeParen < 0 {
			continue
		}
		args := fc.Masked[open+1 : closeParen]

		bodyOpen := strings.IndexByte(args, '{')
		if bodyOpen < 0 {
			continue
		}
		bodyClose := matchClose(fc.Masked, open+1+bodyOpen)
		if bodyClose < 0 || bodyClose > closeParen {
			continue
		}

		rest := strings.TrimSpace(fc.Masked[bodyClose+1 : closeParen])
		// An arrow callback may be wrapped: useEffect(() => { ... })
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ")"))
		hasDeps := strings.HasPrefix(rest, ",") && strings.TrimSpace(strings.TrimPrefix(rest, ",")) != ""
		deps := strings.TrimSpace(strings.TrimPrefix(rest, ","))
		deps = strings.TrimSpace(strings.TrimSuffix(deps, ","))

		line, _ := fc.Position(loc[0])
		start := open + 1 + bodyOpen + 1
		calls = append(calls, hookCall{
			offset:    loc[0],
			line:      line,
			body:      fc.Masked[start:bodyClose],
			raw:       fc.Content[start:bodyClose],
			start:     start,
			end:       bodyClose,
			hasDeps:   hasDeps,
			emptyDeps: hasDeps && strings.ReplaceAll(deps, " ", "") == "[]",
			deps:      splitDeps(deps),
		})
	}
	return calls
}

// splitDeps returns the entries of a literal array such as [a, b.c], or
// nil when deps is not an array literal.
func splitDeps(deps string) []string {
	if len(deps) < 2 || deps[0] != '[' || deps[len(deps)-1] != ']' {
		return nil
	}
	var out []string
	for _, d := range strings.Split(deps[1:len(deps)-1], ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// insideAny reports whether offset falls inside any of the hook bodies.
func insideAny(calls []hookCall, offset int) bool {
	for _, c := range calls {
		if c.contains(offset) {
			return true
		}
	}
	return false
}

// lineHasJSX reports whether masked line n looks like it renders markup.
func lineHasJSX(fc *source.FileContext, n int) bool {
	line := fc.MaskedLine(n)
	return jsxTagRe.MatchString(line)
}

var jsxTagRe = regexp.MustCompile(`<[A-Za-z][\w.]*[\s>/]|</[A-Za-z]`)
