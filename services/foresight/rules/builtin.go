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
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/framework"
)

// Built-in rule IDs.
const (
	RuleConsoleLog           = "console-log-detection"
	RuleDebugger             = "debugger-statement"
	RuleNoVar                = "no-var"
	RuleHardcodedSecret      = "hardcoded-secret"
	RuleSyntaxError          = "syntax-error"
	RuleServerClientBoundary = "server-client-boundary"
	RuleMisplacedDirective   = "misplaced-use-client"
	RuleAsyncClientComponent = "async-client-component"
	RuleNextImgElement       = "next-no-img-element"
	RuleReactListKey         = "react-list-key"
	RuleDangerousHTML        = "no-dangerously-set-inner-html"
	RuleVueForKey            = "vue-require-v-for-key"
	RuleVueIfWithFor         = "vue-no-v-if-with-v-for"
	RuleNodeSyncFS           = "node-no-sync-fs"
)

// Builtins returns the built-in catalog in execution order.
func Builtins() []Rule {
	return []Rule{
		syntaxErrorRule(),
		consoleLogRule(),
		debuggerRule(),
		noVarRule(),
		hardcodedSecretRule(),
		serverClientBoundaryRule(),
		misplacedDirectiveRule(),
		asyncClientComponentRule(),
		nextImgElementRule(),
		reactListKeyRule(),
		dangerousHTMLRule(),
		vueForKeyRule(),
		vueIfWithForRule(),
		nodeSyncFSRule(),
	}
}

// isTestPath reports whether path looks like a test or fixture file.
func isTestPath(path string) bool {
	p := "/" + strings.ToLower(path)
	return strings.Contains(p, "/__tests__/") ||
		strings.Contains(p, ".test.") ||
		strings.Contains(p, ".spec.") ||
		strings.Contains(p, "/fixtures/") ||
		strings.Contains(p, "/__mocks__/")
}

// codeOnlyLine reports whether masked line n holds exactly one statement
// that starts with prefix, so deleting the line is a safe fix.
func codeOnlyLine(f *File, n int, prefix string) bool {
	masked := strings.TrimSpace(f.MaskedLine(n))
	if !strings.HasPrefix(masked, prefix) {
		return false
	}
	masked = strings.TrimSuffix(masked, ";")
	return !strings.Contains(masked, ";") && !strings.ContainsAny(masked, "{}")
}

// =============================================================================
// UNIVERSAL RULES
// =============================================================================

var consoleCallRe = regexp.MustCompile(`\bconsole\.(log|debug|info|trace|dir|table)\s*\(`)

func consoleLogRule() Rule {
	r := Rule{
		ID:          RuleConsoleLog,
		Category:    CategoryBestPractice,
		Severity:    SeverityWarning,
		Description: "Flags console logging left in application code",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		if isTestPath(f.Path) {
			return nil, nil
		}
		var out []Result
		for _, m := range f.FindCode(consoleCallRe) {
			res := r.at(f, m.Line, m.Column,
				fmt.Sprintf("Unexpected console.%s statement", m.Groups[0]),
				"Remove the statement or route it through a logger that is stripped from production builds")
			if codeOnlyLine(f, m.Line, "console.") {
				res.AutoFix = removeLineFix(f, m.Line)
			}
			out = append(out, res)
		}
		return out, nil
	}
	return r
}

var debuggerRe = regexp.MustCompile(`\bdebugger\b`)

func debuggerRule() Rule {
	r := Rule{
		ID:          RuleDebugger,
		Category:    CategoryCorrectness,
		Severity:    SeverityWarning,
		Description: "Flags debugger statements",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindCode(debuggerRe) {
			res := r.at(f, m.Line, m.Column, "Unexpected debugger statement", "Remove the debugger statement")
			if codeOnlyLine(f, m.Line, "debugger") {
				res.AutoFix = removeLineFix(f, m.Line)
			}
			out = append(out, res)
		}
		return out, nil
	}
	return r
}

var varDeclRe = regexp.MustCompile(`\bvar\s+[A-Za-z_$]`)

func noVarRule() Rule {
	r := Rule{
		ID:          RuleNoVar,
		Category:    CategoryBestPractice,
		Severity:    SeverityInfo,
		Description: "Prefers let/const over function-scoped var",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindCode(varDeclRe) {
			out = append(out, r.at(f, m.Line, m.Column, "Unexpected var, use let or const instead", "Replace var with const, or let if the binding is reassigned"))
		}
		return out, nil
	}
	return r
}

var (
	secretAssignRe = regexp.MustCompile(`(?i)\b[\w$]*(?:api[_-]?key|secret|password|passwd|auth[_-]?token|access[_-]?token|access[_-]?key|private[_-]?key)[\w$]*['"]?\s*[:=]\s*['"]([^'"\s]{8,})['"]`)
	secretTokenRe  = regexp.MustCompile(`\b(?:sk_live_[0-9A-Za-z]{16,}|AKIA[0-9A-Z]{16}|ghp_[0-9A-Za-z]{36}|xox[baprs]-[0-9A-Za-z-]{10,})\b`)
)

// minSecretEntropy filters out low-entropy placeholder values.
const minSecretEntropy = 3.0

func hardcodedSecretRule() Rule {
	r := Rule{
		ID:          RuleHardcodedSecret,
		Category:    CategorySecurity,
		Severity:    SeverityError,
		Description: "Detects credentials committed in source",
		Revision:    "1",
	}
	const suggestion = "Move the value to an environment variable or a secret manager"
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		if isTestPath(f.Path) {
			return nil, nil
		}
		var out []Result
		seenLines := make(map[int]bool)
		for _, m := range f.FindRaw(secretAssignRe) {
			if !f.InCode(m.Offset) || seenLines[m.Line] {
				continue
			}
			value := m.Groups[0]
			if isPlaceholder(value) || shannonEntropy(value) < minSecretEntropy {
				continue
			}
			seenLines[m.Line] = true
			out = append(out, r.at(f, m.Line, m.Column, "Possible hardcoded credential", suggestion))
		}
		for _, m := range f.FindRaw(secretTokenRe) {
			if seenLines[m.Line] || isCommentLine(f.Line(m.Line)) {
				continue
			}
			seenLines[m.Line] = true
			out = append(out, r.at(f, m.Line, m.Column, "Hardcoded provider access token", suggestion))
		}
		return out, nil
	}
	return r
}

func isPlaceholder(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range []string{"your", "example", "placeholder", "changeme", "xxxx", "<", "${", "process.env"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/*")
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}
	var entropy float64
	n := float64(len([]rune(s)))
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func syntaxErrorRule() Rule {
	r := Rule{
		ID:          RuleSyntaxError,
		Category:    CategoryCorrectness,
		Severity:    SeverityError,
		Description: "Reports parse errors found by tree-sitter",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		parsed := f.Syntax()
		if parsed == nil {
			return nil, nil
		}
		out := make([]Result, 0, len(parsed.Errors))
		for _, se := range parsed.Errors {
			out = append(out, r.at(f, se.Line, se.Column, "Syntax error: "+se.Message, "Fix the syntax before the build fails"))
		}
		return out, nil
	}
	return r
}

var syncFSRe = regexp.MustCompile(`\bfs\.(readFileSync|writeFileSync|appendFileSync|existsSync|readdirSync|statSync|mkdirSync)\s*\(`)

func nodeSyncFSRule() Rule {
	r := Rule{
		ID:          RuleNodeSyncFS,
		Category:    CategoryPerformance,
		Severity:    SeverityInfo,
		AppliesTo:   []framework.Tag{framework.Express},
		Description: "Flags blocking fs calls in request-serving code",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindCode(syncFSRe) {
			out = append(out, r.at(f, m.Line, m.Column,
				fmt.Sprintf("fs.%s blocks the event loop", m.Groups[0]),
				"Use the fs/promises equivalent inside request handlers"))
		}
		return out, nil
	}
	return r
}
