// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// Masking
// =============================================================================

type scanState int

const (
	stateCode scanState = iota
	stateLineComment
	stateBlockComment
	stateSingleQuote
	stateDoubleQuote
	stateTemplate
	stateRegex
)

// regexPrefix holds the characters after which a '/' opens a regex literal
// rather than a division. '<' and '>' are left out so JSX closing tags are
// not read as regex literals.
const regexPrefix = "(,=:[!&|?{};+-*%~^"

// Mask returns content with comment text and string, template and regex
// literal bodies replaced by spaces.
//
// Description:
//
//	Quote characters and template interpolations (${...}) are kept so the
//	masked text still reads as code. Newlines are never replaced, so byte
//	offsets, line numbers and columns in the masked text are identical to
//	the original. Unterminated single or double quoted strings end at the
//	line break, which keeps JSX text like "Don't" from masking the rest
//	of the file.
//
// Inputs:
//
//	content - Raw source text.
//
// Outputs:
//
//	string - Masked text of the same length.
func Mask(content string) string {
	in := []byte(content)
	out := make([]byte, len(in))
	copy(out, in)

	state := stateCode
	var prev byte
	braceDepth := 0
	var templateDepths []int
	inClass := false

	blank := func(i int) {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}

	for i := 0; i < len(in); i++ {
		c := in[i]
		var next byte
		if i+1 < len(in) {
			next = in[i+1]
		}

		switch state {
		case stateCode:
			switch {
			case c == '/' && next == '/':
				state = stateLineComment
				blank(i)
				blank(i + 1)
				i++
				continue
			case c == '/' && next == '*':
				state = stateBlockComment
				blank(i)
				blank(i + 1)
				i++
				continue
			case c == '/' && (prev == 0 || strings.IndexByte(regexPrefix, prev) >= 0):
				state = stateRegex
				inClass = false
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '`':
				state = stateTemplate
			case c == '{':
				braceDepth++
			case c == '}':
				if n := len(templateDepths); n > 0 && templateDepths[n-1] == braceDepth {
					templateDepths = templateDepths[:n-1]
					braceDepth--
					state = stateTemplate
					continue
				}
				braceDepth--
			}
			if !isSpace(c) {
				prev = c
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			} else {
				blank(i)
			}

		case stateBlockComment:
			if c == '*' && next == '/' {
				blank(i)
				blank(i + 1)
				i++
				state = stateCode
			} else {
				blank(i)
			}

		case stateSingleQuote, stateDoubleQuote:
			quote := byte('\'')
			if state == stateDoubleQuote {
				quote = '"'
			}
			switch {
			case c == '\\' && next != 0 && next != '\n':
				blank(i)
				blank(i + 1)
				i++
			case c == quote:
				state = stateCode
				prev = c
			case c == '\n':
				state = stateCode
				prev = 0
			default:
				blank(i)
			}

		case stateTemplate:
			switch {
			case c == '\\' && next != 0:
				blank(i)
				blank(i + 1)
				i++
			case c == '`':
				state = stateCode
				prev = c
			case c == '$' && next == '{':
				braceDepth++
				templateDepths = append(templateDepths, braceDepth)
				i++
				state = stateCode
				prev = '{'
			default:
				blank(i)
			}

		case stateRegex:
			switch {
			case c == '\\' && next != 0 && next != '\n':
				blank(i)
				blank(i + 1)
				i++
			case c == '[':
				inClass = true
				blank(i)
			case c == ']':
				inClass = false
				blank(i)
			case c == '/' && !inClass:
				state = stateCode
				prev = ')'
			case c == '\n':
				state = stateCode
				prev = 0
			default:
				blank(i)
			}
		}
	}
	return string(out)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// =============================================================================
// Imports
// =============================================================================

// ImportKind classifies how a module specifier was referenced.
type ImportKind string

const (
	ImportStatic     ImportKind = "static"
	ImportSideEffect ImportKind = "side-effect"
	ImportDynamic    ImportKind = "dynamic"
	ImportRequire    ImportKind = "require"
	ImportReexport   ImportKind = "reexport"
)

// Import is one module reference found in a file.
type Import struct {
	Specifier string     `json:"specifier"`
	Kind      ImportKind `json:"kind"`
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	TypeOnly  bool       `json:"type_only,omitempty"`
}

type importPattern struct {
	re   *regexp.Regexp
	kind ImportKind
}

// importPatterns capture the specifier in group 2; group 1 is "type " when
// the import is type-only.
var importPatterns = []importPattern{
	{regexp.MustCompile(`\bimport\s+(type\s+)?[\w$*{}\s,]+?\s*from\s*['"]([^'"\n]+)['"]`), ImportStatic},
	{regexp.MustCompile(`\bimport()\s*['"]([^'"\n]+)['"]`), ImportSideEffect},
	{regexp.MustCompile(`\bimport()\s*\(\s*['"]([^'"\n]+)['"]\s*\)`), ImportDynamic},
	{regexp.MustCompile(`\brequire()\s*\(\s*['"]([^'"\n]+)['"]\s*\)`), ImportRequire},
	{regexp.MustCompile(`\bexport\s+(type\s+)?(?:\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"\n]+)['"]`), ImportReexport},
}

// scanImports finds module references lexically. Matches whose keyword
// sits inside a comment or string in masked are discarded.
func scanImports(content, masked string, pos func(int) (int, int)) []Import {
	seen := make(map[int]bool)
	var imports []Import
	for _, p := range importPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(content, -1) {
			start := m[0]
			if masked[start] == ' ' || seen[start] {
				continue
			}
			seen[start] = true
			line, col := pos(start)
			imports = append(imports, Import{
				Specifier: content[m[4]:m[5]],
				Kind:      p.kind,
				Line:      line,
				Column:    col,
				TypeOnly:  m[2] >= 0 && m[3] > m[2],
			})
		}
	}
	sort.SliceStable(imports, func(i, j int) bool {
		if imports[i].Line != imports[j].Line {
			return imports[i].Line < imports[j].Line
		}
		return imports[i].Column < imports[j].Column
	})
	return imports
}

// PackageName returns the npm package a bare specifier resolves to.
//
// Relative and absolute paths, path aliases (@/, ~/, #), URLs and
// protocol-prefixed specifiers (node:, data:) are not packages and return
// false. Scoped specifiers keep their scope: "@scope/pkg/sub" yields
// "@scope/pkg".
func PackageName(specifier string) (string, bool) {
	s := strings.TrimSpace(specifier)
	if s == "" {
		return "", false
	}
	switch {
	case strings.HasPrefix(s, "."), strings.HasPrefix(s, "/"):
		return "", false
	case strings.HasPrefix(s, "@/"), strings.HasPrefix(s, "~"), strings.HasPrefix(s, "#"):
		return "", false
	case strings.Contains(s, ":"):
		return "", false
	}

	parts := strings.Split(s, "/")
	if strings.HasPrefix(s, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}

// =============================================================================
// Directives
// =============================================================================

// Directive is a string-literal statement such as 'use client'.
type Directive struct {
	Value string `json:"value"`
	Line  int    `json:"line"`
}

// scanPrologue reads the directive prologue: the run of string-literal
// statements at the top of the file, before any other code. Comments are
// already blank in masked so they are skipped as whitespace.
func scanPrologue(content, masked string, pos func(int) (int, int)) []Directive {
	var directives []Directive
	i := 0
	for {
		for i < len(masked) && isSpace(masked[i]) {
			i++
		}
		if i >= len(content) {
			return directives
		}
		quote := content[i]
		if quote != '\'' && quote != '"' {
			return directives
		}
		end := strings.IndexByte(content[i+1:], quote)
		if end < 0 {
			return directives
		}
		value := content[i+1 : i+1+end]
		if strings.ContainsRune(value, '\n') {
			return directives
		}
		line, _ := pos(i)
		directives = append(directives, Directive{Value: value, Line: line})
		i += end + 2
		for i < len(masked) && (masked[i] == ' ' || masked[i] == '\t') {
			i++
		}
		if i < len(masked) && masked[i] == ';' {
			i++
		}
	}
}
