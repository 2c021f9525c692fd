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
	"regexp"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/framework"
)

// =============================================================================
// SERVER / CLIENT BOUNDARY (Next.js app router)
// =============================================================================

var (
	clientHookRe    = regexp.MustCompile(`\b(useState|useEffect|useLayoutEffect|useReducer|useRef|useContext|useTransition|useOptimistic|useSyncExternalStore|useImperativeHandle|useInsertionEffect)\s*\(`)
	eventHandlerRe  = regexp.MustCompile(`\b(on[A-Z][A-Za-z]+)\s*=\s*\{`)
	browserGlobalRe = regexp.MustCompile(`\b(window|document|localStorage|sessionStorage|navigator)\.`)
)

// serverComponentCandidate reports whether f would be rendered as a React
// Server Component when it lacks 'use client'.
func serverComponentCandidate(f *File) bool {
	if !f.Language.SupportsJSX() {
		return false
	}
	p := "/" + f.Path
	if strings.Contains(p, "/pages/") || strings.Contains(p, "/api/") {
		return false
	}
	base := p[strings.LastIndex(p, "/")+1:]
	return !strings.HasPrefix(base, "middleware.")
}

func serverClientBoundaryRule() Rule {
	r := Rule{
		ID:          RuleServerClientBoundary,
		Category:    CategoryCorrectness,
		Severity:    SeverityError,
		AppliesTo:   []framework.Tag{framework.NextJS},
		Description: "Client-only APIs used in a Server Component",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		if f.HasDirective("use client") || !serverComponentCandidate(f) {
			return nil, nil
		}

		type signal struct {
			offset int
			m      string
		}
		var first *signal
		consider := func(re *regexp.Regexp, describe func(name string) string) {
			ms := f.FindCode(re)
			if len(ms) == 0 {
				return
			}
			if first == nil || ms[0].Offset < first.offset {
				first = &signal{offset: ms[0].Offset, m: describe(ms[0].Groups[0])}
			}
		}
		consider(clientHookRe, func(n string) string { return n + " only works in Client Components" })
		consider(eventHandlerRe, func(n string) string { return "Event handler " + n + " cannot be passed from a Server Component" })
		consider(browserGlobalRe, func(n string) string { return n + " is not available during server rendering" })
		if first == nil {
			return nil, nil
		}

		line, col := f.Position(first.offset)
		res := r.at(f, line, col,
			first.m+"; the file has no 'use client' directive",
			"Add 'use client' as the first statement, or move the interactive part into a separate Client Component")
		res.AutoFix = replaceLineFix(f, 1, []string{"'use client';", f.Line(1)})
		return []Result{res}, nil
	}
	return r
}

var looseClientDirectiveRe = regexp.MustCompile(`(?m)^[ \t]*(['"])use client['"]`)

func misplacedDirectiveRule() Rule {
	r := Rule{
		ID:          RuleMisplacedDirective,
		Category:    CategoryCorrectness,
		Severity:    SeverityError,
		AppliesTo:   []framework.Tag{framework.NextJS, framework.React},
		Description: "'use client' that is not the first statement is ignored",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		prologue := make(map[int]bool, len(f.Directives))
		for _, d := range f.Directives {
			prologue[d.Line] = true
		}
		var out []Result
		for _, m := range f.FindRaw(looseClientDirectiveRe) {
			quote := m.Offset + strings.IndexAny(m.Text, `'"`)
			if prologue[m.Line] || !f.InCode(quote) {
				continue
			}
			line, col := f.Position(quote)
			out = append(out, r.at(f, line, col,
				"'use client' must be the first statement in the file; here it has no effect",
				"Move the directive above all imports and code"))
		}
		return out, nil
	}
	return r
}

var asyncComponentRe = regexp.MustCompile(`\bexport\s+(?:default\s+async\s+function\b|async\s+function\s+[A-Z]|const\s+[A-Z][\w$]*\s*=\s*async\b)`)

func asyncClientComponentRule() Rule {
	r := Rule{
		ID:          RuleAsyncClientComponent,
		Category:    CategoryCorrectness,
		Severity:    SeverityError,
		AppliesTo:   []framework.Tag{framework.NextJS},
		Description: "Client Components cannot be async functions",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		if !f.HasDirective("use client") {
			return nil, nil
		}
		var out []Result
		for _, m := range f.FindCode(asyncComponentRe) {
			out = append(out, r.at(f, m.Line, m.Column,
				"async component exported from a 'use client' file",
				"Fetch data in a Server Component parent, or use an effect or a data library on the client"))
		}
		return out, nil
	}
	return r
}

var imgTagRe = regexp.MustCompile(`<img\b`)

func nextImgElementRule() Rule {
	r := Rule{
		ID:          RuleNextImgElement,
		Category:    CategoryBestPractice,
		Severity:    SeverityWarning,
		AppliesTo:   []framework.Tag{framework.NextJS},
		Description: "Prefers next/image over raw <img>",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		if !f.Language.SupportsJSX() {
			return nil, nil
		}
		var out []Result
		for _, m := range f.FindCode(imgTagRe) {
			out = append(out, r.at(f, m.Line, m.Column,
				"Using <img> could result in slower LCP and higher bandwidth",
				"Use <Image /> from next/image"))
		}
		return out, nil
	}
	return r
}

// =============================================================================
// REACT
// =============================================================================

var (
	mapToJSXRe = regexp.MustCompile(`\.map\(\s*(?:async\s+)?(?:\([^()]*\)|[\w$]+)\s*=>\s*\(?\s*<([A-Za-z][\w.]*)`)
	keyPropRe  = regexp.MustCompile(`(?:^|\s)key\s*=`)
)

// openingTag returns the masked attribute text of the JSX tag starting
// at offset, skipping over {...} expressions.
func openingTag(f *File, offset int) string {
	depth := 0
	for i := offset; i < len(f.Masked); i++ {
		switch f.Masked[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '>':
			if depth == 0 {
				return f.Masked[offset:i]
			}
		}
	}
	return f.Masked[offset:]
}

func reactListKeyRule() Rule {
	r := Rule{
		ID:          RuleReactListKey,
		Category:    CategoryCorrectness,
		Severity:    SeverityWarning,
		AppliesTo:   []framework.Tag{framework.React},
		Description: "Elements rendered from .map need a key prop",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, loc := range mapToJSXRe.FindAllStringSubmatchIndex(f.Masked, -1) {
			tagStart := loc[2] - 1
			if keyPropRe.MatchString(openingTag(f, tagStart)) {
				continue
			}
			line, col := f.Position(tagStart)
			out = append(out, r.at(f, line, col,
				fmt.Sprintf("Missing \"key\" prop for <%s> rendered in a list", f.Content[loc[2]:loc[3]]),
				"Add a stable unique key, e.g. key={item.id}"))
		}
		return out, nil
	}
	return r
}

var dangerousHTMLRe = regexp.MustCompile(`\bdangerouslySetInnerHTML\s*=`)

func dangerousHTMLRule() Rule {
	r := Rule{
		ID:          RuleDangerousHTML,
		Category:    CategorySecurity,
		Severity:    SeverityWarning,
		AppliesTo:   []framework.Tag{framework.React},
		Description: "Raw HTML injection is an XSS risk",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindCode(dangerousHTMLRe) {
			out = append(out, r.at(f, m.Line, m.Column,
				"dangerouslySetInnerHTML renders unsanitized HTML",
				"Sanitize the markup (e.g. with DOMPurify) or render it as text"))
		}
		return out, nil
	}
	return r
}
