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
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/source"
)

// Pattern is one error heuristic.
type Pattern struct {
	ID        string
	ErrorType ErrorType
	Phase     Phase

	// AppliesTo restricts the pattern like a rule's AppliesTo.
	AppliesTo []framework.Tag

	// Base is the weight contributed by the trigger alone.
	Base float64

	// Signals are the corroborating conditions, in a fixed order.
	Signals []Signal

	Suggestion   string
	ExpectedText string

	detect func(in *Input) []candidate
}

// Pattern IDs.
const (
	PatternHydration      = "hydration-nondeterministic-render"
	PatternUndefinedState = "undefined-state-access"
	PatternAsyncClient    = "async-client-component"
	PatternEffectLeak     = "effect-missing-cleanup"
	PatternEffectRace     = "effect-fetch-race"
	PatternEffectLoop     = "effect-setter-without-deps"
	PatternUnresolved     = "unresolved-import"
	PatternEnvVar         = "env-var-unavailable"
)

// DefaultPatterns returns the built-in patterns in evaluation order.
//
// The weights place a canonical trigger (all signals present) between
// 0.75 and 0.90, and a bare trigger between 0.40 and 0.60.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:        PatternHydration,
			ErrorType: ErrorHydrationMismatch,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.NextJS, framework.Remix, framework.Nuxt, framework.SvelteKit},
			Base:      0.40,
			Signals: []Signal{
				{"no-mount-effect", 0.15},
				{"rendered-in-markup", 0.15},
				{"ssr-framework", 0.10},
				{"no-suppression", 0.05},
			},
			Suggestion:   "Compute the value in useEffect/onMounted after hydration, or pass it from the server as a prop",
			ExpectedText: "Hydration failed because the initial UI does not match what was rendered on the server.",
			detect:       detectHydration,
		},
		{
			ID:        PatternUndefinedState,
			ErrorType: ErrorUndefinedAccess,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.React},
			Base:      0.50,
			Signals: []Signal{
				{"rendered-in-markup", 0.15},
				{"no-guard", 0.15},
				{"nested-access", 0.10},
			},
			Suggestion:   "Initialize the state with a usable default or guard the access with optional chaining",
			ExpectedText: "TypeError: Cannot read properties of %s",
			detect:       detectUndefinedState,
		},
		{
			ID:        PatternAsyncClient,
			ErrorType: ErrorAsyncComponent,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.React},
			Base:      0.50,
			Signals: []Signal{
				{"client-directive", 0.25},
				{"awaits-in-body", 0.10},
			},
			Suggestion:   "Keep async data loading in a Server Component or move it into an effect or data hook",
			ExpectedText: "async/await is not yet supported in Client Components, only Server Components.",
			detect:       detectAsyncClient,
		},
		{
			ID:        PatternEffectLeak,
			ErrorType: ErrorMemoryLeak,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.React, framework.Vue, framework.Svelte},
			Base:      0.40,
			Signals: []Signal{
				{"no-cleanup-return", 0.25},
				{"no-teardown-call", 0.15},
			},
			Suggestion: "Return a cleanup function (or register onUnmounted) that removes listeners and clears timers",
			detect:     detectEffectLeak,
		},
		{
			ID:        PatternEffectRace,
			ErrorType: ErrorRaceCondition,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.React},
			Base:      0.45,
			Signals: []Signal{
				{"no-abort", 0.20},
				{"changing-deps", 0.10},
			},
			Suggestion: "Cancel stale requests with AbortController or ignore responses after cleanup",
			detect:     detectEffectRace,
		},
		{
			ID:        PatternEffectLoop,
			ErrorType: ErrorInfiniteLoop,
			Phase:     PhaseRuntime,
			AppliesTo: []framework.Tag{framework.React},
			Base:      0.60,
			Signals: []Signal{
				{"unconditional-setter", 0.25},
			},
			Suggestion:   "Pass a dependency array that does not include the state being set, or guard the update with a condition",
			ExpectedText: "Maximum update depth exceeded.",
			detect:       detectEffectLoop,
		},
		{
			ID:        PatternUnresolved,
			ErrorType: ErrorImport,
			Phase:     PhaseBuild,
			Base:      0.60,
			Signals: []Signal{
				{"static-import", 0.20},
				{"near-miss", 0.10},
			},
			Suggestion:   "Install the package or fix the import path",
			ExpectedText: "Module not found: Can't resolve '%s'",
			detect:       detectUnresolvedImport,
		},
		{
			ID:        PatternEnvVar,
			ErrorType: ErrorEnvVar,
			Phase:     PhaseRuntime,
			Base:      0.50,
			Signals: []Signal{
				{"client-bundle", 0.25},
				{"no-fallback", 0.10},
			},
			Suggestion: "Expose the variable with the framework's public prefix or read it on the server, and provide a fallback",
			detect:     detectEnvVar,
		},
	}
}

// =============================================================================
// HYDRATION
// =============================================================================

var (
	nondeterministicRe = regexp.MustCompile(`\b(?:new Date\(\s*\)|Date\.now\(\)|Math\.random\(\)|crypto\.randomUUID\(\)|\.toLocale(?:Date|Time)?String\()`)
	mountEffectRe      = regexp.MustCompile(`\b(?:useEffect|useLayoutEffect|onMounted|onMount)\s*\(`)
	browserGlobalRe    = regexp.MustCompile(`(^|[^.\w$])((?:window|document|localStorage|sessionStorage|navigator)\.[A-Za-z_$][\w$]*)`)
	typeofGuardRe      = regexp.MustCompile(`\btypeof\s+(?:window|document|localStorage|sessionStorage|navigator)\b`)
	handlerAttrRe      = regexp.MustCompile(`\bon[A-Z][\w$]*\s*=\s*\{`)
	handlerDeclRe      = regexp.MustCompile(`\bfunction\s+(?:handle|on)[A-Z][\w$]*\s*\([^)]*\)\s*\{|\b(?:const|let)\s+(?:handle|on)[A-Z][\w$]*\s*=\s*(?:async\s*)?(?:\([^)]*\)|[\w$]+)\s*=>\s*\{`)
	assignedNameRe     = regexp.MustCompile(`^\s*(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=`)
)

// byteRange is a half-open range of file offsets.
type byteRange struct{ start, end int }

func inRanges(ranges []byteRange, offset int) bool {
	for _, r := range ranges {
		if offset >= r.start && offset < r.end {
			return true
		}
	}
	return false
}

// deferredRanges returns the code that does not run during render: event
// handler bodies and branches guarded by a typeof check on a browser
// global. Mount effects are handled separately through findHookCalls.
func deferredRanges(fc *source.FileContext) []byteRange {
	var ranges []byteRange
	for _, re := range []*regexp.Regexp{handlerAttrRe, handlerDeclRe} {
		for _, loc := range re.FindAllStringIndex(fc.Masked, -1) {
			if end := matchClose(fc.Masked, loc[1]-1); end > 0 {
				ranges = append(ranges, byteRange{loc[0], end})
			}
		}
	}
	for _, loc := range typeofGuardRe.FindAllStringIndex(fc.Masked, -1) {
		end := strings.IndexByte(fc.Masked[loc[0]:], '\n')
		if end < 0 {
			end = len(fc.Masked)
		} else {
			end += loc[0]
		}
		// if (typeof window !== 'undefined') { ... } guards the whole block.
		if brace := strings.IndexByte(fc.Masked[loc[0]:end], '{'); brace >= 0 {
			if blockEnd := matchClose(fc.Masked, loc[0]+brace); blockEnd > end {
				end = blockEnd
			}
		}
		ranges = append(ranges, byteRange{loc[0], end})
	}
	return ranges
}

// serverOnly reports a Next.js app router file without the client
// directive. It never hydrates, so browser globals there fail outright
// rather than mismatch.
func serverOnly(in *Input) bool {
	fc := in.File
	if !in.Frameworks.Has(framework.NextJS) || fc.HasDirective("use client") {
		return false
	}
	return strings.HasPrefix(fc.Path, "app/") || strings.Contains(fc.Path, "/app/")
}

// renderedInMarkup reports whether the value on line n reaches the
// markup, either directly or through a variable assigned on that line.
func renderedInMarkup(fc *source.FileContext, n int) bool {
	if lineHasJSX(fc, n) || (fc.Language.IsComponentTemplate() && strings.Contains(fc.Line(n), "{{")) {
		return true
	}
	m := assignedNameRe.FindStringSubmatch(fc.MaskedLine(n))
	if m == nil {
		return false
	}
	useRe := regexp.MustCompile(`\{[^{}]*\b` + regexp.QuoteMeta(m[1]) + `\b[^{}]*\}`)
	for i := n + 1; i <= fc.LineCount(); i++ {
		line := fc.MaskedLine(i)
		if useRe.MatchString(line) && (lineHasJSX(fc, i) || strings.Contains(line, "{{")) {
			return true
		}
	}
	return false
}

type renderRead struct {
	line    int
	offset  int
	message string
}

func detectHydration(in *Input) []candidate {
	fc := in.File
	if !fc.Language.SupportsJSX() && !fc.Language.IsComponentTemplate() {
		return nil
	}

	effects := findHookCalls(fc, mountEffectRe)
	deferred := deferredRanges(fc)
	var reads []renderRead
	for _, m := range fc.FindCode(nondeterministicRe) {
		if insideAny(effects, m.Offset) || inRanges(deferred, m.Offset) {
			continue
		}
		reads = append(reads, renderRead{
			line:    m.Line,
			offset:  m.Offset,
			message: fmt.Sprintf("%s produces a different value on the server and the client", strings.TrimSpace(m.Text)),
		})
	}
	if !serverOnly(in) {
		for _, m := range fc.FindCode(browserGlobalRe) {
			at := m.Offset + len(m.Groups[0])
			if insideAny(effects, at) || inRanges(deferred, at) {
				continue
			}
			line, _ := fc.Position(at)
			reads = append(reads, renderRead{
				line:    line,
				offset:  at,
				message: fmt.Sprintf("%s is read during render but does not exist on the server", m.Groups[1]),
			})
		}
		sort.SliceStable(reads, func(i, j int) bool { return reads[i].offset < reads[j].offset })
	}
	if len(reads) == 0 {
		return nil
	}

	ssr := in.Frameworks.Has(framework.NextJS) || in.Frameworks.Has(framework.Nuxt) ||
		in.Frameworks.Has(framework.Remix) || in.Frameworks.Has(framework.SvelteKit)
	noEffect := len(fc.FindCode(mountEffectRe)) == 0
	noSuppress := !strings.Contains(fc.Masked, "suppressHydrationWarning")

	var out []candidate
	for _, r := range reads {
		out = append(out, candidate{
			line:    r.line,
			message: r.message,
			matched: map[string]bool{
				"no-mount-effect":    noEffect,
				"rendered-in-markup": renderedInMarkup(fc, r.line),
				"ssr-framework":      ssr,
				"no-suppression":     noSuppress,
			},
		})
	}
	return out
}

// =============================================================================
// UNDEFINED STATE ACCESS
// =============================================================================

var emptyStateRe = regexp.MustCompile(`\[\s*([A-Za-z_$][\w$]*)\s*,\s*[A-Za-z_$][\w$]*\s*\]\s*=\s*useState(?:<[^>]*>)?\(\s*(null|undefined)?\s*\)`)

func detectUndefinedState(in *Input) []candidate {
	fc := in.File
	var out []candidate
	for _, decl := range fc.FindCode(emptyStateRe) {
		name := decl.Groups[0]
		kind := "undefined"
		if decl.Groups[1] == "null" {
			kind = "null"
		}

		accessRe := regexp.MustCompile(`(^|[^.?\w$])` + regexp.QuoteMeta(name) + `\.([A-Za-z_$][\w$]*)(\.[A-Za-z_$])?`)
		guardRe := regexp.MustCompile(regexp.QuoteMeta(name) + `\s*(?:&&|\?[^.]|!=|==)|!\s*` + regexp.QuoteMeta(name) + `\b|` + regexp.QuoteMeta(name) + `\?\.`)
		guarded := guardRe.MatchString(fc.Masked)

		for _, acc := range fc.FindCode(accessRe) {
			if acc.Offset <= decl.Offset {
				continue
			}
			prop := acc.Groups[1]
			out = append(out, candidate{
				line:    acc.Line,
				message: fmt.Sprintf("%s starts as %s and %s.%s is read before it is set", name, kind, name, prop),
				subject: fmt.Sprintf("%s (reading '%s')", kind, prop),
				matched: map[string]bool{
					"rendered-in-markup": lineHasJSX(fc, acc.Line),
					"no-guard":           !guarded,
					"nested-access":      acc.Groups[2] != "",
				},
			})
			break
		}
	}
	return out
}

// =============================================================================
// ASYNC CLIENT COMPONENT
// =============================================================================

var asyncComponentRe = regexp.MustCompile(`\bexport\s+(?:default\s+)?async\s+function\s+([A-Z][\w$]*)|\bexport\s+const\s+([A-Z][\w$]*)\s*=\s*async\b`)

func detectAsyncClient(in *Input) []candidate {
	fc := in.File
	if !fc.Language.SupportsJSX() {
		return nil
	}
	client := fc.HasDirective("use client")
	// Outside Next.js every component is a client component.
	if !client && in.Frameworks.Has(framework.NextJS) {
		return nil
	}
	awaits := strings.Contains(fc.Masked, "await ")

	var out []candidate
	for _, m := range fc.FindCode(asyncComponentRe) {
		name := m.Groups[0]
		if name == "" {
			name = m.Groups[1]
		}
		out = append(out, candidate{
			line:    m.Line,
			message: fmt.Sprintf("%s is an async component rendered on the client", name),
			matched: map[string]bool{
				"client-directive": client,
				"awaits-in-body":   awaits,
			},
		})
	}
	return out
}

// =============================================================================
// EFFECTS: LEAK, RACE, LOOP
// =============================================================================

var (
	effectRe      = regexp.MustCompile(`\buse(?:Layout)?Effect\s*\(`)
	vueMountRe    = regexp.MustCompile(`\bonMount(?:ed)?\s*\(`)
	leakSourceRe  = regexp.MustCompile(`\b(addEventListener|setInterval|setTimeout|subscribe|observe|new\s+(?:WebSocket|EventSource|ResizeObserver|IntersectionObserver|MutationObserver))\s*\(`)
	teardownRe    = regexp.MustCompile(`\b(?:removeEventListener|clearInterval|clearTimeout|unsubscribe|disconnect|unobserve|close)\s*\(`)
	vueUnmountRe  = regexp.MustCompile(`\bon(?:Before)?Unmount(?:ed)?\s*\(|\bonDestroy\s*\(`)
	asyncWorkRe   = regexp.MustCompile(`\bfetch\s*\(|\baxios\b|\.then\s*\(|\bawait\b`)
	setterCallRe  = regexp.MustCompile(`\b(set[A-Z][\w$]*)\s*\(`)
	abortRe       = regexp.MustCompile(`\bAbortController\b|\bsignal\b|\b(?:ignore|cancelled|canceled|isMounted|active|stale)\s*=`)
	conditionalRe = regexp.MustCompile(`\bif\s*\(|\?|&&|\|\|`)
)

func detectEffectLeak(in *Input) []candidate {
	fc := in.File
	calls := findHookCalls(fc, effectRe)
	vue := false
	if in.Frameworks.Has(framework.Vue) || in.Frameworks.Has(framework.Svelte) {
		calls = append(calls, findHookCalls(fc, vueMountRe)...)
		vue = true
	}

	var out []candidate
	for _, call := range calls {
		src := leakSourceRe.FindStringSubmatch(call.body)
		if src == nil {
			continue
		}
		// A one-shot timeout in an effect is the common safe case.
		if src[1] == "setTimeout" {
			continue
		}
		noReturn := !strings.Contains(call.body, "return")
		if vue && !strings.HasPrefix(strings.TrimSpace(fc.Masked[call.offset:]), "use") {
			noReturn = len(fc.FindCode(vueUnmountRe)) == 0
		}
		out = append(out, candidate{
			line:    call.line,
			message: fmt.Sprintf("%s registered in an effect is never torn down", strings.TrimSpace(src[1])),
			matched: map[string]bool{
				"no-cleanup-return": noReturn,
				"no-teardown-call":  !teardownRe.MatchString(fc.Masked),
			},
		})
	}
	return out
}

func detectEffectRace(in *Input) []candidate {
	fc := in.File
	var out []candidate
	for _, call := range findHookCalls(fc, effectRe) {
		if !asyncWorkRe.MatchString(call.body) || !setterCallRe.MatchString(call.body) {
			continue
		}
		out = append(out, candidate{
			line:    call.line,
			message: "async result is written to state without discarding stale responses",
			matched: map[string]bool{
				"no-abort":      !abortRe.MatchString(call.body),
				"changing-deps": call.hasDeps && !call.emptyDeps,
			},
		})
	}
	return out
}

var stateBindingRe = regexp.MustCompile(`\[\s*([A-Za-z_$][\w$]*)\s*,\s*(set[A-Z][\w$]*)\s*\]\s*=\s*useState\b`)

func detectEffectLoop(in *Input) []candidate {
	fc := in.File
	// setter name to the state it updates.
	state := make(map[string]string)
	for _, m := range fc.FindCode(stateBindingRe) {
		state[m.Groups[1]] = m.Groups[0]
	}

	var out []candidate
	for _, call := range findHookCalls(fc, effectRe) {
		unconditional := !conditionalRe.MatchString(call.body)
		if !call.hasDeps {
			setter := setterCallRe.FindString(call.body)
			if setter == "" {
				continue
			}
			out = append(out, candidate{
				line:    call.line,
				message: fmt.Sprintf("effect without a dependency array calls %s) on every render", strings.TrimSpace(setter)),
				matched: map[string]bool{"unconditional-setter": unconditional},
			})
			continue
		}

		// An effect that depends on x and calls setX re-runs after its
		// own update.
		for _, m := range setterCallRe.FindAllStringSubmatch(call.body, -1) {
			name, ok := state[m[1]]
			if !ok || !slices.Contains(call.deps, name) {
				continue
			}
			out = append(out, candidate{
				line:    call.line,
				message: fmt.Sprintf("effect depends on %s and calls %s(), so every update schedules another run", name, m[1]),
				matched: map[string]bool{"unconditional-setter": unconditional},
			})
			break
		}
	}
	return out
}

// =============================================================================
// UNRESOLVED IMPORT
// =============================================================================

// virtualPrefixes are framework-provided module namespaces that never
// appear in package.json.
var virtualPrefixes = []string{"$app/", "$lib", "$env/", "virtual:", "#app", "#imports", "#components", "~icons/", "astro:"}

// resolveExtensions are tried, in order, for extensionless relative imports.
var resolveExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".vue", ".svelte", ".json", ".css", "/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

func detectUnresolvedImport(in *Input) []candidate {
	fc := in.File
	var out []candidate
	seen := make(map[string]bool)
	for _, imp := range fc.Imports {
		if imp.TypeOnly || seen[imp.Specifier] || isVirtual(imp.Specifier) || framework.IsNodeBuiltin(imp.Specifier) {
			continue
		}
		seen[imp.Specifier] = true

		var missing bool
		var near string
		if name, ok := source.PackageName(imp.Specifier); ok {
			if in.Packages == nil || in.Packages[name] || in.Packages["@types/"+name] {
				continue
			}
			missing = true
			near = nearestPackage(name, in.Packages)
		} else if strings.HasPrefix(imp.Specifier, ".") && in.Files != nil {
			missing = !resolvesRelative(fc.Path, imp.Specifier, in.Files)
		}
		if !missing {
			continue
		}

		msg := fmt.Sprintf("'%s' cannot be resolved", imp.Specifier)
		if near != "" {
			msg += fmt.Sprintf("; did you mean '%s'?", near)
		}
		out = append(out, candidate{
			line:    imp.Line,
			message: msg,
			subject: imp.Specifier,
			matched: map[string]bool{
				"static-import": imp.Kind != source.ImportDynamic,
				"near-miss":     near != "",
			},
		})
	}
	return out
}

func isVirtual(spec string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(spec, p) {
			return true
		}
	}
	return false
}

func resolvesRelative(from, spec string, files map[string]bool) bool {
	dir := ""
	if i := strings.LastIndex(from, "/"); i >= 0 {
		dir = from[:i]
	}
	target := joinPath(dir, spec)
	for _, ext := range resolveExtensions {
		if files[target+ext] {
			return true
		}
	}
	return false
}

// joinPath resolves spec against dir using forward slashes.
func joinPath(dir, spec string) string {
	parts := []string{}
	if dir != "" {
		parts = strings.Split(dir, "/")
	}
	for _, seg := range strings.Split(spec, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// nearestPackage returns a declared package within edit distance 2 of
// name, preferring the smallest distance then lexical order.
func nearestPackage(name string, packages map[string]bool) string {
	best, bestDist := "", 3
	for pkg := range packages {
		d := editDistance(name, pkg)
		if d < bestDist || d == bestDist && pkg < best {
			best, bestDist = pkg, d
		}
	}
	if bestDist == 0 {
		return ""
	}
	return best
}

func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// =============================================================================
// ENVIRONMENT VARIABLES
// =============================================================================

var (
	envAccessRe  = regexp.MustCompile(`\b(?:process\.env|import\.meta\.env)\.([A-Z_][A-Z0-9_]*)`)
	fallbackRe   = regexp.MustCompile(`^\s*(?:\?\?|\|\|)`)
	publicPrefix = []string{"NEXT_PUBLIC_", "VITE_", "NUXT_PUBLIC_", "PUBLIC_", "REACT_APP_", "EXPO_PUBLIC_"}
	builtinEnv   = map[string]bool{"NODE_ENV": true, "MODE": true, "DEV": true, "PROD": true, "SSR": true, "BASE_URL": true}
)

func isPublicEnv(name string) bool {
	for _, p := range publicPrefix {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func detectEnvVar(in *Input) []candidate {
	fc := in.File
	client := fc.HasDirective("use client") || fc.Language.IsComponentTemplate() ||
		(!in.Frameworks.Has(framework.NextJS) && !in.Frameworks.Has(framework.Node) && fc.Language.SupportsJSX() && fc.Language != source.LanguageJavaScript)

	var out []candidate
	seen := make(map[string]bool)
	for _, m := range fc.FindCode(envAccessRe) {
		name := m.Groups[0]
		if seen[name] || builtinEnv[name] {
			continue
		}

		hidden := client && !isPublicEnv(name)
		undefined := in.EnvKeys != nil && !in.EnvKeys[name]
		if !hidden && !undefined {
			continue
		}
		seen[name] = true

		msg := fmt.Sprintf("%s is not defined in any .env file", name)
		if hidden {
			msg = fmt.Sprintf("%s is read in client code but is not exposed to the browser bundle", name)
		}
		tail := fc.Content[m.Offset+len(m.Text):]
		if i := strings.IndexByte(tail, '\n'); i >= 0 {
			tail = tail[:i]
		}
		out = append(out, candidate{
			line:    m.Line,
			message: msg,
			matched: map[string]bool{
				"client-bundle": hidden,
				"no-fallback":   !fallbackRe.MatchString(tail),
			},
		})
	}
	return out
}
