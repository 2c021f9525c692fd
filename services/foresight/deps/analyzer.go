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
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// Analyze runs every dependency check over p.
//
// Description:
//
//	Checks run in a fixed order (missing, version-conflict,
//	peer-mismatch, circular, duplicate, vulnerable) and each check emits
//	its issues sorted by package name, so the output is deterministic.
//	Analyze is pure: it reads only p.
//
// Inputs:
//
//	ctx - Used for tracing only.
//	p - Manifests, optional lockfile, imports and vulnerability table.
//
// Outputs:
//
//	[]Issue - Possibly empty.
func Analyze(ctx context.Context, p *Project) []Issue {
	_, span := startAnalyzeSpan(ctx, len(p.Manifests), len(p.Imports))
	defer span.End()

	var issues []Issue
	issues = append(issues, checkMissing(p)...)
	issues = append(issues, checkVersionConflicts(p)...)
	issues = append(issues, checkPeers(p)...)
	issues = append(issues, checkCircular(p)...)
	issues = append(issues, checkDuplicates(p)...)
	issues = append(issues, checkVulnerable(p)...)

	setAnalyzeSpanResult(span, len(issues))
	recordIssues(ctx, issues)
	return issues
}

// =============================================================================
// MISSING
// =============================================================================

// virtualModulePrefixes are bundler and framework namespaces that never
// appear in a manifest.
var virtualModulePrefixes = []string{"$app", "$lib", "$env", "$service-worker", "virtual:", "astro:", "~icons/"}

func checkMissing(p *Project) []Issue {
	if len(p.Manifests) == 0 {
		return nil
	}
	declared := p.DeclaredPackages()
	goModules := goModulePaths(p)

	type use struct {
		first ImportUse
		files map[string]bool
	}
	missing := make(map[string]*use)
	for _, imp := range p.Imports {
		name := imp.Package
		if name == "" || declared[name] || framework.IsNodeBuiltin(name) || isVirtualModule(name) {
			continue
		}
		if imp.TypeOnly && declared["@types/"+strings.TrimPrefix(strings.ReplaceAll(name, "/", "__"), "@")] {
			continue
		}
		if coveredByGoModule(name, goModules) {
			continue
		}
		u, ok := missing[name]
		if !ok {
			u = &use{first: imp, files: make(map[string]bool)}
			missing[name] = u
		}
		u.files[imp.File] = true
	}

	var out []Issue
	for _, name := range sortedKeys(missing) {
		u := missing[name]
		detail := fmt.Sprintf("imported by %s", location(u.first))
		if n := len(u.files) - 1; n > 0 {
			detail += fmt.Sprintf(" and %d more file(s)", n)
		}
		detail += " but not declared in any manifest"
		out = append(out, Issue{
			Kind:     KindMissing,
			Package:  name,
			Severity: rules.SeverityWarning,
			Detail:   detail,
		})
	}
	return out
}

func location(imp ImportUse) string {
	if imp.Line > 0 {
		return fmt.Sprintf("%s:%d", imp.File, imp.Line)
	}
	return imp.File
}

func isVirtualModule(name string) bool {
	for _, p := range virtualModulePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func goModulePaths(p *Project) []string {
	var paths []string
	for _, m := range p.Manifests {
		if m.Ecosystem != EcosystemGo {
			continue
		}
		if m.Name != "" {
			paths = append(paths, m.Name)
		}
		for _, section := range m.sections() {
			paths = append(paths, sortedKeys(section)...)
		}
	}
	return paths
}

func coveredByGoModule(name string, modules []string) bool {
	for _, mod := range modules {
		if name == mod || strings.HasPrefix(name, mod+"/") || strings.HasPrefix(mod, name+"/") {
			return true
		}
	}
	return false
}

// =============================================================================
// VERSION CONFLICT
// =============================================================================

func checkVersionConflicts(p *Project) []Issue {
	type declaration struct {
		manifest string
		rng      string
	}
	byPackage := make(map[string][]declaration)
	for _, m := range p.Manifests {
		if m.Ecosystem != EcosystemNPM {
			continue
		}
		for name, r := range m.Ranges() {
			if isLocalRange(r) {
				continue
			}
			byPackage[name] = append(byPackage[name], declaration{manifest: m.Path, rng: r})
		}
	}

	var out []Issue
	for _, name := range sortedKeys(byPackage) {
		decls := byPackage[name]
		sort.Slice(decls, func(i, j int) bool { return decls[i].manifest < decls[j].manifest })

		var ranges []string
		seen := make(map[string]bool)
		for _, d := range decls {
			if !seen[d.rng] {
				seen[d.rng] = true
				ranges = append(ranges, d.rng)
			}
		}

		if len(ranges) > 1 && !intersect(ranges) {
			var where []string
			for _, d := range decls {
				where = append(where, fmt.Sprintf("%s wants %s", d.manifest, d.rng))
			}
			out = append(out, Issue{
				Kind:          KindVersionConflict,
				Package:       name,
				RequiredRange: strings.Join(ranges, " vs "),
				Severity:      rules.SeverityWarning,
				Detail:        "no version satisfies every declared range: " + strings.Join(where, "; "),
			})
			continue
		}

		// The hoisted copy is what the root resolves; it must satisfy every
		// declared range.
		if installed, ok := p.Lock.Hoisted(name); ok {
			for _, r := range ranges {
				if !satisfies(installed.Version, r) {
					out = append(out, Issue{
						Kind:             KindVersionConflict,
						Package:          name,
						RequiredRange:    r,
						InstalledVersion: installed.Version,
						Severity:         rules.SeverityWarning,
						Detail:           fmt.Sprintf("installed %s does not satisfy declared range %s", installed.Version, r),
					})
					break
				}
			}
		}
	}
	return out
}

// =============================================================================
// PEER MISMATCH
// =============================================================================

func checkPeers(p *Project) []Issue {
	if p.Lock == nil {
		return nil
	}
	declared := make(map[string]string)
	for _, m := range p.Manifests {
		for name, r := range m.Ranges() {
			if _, ok := declared[name]; !ok {
				declared[name] = r
			}
		}
	}

	type key struct{ owner, peer string }
	seen := make(map[key]bool)
	var out []Issue
	for _, pkg := range p.Lock.Packages {
		for _, peer := range sortedKeys(pkg.PeerDependencies) {
			want := pkg.PeerDependencies[peer]
			k := key{pkg.Name, peer}
			if seen[k] {
				continue
			}

			installed, ok := p.Lock.Hoisted(peer)
			switch {
			case ok && !satisfies(installed.Version, want):
				seen[k] = true
				out = append(out, Issue{
					Kind:             KindPeerMismatch,
					Package:          peer,
					RequiredRange:    want,
					InstalledVersion: installed.Version,
					Severity:         rules.SeverityWarning,
					Detail:           fmt.Sprintf("%s@%s requires peer %s@%s but %s is installed", pkg.Name, pkg.Version, peer, want, installed.Version),
				})
			case !ok && !pkg.OptionalPeers[peer]:
				r, isDeclared := declared[peer]
				if isDeclared && intersect([]string{r, want}) {
					continue
				}
				seen[k] = true
				detail := fmt.Sprintf("%s@%s requires peer %s@%s which is not installed", pkg.Name, pkg.Version, peer, want)
				if isDeclared {
					detail = fmt.Sprintf("%s@%s requires peer %s@%s but the project declares %s", pkg.Name, pkg.Version, peer, want, r)
				}
				out = append(out, Issue{
					Kind:          KindPeerMismatch,
					Package:       peer,
					RequiredRange: want,
					Severity:      rules.SeverityWarning,
					Detail:        detail,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}

// =============================================================================
// CIRCULAR, DUPLICATE, VULNERABLE
// =============================================================================

func checkCircular(p *Project) []Issue {
	cycle := shortestCycle(buildGraph(p))
	if cycle == nil {
		return nil
	}
	return []Issue{{
		Kind:     KindCircular,
		Package:  cycle[0],
		Severity: rules.SeverityWarning,
		Detail:   "dependency cycle: " + strings.Join(cycle, " -> "),
		Cycle:    cycle,
	}}
}

func checkDuplicates(p *Project) []Issue {
	var out []Issue
	versions := p.Lock.Versions()
	for _, name := range sortedKeys(versions) {
		vs := versions[name]
		if len(vs) < 2 {
			continue
		}
		out = append(out, Issue{
			Kind:             KindDuplicate,
			Package:          name,
			InstalledVersion: strings.Join(vs, ", "),
			Severity:         rules.SeverityInfo,
			Detail:           fmt.Sprintf("%d versions installed: %s", len(vs), strings.Join(vs, ", ")),
		})
	}
	return out
}

// installedVersions lists every (ecosystem, package, version) known to
// be installed: lockfile entries, exact npm pins when there is no
// lockfile, and go.mod requirements.
func installedVersions(p *Project) map[Ecosystem]map[string][]string {
	out := map[Ecosystem]map[string][]string{
		EcosystemNPM: p.Lock.Versions(),
		EcosystemGo:  {},
	}
	for _, m := range p.Manifests {
		switch m.Ecosystem {
		case EcosystemGo:
			for _, section := range []map[string]string{m.Dependencies, m.DevDependencies} {
				for name, v := range section {
					out[EcosystemGo][name] = appendUnique(out[EcosystemGo][name], v)
				}
			}
		case EcosystemNPM:
			if p.Lock != nil {
				continue
			}
			for name, r := range m.Ranges() {
				if isExactVersion(r) {
					out[EcosystemNPM][name] = appendUnique(out[EcosystemNPM][name], strings.TrimPrefix(r, "="))
				}
			}
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	list = append(list, v)
	sortVersions(list)
	return list
}

func isExactVersion(r string) bool {
	r = strings.TrimPrefix(strings.TrimSpace(r), "=")
	m := rangeLiteralRe.FindString(r)
	return m != "" && m == r && strings.Count(r, ".") == 2 && !strings.ContainsAny(r, "xX*")
}

func checkVulnerable(p *Project) []Issue {
	if len(p.Vulnerabilities) == 0 {
		return nil
	}
	var out []Issue
	installed := installedVersions(p)
	for _, eco := range []Ecosystem{EcosystemNPM, EcosystemGo} {
		byName := installed[eco]
		for _, name := range sortedKeys(byName) {
			for _, version := range byName[name] {
				for _, v := range p.Vulnerabilities {
					if !v.affects(eco, name, version) {
						continue
					}
					detail := fmt.Sprintf("%s@%s is affected by %s", name, version, v.Advisory)
					if v.Severity != "" {
						detail += fmt.Sprintf(" (%s)", v.Severity)
					}
					out = append(out, Issue{
						Kind:             KindVulnerable,
						Package:          name,
						RequiredRange:    v.Range,
						InstalledVersion: version,
						Severity:         rules.SeverityError,
						Detail:           detail,
					})
				}
			}
		}
	}
	return out
}
