// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package framework

import (
	"path"
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/source"
)

// Probe inspects a file and returns the tags it is evidence for.
type Probe struct {
	Name  string
	Check func(fc *source.FileContext) []Tag
}

// importTags maps package specifiers (and their subpaths) to tags.
var importTags = []struct {
	prefix string
	tags   []Tag
}{
	{"react", []Tag{React}},
	{"react-dom", []Tag{React}},
	{"next", []Tag{NextJS}},
	{"vue", []Tag{Vue}},
	{"vue-router", []Tag{Vue}},
	{"pinia", []Tag{Vue}},
	{"nuxt", []Tag{Nuxt}},
	{"#app", []Tag{Nuxt}},
	{"#imports", []Tag{Nuxt}},
	{"svelte", []Tag{Svelte}},
	{"@sveltejs/kit", []Tag{SvelteKit}},
	{"$app", []Tag{SvelteKit}},
	{"@angular/core", []Tag{Angular}},
	{"@remix-run/react", []Tag{Remix}},
	{"@remix-run/node", []Tag{Remix}},
	{"express", []Tag{Express}},
}

// nodeBuiltins are the core modules that mark a file as server-side node.
var nodeBuiltins = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "cluster": true,
	"crypto": true, "dns": true, "events": true, "fs": true, "http": true,
	"https": true, "net": true, "os": true, "path": true, "process": true,
	"querystring": true, "readline": true, "stream": true, "tls": true,
	"url": true, "util": true, "worker_threads": true, "zlib": true,
}

// IsNodeBuiltin reports whether specifier names a node core module,
// including "node:" prefixed and subpath forms like "fs/promises".
func IsNodeBuiltin(specifier string) bool {
	s := strings.TrimPrefix(specifier, "node:")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.HasPrefix(specifier, "node:") || nodeBuiltins[s]
}

// nextRouteFiles are the Next.js file conventions under app/ and pages/.
var nextRouteFiles = map[string]bool{
	"page": true, "layout": true, "route": true, "loading": true, "error": true,
	"template": true, "not-found": true, "default": true, "middleware": true,
	"_app": true, "_document": true,
}

// DefaultProbes returns the probe list used by Detect.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "directive", Check: probeDirective},
		{Name: "route-path", Check: probeRoutePath},
		{Name: "import", Check: probeImports},
		{Name: "extension", Check: probeExtension},
	}
}

func probeDirective(fc *source.FileContext) []Tag {
	if fc.HasDirective("use client") || fc.HasDirective("use server") {
		return []Tag{NextJS}
	}
	return nil
}

func probeRoutePath(fc *source.FileContext) []Tag {
	p := "/" + fc.Path
	base := path.Base(fc.Path)
	stem := strings.TrimSuffix(base, path.Ext(base))
	lang := fc.Language

	var tags []Tag
	switch {
	case strings.HasPrefix(base, "+") && (strings.Contains(p, "/routes/") || lang == source.LanguageSvelte):
		tags = append(tags, SvelteKit)
	case strings.Contains(p, "/app/routes/") && (lang == source.LanguageTSX || lang == source.LanguageJSX):
		tags = append(tags, Remix)
	case (strings.Contains(p, "/app/") || strings.Contains(p, "/pages/")) && lang == source.LanguageVue:
		tags = append(tags, Nuxt)
	case strings.Contains(p, "/app/") && nextRouteFiles[stem] && !lang.IsComponentTemplate():
		tags = append(tags, NextJS)
	case strings.Contains(p, "/pages/") && (lang == source.LanguageTSX || lang == source.LanguageJSX):
		tags = append(tags, NextJS)
	case stem == "middleware" && !strings.Contains(p, "/server/") && lang == source.LanguageTypeScript:
		tags = append(tags, NextJS)
	}
	return tags
}

func probeImports(fc *source.FileContext) []Tag {
	var tags []Tag
	for _, entry := range importTags {
		if fc.ImportsAny(entry.prefix) {
			tags = append(tags, entry.tags...)
		}
	}
	for _, imp := range fc.Imports {
		if IsNodeBuiltin(imp.Specifier) {
			tags = append(tags, Node)
			break
		}
	}
	return tags
}

func probeExtension(fc *source.FileContext) []Tag {
	switch fc.Language {
	case source.LanguageVue:
		return []Tag{Vue}
	case source.LanguageSvelte:
		return []Tag{Svelte}
	case source.LanguageTSX, source.LanguageJSX:
		return []Tag{React}
	default:
		return nil
	}
}

// Detect returns the framework tags for fc.
//
// Description:
//
//	When explicit is non-empty it is authoritative: the result is that
//	tag plus the tags it implies, and no probe runs. Otherwise every
//	probe contributes independently and the union is returned.
//
// Inputs:
//
//	fc - File to classify.
//	explicit - Caller hint, or "".
//
// Outputs:
//
//	Set - Possibly empty tag set.
func Detect(fc *source.FileContext, explicit Tag) Set {
	if explicit != "" {
		return NewSet(explicit)
	}
	return DetectWith(fc, DefaultProbes())
}

// DetectWith runs the given probes only.
func DetectWith(fc *source.FileContext, probes []Probe) Set {
	s := make(Set)
	for _, p := range probes {
		for _, t := range p.Check(fc) {
			s.Add(t)
		}
	}
	return s
}
