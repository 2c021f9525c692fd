// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package framework decides which frameworks a file belongs to.
//
// Detection runs a fixed list of independent probes over a FileContext.
// Each probe may contribute one or more tags, so a file can be both
// "react" and "nextjs". An explicit framework hint from the caller
// replaces probing entirely. Detection is stateless and never cached.
package framework

import (
	"sort"
	"strings"
)

// Tag names a framework.
type Tag string

const (
	React     Tag = "react"
	NextJS    Tag = "nextjs"
	Vue       Tag = "vue"
	Nuxt      Tag = "nuxt"
	Svelte    Tag = "svelte"
	SvelteKit Tag = "sveltekit"
	Angular   Tag = "angular"
	Remix     Tag = "remix"
	Express   Tag = "express"
	Node      Tag = "node"
)

// implied lists tags that another tag always carries.
var implied = map[Tag][]Tag{
	NextJS:    {React},
	Remix:     {React},
	Nuxt:      {Vue},
	SvelteKit: {Svelte},
	Express:   {Node},
}

var known = map[Tag]bool{
	React: true, NextJS: true, Vue: true, Nuxt: true, Svelte: true,
	SvelteKit: true, Angular: true, Remix: true, Express: true, Node: true,
}

// aliases map common spellings to tags.
var aliases = map[string]Tag{
	"next":       NextJS,
	"next.js":    NextJS,
	"nextjs":     NextJS,
	"vuejs":      Vue,
	"vue.js":     Vue,
	"nuxtjs":     Nuxt,
	"reactjs":    React,
	"svelte-kit": SvelteKit,
	"nodejs":     Node,
	"node.js":    Node,
}

// ParseTag resolves a user-supplied framework name.
func ParseTag(name string) (Tag, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if t, ok := aliases[n]; ok {
		return t, true
	}
	t := Tag(n)
	return t, known[t]
}

// All returns every known tag, sorted.
func All() []Tag {
	tags := make([]Tag, 0, len(known))
	for t := range known {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// =============================================================================
// Set
// =============================================================================

// Set is an unordered collection of tags.
type Set map[Tag]struct{}

// NewSet builds a Set from tags, expanding implied tags.
func NewSet(tags ...Tag) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts t and everything it implies.
func (s Set) Add(t Tag) {
	if _, ok := s[t]; ok {
		return
	}
	s[t] = struct{}{}
	for _, child := range implied[t] {
		s.Add(child)
	}
}

// Has reports membership.
func (s Set) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the tags in lexical order.
func (s Set) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted tags as strings.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for _, t := range s.Sorted() {
		out = append(out, string(t))
	}
	return out
}

// Applies reports whether a rule restricted to appliesTo runs on a file
// tagged with s. An empty appliesTo is universal; otherwise at least one
// tag must be shared.
func Applies(appliesTo []Tag, s Set) bool {
	if len(appliesTo) == 0 {
		return true
	}
	for _, t := range appliesTo {
		if s.Has(t) {
			return true
		}
	}
	return false
}
