// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules holds the rule registry, the fail-soft execution engine
// and the built-in rule catalog.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/foresight/services/foresight/framework"
)

// Registry owns the set of available rules.
//
// Description:
//
//	Rules are kept in registration order. Registering an ID that already
//	exists replaces the descriptor in place (last write wins) and keeps
//	the original position, so execution order stays stable across
//	overrides.
//
// Thread Safety: Safe for concurrent use. Runs read from a RuleSet
// snapshot, so registrations during a run do not affect it.
type Registry struct {
	mu    sync.RWMutex
	order []string
	rules map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds or replaces a rule.
//
// Inputs:
//
//	rule - Descriptor with a non-empty ID and a Check function.
//
// Outputs:
//
//	error - ErrInvalidRule if the descriptor is incomplete.
func (r *Registry) Register(rule Rule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	if rule.Check == nil {
		return fmt.Errorf("%w: %s has no check function", ErrInvalidRule, rule.ID)
	}
	if rule.Category == "" {
		rule.Category = CategoryCorrectness
	}
	rule.AppliesTo = append([]framework.Tag(nil), rule.AppliesTo...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[rule.ID]; !exists {
		r.order = append(r.order, rule.ID)
	}
	r.rules[rule.ID] = rule
	return nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (r *Registry) MustRegister(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
}

// Get returns the rule registered under id.
func (r *Registry) Get(id string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rule, nil
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns rules in registration order. When filter is non-empty only
// rules that apply to that framework (including universal rules) are
// returned.
func (r *Registry) List(filter framework.Tag) []Rule {
	return r.Snapshot().List(filter)
}

// Snapshot captures the current rules as an immutable RuleSet.
func (r *Registry) Snapshot() *RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		rules = append(rules, r.rules[id])
	}
	return newRuleSet(rules)
}

// =============================================================================
// RULE SET
// =============================================================================

// RuleSet is a frozen, ordered list of rules with a content version.
//
// Thread Safety: Immutable.
type RuleSet struct {
	rules   []Rule
	version string
}

func newRuleSet(rules []Rule) *RuleSet {
	h := sha256.New()
	for _, rule := range rules {
		tags := make([]string, 0, len(rule.AppliesTo))
		for _, t := range rule.AppliesTo {
			tags = append(tags, string(t))
		}
		sort.Strings(tags)
		fmt.Fprintf(h, "%s|%s|%s|%s|%s\n", rule.ID, rule.Category, rule.Severity, strings.Join(tags, ","), rule.Revision)
	}
	return &RuleSet{rules: rules, version: hex.EncodeToString(h.Sum(nil))[:16]}
}

// Version identifies the rule set contents. Any registration that changes
// an ID, category, severity, applicability or revision changes it.
func (s *RuleSet) Version() string {
	return s.version
}

// Rules returns a copy of the ordered rules.
func (s *RuleSet) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// List filters by framework as Registry.List does.
func (s *RuleSet) List(filter framework.Tag) []Rule {
	if filter == "" {
		return s.Rules()
	}
	tags := framework.NewSet(filter)
	var out []Rule
	for _, rule := range s.rules {
		if framework.Applies(rule.AppliesTo, tags) {
			out = append(out, rule)
		}
	}
	return out
}

// Selection narrows a rule set for one run.
type Selection struct {
	// Enabled, when non-empty, keeps only these IDs.
	Enabled []string

	// Disabled IDs are always removed, even if also enabled.
	Disabled []string

	// Strict includes best-practice rules. Other categories always run.
	// A best-practice rule listed in Enabled runs regardless.
	Strict bool
}

// Select applies sel and returns the rules to execute, in order.
func (s *RuleSet) Select(sel Selection) []Rule {
	enabled := toSet(sel.Enabled)
	disabled := toSet(sel.Disabled)

	var out []Rule
	for _, rule := range s.rules {
		if len(enabled) > 0 && !enabled[rule.ID] {
			continue
		}
		if disabled[rule.ID] {
			continue
		}
		if !sel.Strict && rule.Category == CategoryBestPractice && !enabled[rule.ID] {
			continue
		}
		out = append(out, rule)
	}
	return out
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// =============================================================================
// DEFAULT REGISTRY
// =============================================================================

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry populated with the built-in
// rules on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.MustRegister(Builtins()...)
	})
	return defaultRegistry
}
