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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/foresight/pkg/validation"
	"github.com/AleutianAI/foresight/services/foresight/framework"
)

// MaxRuleFileSize is the largest custom rules file accepted (1MB).
const MaxRuleFileSize = 1 << 20

// DefaultCustomRulesPath is where projects keep their own rules.
const DefaultCustomRulesPath = ".foresight/rules.yml"

// CustomRuleSpec is one user-defined regex rule as written in YAML.
//
// Example:
//
//	rules:
//	  - id: no-moment
//	    severity: warning
//	    category: best-practice
//	    applies_to: [react]
//	    pattern: "from ['\"]moment['\"]"
//	    scope: raw
//	    message: moment is deprecated, use date-fns
//	    exemptions: ["^legacy/"]
type CustomRuleSpec struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Severity    string   `yaml:"severity"`
	Category    string   `yaml:"category"`
	AppliesTo   []string `yaml:"applies_to"`
	Pattern     string   `yaml:"pattern"`
	// Scope is "code" (default; comments and literals excluded) or "raw".
	Scope      string   `yaml:"scope"`
	Message    string   `yaml:"message"`
	Suggestion string   `yaml:"suggestion"`
	Exemptions []string `yaml:"exemptions"`
	Disabled   bool     `yaml:"disabled"`
}

type customRuleFile struct {
	Rules []CustomRuleSpec `yaml:"rules"`
}

// ParseCustomRules decodes and compiles rules from YAML.
//
// Description:
//
//	Every rule is validated; the first invalid rule aborts parsing so a
//	typo is never silently ignored. Disabled rules are skipped.
//
// Inputs:
//
//	data - YAML document with a top-level "rules" list.
//
// Outputs:
//
//	[]Rule - Compiled rules in file order.
//	error - ErrInvalidRule wrapped with the offending ID.
func ParseCustomRules(data []byte) ([]Rule, error) {
	if len(data) > MaxRuleFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRuleFileTooLarge, len(data))
	}
	var doc customRuleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	out := make([]Rule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		if spec.Disabled {
			continue
		}
		rule, err := spec.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// LoadCustomRules reads a rules file. A missing file yields no rules and
// no error.
func LoadCustomRules(path string) ([]Rule, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat rules file: %w", err)
	}
	if info.Size() > MaxRuleFileSize {
		return nil, fmt.Errorf("%w: %s", ErrRuleFileTooLarge, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseCustomRules(data)
}

func (s CustomRuleSpec) compile() (Rule, error) {
	if strings.TrimSpace(s.ID) == "" {
		return Rule{}, fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if err := validation.ValidateRuleID(s.ID); err != nil {
		return Rule{}, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if s.Pattern == "" {
		return Rule{}, fmt.Errorf("%w: %s: missing pattern", ErrInvalidRule, s.ID)
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: pattern: %w", ErrInvalidRule, s.ID, err)
	}
	category, err := ParseCategory(s.Category)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: %w", s.ID, err)
	}

	var tags []framework.Tag
	for _, name := range s.AppliesTo {
		tag, ok := framework.ParseTag(name)
		if !ok {
			return Rule{}, fmt.Errorf("%w: %s: unknown framework %q", ErrInvalidRule, s.ID, name)
		}
		tags = append(tags, tag)
	}

	var exemptions []*regexp.Regexp
	for _, ex := range s.Exemptions {
		exRe, err := regexp.Compile(ex)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s: exemption: %w", ErrInvalidRule, s.ID, err)
		}
		exemptions = append(exemptions, exRe)
	}

	raw := false
	switch strings.ToLower(s.Scope) {
	case "", "code":
	case "raw":
		raw = true
	default:
		return Rule{}, fmt.Errorf("%w: %s: scope %q", ErrInvalidRule, s.ID, s.Scope)
	}

	message := s.Message
	if message == "" {
		message = s.Description
	}
	if message == "" {
		message = "Matched custom rule " + s.ID
	}

	sum := sha256.Sum256([]byte(s.Pattern + "\x00" + message + "\x00" + s.Scope + "\x00" + strings.Join(s.Exemptions, "\x00")))
	r := Rule{
		ID:          s.ID,
		Category:    category,
		Severity:    SeverityFromString(s.Severity),
		AppliesTo:   tags,
		Description: s.Description,
		Revision:    "custom-" + hex.EncodeToString(sum[:8]),
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		for _, ex := range exemptions {
			if ex.MatchString(f.Path) {
				return nil, nil
			}
		}
		matches := f.FindCode(re)
		if raw {
			matches = f.FindRaw(re)
		}
		out := make([]Result, 0, len(matches))
		for _, m := range matches {
			out = append(out, r.at(f, m.Line, m.Column, message, s.Suggestion))
		}
		return out, nil
	}
	return r, nil
}
