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
	"strings"

	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/source"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity represents the severity level of a finding.
type Severity int

const (
	// SeverityInfo represents style or informational findings.
	SeverityInfo Severity = iota

	// SeverityWarning represents findings that should be fixed but do not break the build.
	SeverityWarning

	// SeverityError represents findings that will break the build or the page.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Rank orders severities for sorting; higher is more severe.
func (s Severity) Rank() int {
	return int(s)
}

// SeverityFromString parses a severity string.
//
// Description:
//
//	Accepts the common spellings used by linters and config files.
//	Unknown values default to SeverityWarning.
//
// Inputs:
//
//	s - Severity string (e.g., "error", "warning", "info")
//
// Outputs:
//
//	Severity - The parsed severity level
func SeverityFromString(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "fatal", "critical", "high":
		return SeverityError
	case "warning", "warn", "medium", "moderate":
		return SeverityWarning
	case "info", "note", "style", "hint", "low":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// MarshalText encodes the severity as its name for JSON and YAML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = SeverityFromString(string(text))
	return nil
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category groups rules for selection.
type Category string

const (
	// CategoryCorrectness rules always run.
	CategoryCorrectness Category = "correctness"

	// CategoryBestPractice rules run only in strict mode.
	CategoryBestPractice Category = "best-practice"

	// CategorySecurity rules always run.
	CategorySecurity Category = "security"

	// CategoryPerformance rules always run.
	CategoryPerformance Category = "performance"
)

// ParseCategory resolves a category name. Unknown names are an error.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryCorrectness, CategoryBestPractice, CategorySecurity, CategoryPerformance:
		return c, nil
	case "":
		return CategoryCorrectness, nil
	default:
		return "", fmt.Errorf("%w: category %q", ErrInvalidRule, s)
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is one rule finding in one file. Line and Column are 1-based
// and zero when unknown.
type Result struct {
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	File       string   `json:"file"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`

	// AutoFix is a unified diff that applies the fix, when one is known.
	AutoFix string `json:"auto_fix,omitempty"`
}

// DedupKey identifies exact duplicates.
func (r Result) DedupKey() string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%s", r.RuleID, r.File, r.Line, r.Message)
}

// =============================================================================
// RULE
// =============================================================================

// File is what a rule inspects: the lexical view plus the framework tags
// the dispatcher assigned.
type File struct {
	*source.FileContext
	Frameworks framework.Set
}

// NewFile pairs a FileContext with its tags.
func NewFile(fc *source.FileContext, tags framework.Set) *File {
	if tags == nil {
		tags = framework.NewSet()
	}
	return &File{FileContext: fc, Frameworks: tags}
}

// CheckFunc inspects one file. It must not retain f or mutate it. An
// error or a panic is converted into a single synthetic warning.
type CheckFunc func(ctx context.Context, f *File) ([]Result, error)

// Rule describes one validation rule.
//
// Thread Safety: Immutable once registered.
type Rule struct {
	// ID is unique within a registry, e.g. "console-log-detection".
	ID string

	Category Category
	Severity Severity

	// AppliesTo restricts the rule to files carrying at least one of these
	// tags. Empty means every file.
	AppliesTo []framework.Tag

	// Description is a one-line human summary.
	Description string

	// Revision changes whenever the rule's behavior changes. It feeds the
	// rule-set version so cached results are invalidated.
	Revision string

	Check CheckFunc
}

// Info is the serializable view of a Rule.
type Info struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Severity    Severity        `json:"severity"`
	AppliesTo   []framework.Tag `json:"applies_to,omitempty"`
	Description string          `json:"description"`
}

// Info returns the serializable view of r.
func (r Rule) Info() Info {
	return Info{
		ID:          r.ID,
		Category:    r.Category,
		Severity:    r.Severity,
		AppliesTo:   append([]framework.Tag(nil), r.AppliesTo...),
		Description: r.Description,
	}
}

// Applies reports whether r runs on f.
func (r Rule) Applies(f *File) bool {
	return framework.Applies(r.AppliesTo, f.Frameworks)
}

// at builds a result for r at a position in f.
func (r Rule) at(f *File, line, col int, msg, suggestion string) Result {
	return Result{
		RuleID:     r.ID,
		Severity:   r.Severity,
		Message:    msg,
		File:       f.Path,
		Line:       line,
		Column:     col,
		Suggestion: suggestion,
	}
}
