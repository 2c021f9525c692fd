// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package foresight

import (
	"github.com/AleutianAI/foresight/services/foresight/cache"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// ServiceVersion is reported by the health endpoint and stamped into
// telemetry resources.
const ServiceVersion = "0.4.0"

// MaxSnippetBytes bounds AnalyzeSnippet input.
const MaxSnippetBytes = 1 << 20

// =============================================================================
// SERVICE TYPES
// =============================================================================

// ProjectOptions controls one AnalyzeProject run.
//
// Start from Service.DefaultProjectOptions so the boolean switches carry
// their configured defaults.
type ProjectOptions struct {
	// Framework, when set, overrides detection for every file.
	Framework string `json:"framework,omitempty"`

	// EnabledRules, when non-empty, restricts the run to these rule IDs.
	EnabledRules []string `json:"enabled_rules,omitempty"`

	// DisabledRules are always skipped.
	DisabledRules []string `json:"disabled_rules,omitempty"`

	// StrictMode includes best-practice rules.
	StrictMode bool `json:"strict_mode"`

	PredictErrors       bool `json:"predict_errors"`
	AnalyzeDependencies bool `json:"analyze_dependencies"`

	// MaxIssues caps report results. Zero means the configured default,
	// negative means unlimited.
	MaxIssues int `json:"max_issues,omitempty"`

	// TargetFiles, when non-empty, restricts analysis to these paths,
	// absolute or relative to the project root.
	TargetFiles []string `json:"target_files,omitempty"`
}

// SnippetOptions controls one AnalyzeSnippet call.
type SnippetOptions struct {
	// Language is required unless FileName has a known extension.
	Language string `json:"language,omitempty"`

	Framework string `json:"framework,omitempty"`

	// FileName is used for reporting and route-based detection. Default
	// "snippet" plus the language extension.
	FileName string `json:"file_name,omitempty"`
}

// SnippetResult holds the findings for one snippet.
type SnippetResult struct {
	FileName    string                   `json:"file_name"`
	Language    string                   `json:"language"`
	Frameworks  []string                 `json:"frameworks"`
	Results     []rules.Result           `json:"results"`
	Predictions []predict.PredictedError `json:"predictions"`
}

// CacheStats reports the tiers of the file-result cache.
type CacheStats struct {
	Memory cache.Stats  `json:"memory"`
	Warm   *cache.Stats `json:"warm,omitempty"`
}

// =============================================================================
// HTTP TYPES
// =============================================================================

// AnalyzeRequest is the request body for POST /v1/foresight/analyze.
type AnalyzeRequest struct {
	// ProjectRoot is the directory to analyze.
	ProjectRoot string `json:"project_root" binding:"required"`

	Framework     string   `json:"framework,omitempty"`
	EnabledRules  []string `json:"enabled_rules,omitempty"`
	DisabledRules []string `json:"disabled_rules,omitempty"`

	// Pointers distinguish "absent" from false.
	StrictMode          *bool `json:"strict_mode,omitempty"`
	PredictErrors       *bool `json:"predict_errors,omitempty"`
	AnalyzeDependencies *bool `json:"analyze_dependencies,omitempty"`

	MaxIssues   int      `json:"max_issues,omitempty" binding:"gte=-1"`
	TargetFiles []string `json:"target_files,omitempty"`
}

// SnippetRequest is the request body for POST /v1/foresight/snippet.
type SnippetRequest struct {
	Code      string `json:"code" binding:"required"`
	Language  string `json:"language,omitempty"`
	Framework string `json:"framework,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// RulesResponse is the response for GET /v1/foresight/rules.
type RulesResponse struct {
	// Version is the rule-set version.
	Version string       `json:"version"`
	Rules   []rules.Info `json:"rules"`
}

// HealthResponse is the response for GET /v1/foresight/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Rules is the number of registered rules.
	Rules int `json:"rules"`

	Cache CacheStats `json:"cache"`
}

// ErrorResponse is returned on error.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
