// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package predict scores source files for errors that have not happened
// yet.
//
// Each Pattern has a trigger that finds candidate locations and a fixed
// set of weighted corroborating signals. The probability of a prediction
// is the trigger's base weight plus the weights of the signals that
// matched, clamped to [0, 1] and rounded to two decimals. Weights are
// constants, so the same file always produces the same predictions.
package predict

import (
	"math"

	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/source"
)

// ErrorType classifies the failure a pattern predicts.
type ErrorType string

const (
	ErrorHydrationMismatch ErrorType = "hydration-mismatch"
	ErrorUndefinedAccess   ErrorType = "undefined-access"
	ErrorAsyncComponent    ErrorType = "async-component"
	ErrorMemoryLeak        ErrorType = "memory-leak"
	ErrorRaceCondition     ErrorType = "race-condition"
	ErrorInfiniteLoop      ErrorType = "infinite-loop"
	ErrorImport            ErrorType = "import-error"
	ErrorEnvVar            ErrorType = "env-var-error"
)

// Phase is when the predicted error surfaces.
type Phase string

const (
	PhaseBuild   Phase = "build"
	PhaseRuntime Phase = "runtime"
)

// PredictedError is one probability-scored prediction.
type PredictedError struct {
	PatternID            string    `json:"pattern_id"`
	ErrorType            ErrorType `json:"error_type"`
	Phase                Phase     `json:"phase"`
	Probability          float64   `json:"probability"`
	File                 string    `json:"file"`
	Line                 int       `json:"line,omitempty"`
	Message              string    `json:"message"`
	PreventionSuggestion string    `json:"prevention_suggestion"`
	ExpectedErrorText    string    `json:"expected_error_text,omitempty"`

	// Signals names the corroborating signals that matched.
	Signals []string `json:"signals,omitempty"`
}

// Input is everything a pattern may look at for one file.
type Input struct {
	File       *source.FileContext
	Frameworks framework.Set

	// Packages holds declared dependency names. Nil means unknown, which
	// disables checks that need it.
	Packages map[string]bool

	// Files holds project-relative paths of every discovered file. Nil
	// means unknown.
	Files map[string]bool

	// EnvKeys holds variable names defined in the project's .env files.
	// Nil means unknown.
	EnvKeys map[string]bool
}

// Signal is a named corroborating condition with a constant weight.
type Signal struct {
	Name   string
	Weight float64
}

// score sums base and the weights of matched signals, clamped to [0, 1]
// and rounded to two decimals.
func score(base float64, signals []Signal, matched map[string]bool) (float64, []string) {
	p := base
	var names []string
	for _, s := range signals {
		if matched[s.Name] {
			p += s.Weight
			names = append(names, s.Name)
		}
	}
	p = math.Max(0, math.Min(1, p))
	return math.Round(p*100) / 100, names
}

// candidate is a trigger hit before scoring.
type candidate struct {
	line    int
	message string
	// subject fills placeholders in expected error text.
	subject string
	matched map[string]bool
}
