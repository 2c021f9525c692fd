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

import "errors"

var (
	// ErrInvalidRule indicates a rule descriptor failed validation.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrRuleNotFound indicates no rule is registered under the given ID.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleFileTooLarge indicates a custom rules file exceeds MaxRuleFileSize.
	ErrRuleFileTooLarge = errors.New("rule file too large")

	// ErrRuleFailed is wrapped around a panic recovered from a rule.
	ErrRuleFailed = errors.New("rule execution failed")
)
