// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for identifiers
// that arrive from users, config files and HTTP requests.
//
// Rule IDs end up in log attributes, metric labels, cache keys and
// machine-readable CLI output, so they are restricted to a small
// character set.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRuleID is returned for rule IDs outside the allowed format.
var ErrInvalidRuleID = errors.New("invalid rule id")

// ruleIDPattern matches valid rule IDs.
// Allows: lowercase letters, digits, and "-", "_", ".", "/" after the first
// character (team/no-moment, a11y.alt-text).
// Max length: 64 characters
var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._/\-]{0,63}$`)

// ValidateRuleID validates a rule ID.
//
// Valid IDs:
//   - 1-64 characters
//   - Lowercase letters a-z and digits 0-9
//   - Hyphens, underscores, dots and slashes after the first character
//
// Returns an error wrapping ErrInvalidRuleID if the ID is invalid.
//
// Example:
//
//	if err := validation.ValidateRuleID(id); err != nil {
//	    return fmt.Errorf("custom rule: %w", err)
//	}
func ValidateRuleID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidRuleID)
	}

	if !ruleIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (must be 1-64 lowercase alphanumeric chars, '-', '_', '.' or '/')", ErrInvalidRuleID, id)
	}

	return nil
}

// ValidateRuleIDs validates multiple rule IDs.
// Returns an error listing all invalid IDs if any fail validation.
func ValidateRuleIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateRuleID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRuleID, invalid)
	}
	return nil
}

// SanitizeRuleID normalizes and validates a rule ID.
// Returns the lowercase, trimmed ID if valid, or an error if invalid.
//
//	id, err := validation.SanitizeRuleID(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeRuleID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateRuleID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// SanitizeRuleIDs applies SanitizeRuleID to each ID, dropping empty
// entries left by comma-separated input.
func SanitizeRuleIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	var invalid []string
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		clean, err := SanitizeRuleID(id)
		if err != nil {
			invalid = append(invalid, id)
			continue
		}
		out = append(out, clean)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRuleID, invalid)
	}
	return out, nil
}
