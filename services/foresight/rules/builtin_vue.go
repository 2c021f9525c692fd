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
	"regexp"

	"github.com/AleutianAI/foresight/services/foresight/framework"
)

var (
	vueForTagRe = regexp.MustCompile(`<([a-zA-Z][\w-]*)\b[^>]*\sv-for\s*=\s*"[^"]*"[^>]*>`)
	vueKeyRe    = regexp.MustCompile(`\s(?::key|v-bind:key)\s*=`)
	vueIfRe     = regexp.MustCompile(`\sv-if\s*=`)
)

func vueForKeyRule() Rule {
	r := Rule{
		ID:          RuleVueForKey,
		Category:    CategoryCorrectness,
		Severity:    SeverityWarning,
		AppliesTo:   []framework.Tag{framework.Vue},
		Description: "v-for elements need a :key binding",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindRaw(vueForTagRe) {
			if vueKeyRe.MatchString(m.Text) {
				continue
			}
			out = append(out, r.at(f, m.Line, m.Column,
				"Elements in iteration expect to have 'v-bind:key' directives",
				`Add :key="item.id" with a stable unique value`))
		}
		return out, nil
	}
	return r
}

func vueIfWithForRule() Rule {
	r := Rule{
		ID:          RuleVueIfWithFor,
		Category:    CategoryBestPractice,
		Severity:    SeverityWarning,
		AppliesTo:   []framework.Tag{framework.Vue},
		Description: "v-if and v-for on the same element",
		Revision:    "1",
	}
	r.Check = func(_ context.Context, f *File) ([]Result, error) {
		var out []Result
		for _, m := range f.FindRaw(vueForTagRe) {
			if !vueIfRe.MatchString(m.Text) {
				continue
			}
			out = append(out, r.at(f, m.Line, m.Column,
				"v-if should not be used on the same element as v-for",
				"Filter the list in a computed property, or wrap the element in a <template v-for>"))
		}
		return out, nil
	}
	return r
}
