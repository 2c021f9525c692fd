// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"testing"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		ranges []string
		want   bool
	}{
		{[]string{"^1.2.0", ">1.4.0"}, true},
		{[]string{"~1.2.0", "^1.3.0"}, false},
		{[]string{"1.x", ">=1.5.0 <2"}, true},
		{[]string{"^17.0.0", "^18.0.0"}, false},
		{[]string{"^18.0.0 || ^19.0.0", "^19.0.0-rc"}, true},
		{[]string{"workspace:*", "^1.0.0"}, true},
		{[]string{"latest", "^2.0.0"}, true},
		{[]string{"<2.0.0", ">=3.0.0"}, false},
		{[]string{"1.2.3"}, true},
	}
	for _, tt := range tests {
		if got := intersect(tt.ranges); got != tt.want {
			t.Errorf("intersect(%q) = %v, want %v", tt.ranges, got, tt.want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version, rng string
		want         bool
	}{
		{"18.2.0", "^18.0.0", true},
		{"17.0.2", "^18.0.0", false},
		{"1.2.3", "github:user/repo", true},
		{"not-a-version", "^1.0.0", true},
	}
	for _, tt := range tests {
		if got := satisfies(tt.version, tt.rng); got != tt.want {
			t.Errorf("satisfies(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
		}
	}
}

func TestSortVersions(t *testing.T) {
	vs := []string{"10.0.0", "2.0.0", "2.0.0-beta.1", "1.9.9"}
	sortVersions(vs)
	want := []string{"1.9.9", "2.0.0-beta.1", "2.0.0", "10.0.0"}
	for i := range want {
		if vs[i] != want[i] {
			t.Fatalf("sortVersions = %v, want %v", vs, want)
		}
	}
}

func TestIsExactVersion(t *testing.T) {
	for r, want := range map[string]bool{
		"1.2.3":   true,
		"=1.2.3":  true,
		"^1.2.3":  false,
		"1.2":     false,
		"1.x.0":   false,
		">=1.0.0": false,
	} {
		if got := isExactVersion(r); got != want {
			t.Errorf("isExactVersion(%q) = %v, want %v", r, got, want)
		}
	}
}
