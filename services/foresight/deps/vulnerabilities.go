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
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed vulnerabilities.yaml
var defaultVulnerabilitiesYAML []byte

// Vulnerability is one vulnerable-range table entry.
type Vulnerability struct {
	Package   string    `yaml:"package" json:"package"`
	Ecosystem Ecosystem `yaml:"ecosystem" json:"ecosystem"`
	Range     string    `yaml:"range" json:"range"`
	Advisory  string    `yaml:"advisory" json:"advisory"`

	// Severity is the advisory's own rating; the issue is always an error.
	Severity string `yaml:"severity" json:"severity"`
}

type vulnerabilityFile struct {
	Vulnerabilities []Vulnerability `yaml:"vulnerabilities"`
}

// ParseVulnerabilities parses a vulnerable-range YAML document.
func ParseVulnerabilities(data []byte) ([]Vulnerability, error) {
	var doc vulnerabilityFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVulnerability, err)
	}
	for i := range doc.Vulnerabilities {
		v := &doc.Vulnerabilities[i]
		if v.Ecosystem == "" {
			v.Ecosystem = EcosystemNPM
		}
		if v.Package == "" {
			return nil, fmt.Errorf("%w: entry %d: package is required", ErrInvalidVulnerability, i)
		}
		if _, ok := parseRange(v.Range); !ok || strings.TrimSpace(v.Range) == "" {
			return nil, fmt.Errorf("%w: %s: range %q", ErrInvalidVulnerability, v.Package, v.Range)
		}
	}
	return doc.Vulnerabilities, nil
}

// DefaultVulnerabilities returns the embedded table.
func DefaultVulnerabilities() []Vulnerability {
	table, err := ParseVulnerabilities(defaultVulnerabilitiesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded vulnerabilities.yaml: %v", err))
	}
	return table
}

// LoadVulnerabilities reads a table from path and appends it to the
// embedded defaults. A missing file yields the defaults alone.
func LoadVulnerabilities(path string) ([]Vulnerability, error) {
	table := DefaultVulnerabilities()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	extra, err := ParseVulnerabilities(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return append(table, extra...), nil
}

// affects reports whether v covers the installed version.
func (v Vulnerability) affects(eco Ecosystem, name, version string) bool {
	if v.Ecosystem != eco || v.Package != name {
		return false
	}
	if eco == EcosystemGo {
		if !semver.IsValid(version) {
			return false
		}
		// Pseudo-versions and +incompatible carry build metadata the range
		// check does not need.
		version = strings.TrimSuffix(semver.Canonical(version), "+incompatible")
	}
	c, ok := parseRange(v.Range)
	if !ok {
		return false
	}
	return satisfiesConstraint(c, version)
}
