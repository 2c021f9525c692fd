// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package deps inspects a project's declared, installed and imported
// packages.
//
// Analysis is a pure function of a Project value: manifests, an optional
// lockfile, the bare package imports found in source files, and a
// vulnerable-range table. Nothing here touches the network.
package deps

import (
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// IssueKind classifies a dependency issue.
type IssueKind string

const (
	KindMissing         IssueKind = "missing"
	KindVersionConflict IssueKind = "version-conflict"
	KindPeerMismatch    IssueKind = "peer-mismatch"
	KindCircular        IssueKind = "circular"
	KindDuplicate       IssueKind = "duplicate"
	KindVulnerable      IssueKind = "vulnerable"
)

// Issue is one dependency finding.
type Issue struct {
	Kind             IssueKind      `json:"kind"`
	Package          string         `json:"package"`
	RequiredRange    string         `json:"required_range,omitempty"`
	InstalledVersion string         `json:"installed_version,omitempty"`
	Severity         rules.Severity `json:"severity"`
	Detail           string         `json:"detail"`

	// Cycle lists the packages of a circular issue, starting and ending
	// with the same name.
	Cycle []string `json:"cycle,omitempty"`
}

// ImportUse is one bare package import seen in a source file.
type ImportUse struct {
	Package  string `json:"package"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	TypeOnly bool   `json:"type_only,omitempty"`
}

// Ecosystem names a package manager.
type Ecosystem string

const (
	EcosystemNPM Ecosystem = "npm"
	EcosystemGo  Ecosystem = "go"
)

// Project is the input to Analyze.
type Project struct {
	// Manifests holds the root manifest first, then workspace manifests.
	Manifests []*Manifest

	// Lock is nil when no lockfile was found.
	Lock *Lockfile

	Imports         []ImportUse
	Vulnerabilities []Vulnerability
}

// Root returns the first manifest or nil.
func (p *Project) Root() *Manifest {
	if len(p.Manifests) == 0 {
		return nil
	}
	return p.Manifests[0]
}

// DeclaredPackages returns every name that counts as declared: all
// dependency sections of every manifest plus workspace package names.
func (p *Project) DeclaredPackages() map[string]bool {
	declared := make(map[string]bool)
	for _, m := range p.Manifests {
		if m.Name != "" {
			declared[m.Name] = true
		}
		for _, section := range m.sections() {
			for name := range section {
				declared[name] = true
			}
		}
	}
	return declared
}
