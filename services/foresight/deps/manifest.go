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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// Manifest is one package.json or go.mod.
type Manifest struct {
	// Path is project-relative with forward slashes.
	Path      string
	Ecosystem Ecosystem
	Name      string
	Version   string

	Dependencies         map[string]string
	DevDependencies      map[string]string
	PeerDependencies     map[string]string
	OptionalDependencies map[string]string

	// Workspaces holds the workspace glob patterns of a root package.json.
	Workspaces []string
}

func (m *Manifest) sections() []map[string]string {
	return []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies, m.OptionalDependencies}
}

// Ranges returns the declared range for every package in the installable
// sections, merged with dependencies winning over devDependencies and
// optionalDependencies. Peer ranges are excluded.
func (m *Manifest) Ranges() map[string]string {
	out := make(map[string]string)
	for _, section := range []map[string]string{m.OptionalDependencies, m.DevDependencies, m.Dependencies} {
		for name, r := range section {
			out[name] = r
		}
	}
	return out
}

// packageJSON mirrors the fields of package.json that matter here.
type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Workspaces           json.RawMessage   `json:"workspaces"`
}

// ParsePackageJSON parses a package.json document.
//
// Description:
//
//	The workspaces field is accepted both as an array of globs and in the
//	{"packages": [...]} object form.
//
// Outputs:
//
//	*Manifest - The parsed manifest.
//	error - Wraps ErrManifestParse.
func ParsePackageJSON(path string, data []byte) (*Manifest, error) {
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestParse, path, err)
	}

	m := &Manifest{
		Path:                 path,
		Ecosystem:            EcosystemNPM,
		Name:                 raw.Name,
		Version:              raw.Version,
		Dependencies:         nonNil(raw.Dependencies),
		DevDependencies:      nonNil(raw.DevDependencies),
		PeerDependencies:     nonNil(raw.PeerDependencies),
		OptionalDependencies: nonNil(raw.OptionalDependencies),
	}

	if len(raw.Workspaces) > 0 && string(raw.Workspaces) != "null" {
		var list []string
		if err := json.Unmarshal(raw.Workspaces, &list); err != nil {
			var obj struct {
				Packages []string `json:"packages"`
			}
			if err := json.Unmarshal(raw.Workspaces, &obj); err != nil {
				return nil, fmt.Errorf("%w: %s: workspaces: %v", ErrManifestParse, path, err)
			}
			list = obj.Packages
		}
		m.Workspaces = list
	}
	return m, nil
}

// ParseGoMod parses a go.mod file. Required modules become dependencies
// at their exact versions; indirect requirements go to DevDependencies so
// they count as declared without being treated as direct.
func ParseGoMod(path string, data []byte) (*Manifest, error) {
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestParse, path, err)
	}

	m := &Manifest{
		Path:                 path,
		Ecosystem:            EcosystemGo,
		Dependencies:         make(map[string]string),
		DevDependencies:      make(map[string]string),
		PeerDependencies:     map[string]string{},
		OptionalDependencies: map[string]string{},
	}
	if f.Module != nil {
		m.Name = f.Module.Mod.Path
	}
	for _, req := range f.Require {
		if req.Indirect {
			m.DevDependencies[req.Mod.Path] = req.Mod.Version
			continue
		}
		m.Dependencies[req.Mod.Path] = req.Mod.Version
	}
	for _, rep := range f.Replace {
		if rep.New.Version == "" {
			continue
		}
		if _, ok := m.Dependencies[rep.Old.Path]; ok {
			m.Dependencies[rep.Old.Path] = rep.New.Version
		}
	}
	return m, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isLocalRange reports ranges that point at the workspace, the file
// system or a VCS rather than the registry.
func isLocalRange(r string) bool {
	for _, p := range []string{"workspace:", "file:", "link:", "portal:", "git+", "git:", "github:", "http:", "https:"} {
		if strings.HasPrefix(r, p) {
			return true
		}
	}
	return false
}
