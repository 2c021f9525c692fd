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
)

// LockedPackage is one installed copy of a package.
type LockedPackage struct {
	Name    string
	Version string

	// Path is the install location, e.g. "node_modules/a/node_modules/b".
	Path string

	Dependencies     map[string]string
	PeerDependencies map[string]string
	OptionalPeers    map[string]bool
	Dev              bool
}

// Lockfile is a parsed package-lock.json.
type Lockfile struct {
	Version  int
	Packages []LockedPackage
}

type lockJSON struct {
	LockfileVersion int                  `json:"lockfileVersion"`
	Packages        map[string]lockEntry `json:"packages"`
	Dependencies    map[string]lockV1    `json:"dependencies"`
}

type lockEntry struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dev                  bool              `json:"dev"`
	Link                 bool              `json:"link"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	PeerDependenciesMeta map[string]struct {
		Optional bool `json:"optional"`
	} `json:"peerDependenciesMeta"`
}

type lockV1 struct {
	Version      string            `json:"version"`
	Dev          bool              `json:"dev"`
	Requires     map[string]string `json:"requires"`
	Dependencies map[string]lockV1 `json:"dependencies"`
}

// ParseLockfile parses package-lock.json. Version 2 and 3 files are read
// from the flat "packages" map; version 1 files from the nested
// "dependencies" tree.
func ParseLockfile(data []byte) (*Lockfile, error) {
	var raw lockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: package-lock.json: %v", ErrManifestParse, err)
	}

	lock := &Lockfile{Version: raw.LockfileVersion}
	if len(raw.Packages) > 0 {
		for _, key := range sortedKeys(raw.Packages) {
			// "" is the root project; entries outside node_modules are
			// workspace sources, represented by their manifests.
			if key == "" || !strings.Contains(key, "node_modules/") {
				continue
			}
			e := raw.Packages[key]
			if e.Link {
				continue
			}
			name := e.Name
			if name == "" {
				name = packageFromInstallPath(key)
			}
			deps := make(map[string]string, len(e.Dependencies)+len(e.OptionalDependencies))
			for k, v := range e.Dependencies {
				deps[k] = v
			}
			for k, v := range e.OptionalDependencies {
				deps[k] = v
			}
			optional := make(map[string]bool)
			for k, meta := range e.PeerDependenciesMeta {
				if meta.Optional {
					optional[k] = true
				}
			}
			lock.Packages = append(lock.Packages, LockedPackage{
				Name:             name,
				Version:          e.Version,
				Path:             key,
				Dependencies:     deps,
				PeerDependencies: nonNil(e.PeerDependencies),
				OptionalPeers:    optional,
				Dev:              e.Dev,
			})
		}
		return lock, nil
	}

	var walk func(prefix string, tree map[string]lockV1)
	walk = func(prefix string, tree map[string]lockV1) {
		for _, name := range sortedKeys(tree) {
			e := tree[name]
			path := prefix + "node_modules/" + name
			lock.Packages = append(lock.Packages, LockedPackage{
				Name:             name,
				Version:          e.Version,
				Path:             path,
				Dependencies:     nonNil(e.Requires),
				PeerDependencies: map[string]string{},
				OptionalPeers:    map[string]bool{},
				Dev:              e.Dev,
			})
			walk(path+"/", e.Dependencies)
		}
	}
	walk("", raw.Dependencies)
	sort.Slice(lock.Packages, func(i, j int) bool { return lock.Packages[i].Path < lock.Packages[j].Path })
	return lock, nil
}

// packageFromInstallPath returns the package name of the last
// node_modules segment of path.
func packageFromInstallPath(path string) string {
	i := strings.LastIndex(path, "node_modules/")
	return path[i+len("node_modules/"):]
}

// Hoisted returns the top-level installed copy of name, which is what a
// bare import from the project root resolves to.
func (l *Lockfile) Hoisted(name string) (LockedPackage, bool) {
	if l == nil {
		return LockedPackage{}, false
	}
	want := "node_modules/" + name
	for _, p := range l.Packages {
		if p.Path == want {
			return p, true
		}
	}
	return LockedPackage{}, false
}

// Versions returns the distinct installed versions of each package,
// sorted.
func (l *Lockfile) Versions() map[string][]string {
	out := make(map[string][]string)
	if l == nil {
		return out
	}
	seen := make(map[string]bool)
	for _, p := range l.Packages {
		if p.Version == "" || seen[p.Name+"@"+p.Version] {
			continue
		}
		seen[p.Name+"@"+p.Version] = true
		out[p.Name] = append(out[p.Name], p.Version)
	}
	for name := range out {
		sortVersions(out[name])
	}
	return out
}
