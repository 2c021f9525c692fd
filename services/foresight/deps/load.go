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
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manifest and lockfile names looked up at the project root.
const (
	PackageJSONFile = "package.json"
	LockfileName    = "package-lock.json"
	GoModFile       = "go.mod"
)

// maxWorkspaceDepth bounds the walk for "**" workspace patterns.
const maxWorkspaceDepth = 4

// LoadProject reads the manifests and lockfile under root.
//
// Description:
//
//	Reads root/package.json and every workspace manifest it names,
//	root/package-lock.json and root/go.mod. Absent files are skipped.
//	Imports and vulnerabilities are left for the caller to fill in.
//
// Inputs:
//
//	ctx - Checked between workspace manifests.
//	root - Project directory.
//
// Outputs:
//
//	*Project - Never nil when error is nil.
//	error - Wraps ErrManifestParse when any present file is malformed.
func LoadProject(ctx context.Context, root string) (*Project, error) {
	p := &Project{}

	rootManifest, err := readManifest(root, PackageJSONFile, ParsePackageJSON)
	if err != nil {
		return nil, err
	}
	if rootManifest != nil {
		p.Manifests = append(p.Manifests, rootManifest)
		dirs, err := workspaceDirs(root, rootManifest.Workspaces)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m, err := readManifest(root, filepath.ToSlash(filepath.Join(dir, PackageJSONFile)), ParsePackageJSON)
			if err != nil {
				return nil, err
			}
			if m != nil {
				p.Manifests = append(p.Manifests, m)
			}
		}
	}

	goMod, err := readManifest(root, GoModFile, ParseGoMod)
	if err != nil {
		return nil, err
	}
	if goMod != nil {
		p.Manifests = append(p.Manifests, goMod)
	}

	data, err := os.ReadFile(filepath.Join(root, LockfileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		lock, err := ParseLockfile(data)
		if err != nil {
			return nil, err
		}
		p.Lock = lock
	}
	return p, nil
}

func readManifest(root, rel string, parse func(string, []byte) (*Manifest, error)) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parse(rel, data)
}

// workspaceDirs expands workspace globs into project-relative directories
// that contain a package.json, sorted. Patterns starting with "!" exclude.
func workspaceDirs(root string, patterns []string) ([]string, error) {
	include := make(map[string]bool)
	var exclude []string
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
		if strings.HasPrefix(pattern, "!") {
			exclude = append(exclude, strings.TrimPrefix(pattern, "!"))
			continue
		}

		if i := strings.Index(pattern, "**"); i >= 0 {
			base := strings.TrimSuffix(pattern[:i], "/")
			if err := walkWorkspaces(root, base, include); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err != nil {
				continue
			}
			if hasManifest(match) {
				include[filepath.ToSlash(rel)] = true
			}
		}
	}

	var dirs []string
	for dir := range include {
		skip := dir == "."
		for _, ex := range exclude {
			if ok, _ := filepath.Match(ex, dir); ok {
				skip = true
			}
		}
		if !skip {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func walkWorkspaces(root, base string, into map[string]bool) error {
	start := filepath.Join(root, filepath.FromSlash(base))
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".") && path != start {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if strings.Count(rel, "/") >= maxWorkspaceDepth {
			return filepath.SkipDir
		}
		if path != start && hasManifest(path) {
			into[rel] = true
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, PackageJSONFile))
	return err == nil && !info.IsDir()
}
