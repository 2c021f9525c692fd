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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParsePackageJSON_Workspaces(t *testing.T) {
	arr, err := ParsePackageJSON("package.json", []byte(`{"name":"r","workspaces":["packages/*"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/*"}, arr.Workspaces)

	obj, err := ParsePackageJSON("package.json", []byte(`{"name":"r","workspaces":{"packages":["apps/*"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"apps/*"}, obj.Workspaces)

	_, err = ParsePackageJSON("package.json", []byte(`{"name":`))
	assert.ErrorIs(t, err, ErrManifestParse)
}

func TestManifestRanges_Precedence(t *testing.T) {
	m, err := ParsePackageJSON("package.json", []byte(`{
		"dependencies": {"a": "^2.0.0"},
		"devDependencies": {"a": "^1.0.0", "b": "^1.0.0"},
		"peerDependencies": {"c": "*"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "^2.0.0", "b": "^1.0.0"}, m.Ranges())
}

func TestParseLockfile_V1(t *testing.T) {
	lock, err := ParseLockfile([]byte(`{"lockfileVersion":1,"dependencies":{
		"a": {"version":"1.0.0","requires":{"b":"^2.0.0"},"dependencies":{"b":{"version":"2.1.0"}}},
		"b": {"version":"3.0.0"}
	}}`))
	require.NoError(t, err)
	require.Len(t, lock.Packages, 3)

	hoisted, ok := lock.Hoisted("b")
	require.True(t, ok)
	assert.Equal(t, "3.0.0", hoisted.Version)
	assert.Equal(t, []string{"2.1.0", "3.0.0"}, lock.Versions()["b"])
}

func TestParseLockfile_ScopedAndLinks(t *testing.T) {
	lock, err := ParseLockfile([]byte(`{"lockfileVersion":3,"packages":{
		"": {"name":"root"},
		"packages/ui": {"name":"@acme/ui","version":"0.1.0"},
		"node_modules/@acme/ui": {"resolved":"packages/ui","link":true},
		"node_modules/@babel/core": {"version":"7.24.0","dev":true}
	}}`))
	require.NoError(t, err)
	require.Len(t, lock.Packages, 1)
	assert.Equal(t, "@babel/core", lock.Packages[0].Name)
	assert.True(t, lock.Packages[0].Dev)

	_, err = ParseLockfile([]byte(`[`))
	assert.ErrorIs(t, err, ErrManifestParse)
}

func TestLoadProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"root","workspaces":["packages/*","apps/**","!packages/skip"],"dependencies":{"react":"^18.2.0"}}`)
	writeFile(t, root, "packages/ui/package.json", `{"name":"@acme/ui","dependencies":{"clsx":"^2.0.0"}}`)
	writeFile(t, root, "packages/skip/package.json", `{"name":"skip"}`)
	writeFile(t, root, "packages/notes/README.md", "no manifest here")
	writeFile(t, root, "apps/web/package.json", `{"name":"web"}`)
	writeFile(t, root, "apps/web/node_modules/x/package.json", `{"name":"x"}`)
	writeFile(t, root, "package-lock.json", `{"lockfileVersion":3,"packages":{"node_modules/react":{"version":"18.2.0"}}}`)
	writeFile(t, root, "go.mod", "module example.com/tools\n\ngo 1.22\n")

	p, err := LoadProject(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, m := range p.Manifests {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{"package.json", "apps/web/package.json", "packages/ui/package.json", "go.mod"}, paths)
	require.NotNil(t, p.Lock)
	assert.Equal(t, EcosystemGo, p.Manifests[3].Ecosystem)
	assert.True(t, p.DeclaredPackages()["clsx"])
}

func TestLoadProject_Empty(t *testing.T) {
	p, err := LoadProject(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, p.Manifests)
	assert.Nil(t, p.Lock)
}

func TestLoadProject_Malformed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"react": 18}}`)
	_, err := LoadProject(context.Background(), root)
	assert.ErrorIs(t, err, ErrManifestParse)
}

func TestLoadVulnerabilities(t *testing.T) {
	dir := t.TempDir()
	base := len(DefaultVulnerabilities())

	table, err := LoadVulnerabilities(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Len(t, table, base)

	writeFile(t, dir, "vulns.yml", "vulnerabilities:\n  - package: left-pad\n    range: '<1.3.0'\n    advisory: INTERNAL-1\n")
	table, err = LoadVulnerabilities(filepath.Join(dir, "vulns.yml"))
	require.NoError(t, err)
	require.Len(t, table, base+1)
	assert.Equal(t, EcosystemNPM, table[base].Ecosystem)

	writeFile(t, dir, "bad.yml", "vulnerabilities:\n  - package: x\n    range: 'not a range'\n")
	_, err = LoadVulnerabilities(filepath.Join(dir, "bad.yml"))
	assert.ErrorIs(t, err, ErrInvalidVulnerability)
}
