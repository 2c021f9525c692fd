// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestProject creates a temporary project tree for testing.
func setupTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"package.json":                     `{"name":"app"}`,
		"src/App.tsx":                      "export default function App() { return <div/> }\n",
		"src/main.ts":                      "import App from './App'\n",
		"src/components/Card.vue":          "<template><div/></template>\n",
		"src/routes/+page.svelte":          "<h1>hi</h1>\n",
		"src/types.d.ts":                   "declare const x: number\n",
		"public/vendor.min.js":             "!function(){}()\n",
		"README.md":                        "# app\n",
		"node_modules/react/index.js":      "module.exports = {}\n",
		"dist/bundle.js":                   "console.log(1)\n",
		"packages/ui/.next/server/page.js": "x\n",
		"packages/ui/src/Button.jsx":       "export const Button = () => null\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestNewFS_InvalidRoot(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidRoot)

	file := filepath.Join(t.TempDir(), "file.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewFS(file)
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestFS_List(t *testing.T) {
	root := setupTestProject(t)
	fsys, err := NewFS(root)
	require.NoError(t, err)

	listing, err := fsys.List(context.Background())
	require.NoError(t, err)
	assert.False(t, listing.Incomplete)
	assert.Equal(t, []string{
		"packages/ui/src/Button.jsx",
		"src/App.tsx",
		"src/components/Card.vue",
		"src/main.ts",
		"src/routes/+page.svelte",
	}, listing.Files)
}

func TestFS_ListCustomGlobs(t *testing.T) {
	root := setupTestProject(t)
	fsys, err := NewFS(root, WithIncludes("src/**/*.ts", "src/**/*.tsx"), WithExcludes("**/App.tsx"))
	require.NoError(t, err)

	listing, err := fsys.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.ts"}, listing.Files)
}

func TestFS_ListSkipsLargeFiles(t *testing.T) {
	root := setupTestProject(t)
	big := filepath.Join(root, "src", "big.ts")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 200)), 0o644))

	fsys, err := NewFS(root, WithMaxFileSize(100))
	require.NoError(t, err)
	listing, err := fsys.List(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, listing.Files, "src/big.ts")
	require.Len(t, listing.Skipped, 1)
	assert.Equal(t, "src/big.ts", listing.Skipped[0].Path)
	assert.ErrorIs(t, listing.Skipped[0], ErrFileTooLarge)
}

func TestFS_ListCancelled(t *testing.T) {
	root := setupTestProject(t)
	fsys, err := NewFS(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	listing, err := fsys.List(ctx)
	require.NoError(t, err)
	assert.True(t, listing.Incomplete)
	assert.Empty(t, listing.Files)
}

func TestFS_Symlinks(t *testing.T) {
	root := setupTestProject(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.ts"), []byte("x"), 0o644))

	if err := os.Symlink(outside, filepath.Join(root, "src", "escape")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "src", "components"), filepath.Join(root, "linked")))

	t.Run("skipped by default", func(t *testing.T) {
		fsys, err := NewFS(root)
		require.NoError(t, err)
		listing, err := fsys.List(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, listing.Files, "linked/Card.vue")
		assert.NotContains(t, listing.Files, "src/escape/secret.ts")
	})

	t.Run("followed inside root", func(t *testing.T) {
		fsys, err := NewFS(root, WithFollowSymlinks(true))
		require.NoError(t, err)
		listing, err := fsys.List(context.Background())
		require.NoError(t, err)
		assert.Contains(t, listing.Files, "linked/Card.vue")
		assert.NotContains(t, listing.Files, "src/escape/secret.ts")

		var traversal bool
		for _, s := range listing.Skipped {
			if s.Path == "src/escape" {
				traversal = assert.ErrorIs(t, s, ErrPathTraversal)
			}
		}
		assert.True(t, traversal)
	})
}

func TestFS_Read(t *testing.T) {
	root := setupTestProject(t)
	fsys, err := NewFS(root)
	require.NoError(t, err)

	f, err := fsys.Read(context.Background(), "src/main.ts")
	require.NoError(t, err)
	assert.Equal(t, "src/main.ts", f.Path)
	assert.Equal(t, "import App from './App'\n", string(f.Content))
	assert.Len(t, f.Hash, 64)

	abs, err := fsys.Read(context.Background(), filepath.Join(fsys.Root(), "src", "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, f, abs)

	_, err = fsys.Read(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = fsys.Read(context.Background(), "src/nope.ts")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFS_RelAndMatches(t *testing.T) {
	root := setupTestProject(t)
	fsys, err := NewFS(root)
	require.NoError(t, err)

	rel, err := fsys.Rel(filepath.Join(fsys.Root(), "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "src/App.tsx", rel)

	assert.True(t, fsys.Matches("src/App.tsx"))
	assert.False(t, fsys.Matches("node_modules/x/index.js"))
	assert.False(t, fsys.Matches("README.md"))
}

func TestMemory(t *testing.T) {
	m := NewMemory("mem", map[string]string{
		"src/b.ts": "b",
		"src/a.ts": "a",
	})
	listing, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts", "src/b.ts"}, listing.Files)

	f, err := m.Read(context.Background(), "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "a", string(f.Content))

	f.Content[0] = 'z'
	again, err := m.Read(context.Background(), "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "a", string(again.Content))

	_, err = m.Read(context.Background(), "src/c.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}
