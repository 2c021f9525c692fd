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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/AleutianAI/foresight/services/foresight/source"
)

// Defaults for FS.
const (
	DefaultMaxFileSize = 2 << 20
	DefaultMaxRetries  = 3
)

// File is one read source file.
type File struct {
	// Path is project-relative with forward slashes.
	Path    string
	Content []byte
	Hash    string
}

// ScanError records a non-fatal problem with one path.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e ScanError) Unwrap() error { return e.Err }

// Listing is the result of List.
type Listing struct {
	Root string

	// Files holds sorted project-relative paths.
	Files []string

	// Skipped holds paths that matched but could not be listed.
	Skipped []ScanError

	// Incomplete is set when the walk was cancelled.
	Incomplete bool
}

// Source lists analyzable paths and reads them.
type Source interface {
	// Root identifies the project.
	Root() string

	// List returns every analyzable path. Cancellation yields a partial
	// Listing with Incomplete set and a nil error.
	List(ctx context.Context) (*Listing, error)

	// Read returns the content and hash of one listed path.
	Read(ctx context.Context, path string) (File, error)
}

// Option configures an FS.
type Option func(*FS)

// WithIncludes replaces the include globs.
func WithIncludes(patterns ...string) Option {
	return func(f *FS) {
		if len(patterns) > 0 {
			f.matcher = NewGlobMatcher(patterns, f.matcher.excludes)
		}
	}
}

// WithExcludes adds exclude globs to the defaults.
func WithExcludes(patterns ...string) Option {
	return func(f *FS) {
		f.matcher = NewGlobMatcher(f.matcher.includes, append(append([]string(nil), f.matcher.excludes...), patterns...))
	}
}

// WithMaxFileSize sets the largest file that will be read.
func WithMaxFileSize(bytes int64) Option {
	return func(f *FS) { f.maxFileSize = bytes }
}

// WithFollowSymlinks enables following symlinks that stay inside root.
func WithFollowSymlinks(follow bool) Option {
	return func(f *FS) { f.followSymlinks = follow }
}

// FS is a Source backed by a directory tree.
type FS struct {
	root           string
	matcher        *GlobMatcher
	maxFileSize    int64
	followSymlinks bool
	maxRetries     int
}

// NewFS validates root and creates an FS.
//
// Outputs:
//
//	*FS - The source.
//	error - Wraps ErrInvalidRoot if root is missing or not a directory.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	f := &FS{
		root:        abs,
		matcher:     NewGlobMatcher(DefaultIncludes(), DefaultExcludes()),
		maxFileSize: DefaultMaxFileSize,
		maxRetries:  DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute project root.
func (f *FS) Root() string { return f.root }

// Matches reports whether a project-relative path would be listed.
func (f *FS) Matches(rel string) bool {
	return f.matcher.Match(filepath.ToSlash(rel))
}

// ExcludedDir reports whether a project-relative directory is skipped.
func (f *FS) ExcludedDir(rel string) bool {
	return f.matcher.Excluded(filepath.ToSlash(rel))
}

// Rel converts an absolute or root-relative path to the slash-separated
// project-relative form, rejecting paths outside root.
func (f *FS) Rel(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(f.root, p)
	}
	rel, err := filepath.Rel(f.root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, p)
	}
	return filepath.ToSlash(rel), nil
}

// inodeKey uniquely identifies a file for cycle detection.
type inodeKey struct {
	dev uint64
	ino uint64
}

func getInodeKey(info os.FileInfo) inodeKey {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return inodeKey{dev: uint64(stat.Dev), ino: stat.Ino}
	}
	return inodeKey{}
}

// List walks the tree.
//
// Description:
//
//	Excluded directories are not entered. Symlinks are skipped unless
//	following is enabled, and then only when the target stays inside
//	root. Files over the size limit are recorded in Skipped rather than
//	listed. Cancellation stops the walk and marks the Listing incomplete.
func (f *FS) List(ctx context.Context) (*Listing, error) {
	listing := &Listing{Root: f.root}
	visited := make(map[inodeKey]bool)
	if err := f.walk(ctx, f.root, listing, visited); err != nil {
		if ctx.Err() != nil {
			listing.Incomplete = true
			sort.Strings(listing.Files)
			return listing, nil
		}
		return nil, err
	}
	sort.Strings(listing.Files)
	return listing, nil
}

func (f *FS) walk(ctx context.Context, dir string, listing *Listing, visited map[inodeKey]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		rel, _ := f.Rel(dir)
		listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: err})
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := filepath.Join(dir, entry.Name())
		rel, err := f.Rel(p)
		if err != nil {
			continue
		}

		info, err := os.Lstat(p)
		if err != nil {
			listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: err})
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !f.followSymlinks {
				continue
			}
			target, err := filepath.EvalSymlinks(p)
			if err != nil {
				listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: err})
				continue
			}
			if _, err := f.Rel(target); err != nil {
				listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: err})
				continue
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: err})
				continue
			}
			key := getInodeKey(targetInfo)
			if visited[key] {
				listing.Skipped = append(listing.Skipped, ScanError{Path: rel, Err: fmt.Errorf("%w: %s", ErrSymlinkCycle, target)})
				continue
			}
			visited[key] = true
			info = targetInfo
			p = target
		}

		if info.IsDir() {
			if f.matcher.Excluded(rel) {
				continue
			}
			if err := f.walk(ctx, p, listing, visited); err != nil {
				return err
			}
			continue
		}

		if !f.matcher.Match(rel) {
			continue
		}
		if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
			listing.Skipped = append(listing.Skipped, ScanError{
				Path: rel,
				Err:  fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size()),
			})
			continue
		}
		listing.Files = append(listing.Files, rel)
	}
	return nil
}

// Read reads a project-relative path.
//
// Description:
//
//	The file is stat'ed before and after reading; if size or
//	modification time moved, the read is retried up to the retry limit
//	and then fails with ErrFileUnstable.
func (f *FS) Read(ctx context.Context, rel string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	clean, err := f.Rel(rel)
	if err != nil {
		return File{}, err
	}
	abs := filepath.Join(f.root, filepath.FromSlash(clean))

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		before, err := os.Stat(abs)
		if err != nil {
			return File{}, err
		}
		if f.maxFileSize > 0 && before.Size() > f.maxFileSize {
			return File{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, before.Size())
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			return File{}, err
		}
		after, err := os.Stat(abs)
		if err != nil {
			return File{}, err
		}
		if before.Size() == after.Size() && before.ModTime().Equal(after.ModTime()) && int64(len(content)) == after.Size() {
			return File{Path: clean, Content: content, Hash: source.HashContent(content)}, nil
		}
	}
	return File{}, fmt.Errorf("%w: %s", ErrFileUnstable, clean)
}

// Memory is a Source over an in-memory file set.
type Memory struct {
	root  string
	files map[string][]byte
}

// NewMemory creates a Memory source. Paths are normalized to forward
// slashes.
func NewMemory(root string, files map[string]string) *Memory {
	m := &Memory{root: root, files: make(map[string][]byte, len(files))}
	for p, content := range files {
		m.files[filepath.ToSlash(p)] = []byte(content)
	}
	return m
}

// Root returns the root given to NewMemory.
func (m *Memory) Root() string { return m.root }

// List returns every path in sorted order.
func (m *Memory) List(ctx context.Context) (*Listing, error) {
	listing := &Listing{Root: m.root}
	for p := range m.files {
		listing.Files = append(listing.Files, p)
	}
	sort.Strings(listing.Files)
	if ctx.Err() != nil {
		listing.Incomplete = true
	}
	return listing, nil
}

// Read returns a copy of the stored content.
func (m *Memory) Read(ctx context.Context, p string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	content, ok := m.files[p]
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	content = bytes.Clone(content)
	return File{Path: p, Content: content, Hash: source.HashContent(content)}, nil
}
