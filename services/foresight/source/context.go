// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source builds the lexical view of a file that rules and
// prediction patterns operate on.
//
// A FileContext carries the raw text, a masked copy with comments and
// literals blanked out, the import list, the directive prologue and a
// line index. It is built once per file and is read-only afterwards, so
// it is safe to share across goroutines.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// FileContext is the immutable per-file input to rules and predictors.
type FileContext struct {
	// Path is the project-relative path using forward slashes.
	Path string

	// Content is the raw file text.
	Content string

	// Masked is Content with comments and literal bodies blanked.
	Masked string

	// Language is the detected or caller-supplied dialect.
	Language Language

	// Hash is the hex SHA-256 of Content.
	Hash string

	// Imports lists module references in source order.
	Imports []Import

	// Directives is the leading directive prologue.
	Directives []Directive

	syntax     *ParseResult
	lineStarts []int
}

// New builds a FileContext.
//
// Description:
//
//	Detects the language from path when lang is LanguageUnknown, masks
//	the content, indexes line starts, extracts imports and reads the
//	directive prologue. Path separators are normalized to '/'.
//
//	Languages with a tree-sitter grammar are parsed here once. Their
//	imports come from the syntax tree unless it contains errors, in
//	which case the lexical scanner is used as for Vue and Svelte files.
//
// Inputs:
//
//	path - File path, used for reporting and language detection.
//	content - Raw file bytes.
//	lang - Explicit language or LanguageUnknown.
//
// Outputs:
//
//	*FileContext - Never nil.
func New(path string, content []byte, lang Language) *FileContext {
	path = strings.ReplaceAll(path, "\\", "/")
	if lang == LanguageUnknown {
		lang = DetectLanguage(path)
	}
	text := string(content)

	fc := &FileContext{
		Path:     path,
		Content:  text,
		Masked:   Mask(text),
		Language: lang,
		Hash:     HashContent(content),
	}
	fc.lineStarts = indexLines(text)
	if HasGrammar(lang) {
		if parsed, err := Parse(context.Background(), fc); err == nil {
			fc.syntax = parsed
			if len(parsed.Errors) == 0 {
				fc.Imports = parsed.Imports
			}
		}
	}
	if fc.Imports == nil {
		fc.Imports = scanImports(fc.Content, fc.Masked, fc.Position)
	}
	fc.Directives = scanPrologue(fc.Content, fc.Masked, fc.Position)
	return fc
}

// Syntax returns the tree-sitter parse made by New, or nil when the
// language has no grammar.
func (fc *FileContext) Syntax() *ParseResult {
	return fc.syntax
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func indexLines(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Position converts a byte offset to a 1-based line and column.
func (fc *FileContext) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	idx := sort.Search(len(fc.lineStarts), func(i int) bool {
		return fc.lineStarts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - fc.lineStarts[idx] + 1
}

// LineCount returns the number of lines in the file.
func (fc *FileContext) LineCount() int {
	return len(fc.lineStarts)
}

// Line returns the raw text of 1-based line n without its newline.
func (fc *FileContext) Line(n int) string {
	return fc.lineOf(fc.Content, n)
}

// MaskedLine returns the masked text of 1-based line n.
func (fc *FileContext) MaskedLine(n int) string {
	return fc.lineOf(fc.Masked, n)
}

func (fc *FileContext) lineOf(text string, n int) string {
	if n < 1 || n > len(fc.lineStarts) {
		return ""
	}
	start := fc.lineStarts[n-1]
	end := len(text)
	if n < len(fc.lineStarts) {
		end = fc.lineStarts[n] - 1
	}
	return strings.TrimSuffix(text[start:end], "\r")
}

// HasDirective reports whether value appears in the directive prologue.
func (fc *FileContext) HasDirective(value string) bool {
	for _, d := range fc.Directives {
		if d.Value == value {
			return true
		}
	}
	return false
}

// ImportsAny reports whether any import resolves to one of packages or a
// subpath of one ("next" matches "next/image").
func (fc *FileContext) ImportsAny(packages ...string) bool {
	for _, imp := range fc.Imports {
		for _, p := range packages {
			if imp.Specifier == p || strings.HasPrefix(imp.Specifier, p+"/") {
				return true
			}
		}
	}
	return false
}

// Match is one regular-expression hit with its position.
type Match struct {
	Offset int
	Line   int
	Column int
	// Text is the raw (unmasked) matched text.
	Text string
	// Groups holds raw submatch text; empty for unmatched groups.
	Groups []string
}

// FindCode matches re against the masked text, so hits inside comments
// and string literals are excluded. Returned text comes from the raw file.
func (fc *FileContext) FindCode(re *regexp.Regexp) []Match {
	return fc.find(re, fc.Masked)
}

// FindRaw matches re against the raw text.
func (fc *FileContext) FindRaw(re *regexp.Regexp) []Match {
	return fc.find(re, fc.Content)
}

func (fc *FileContext) find(re *regexp.Regexp, haystack string) []Match {
	var matches []Match
	for _, loc := range re.FindAllStringSubmatchIndex(haystack, -1) {
		line, col := fc.Position(loc[0])
		m := Match{Offset: loc[0], Line: line, Column: col, Text: fc.Content[loc[0]:loc[1]]}
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] < 0 {
				m.Groups = append(m.Groups, "")
				continue
			}
			m.Groups = append(m.Groups, fc.Content[loc[g]:loc[g+1]])
		}
		matches = append(matches, m)
	}
	return matches
}

// InCode reports whether offset lies in code rather than in a comment or
// literal body.
func (fc *FileContext) InCode(offset int) bool {
	if offset < 0 || offset >= len(fc.Masked) {
		return false
	}
	return fc.Masked[offset] == fc.Content[offset] || isSpace(fc.Content[offset])
}
