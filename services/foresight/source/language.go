// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"path/filepath"
	"strings"
)

// Language identifies the source dialect of a file.
type Language string

const (
	LanguageUnknown    Language = ""
	LanguageJavaScript Language = "javascript"
	LanguageJSX        Language = "jsx"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
	LanguageVue        Language = "vue"
	LanguageSvelte     Language = "svelte"
	LanguageAstro      Language = "astro"
)

// extensionLanguages maps lowercase extensions to languages.
var extensionLanguages = map[string]Language{
	".js":     LanguageJavaScript,
	".mjs":    LanguageJavaScript,
	".cjs":    LanguageJavaScript,
	".jsx":    LanguageJSX,
	".ts":     LanguageTypeScript,
	".mts":    LanguageTypeScript,
	".cts":    LanguageTypeScript,
	".tsx":    LanguageTSX,
	".vue":    LanguageVue,
	".svelte": LanguageSvelte,
	".astro":  LanguageAstro,
}

// languageAliases accepts the short names callers pass for snippets.
var languageAliases = map[string]Language{
	"js":         LanguageJavaScript,
	"javascript": LanguageJavaScript,
	"jsx":        LanguageJSX,
	"ts":         LanguageTypeScript,
	"typescript": LanguageTypeScript,
	"tsx":        LanguageTSX,
	"vue":        LanguageVue,
	"svelte":     LanguageSvelte,
	"astro":      LanguageAstro,
}

// DetectLanguage returns the language implied by path's extension, or
// LanguageUnknown.
func DetectLanguage(path string) Language {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// ParseLanguage resolves a user-supplied language name or alias.
func ParseLanguage(name string) (Language, bool) {
	lang, ok := languageAliases[strings.ToLower(strings.TrimSpace(name))]
	return lang, ok
}

// Extension returns the canonical file extension for l, used to synthesize
// snippet file names.
func (l Language) Extension() string {
	switch l {
	case LanguageJavaScript:
		return ".js"
	case LanguageJSX:
		return ".jsx"
	case LanguageTypeScript:
		return ".ts"
	case LanguageTSX:
		return ".tsx"
	case LanguageVue:
		return ".vue"
	case LanguageSvelte:
		return ".svelte"
	case LanguageAstro:
		return ".astro"
	default:
		return ""
	}
}

// SupportsJSX reports whether l may contain JSX markup.
func (l Language) SupportsJSX() bool {
	return l == LanguageJSX || l == LanguageTSX || l == LanguageJavaScript
}

// IsComponentTemplate reports whether l is a single-file-component format
// whose script lives inside a <script> block.
func (l Language) IsComponentTemplate() bool {
	return l == LanguageVue || l == LanguageSvelte || l == LanguageAstro
}

// AnalyzableExtensions lists the default extensions picked up by discovery.
func AnalyzableExtensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".vue", ".svelte", ".astro"}
}
