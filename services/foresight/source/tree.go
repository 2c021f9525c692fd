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
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage is returned when no grammar exists for a language.
var ErrUnsupportedLanguage = errors.New("no tree-sitter grammar for language")

const (
	// maxSyntaxErrors caps how many error nodes one parse reports.
	maxSyntaxErrors = 20

	// maxTreeDepth bounds recursion on pathological inputs.
	maxTreeDepth = 1000
)

// SyntaxError is one ERROR or MISSING node found by tree-sitter.
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Missing bool   `json:"missing"`
}

// ParseResult holds what a tree-sitter parse yields for a file.
type ParseResult struct {
	Errors  []SyntaxError
	Imports []Import
}

// grammar returns the tree-sitter language for l, or nil.
func grammar(l Language) *sitter.Language {
	switch l {
	case LanguageTSX:
		return tsx.GetLanguage()
	case LanguageTypeScript:
		return typescript.GetLanguage()
	case LanguageJavaScript, LanguageJSX:
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// HasGrammar reports whether Parse supports l.
func HasGrammar(l Language) bool {
	return grammar(l) != nil
}

// Parse runs tree-sitter over fc and collects syntax errors and module
// references. New calls it for every file with a grammar; use
// FileContext.Syntax rather than parsing again.
//
// Description:
//
//	A fresh parser is created per call; sitter.Parser is not safe for
//	concurrent use. Error collection stops after maxSyntaxErrors nodes.
//
// Inputs:
//
//	ctx - Cancels a long parse.
//	fc - File to parse. Must have a language with a grammar.
//
// Outputs:
//
//	*ParseResult - Errors and imports in source order.
//	error - ErrUnsupportedLanguage or a parser failure.
func Parse(ctx context.Context, fc *FileContext) (*ParseResult, error) {
	lang := grammar(fc.Language)
	if lang == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, fc.Language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	content := []byte(fc.Content)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fc.Path, err)
	}
	defer tree.Close()

	result := &ParseResult{}
	walk(tree.RootNode(), content, result, 0)
	return result, nil
}

func walk(node *sitter.Node, content []byte, result *ParseResult, depth int) {
	if node == nil || depth > maxTreeDepth {
		return
	}

	if node.IsError() || node.IsMissing() {
		if len(result.Errors) < maxSyntaxErrors {
			result.Errors = append(result.Errors, syntaxErrorFor(node, content))
		}
	}

	switch node.Type() {
	case "import_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			kind := ImportStatic
			if node.NamedChildCount() == 1 {
				kind = ImportSideEffect
			}
			result.Imports = append(result.Imports, importFor(node, src, content, kind))
		}
	case "export_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			result.Imports = append(result.Imports, importFor(node, src, content, ImportReexport))
		}
	case "call_expression":
		if imp, ok := callImport(node, content); ok {
			result.Imports = append(result.Imports, imp)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), content, result, depth+1)
	}
}

func syntaxErrorFor(node *sitter.Node, content []byte) SyntaxError {
	p := node.StartPoint()
	se := SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Missing: node.IsMissing()}
	if se.Missing {
		se.Message = fmt.Sprintf("missing %q", node.Type())
		return se
	}
	snippet := strings.TrimSpace(node.Content(content))
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40] + "..."
	}
	se.Message = "unexpected syntax"
	if snippet != "" {
		se.Message = fmt.Sprintf("unexpected syntax near %q", snippet)
	}
	return se
}

// importFor positions the import at stmt, the statement or call, like the
// lexical scanner does.
func importFor(stmt, src *sitter.Node, content []byte, kind ImportKind) Import {
	p := stmt.StartPoint()
	return Import{
		Specifier: strings.Trim(src.Content(content), "'\"`"),
		Kind:      kind,
		Line:      int(p.Row) + 1,
		Column:    int(p.Column) + 1,
		TypeOnly:  typeOnly(stmt),
	}
}

// typeOnly reports import type / export type statements. The keyword is
// an anonymous child between the first token and the source.
func typeOnly(stmt *sitter.Node) bool {
	for i := 1; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		if c.IsNamed() {
			return false
		}
		if c.Type() == "type" {
			return true
		}
	}
	return false
}

// callImport recognizes require('x') and import('x').
func callImport(node *sitter.Node, content []byte) (Import, bool) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return Import{}, false
	}

	var kind ImportKind
	switch {
	case fn.Type() == "import":
		kind = ImportDynamic
	case fn.Type() == "identifier" && fn.Content(content) == "require":
		kind = ImportRequire
	default:
		return Import{}, false
	}

	arg := args.NamedChild(0)
	if arg == nil || arg.Type() != "string" {
		return Import{}, false
	}
	return importFor(node, arg, content, kind), true
}
