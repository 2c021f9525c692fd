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
	"regexp"
	"strings"
	"testing"
)

func TestMask_PreservesLength(t *testing.T) {
	inputs := []string{
		"const a = 'x'; // comment\nconst b = \"y\";",
		"/* block\n comment */ let c = `tmpl ${a + b} end`;",
		"const re = /ab+c/g; const d = e / f;",
		"<p>Don't stop</p>\nconsole.log(1)",
	}
	for _, in := range inputs {
		out := Mask(in)
		if len(out) != len(in) {
			t.Errorf("Mask(%q) length = %d, want %d", in, len(out), len(in))
		}
		if strings.Count(out, "\n") != strings.Count(in, "\n") {
			t.Errorf("Mask(%q) changed line count", in)
		}
	}
}

func TestMask_BlanksCommentsAndLiterals(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		hidden string
		kept   string
	}{
		{"line comment", "x(); // console.log(1)", "console", "x();"},
		{"block comment", "/* console.log */ y();", "console", "y();"},
		{"single quote", "const s = 'console.log(1)';", "console", "const s ="},
		{"double quote", `const s = "debugger";`, "debugger", "const s ="},
		{"template body", "const s = `debugger ${fn()} tail`;", "debugger", "${fn()}"},
		{"regex literal", "const r = /console/;", "console", "const r ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Mask(tt.in)
			if strings.Contains(out, tt.hidden) {
				t.Errorf("Mask(%q) = %q, should hide %q", tt.in, out, tt.hidden)
			}
			if !strings.Contains(out, tt.kept) {
				t.Errorf("Mask(%q) = %q, should keep %q", tt.in, out, tt.kept)
			}
		})
	}
}

func TestMask_UnterminatedStringStopsAtNewline(t *testing.T) {
	in := "<p>Don't do this</p>\nconsole.log('r');"
	out := Mask(in)
	if !strings.Contains(out, "console.log(") {
		t.Errorf("code after JSX apostrophe was masked: %q", out)
	}
}

func TestMask_DivisionIsNotRegex(t *testing.T) {
	in := "const x = a / b; console.log(x) / 2;"
	out := Mask(in)
	if !strings.Contains(out, "console.log(x)") {
		t.Errorf("division treated as regex: %q", out)
	}
}

func TestScanImports(t *testing.T) {
	code := `import React, { useState } from 'react';
import type { Props } from "./types";
import './styles.css';
// import hidden from 'commented-out';
const lazy = import('lodash/debounce');
const fs = require("fs");
export { x } from '@scope/pkg/sub';
const s = "import fake from 'fake'";
import {
  a,
  b,
} from 'multi-line';
`
	fc := New("src/App.tsx", []byte(code), LanguageUnknown)

	var got []string
	for _, imp := range fc.Imports {
		got = append(got, string(imp.Kind)+":"+imp.Specifier)
	}
	want := []string{
		"static:react",
		"static:./types",
		"side-effect:./styles.css",
		"dynamic:lodash/debounce",
		"require:fs",
		"reexport:@scope/pkg/sub",
		"static:multi-line",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("imports = %v, want %v", got, want)
	}
	if !fc.Imports[1].TypeOnly {
		t.Error("type import should be TypeOnly")
	}
	if fc.Imports[0].Line != 1 || fc.Imports[3].Line != 5 {
		t.Errorf("lines = %d, %d; want 1, 5", fc.Imports[0].Line, fc.Imports[3].Line)
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"react", "react", true},
		{"react-dom/client", "react-dom", true},
		{"@tanstack/react-query", "@tanstack/react-query", true},
		{"@scope/pkg/deep/path", "@scope/pkg", true},
		{"./local", "", false},
		{"../up", "", false},
		{"/abs", "", false},
		{"@/components/Button", "", false},
		{"~/utils", "", false},
		{"#internal", "", false},
		{"node:fs", "", false},
		{"https://cdn.example.com/x.js", "", false},
		{"@scope", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := PackageName(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("PackageName(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDirectivePrologue(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{"single", "'use client';\nimport x from 'x';", []string{"use client"}},
		{"double quotes no semicolon", "\"use server\"\nexport async function a() {}", []string{"use server"}},
		{"after comment", "// header\n/* block */\n'use client'\n", []string{"use client"}},
		{"two directives", "'use strict'; 'use client';\n", []string{"use strict", "use client"}},
		{"not first statement", "import x from 'x';\n'use client';", nil},
		{"empty file", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := New("a.tsx", []byte(tt.code), LanguageUnknown)
			var got []string
			for _, d := range fc.Directives {
				got = append(got, d.Value)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("directives = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileContext_PositionAndLines(t *testing.T) {
	fc := New("a.ts", []byte("one\ntwo\r\nthree"), LanguageUnknown)

	if fc.LineCount() != 3 {
		t.Fatalf("LineCount = %d, want 3", fc.LineCount())
	}
	if got := fc.Line(2); got != "two" {
		t.Errorf("Line(2) = %q, want %q", got, "two")
	}
	line, col := fc.Position(strings.Index(fc.Content, "hree"))
	if line != 3 || col != 2 {
		t.Errorf("Position = (%d, %d), want (3, 2)", line, col)
	}
	if fc.Line(0) != "" || fc.Line(9) != "" {
		t.Error("out of range lines should be empty")
	}
}

func TestFileContext_FindCodeSkipsComments(t *testing.T) {
	fc := New("a.ts", []byte("// console.log(1)\nconsole.log(2);\nconst s = 'console.log(3)';"), LanguageUnknown)
	re := regexp.MustCompile(`console\.log\(`)

	code := fc.FindCode(re)
	if len(code) != 1 || code[0].Line != 2 {
		t.Fatalf("FindCode = %+v, want one match on line 2", code)
	}
	if raw := fc.FindRaw(re); len(raw) != 3 {
		t.Errorf("FindRaw found %d, want 3", len(raw))
	}
}

func TestFileContext_Basics(t *testing.T) {
	fc := New(`src\app\page.tsx`, []byte("import Image from 'next/image';"), LanguageUnknown)

	if fc.Path != "src/app/page.tsx" {
		t.Errorf("Path = %q", fc.Path)
	}
	if fc.Language != LanguageTSX {
		t.Errorf("Language = %q, want tsx", fc.Language)
	}
	if !fc.ImportsAny("next") {
		t.Error("ImportsAny(next) should match next/image")
	}
	if fc.ImportsAny("nextjs") {
		t.Error("ImportsAny(nextjs) should not match")
	}
	if len(fc.Hash) != 64 {
		t.Errorf("Hash length = %d, want 64", len(fc.Hash))
	}
	if HashContent([]byte("a")) == HashContent([]byte("b")) {
		t.Error("different content must hash differently")
	}
}

func TestParseLanguage(t *testing.T) {
	for _, name := range []string{"tsx", "TS", "javascript", "vue"} {
		if _, ok := ParseLanguage(name); !ok {
			t.Errorf("ParseLanguage(%q) not recognized", name)
		}
	}
	if _, ok := ParseLanguage("cobol"); ok {
		t.Error("ParseLanguage(cobol) should fail")
	}
	if LanguageTSX.Extension() != ".tsx" {
		t.Errorf("Extension = %q", LanguageTSX.Extension())
	}
}

func TestNew_ImportsFromSyntaxTree(t *testing.T) {
	// The comment inside the braces defeats the lexical pattern.
	code := "import {\n  a, // from 'not-this'\n  b,\n} from 'real';\nexport type { T } from './types';\nconst x = require('dep');\n"
	fc := New("src/a.ts", []byte(code), LanguageUnknown)

	if fc.Syntax() == nil || len(fc.Syntax().Errors) != 0 {
		t.Fatalf("syntax = %+v, want a clean parse", fc.Syntax())
	}
	var got []string
	for _, imp := range fc.Imports {
		got = append(got, string(imp.Kind)+":"+imp.Specifier)
	}
	want := "static:real,reexport:./types,require:dep"
	if strings.Join(got, ",") != want {
		t.Fatalf("imports = %v, want %s", got, want)
	}
	if fc.Imports[0].Line != 1 || fc.Imports[0].Column != 1 {
		t.Errorf("import position = %d:%d, want 1:1", fc.Imports[0].Line, fc.Imports[0].Column)
	}
	if fc.Imports[0].TypeOnly || !fc.Imports[1].TypeOnly {
		t.Errorf("TypeOnly = %v, %v; want false, true", fc.Imports[0].TypeOnly, fc.Imports[1].TypeOnly)
	}
	if fc.Imports[2].Line != 6 || fc.Imports[2].Column != 11 {
		t.Errorf("require position = %d:%d, want 6:11", fc.Imports[2].Line, fc.Imports[2].Column)
	}
}

func TestNew_BrokenTreeFallsBackToScanner(t *testing.T) {
	fc := New("src/a.ts", []byte("import a from 'a';\nfunction f( {\n"), LanguageUnknown)
	if fc.Syntax() == nil || len(fc.Syntax().Errors) == 0 {
		t.Fatal("expected syntax errors")
	}
	if len(fc.Imports) != 1 || fc.Imports[0].Specifier != "a" {
		t.Errorf("imports = %+v, want the lexical result", fc.Imports)
	}

	vue := New("src/A.vue", []byte("<script>\nimport x from 'x';\n</script>\n"), LanguageUnknown)
	if vue.Syntax() != nil {
		t.Error("vue has no grammar")
	}
	if len(vue.Imports) != 1 || vue.Imports[0].Specifier != "x" {
		t.Errorf("vue imports = %+v", vue.Imports)
	}
}
