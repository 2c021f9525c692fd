// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/predict"
	"github.com/AleutianAI/foresight/services/foresight/report"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

// Printer renders analysis output at a fixed Level.
type Printer struct {
	w     io.Writer
	level Level
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, level Level) *Printer {
	return &Printer{w: w, level: level}
}

// Level returns the printer's level.
func (p *Printer) Level() Level { return p.level }

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.level != LevelFull {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	if p.level != LevelFull {
		return string(i)
	}
	return i.Render()
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// =============================================================================
// MESSAGES
// =============================================================================

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.level == LevelMachine {
		p.printf("OK: %s\n", text)
		return
	}
	p.printf("%s %s\n", p.icon(IconSuccess), p.style(Styles.Success, text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.level == LevelMachine {
		p.printf("WARN: %s\n", text)
		return
	}
	p.printf("%s %s\n", p.icon(IconWarning), p.style(Styles.Warning, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.level == LevelMachine {
		p.printf("ERROR: %s\n", text)
		return
	}
	p.printf("%s %s\n", p.icon(IconError), p.style(Styles.Error, text))
}

// =============================================================================
// REPORTS
// =============================================================================

// Report renders a full project report.
func (p *Printer) Report(rep *report.Report) {
	if p.level != LevelMachine {
		title := "Foresight report"
		if rep.Root != "" {
			title += " " + p.style(Styles.Muted, rep.Root)
		}
		p.printf("%s\n\n", p.style(Styles.Title, title))
	}

	p.Results(rep.Results)
	p.Predictions(rep.Predictions)
	p.DependencyIssues(rep.DependencyIssues)
	p.Summary(rep)
}

// Results renders rule findings grouped by file, in the given order.
func (p *Printer) Results(results []rules.Result) {
	if p.level == LevelMachine {
		for _, r := range results {
			p.printf("result\t%s\t%s\t%s\t%s\n", r.Severity, position(r.File, r.Line, r.Column), r.RuleID, r.Message)
		}
		return
	}

	byFile := make(map[string][]rules.Result)
	var order []string
	for _, r := range results {
		if _, ok := byFile[r.File]; !ok {
			order = append(order, r.File)
		}
		byFile[r.File] = append(byFile[r.File], r)
	}

	for _, file := range order {
		name := file
		if name == "" {
			name = "(project)"
		}
		p.printf("%s\n", p.style(Styles.File, name))
		for _, r := range byFile[file] {
			sev := r.Severity.String()
			loc := ""
			if r.Line > 0 {
				loc = fmt.Sprintf("%d:%d", r.Line, r.Column)
			}
			p.printf("  %s %-7s %s  %s\n",
				p.icon(SeverityIcon(sev)),
				p.style(Styles.Muted, loc),
				p.style(SeverityStyle(sev), r.Message),
				p.style(Styles.Muted, r.RuleID))
			if r.Suggestion != "" {
				p.printf("            %s %s\n", p.icon(IconArrow), p.style(Styles.Muted, r.Suggestion))
			}
		}
		p.printf("\n")
	}
}

// Predictions renders predicted runtime errors.
func (p *Printer) Predictions(preds []predict.PredictedError) {
	if len(preds) == 0 {
		return
	}
	if p.level == LevelMachine {
		for _, e := range preds {
			p.printf("prediction\t%s\t%.2f\t%s\t%s\n", e.ErrorType, e.Probability, position(e.File, e.Line, 0), e.Message)
		}
		return
	}

	p.printf("%s\n", p.style(Styles.Subtitle, "Predicted errors"))
	for _, e := range preds {
		p.printf("  %s %3.0f%% %s %s\n",
			p.icon(IconBullet),
			e.Probability*100,
			p.style(Styles.Bold, string(e.ErrorType)),
			p.style(Styles.Muted, position(e.File, e.Line, 0)))
		p.printf("       %s\n", e.Message)
		if e.PreventionSuggestion != "" {
			p.printf("       %s %s\n", p.icon(IconArrow), p.style(Styles.Muted, e.PreventionSuggestion))
		}
	}
	p.printf("\n")
}

// DependencyIssues renders dependency findings.
func (p *Printer) DependencyIssues(issues []deps.Issue) {
	if len(issues) == 0 {
		return
	}
	if p.level == LevelMachine {
		for _, i := range issues {
			p.printf("dependency\t%s\t%s\t%s\t%s\n", i.Severity, i.Kind, i.Package, i.Detail)
		}
		return
	}

	p.printf("%s\n", p.style(Styles.Subtitle, "Dependencies"))
	for _, i := range issues {
		sev := i.Severity.String()
		p.printf("  %s %s %s\n", p.icon(SeverityIcon(sev)), p.style(Styles.Bold, i.Package), p.style(Styles.Muted, string(i.Kind)))
		p.printf("     %s\n", p.style(SeverityStyle(sev), i.Detail))
	}
	p.printf("\n")
}

// Summary renders the count line and any partial or degraded notes.
func (p *Printer) Summary(rep *report.Report) {
	s := rep.Summary
	if p.level == LevelMachine {
		p.printf("summary\terrors=%d\twarnings=%d\tinfo=%d\ttotal=%d\tshown=%d\tpredictions=%d\tdependency_issues=%d\tfiles=%d\tcached=%d\tfailed=%d\tpartial=%t\n",
			s.Errors, s.Warnings, s.Info, s.TotalResults, len(rep.Results), s.Predictions, s.DependencyIssues,
			s.FilesAnalyzed+s.FilesFromCache, s.FilesFromCache, s.FilesFailed, rep.Partial)
		for _, note := range s.Degraded {
			p.printf("degraded\t%s\n", note)
		}
		return
	}

	parts := []string{
		p.style(Styles.Error, fmt.Sprintf("%d errors", s.Errors)),
		p.style(Styles.Warning, fmt.Sprintf("%d warnings", s.Warnings)),
		p.style(Styles.Info, fmt.Sprintf("%d info", s.Info)),
		p.style(Styles.Muted, fmt.Sprintf("%d files (%d cached, %d failed) in %dms",
			s.FilesAnalyzed+s.FilesFromCache, s.FilesFromCache, s.FilesFailed, rep.DurationMs)),
	}
	p.printf("%s\n", strings.Join(parts, "  "))

	if s.Truncated {
		p.Warning(fmt.Sprintf("showing %d of %d results", len(rep.Results), s.TotalResults))
	}
	if rep.Partial {
		p.Warning("analysis was cancelled; the report is partial")
	}
	for _, note := range s.Degraded {
		p.Warning(note)
	}
	if s.Errors == 0 && s.Warnings == 0 && len(rep.DependencyIssues) == 0 && !rep.Partial {
		p.Success("no issues found")
	}
}

// Rules renders a rule listing.
func (p *Printer) Rules(list []rules.Info, version string) {
	if p.level == LevelMachine {
		for _, r := range list {
			p.printf("rule\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Category, joinTags(r), r.Description)
		}
		return
	}
	p.printf("%s %s\n\n", p.style(Styles.Title, "Rules"), p.style(Styles.Muted, "version "+version))
	for _, r := range list {
		sev := r.Severity.String()
		p.printf("  %s %-32s %s\n", p.icon(SeverityIcon(sev)), p.style(Styles.Bold, r.ID), r.Description)
		p.printf("    %s\n", p.style(Styles.Muted, fmt.Sprintf("%s, %s", r.Category, joinTags(r))))
	}
}

func joinTags(r rules.Info) string {
	if len(r.AppliesTo) == 0 {
		return "all"
	}
	tags := make([]string, len(r.AppliesTo))
	for i, t := range r.AppliesTo {
		tags[i] = string(t)
	}
	return strings.Join(tags, ",")
}

func position(file string, line, col int) string {
	switch {
	case line <= 0:
		return file
	case col <= 0:
		return fmt.Sprintf("%s:%d", file, line)
	default:
		return fmt.Sprintf("%s:%d:%d", file, line, col)
	}
}
