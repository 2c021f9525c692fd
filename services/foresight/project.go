// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package foresight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/AleutianAI/foresight/services/foresight/deps"
)

// envFiles are read, in order, for the variable names a project defines.
var envFiles = []string{
	".env",
	".env.local",
	".env.development",
	".env.development.local",
	".env.production",
	".env.production.local",
}

// loadProjectContext reads manifests and .env files under run.root.
//
// A manifest that fails to load leaves run.packages nil, which turns off
// the predictions that depend on declared packages, and records the
// error so the report can note the skipped dependency analysis.
func (s *Service) loadProjectContext(ctx context.Context, run *projectRun) {
	project, err := deps.LoadProject(ctx, run.root)
	switch {
	case err != nil && ctx.Err() != nil:
	case err != nil:
		run.depsErr = err
		s.logger.Warn("manifest load failed",
			slog.String("root", run.root),
			slog.String("error", err.Error()))
	default:
		run.project = project
		if len(project.Manifests) > 0 {
			run.packages = project.DeclaredPackages()
		}
	}
	run.envKeys = readEnvKeys(run.root, s.logger)
}

// readEnvKeys returns the variable names defined across envFiles, or nil
// when the project has none of them.
func readEnvKeys(root string, logger *slog.Logger) map[string]bool {
	var keys map[string]bool
	for _, name := range envFiles {
		vars, err := godotenv.Read(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			logger.Debug("env file unreadable", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		if keys == nil {
			keys = make(map[string]bool)
		}
		for k := range vars {
			keys[k] = true
		}
	}
	return keys
}

// isProjectFile reports whether a change to rel invalidates project
// context rather than a single file's results.
func isProjectFile(rel string) bool {
	base := filepath.Base(rel)
	switch base {
	case deps.PackageJSONFile, deps.LockfileName, deps.GoModFile:
		return true
	}
	for _, name := range envFiles {
		if rel == name {
			return true
		}
	}
	return false
}

// runVersion digests everything besides file content that shapes a
// cached entry: the rule-set version, the selected rules, the framework
// override, and the prediction inputs.
func runVersion(run *projectRun, minProbability float64) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}

	write("rules", run.ruleSet.Version())
	for _, r := range run.selected {
		write(r.ID)
	}
	write("framework", string(run.explicit))
	write("predict", strconv.FormatBool(run.opts.PredictErrors))
	if run.opts.PredictErrors {
		write("min", strconv.FormatFloat(minProbability, 'f', -1, 64))
		writeSet := func(label string, set map[string]bool) {
			if set == nil {
				write(label, "unknown")
				return
			}
			write(label, strconv.Itoa(len(set)))
			write(sortedSet(set)...)
		}
		writeSet("packages", run.packages)
		writeSet("files", run.all)
		writeSet("env", run.envKeys)
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
