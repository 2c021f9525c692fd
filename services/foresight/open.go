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
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/foresight/services/foresight/cache"
	"github.com/AleutianAI/foresight/services/foresight/config"
	"github.com/AleutianAI/foresight/services/foresight/deps"
	"github.com/AleutianAI/foresight/services/foresight/rules"
	"github.com/AleutianAI/foresight/services/foresight/storage"
)

// Open builds a Service from configuration for a project root.
//
// Description:
//
//	Registers the built-in rules followed by any custom rules file, so
//	a custom rule with a built-in ID replaces it. Loads the extra
//	vulnerability table when configured. When the persistent cache is
//	enabled, opens a BadgerDB under the cache directory as the warm
//	tier behind the in-memory LRU. Relative rule and vulnerability paths
//	resolve against root.
//
// Inputs:
//
//	cfg - Effective configuration. Nil means config.Default().
//	root - Project root for relative paths, or "".
//	logger - Service logger. Nil means slog.Default().
//
// Outputs:
//
//	*Service - Call Close when done to release the persistent cache.
//	error - Custom rule, vulnerability table or cache open failures.
func Open(cfg *config.Config, root string, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := rules.NewRegistry()
	registry.MustRegister(rules.Builtins()...)
	if cfg.CustomRules != "" {
		path := resolvePath(root, cfg.CustomRules)
		custom, err := rules.LoadCustomRules(path)
		if err != nil {
			return nil, fmt.Errorf("loading custom rules %s: %w", path, err)
		}
		for _, r := range custom {
			if err := registry.Register(r); err != nil {
				return nil, fmt.Errorf("registering custom rule %s: %w", r.ID, err)
			}
		}
		if len(custom) > 0 {
			logger.Info("custom rules loaded", slog.String("file", path), slog.Int("count", len(custom)))
		}
	}

	vulns, err := deps.LoadVulnerabilities(resolvePath(root, cfg.Vulnerabilities))
	if err != nil {
		return nil, fmt.Errorf("loading vulnerability table: %w", err)
	}

	opts := []Option{
		WithLogger(logger),
		WithRegistry(registry),
		WithVulnerabilities(vulns),
	}

	tierOpts := []cache.TieredOption{cache.WithLogger(logger)}
	if cfg.Cache.Persistent {
		dbCfg := storage.DefaultConfig(cfg.CacheDir())
		dbCfg.Logger = logger
		db, err := storage.Open(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("opening persistent cache: %w", err)
		}
		tierOpts = append(tierOpts, cache.WithWarm(cache.NewBadger(db,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithBadgerLogger(logger),
		)))
		opts = append(opts, WithCloser(db.Close))
		logger.Debug("persistent cache opened", slog.String("dir", db.Path()))
	}
	opts = append(opts, WithCache(cache.NewTiered(cfg.Cache.MemoryEntries, tierOpts...)))

	return NewService(cfg, opts...), nil
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}
