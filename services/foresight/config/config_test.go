// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.MaxIssues)
	assert.True(t, cfg.StrictMode)
	assert.True(t, cfg.PredictErrors)
	assert.True(t, cfg.AnalyzeDependencies)
	assert.Equal(t, 150*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 168*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoProjectFiles(t *testing.T) {
	cfg, err := Load(t.TempDir(), WithLookupEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ProjectFileOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(`
max_issues: 50
strict_mode: false
discovery:
  exclude: ["**/generated/**"]
cache:
  persistent: true
  dir: /tmp/foresight-cache
`), 0o644))

	cfg, err := Load(root, WithLookupEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxIssues)
	assert.False(t, cfg.StrictMode)
	assert.True(t, cfg.PredictErrors, "untouched keys keep defaults")
	assert.Equal(t, []string{"**/generated/**"}, cfg.Discovery.Exclude)
	assert.True(t, cfg.Cache.Persistent)
	assert.Equal(t, "/tmp/foresight-cache", cfg.CacheDir())
}

func TestLoad_EnvPrecedence(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("max_issues: 50\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(
		"FORESIGHT_MAX_ISSUES=75\nFORESIGHT_LOG_LEVEL=debug\nFORESIGHT_WATCH_DEBOUNCE=1s\n"), 0o644))

	cfg, err := Load(root, WithLookupEnv(envMap(map[string]string{
		"FORESIGHT_MAX_ISSUES":  "99",
		"FORESIGHT_STRICT_MODE": "false",
	})))
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.MaxIssues, "process env beats .env")
	assert.Equal(t, "debug", cfg.Log.Level, ".env beats defaults")
	assert.False(t, cfg.StrictMode)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)

	cfg, err = Load(root, WithLookupEnv(noEnv), WithoutDotEnv())
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxIssues)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad env value", func(t *testing.T) {
		_, err := Load("", WithLookupEnv(envMap(map[string]string{"FORESIGHT_CONCURRENCY": "lots"})))
		assert.ErrorContains(t, err, "FORESIGHT_CONCURRENCY")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Load("", WithLookupEnv(envMap(map[string]string{"FORESIGHT_TRACE_EXPORTER": "jaeger"})))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("persistent cache needs dir", func(t *testing.T) {
		_, err := Load("", WithLookupEnv(envMap(map[string]string{
			"FORESIGHT_CACHE_PERSISTENT": "true",
			"FORESIGHT_CACHE_DIR":        "",
		})))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("max_issues: [\n"), 0o644))
		_, err := Load(root, WithLookupEnv(noEnv))
		assert.Error(t, err)
	})

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load("", WithFile(filepath.Join(t.TempDir(), "nope.yml")), WithLookupEnv(noEnv))
		assert.Error(t, err)
	})
}
