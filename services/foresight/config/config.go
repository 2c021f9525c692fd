// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads Foresight settings from embedded defaults, a
// project .foresight.yml, .env files and FORESIGHT_* variables, in that
// order of increasing precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up at the root.
const FileName = ".foresight.yml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORESIGHT_"

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	validate = validator.New()
)

// Config is the complete Foresight configuration.
type Config struct {
	Concurrency         int     `yaml:"concurrency" validate:"gte=0,lte=256"`
	MaxIssues           int     `yaml:"max_issues" validate:"gte=-1"`
	StrictMode          bool    `yaml:"strict_mode"`
	PredictErrors       bool    `yaml:"predict_errors"`
	AnalyzeDependencies bool    `yaml:"analyze_dependencies"`
	MinProbability      float64 `yaml:"min_probability" validate:"gte=0,lte=1"`

	Discovery Discovery `yaml:"discovery"`
	Cache     Cache     `yaml:"cache"`
	Watch     Watch     `yaml:"watch"`

	// CustomRules is a YAML rule file, relative to the project root.
	CustomRules string `yaml:"custom_rules"`

	// Vulnerabilities is an extra vulnerable-range table merged over
	// the built-in one.
	Vulnerabilities string `yaml:"vulnerabilities"`

	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
	Server    Server    `yaml:"server"`
}

// Discovery controls which files are analyzed.
type Discovery struct {
	Include        []string `yaml:"include"`
	Exclude        []string `yaml:"exclude"`
	MaxFileSize    int64    `yaml:"max_file_size" validate:"gt=0"`
	FollowSymlinks bool     `yaml:"follow_symlinks"`
}

// Cache controls the file-result cache.
type Cache struct {
	MemoryEntries int           `yaml:"memory_entries" validate:"gt=0"`
	Persistent    bool          `yaml:"persistent"`
	Dir           string        `yaml:"dir" validate:"required_if=Persistent true"`
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
}

// Watch controls watch mode.
type Watch struct {
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
	MaxRate  float64       `yaml:"max_rate" validate:"gte=0"`
}

// Log controls logging.
type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Telemetry selects exporters.
type Telemetry struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
}

// Server configures `foresight serve`.
type Server struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// Default returns the embedded defaults.
func Default() *Config {
	var cfg Config
	// The embedded file is covered by tests.
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return &cfg
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	file      string
	dotenv    bool
	lookupEnv func(string) (string, bool)
}

// WithFile loads this YAML file instead of <root>/.foresight.yml. The
// file must exist.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) { l.lookupEnv = fn }
}

// WithoutDotEnv skips reading <root>/.env.
func WithoutDotEnv() Option {
	return func(l *loader) { l.dotenv = false }
}

// Load builds the configuration for a project.
//
// Description:
//
//	Starts from the embedded defaults, overlays <root>/.foresight.yml
//	when present, then applies FORESIGHT_* variables. Variables come from
//	the process environment first and <root>/.env second; the .env file
//	never modifies the process environment. The result is validated.
//
// Inputs:
//
//	root - Project directory. May be empty to skip project files.
//	opts - Loader options.
//
// Outputs:
//
//	*Config - Validated configuration.
//	error - Parse errors, or ErrInvalidConfig.
func Load(root string, opts ...Option) (*Config, error) {
	l := &loader{dotenv: true, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()

	path, required := l.file, l.file != ""
	if path == "" && root != "" {
		path = filepath.Join(root, FileName)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case required || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	env := l.lookupEnv
	if l.dotenv && root != "" {
		vars, err := godotenv.Read(filepath.Join(root, ".env"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
		env = func(key string) (string, bool) {
			if v, ok := l.lookupEnv(key); ok {
				return v, true
			}
			v, ok := vars[key]
			return v, ok
		}
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CacheDir returns the cache directory with a leading ~ expanded.
func (c *Config) CacheDir() string {
	dir := c.Cache.Dir
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return dir
}

// applyEnv overlays FORESIGHT_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"CONCURRENCY":          &cfg.Concurrency,
		"MAX_ISSUES":           &cfg.MaxIssues,
		"CACHE_MEMORY_ENTRIES": &cfg.Cache.MemoryEntries,
		"PORT":                 &cfg.Server.Port,
	}
	bools := map[string]*bool{
		"STRICT_MODE":          &cfg.StrictMode,
		"PREDICT_ERRORS":       &cfg.PredictErrors,
		"ANALYZE_DEPENDENCIES": &cfg.AnalyzeDependencies,
		"CACHE_PERSISTENT":     &cfg.Cache.Persistent,
		"LOG_JSON":             &cfg.Log.JSON,
	}
	strs := map[string]*string{
		"CACHE_DIR":       &cfg.Cache.Dir,
		"CUSTOM_RULES":    &cfg.CustomRules,
		"VULNERABILITIES": &cfg.Vulnerabilities,
		"LOG_LEVEL":       &cfg.Log.Level,
		"LOG_DIR":         &cfg.Log.Dir,
		"TRACE_EXPORTER":  &cfg.Telemetry.TraceExporter,
		"METRIC_EXPORTER": &cfg.Telemetry.MetricExporter,
		"OTLP_ENDPOINT":   &cfg.Telemetry.OTLPEndpoint,
	}

	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}
	for name, dst := range bools {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup(EnvPrefix + "WATCH_DEBOUNCE"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sWATCH_DEBOUNCE: %w", EnvPrefix, err)
		}
		cfg.Watch.Debounce = d
	}
	return nil
}
