// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads socialgraph settings from YAML.
//
// Resolution order, last wins:
//
//  1. DefaultConfig()
//  2. The YAML file (created with defaults on first run when using the
//     default location)
//  3. SOCIALGRAPH_* environment variables
//  4. Command-line flags (applied by the caller)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSocial/services/social/graph"
	"github.com/AleutianAI/AleutianSocial/services/social/search"
)

// Environment variable names.
const (
	EnvDataPath = "SOCIALGRAPH_DATA_PATH"
	EnvBackend  = "SOCIALGRAPH_BACKEND"
	EnvLogLevel = "SOCIALGRAPH_LOG_LEVEL"
)

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendBadger = "badger"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Rank      RankConfig      `yaml:"rank"`
	Recommend RecommendConfig `yaml:"recommend"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Backend is "csv" or "badger".
	Backend string `yaml:"backend"`

	// Path is the CSV data file.
	Path string `yaml:"path"`

	// BadgerDir is the BadgerDB directory.
	BadgerDir string `yaml:"badger_dir"`

	// SyncWrites fsyncs every badger commit.
	SyncWrites bool `yaml:"sync_writes"`
}

// RankConfig holds PageRank parameters.
type RankConfig struct {
	// Damping must be in (0, 1); 0 falls back to 0.85.
	Damping    float64 `yaml:"damping"`
	Iterations int     `yaml:"iterations"`
}

// RecommendConfig holds recommendation defaults.
type RecommendConfig struct {
	TopK int `yaml:"top_k"`
}

// SearchConfig holds prefix search defaults.
type SearchConfig struct {
	Limit int `yaml:"limit"`
}

// ServerConfig configures `socialgraph serve`.
type ServerConfig struct {
	Address string `yaml:"address"`

	// RateLimit is requests per second across all clients. 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// Watch reloads the CSV file when it is edited externally.
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	// Dir enables a daily JSON log file when non-empty.
	Dir string `yaml:"dir"`
}

// TelemetryConfig mirrors telemetry.Config.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	TraceExporter  string `yaml:"trace_exporter"`
	MetricExporter string `yaml:"metric_exporter"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// DefaultDir returns ~/.socialgraph, or ".socialgraph" if the home
// directory cannot be determined.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".socialgraph"
	}
	return filepath.Join(home, ".socialgraph")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "socialgraph.yaml")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		Storage: StorageConfig{
			Backend:    BackendCSV,
			Path:       filepath.Join(dir, "users.csv"),
			BadgerDir:  filepath.Join(dir, "badger"),
			SyncWrites: true,
		},
		Rank: RankConfig{
			Damping:    graph.DefaultDampingFactor,
			Iterations: graph.DefaultIterations,
		},
		Recommend: RecommendConfig{TopK: 3},
		Search:    SearchConfig{Limit: search.DefaultLimit},
		Server: ServerConfig{
			Address:         ":5000",
			RateLimit:       50,
			Burst:           100,
			Watch:           false,
			Debounce:        300 * time.Millisecond,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName:    "socialgraph",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
	}
}

// Load reads the config file at path.
//
// Description:
//
//	An empty path means DefaultPath(); that file is created with defaults
//	if it does not exist yet. An explicit path must exist. Values absent
//	from the file keep their defaults. Environment overrides are applied
//	and the result is validated.
//
// Outputs:
//
//	Config - The resolved configuration.
//	string - The path actually read.
//	error - Non-nil on I/O, parse or validation failure.
func Load(path string) (Config, string, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := Save(path, cfg); err != nil {
				return cfg, path, err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SOCIALGRAPH_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendCSV:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for csv backend"))
		}
	case BackendBadger:
		if c.Storage.BadgerDir == "" {
			errs = append(errs, errors.New("storage.badger_dir is required for badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q: want csv or badger", c.Storage.Backend))
	}
	if err := graph.CheckDamping(c.Rank.Damping); err != nil {
		errs = append(errs, fmt.Errorf("rank.damping: %w", err))
	}
	if c.Rank.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("rank.iterations %d: want > 0", c.Rank.Iterations))
	}
	if c.Recommend.TopK <= 0 {
		errs = append(errs, fmt.Errorf("recommend.top_k %d: want > 0", c.Recommend.TopK))
	}
	if c.Search.Limit <= 0 {
		errs = append(errs, fmt.Errorf("search.limit %d: want > 0", c.Search.Limit))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit %v: want >= 0", c.Server.RateLimit))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
