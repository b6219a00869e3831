// Copyright 2026 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the compiler's ambient settings — registry
// location, per-datasource connection info, schema cache tuning, and
// validation mode — from a single YAML document.
package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/log"
)

// DatasourceConfig describes one backend connection.
type DatasourceConfig struct {
	Kind     string `yaml:"kind" validate:"required,oneof=duckdb postgres bigquery"`
	DSN      string `yaml:"dsn" validate:"required_unless=Kind bigquery"`
	Project  string `yaml:"project,omitempty" validate:"required_if=Kind bigquery"`
	Location string `yaml:"location,omitempty"`
}

// SchemaCacheConfig tunes internal/schemacache.
type SchemaCacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size" validate:"min=1"`
}

// ValidationConfig controls how registry validation reacts to schema
// mismatches.
type ValidationConfig struct {
	WarnOnly bool `yaml:"warn_only"`
}

// LoggingConfig selects the logger internal/log builds for the process.
type LoggingConfig struct {
	Format string `yaml:"format" validate:"omitempty,oneof=standard json"`
	Level  string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
}

// QueryConfig bounds request-level defaults.
type QueryConfig struct {
	DefaultLimit uint32 `yaml:"default_limit" validate:"min=1"`
	MaxLimit     uint32 `yaml:"max_limit" validate:"min=1"`
}

// PoolConfig bounds backend connection concurrency.
type PoolConfig struct {
	MaxOpenConns        int `yaml:"max_open_conns" validate:"min=1"`
	MaxConcurrentQueries int `yaml:"max_concurrent_queries" validate:"min=1"`
}

// Config is the full compiler configuration.
type Config struct {
	RegistryDir string                      `yaml:"registry_dir" validate:"required"`
	Datasources map[string]DatasourceConfig `yaml:"datasources" validate:"required,min=1,dive"`
	SchemaCache SchemaCacheConfig           `yaml:"schema_cache"`
	Validation  ValidationConfig            `yaml:"validation"`
	Query       QueryConfig                 `yaml:"query"`
	Pool        PoolConfig                  `yaml:"pool"`
	Logging     LoggingConfig               `yaml:"logging"`
}

// Default returns a Config with every ambient knob set to its default,
// leaving only RegistryDir/Datasources for the caller to fill in.
func Default() Config {
	return Config{
		SchemaCache: SchemaCacheConfig{TTL: 5 * time.Minute, MaxSize: 1024},
		Query:       QueryConfig{DefaultLimit: 100, MaxLimit: 10_000},
		Pool:        PoolConfig{MaxOpenConns: 10, MaxConcurrentQueries: 4},
		Logging:     LoggingConfig{Format: "standard", Level: "INFO"},
	}
}

// NewLogger builds the log.Logger described by cfg.Logging, writing
// informational records to out and warnings/errors to errW.
func (c Config) NewLogger(out, errW io.Writer) (log.Logger, error) {
	return log.NewLogger(c.Logging.Format, c.Logging.Level, out, errW)
}

// Load reads and validates a Config from path.
func Load(ctx context.Context, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.DecodeContext(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}
