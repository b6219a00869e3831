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

package config_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidDuckDBConfig(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: duckdb
    dsn: /var/data/warehouse.db
`)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.RegistryDir != "/etc/semaflow/registry" {
		t.Errorf("RegistryDir = %q, want /etc/semaflow/registry", cfg.RegistryDir)
	}
	ds, ok := cfg.Datasources["main"]
	if !ok || ds.Kind != "duckdb" || ds.DSN != "/var/data/warehouse.db" {
		t.Errorf("Datasources[main] = %+v, want duckdb dsn", ds)
	}
	// Ambient defaults still apply when the document doesn't override them.
	if cfg.SchemaCache.MaxSize != 1024 || cfg.SchemaCache.TTL != 5*time.Minute {
		t.Errorf("SchemaCache = %+v, want the default TTL/MaxSize", cfg.SchemaCache)
	}
	if cfg.Query.DefaultLimit != 100 || cfg.Query.MaxLimit != 10_000 {
		t.Errorf("Query = %+v, want the default limits", cfg.Query)
	}
}

func TestLoadBigQueryRequiresProjectNotDSN(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  warehouse:
    kind: bigquery
    project: my-gcp-project
    location: US
`)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Datasources["warehouse"].Project != "my-gcp-project" {
		t.Errorf("Project = %q, want my-gcp-project", cfg.Datasources["warehouse"].Project)
	}
}

func TestLoadBigQueryWithoutProjectFails(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  warehouse:
    kind: bigquery
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail: bigquery datasource requires project")
	}
}

func TestLoadNonBigQueryWithoutDSNFails(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: postgres
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail: postgres datasource requires dsn")
	}
}

func TestLoadRejectsUnknownDatasourceKind(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: mysql
    dsn: foo
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail for an unsupported datasource kind")
	}
}

func TestLoadRequiresRegistryDir(t *testing.T) {
	path := writeConfig(t, `
datasources:
  main:
    kind: duckdb
    dsn: /var/data/warehouse.db
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail without registry_dir")
	}
}

func TestLoadRequiresAtLeastOneDatasource(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources: {}
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail with no datasources")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error reading a missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "registry_dir: [this is not, a valid, mapping")
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected an error parsing malformed YAML")
	}
}

func TestLoadOverridesAmbientDefaults(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: duckdb
    dsn: /var/data/warehouse.db
schema_cache:
  ttl: 1m
  max_size: 64
query:
  default_limit: 25
  max_limit: 500
pool:
  max_open_conns: 5
  max_concurrent_queries: 2
validation:
  warn_only: true
`)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.SchemaCache.TTL != time.Minute || cfg.SchemaCache.MaxSize != 64 {
		t.Errorf("SchemaCache = %+v, want overridden ttl=1m max_size=64", cfg.SchemaCache)
	}
	if cfg.Query.DefaultLimit != 25 || cfg.Query.MaxLimit != 500 {
		t.Errorf("Query = %+v, want overridden limits", cfg.Query)
	}
	if cfg.Pool.MaxOpenConns != 5 || cfg.Pool.MaxConcurrentQueries != 2 {
		t.Errorf("Pool = %+v, want overridden pool settings", cfg.Pool)
	}
	if !cfg.Validation.WarnOnly {
		t.Error("Validation.WarnOnly = false, want true")
	}
}

func TestLoadDefaultsLoggingFormatAndLevel(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: duckdb
    dsn: /var/data/warehouse.db
`)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Logging.Format != "standard" || cfg.Logging.Level != "INFO" {
		t.Errorf("Logging = %+v, want the default standard/INFO logger", cfg.Logging)
	}
}

func TestLoadRejectsUnknownLoggingFormat(t *testing.T) {
	path := writeConfig(t, `
registry_dir: /etc/semaflow/registry
datasources:
  main:
    kind: duckdb
    dsn: /var/data/warehouse.db
logging:
  format: xml
  level: INFO
`)
	if _, err := config.Load(context.Background(), path); err == nil {
		t.Fatal("expected validation to fail for an unsupported logging format")
	}
}

func TestConfigNewLoggerBuildsAWorkingLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "DEBUG"

	var out, errOut bytes.Buffer
	logger, err := cfg.NewLogger(&out, &errOut)
	if err != nil {
		t.Fatalf("NewLogger: unexpected error: %v", err)
	}

	logger.InfoContext(context.Background(), "hello")
	if out.Len() == 0 {
		t.Error("expected InfoContext to write to the out writer")
	}

	logger.ErrorContext(context.Background(), "boom")
	if errOut.Len() == 0 {
		t.Error("expected ErrorContext to write to the err writer")
	}
}

func TestConfigNewLoggerRejectsInvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "NOT_A_LEVEL"
	if _, err := cfg.NewLogger(&bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected NewLogger to reject an invalid level")
	}
}
