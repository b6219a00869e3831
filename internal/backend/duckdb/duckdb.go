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

// Package duckdb is the engine-A backend, talking to an embedded DuckDB
// database through database/sql.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// Backend is the duckdb-backed implementation of backend.Backend.
type Backend struct {
	db     *sql.DB
	tracer trace.Tracer
	sem    *semaphore.Weighted
}

var _ backend.Backend = (*Backend)(nil)

// Open opens dsn (a file path, or ":memory:") and bounds concurrent queries
// to maxConcurrent.
func Open(dsn string, maxConcurrent int, tracer trace.Tracer) (*Backend, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, util.NewIOError(fmt.Sprintf("opening duckdb database %s", dsn), err)
	}
	return &Backend{db: db, tracer: tracer, sem: semaphore.NewWeighted(int64(maxConcurrent))}, nil
}

// Dialect returns the engine-A rendering dialect.
func (b *Backend) Dialect() dialect.Dialect { return dialect.DuckDB{} }

// Close releases the underlying connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// FetchSchema reads table's physical shape from duckdb's information_schema.
func (b *Backend) FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	return backend.RetryFetchSchema(ctx, func() (schemacache.TableSchema, error) {
		return b.fetchSchema(ctx, dataSource, table)
	})
}

func (b *Backend) fetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	ctx, span := b.tracer.Start(ctx, "duckdb.FetchSchema")
	defer span.End()

	rows, err := b.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return schemacache.TableSchema{}, util.NewSchemaError(fmt.Sprintf("fetching schema for %s", table), err)
	}
	defer rows.Close()

	var schema schemacache.TableSchema
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return schemacache.TableSchema{}, util.NewSchemaError("scanning schema row", err)
		}
		schema.Columns = append(schema.Columns, schemacache.ColumnSchema{
			Name: name, DataType: dataType, Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return schemacache.TableSchema{}, util.NewSchemaError(fmt.Sprintf("reading schema for %s", table), err)
	}

	pkRows, err := b.db.QueryContext(ctx, `
		SELECT constraint_column_names
		FROM duckdb_constraints()
		WHERE table_name = ? AND constraint_type = 'PRIMARY KEY'`, table)
	if err == nil {
		defer pkRows.Close()
		for pkRows.Next() {
			var cols []string
			if err := pkRows.Scan(&cols); err == nil {
				schema.PrimaryKeys = append(schema.PrimaryKeys, cols...)
			}
		}
	}
	return schema, nil
}

// ExecuteSQL runs sqlText with positional "?" arguments. Never retried: a
// failed execution surfaces to the caller as-is.
func (b *Backend) ExecuteSQL(ctx context.Context, sqlText string, args []any) (*backend.Rows, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, util.NewExecutionError("acquiring query slot", err)
	}
	defer b.sem.Release(1)

	ctx, span := b.tracer.Start(ctx, "duckdb.ExecuteSQL")
	defer span.End()

	rows, err := b.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, util.NewExecutionError("executing query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, util.NewExecutionError("reading result columns", err)
	}

	out := &backend.Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, util.NewExecutionError("scanning result row", err)
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewExecutionError("reading result rows", err)
	}
	return out, nil
}
