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

// Package postgres is the engine-B backend, talking to PostgreSQL through
// pgx's database/sql driver.
package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"database/sql"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// Backend is the postgres-backed implementation of backend.Backend.
type Backend struct {
	db     *sql.DB
	tracer trace.Tracer
	sem    *semaphore.Weighted
}

var _ backend.Backend = (*Backend)(nil)

// Open opens dsn against PostgreSQL and bounds concurrent queries to
// maxConcurrent.
func Open(dsn string, maxConcurrent int, tracer trace.Tracer) (*Backend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, util.NewIOError("opening postgres connection", err)
	}
	return &Backend{db: db, tracer: tracer, sem: semaphore.NewWeighted(int64(maxConcurrent))}, nil
}

// Dialect returns the engine-B rendering dialect.
func (b *Backend) Dialect() dialect.Dialect { return dialect.Postgres{} }

// Close releases the underlying connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// FetchSchema reads table's physical shape from PostgreSQL's
// information_schema and pg_index.
func (b *Backend) FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	return backend.RetryFetchSchema(ctx, func() (schemacache.TableSchema, error) {
		return b.fetchSchema(ctx, dataSource, table)
	})
}

func (b *Backend) fetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	ctx, span := b.tracer.Start(ctx, "postgres.FetchSchema")
	defer span.End()

	rows, err := b.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
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
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary`, table)
	if err == nil {
		defer pkRows.Close()
		for pkRows.Next() {
			var col string
			if err := pkRows.Scan(&col); err == nil {
				schema.PrimaryKeys = append(schema.PrimaryKeys, col)
			}
		}
	}
	return schema, nil
}

// ExecuteSQL runs sqlText with positional "$N" arguments. Never retried: a
// failed execution surfaces to the caller as-is.
func (b *Backend) ExecuteSQL(ctx context.Context, sqlText string, args []any) (*backend.Rows, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, util.NewExecutionError("acquiring query slot", err)
	}
	defer b.sem.Release(1)

	ctx, span := b.tracer.Start(ctx, "postgres.ExecuteSQL")
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
