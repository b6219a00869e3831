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

// Package faketest is an in-memory backend.Backend double for exercising the
// resolver, planner, validator, and runtime without a live database.
package faketest

import (
	"context"
	"fmt"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
)

// Backend is a fake backend.Backend with canned schemas and a recorded
// history of executed SQL.
type Backend struct {
	Dialect_ dialect.Dialect
	Schemas  map[string]schemacache.TableSchema // keyed "dataSource.table"
	Result   *backend.Rows
	ExecErr  error

	Executed []Execution
}

// Execution is one recorded call to ExecuteSQL.
type Execution struct {
	SQL  string
	Args []any
}

var _ backend.Backend = (*Backend)(nil)

// New returns a Backend rendering for dialect d.
func New(d dialect.Dialect) *Backend {
	return &Backend{Dialect_: d, Schemas: map[string]schemacache.TableSchema{}}
}

// WithSchema registers the schema returned for (dataSource, table).
func (b *Backend) WithSchema(dataSource, table string, schema schemacache.TableSchema) *Backend {
	b.Schemas[dataSource+"."+table] = schema
	return b
}

// WithResult sets the Rows returned by every subsequent ExecuteSQL call.
func (b *Backend) WithResult(rows *backend.Rows) *Backend {
	b.Result = rows
	return b
}

func (b *Backend) Dialect() dialect.Dialect { return b.Dialect_ }

func (b *Backend) Close() error { return nil }

func (b *Backend) FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	s, ok := b.Schemas[dataSource+"."+table]
	if !ok {
		return schemacache.TableSchema{}, fmt.Errorf("faketest: no schema registered for %s.%s", dataSource, table)
	}
	return s, nil
}

func (b *Backend) ExecuteSQL(ctx context.Context, sqlText string, args []any) (*backend.Rows, error) {
	b.Executed = append(b.Executed, Execution{SQL: sqlText, Args: args})
	if b.ExecErr != nil {
		return nil, b.ExecErr
	}
	if b.Result != nil {
		return b.Result, nil
	}
	return &backend.Rows{}, nil
}
