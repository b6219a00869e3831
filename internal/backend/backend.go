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

// Package backend executes rendered SQL and fetches physical table schemas
// against one of the three supported engines.
package backend

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
)

// Rows is the backend-agnostic result of ExecuteSQL.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Backend executes compiled SQL against one physical data source and
// reports the schema the validator checks the semantic model against.
type Backend interface {
	Dialect() dialect.Dialect
	FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error)
	ExecuteSQL(ctx context.Context, sqlText string, args []any) (*Rows, error)
	Close() error
}

// RetryFetchSchema retries fetch with exponential backoff. FetchSchema is
// idempotent and safe to retry on a transient connection error; ExecuteSQL
// is never retried by any implementation (spec.md forbids it).
func RetryFetchSchema(ctx context.Context, fetch func() (schemacache.TableSchema, error)) (schemacache.TableSchema, error) {
	return backoff.Retry(ctx, fetch, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}
