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

// Package bigquery is the engine-C backend, talking to BigQuery over
// Application Default Credentials.
package bigquery

import (
	"context"
	"fmt"

	bigqueryapi "cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/semaphore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// Backend is the BigQuery-backed implementation of backend.Backend.
type Backend struct {
	client   *bigqueryapi.Client
	project  string
	location string
	tracer   trace.Tracer
	sem      *semaphore.Weighted
}

var _ backend.Backend = (*Backend)(nil)

// Open builds a BigQuery client from Application Default Credentials and
// bounds concurrent queries to maxConcurrent.
func Open(ctx context.Context, project, location string, maxConcurrent int, tracer trace.Tracer) (*Backend, error) {
	cred, err := google.FindDefaultCredentials(ctx, bigqueryapi.Scope)
	if err != nil {
		return nil, util.NewIOError("finding default Google Cloud credentials", err)
	}
	client, err := bigqueryapi.NewClient(ctx, project, option.WithCredentials(cred))
	if err != nil {
		return nil, util.NewIOError("constructing bigquery client", err)
	}
	return &Backend{
		client: client, project: project, location: location,
		tracer: tracer, sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}, nil
}

// Dialect returns the engine-C rendering dialect.
func (b *Backend) Dialect() dialect.Dialect { return dialect.BigQuery{} }

// Close releases the underlying client.
func (b *Backend) Close() error { return b.client.Close() }

// FetchSchema reads table's physical shape via the BigQuery table metadata
// API. dataSource is the dataset ID within the configured project.
func (b *Backend) FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	return backend.RetryFetchSchema(ctx, func() (schemacache.TableSchema, error) {
		return b.fetchSchema(ctx, dataSource, table)
	})
}

func (b *Backend) fetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error) {
	ctx, span := b.tracer.Start(ctx, "bigquery.FetchSchema")
	defer span.End()

	md, err := b.client.DatasetInProject(b.project, dataSource).Table(table).Metadata(ctx)
	if err != nil {
		return schemacache.TableSchema{}, util.NewSchemaError(fmt.Sprintf("fetching schema for %s.%s", dataSource, table), err)
	}

	var schema schemacache.TableSchema
	for _, f := range md.Schema {
		schema.Columns = append(schema.Columns, schemacache.ColumnSchema{
			Name:     f.Name,
			DataType: string(f.Type),
			Nullable: !f.Required,
		})
	}
	// BigQuery has no primary-key constraint machinery; declared clustering
	// columns are the closest analogue and are used as a best-effort proxy.
	schema.PrimaryKeys = append(schema.PrimaryKeys, md.Clustering.GetFields()...)
	return schema, nil
}

// ExecuteSQL runs sqlText with "@pN" named parameters supplied positionally
// in args. Never retried: a failed job surfaces to the caller as-is.
func (b *Backend) ExecuteSQL(ctx context.Context, sqlText string, args []any) (*backend.Rows, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, util.NewExecutionError("acquiring query slot", err)
	}
	defer b.sem.Release(1)

	ctx, span := b.tracer.Start(ctx, "bigquery.ExecuteSQL")
	defer span.End()

	q := b.client.Query(sqlText)
	q.Location = b.location
	for i, a := range args {
		q.Parameters = append(q.Parameters, bigqueryapi.QueryParameter{Name: fmt.Sprintf("p%d", i), Value: a})
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, util.NewExecutionError("running bigquery job", err)
	}

	var cols []string
	for _, f := range it.Schema {
		cols = append(cols, f.Name)
	}

	out := &backend.Rows{Columns: cols}
	for {
		var row []bigqueryapi.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, util.NewExecutionError("reading bigquery job results", err)
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = v
		}
		out.Values = append(out.Values, vals)
	}
	return out, nil
}
