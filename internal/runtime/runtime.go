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

// Package runtime wires the registry, planner, renderer, and a backend pool
// together into the one operation callers actually need: compile a request
// and run it.
package runtime

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/cursor"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/planner"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// Result is the backend-agnostic result of Run, with row order preserved
// from the backend.
type Result struct {
	Columns    []string
	Rows       [][]any
	SQL        string
	NextCursor string
}

// Runtime holds an immutable registry snapshot and the backend pool keyed by
// data-source name. Reload atomically swaps the registry for a fresh one;
// Run always reads a consistent snapshot.
type Runtime struct {
	reg      atomic.Pointer[registry.FlowRegistry]
	backends map[string]backend.Backend
}

// New builds a Runtime over an already-loaded registry and a backend pool
// keyed by data-source name.
func New(reg *registry.FlowRegistry, backends map[string]backend.Backend) *Runtime {
	rt := &Runtime{backends: backends}
	rt.reg.Store(reg)
	return rt
}

// Reload atomically swaps in a freshly loaded registry; in-flight Run calls
// keep using the snapshot they started with.
func (rt *Runtime) Reload(reg *registry.FlowRegistry) {
	rt.reg.Store(reg)
}

// Run compiles req against flow, ships the rendered SQL to the flow's
// backend, and returns the result rows unchanged. It looks up the flow's
// base table's data source, asks the planner for SQL IR, renders it with the
// backend's dialect, and executes it — no retry on execution failure.
func (rt *Runtime) Run(ctx context.Context, req registry.QueryRequest) (*Result, error) {
	queryID := uuid.NewString()
	log := slog.With("query_id", queryID, "flow", req.Flow)

	reg := rt.reg.Load()
	flow, ok := reg.GetFlow(req.Flow)
	if !ok {
		return nil, util.NewValidationErrorf("unknown flow %q", req.Flow)
	}
	baseTable, ok := reg.GetTable(flow.BaseTable.SemanticTable)
	if !ok {
		return nil, util.NewValidationErrorf("flow %q references unknown table %q", req.Flow, flow.BaseTable.SemanticTable)
	}

	be, ok := rt.backends[baseTable.DataSource]
	if !ok {
		return nil, util.NewValidationErrorf("no backend registered for data source %q", baseTable.DataSource)
	}

	query, err := planner.Build(reg, flow, req)
	if err != nil {
		log.Warn("compile failed", "error", err)
		return nil, err
	}

	renderer := sqlir.NewRenderer(be.Dialect())
	sqlText := renderer.RenderSelect(query)

	log.Debug("running compiled query", "sql", sqlText)

	rows, err := be.ExecuteSQL(ctx, sqlText, nil)
	if err != nil {
		log.Warn("execution failed", "error", err)
		return nil, err
	}

	result := &Result{Columns: rows.Columns, Rows: rows.Values, SQL: sqlText}
	if req.Limit != nil && uint32(len(rows.Values)) == *req.Limit {
		var offset uint64
		if req.Offset != nil {
			offset = uint64(*req.Offset)
		}
		result.NextCursor = cursor.EncodeSQL(req, offset+uint64(*req.Limit))
	}
	return result, nil
}

// DecodeCursor validates token against req and returns the offset to resume
// from for SQL-paged backends.
func DecodeCursor(token string, req registry.QueryRequest) (uint64, error) {
	c, err := cursor.Decode(token, req)
	if err != nil {
		return 0, err
	}
	return c.Offset, nil
}
