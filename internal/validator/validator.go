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

// Package validator checks a loaded FlowRegistry against the physical
// schemas its tables claim to describe: primary keys, time dimensions and
// simple dimension/measure columns must all actually exist. Flows are
// checked for structural consistency within the registry.
package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// SchemaFetcher is the narrow backend capability the validator needs;
// declared locally (rather than importing internal/backend) to avoid a
// dependency cycle.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context, dataSource, table string) (schemacache.TableSchema, error)
}

// Validator checks a FlowRegistry's tables and flows against live schemas,
// fetched through fetcher and cached in cache.
type Validator struct {
	fetcher  SchemaFetcher
	cache    *schemacache.SchemaCache
	warnOnly bool
}

// New constructs a Validator. When warnOnly is true, a failed check logs a
// warning instead of returning a Validation error — used for degraded-boot
// mode where the registry loads even if some of its schema checks fail.
func New(fetcher SchemaFetcher, cache *schemacache.SchemaCache, warnOnly bool) *Validator {
	return &Validator{fetcher: fetcher, cache: cache, warnOnly: warnOnly}
}

// ValidateRegistry validates every semantic table and flow in reg.
func (v *Validator) ValidateRegistry(ctx context.Context, reg *registry.FlowRegistry) error {
	for _, t := range reg.Tables() {
		schema, err := v.ensureSchema(ctx, t)
		if err != nil {
			return err
		}
		if err := v.validateTable(t, schema); err != nil {
			return err
		}
	}
	for _, s := range reg.ListFlowSummaries() {
		flow, _ := reg.GetFlow(s.Name)
		if err := v.ValidateFlow(reg, flow); err != nil {
			if !v.warnOnly {
				return err
			}
			slog.Warn(err.Error())
		}
	}
	return nil
}

func (v *Validator) ensureSchema(ctx context.Context, t registry.SemanticTable) (schemacache.TableSchema, error) {
	if s, ok := v.cache.Get(t.DataSource, t.Table); ok {
		return s, nil
	}
	s, err := v.fetcher.FetchSchema(ctx, t.DataSource, t.Table)
	if err != nil {
		return schemacache.TableSchema{}, util.NewSchemaError(fmt.Sprintf("fetching schema for %s.%s", t.DataSource, t.Table), err)
	}
	v.cache.Insert(t.DataSource, t.Table, s)
	return s, nil
}

func (v *Validator) check(condition bool, message string) error {
	if condition {
		return nil
	}
	if v.warnOnly {
		slog.Warn(message)
		return nil
	}
	return util.NewValidationError(message)
}

func tableHasColumn(schema schemacache.TableSchema, name string) bool {
	for _, c := range schema.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (v *Validator) validateTable(t registry.SemanticTable, schema schemacache.TableSchema) error {
	if err := v.check(tableHasColumn(schema, t.PrimaryKey),
		fmt.Sprintf("table %q: primary key %q not found in physical schema", t.Name, t.PrimaryKey)); err != nil {
		return err
	}
	if t.TimeDimension != nil {
		if err := v.check(tableHasColumn(schema, *t.TimeDimension),
			fmt.Sprintf("table %q: time dimension %q not found in physical schema", t.Name, *t.TimeDimension)); err != nil {
			return err
		}
	}
	for name, d := range t.Dimensions {
		col, ok := expr.SimpleColumnName(d.Expression)
		if !ok {
			continue
		}
		if err := v.check(tableHasColumn(schema, col),
			fmt.Sprintf("table %q: dimension %q references unknown column %q", t.Name, name, col)); err != nil {
			return err
		}
	}
	for name, m := range t.Measures {
		col, ok := expr.SimpleColumnName(m.Expr)
		if !ok {
			continue
		}
		if err := v.check(tableHasColumn(schema, col),
			fmt.Sprintf("table %q: measure %q references unknown column %q", t.Name, name, col)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFlow checks a flow's structural invariants against reg: alias
// uniqueness, every join resolving to a known table and prior alias, a
// single shared data source, and the right side of every join key naming a
// column the joined semantic table declares (its primary key, time dimension
// or a simple-column dimension). The left side of a join key is not checked,
// and neither side is checked against the physical schema.
func (v *Validator) ValidateFlow(reg *registry.FlowRegistry, flow registry.SemanticFlow) error {
	aliases := map[string]bool{flow.BaseTable.Alias: true}
	baseTable, ok := reg.GetTable(flow.BaseTable.SemanticTable)
	if !ok {
		return util.NewValidationErrorf("flow %q: unknown semantic table %q", flow.Name, flow.BaseTable.SemanticTable)
	}
	dataSource := baseTable.DataSource

	for alias := range flow.Joins {
		if aliases[alias] {
			return util.NewValidationErrorf("flow %q: duplicate alias %q", flow.Name, alias)
		}
		aliases[alias] = true
	}
	for alias, j := range flow.Joins {
		t, ok := reg.GetTable(j.SemanticTable)
		if !ok {
			return util.NewValidationErrorf("flow %q: join %q references unknown semantic table %q", flow.Name, alias, j.SemanticTable)
		}
		if t.DataSource != dataSource {
			return util.NewValidationErrorf("flow %q: join %q is on data source %q, expected %q", flow.Name, alias, t.DataSource, dataSource)
		}
		if j.ToTable != flow.BaseTable.Alias && !aliases[j.ToTable] {
			return util.NewValidationErrorf("flow %q: join %q references unknown prior alias %q", flow.Name, alias, j.ToTable)
		}
		if len(j.JoinKeys) == 0 {
			return util.NewValidationErrorf("flow %q: join %q has no join keys", flow.Name, alias)
		}
		for _, k := range j.JoinKeys {
			if !tableHasSimpleColumn(t, k.Right) {
				return util.NewValidationErrorf("flow %q: join %q key %q not found on %q", flow.Name, alias, k.Right, j.SemanticTable)
			}
		}
	}
	return nil
}

func tableHasSimpleColumn(t registry.SemanticTable, col string) bool {
	if t.PrimaryKey == col {
		return true
	}
	if t.TimeDimension != nil && *t.TimeDimension == col {
		return true
	}
	for _, d := range t.Dimensions {
		if c, ok := expr.SimpleColumnName(d.Expression); ok && c == col {
			return true
		}
	}
	return false
}
